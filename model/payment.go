package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Order is a purchase intent for a course through a payment provider
type Order struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	UserID          uint              `gorm:"not null;index:idx_order_user" json:"user_id" validate:"required"`
	CourseID        uint              `gorm:"not null;index:idx_order_course" json:"course_id" validate:"required"`
	Provider        PaymentProvider   `gorm:"type:varchar(20);not null;index:idx_order_provider;check:chk_order_provider,provider IN ('razorpay','phonepe','stripe')" json:"provider" validate:"enum"`
	AmountINR       int               `gorm:"not null;check:chk_order_amount_positive,amount_inr > 0" json:"amount_inr" validate:"gt=0"` // paise
	Status          OrderStatus       `gorm:"type:varchar(20);not null;index:idx_order_status;check:chk_order_status,status IN ('created','pending','processing','completed','failed','refunded')" json:"status" validate:"enum"`
	ProviderOrderID *string           `gorm:"type:varchar(255);index:idx_order_provider_order" json:"provider_order_id,omitempty" validate:"omitempty,max=255"`
	ReceiptNumber   string            `gorm:"type:varchar(100);uniqueIndex:idx_order_receipt;not null" json:"receipt_number" validate:"required,max=100"`
	Notes           datatypes.JSONMap `json:"notes,omitempty"`

	// Relationships
	User     *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course   *Course   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Payments []Payment `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

// BeforeSave applies the default status and validates the row
func (o *Order) BeforeSave(tx *gorm.DB) error {
	if o.Status == "" {
		o.Status = OrderCreated
	}
	return Validate("order", o)
}

// IsSettled reports whether the order reached a terminal state
func (o *Order) IsSettled() bool {
	return o.Status == OrderCompleted || o.Status == OrderFailed || o.Status == OrderRefunded
}

// Payment is a single provider-side payment against an order
type Payment struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	OrderID           uint           `gorm:"not null;index:idx_payment_order" json:"order_id" validate:"required"`
	ProviderPaymentID string         `gorm:"type:varchar(255);uniqueIndex:idx_payment_provider_id;not null" json:"provider_payment_id" validate:"required,max=255"`
	Status            PaymentStatus  `gorm:"type:varchar(20);not null;index:idx_payment_status;check:chk_payment_status,status IN ('pending','authorized','captured','failed','refunded')" json:"status" validate:"enum"`
	AmountINR         int            `gorm:"not null;check:chk_payment_amount_positive,amount_inr > 0" json:"amount_inr" validate:"gt=0"`
	Method            *string        `gorm:"type:varchar(50)" json:"method,omitempty" validate:"omitempty,max=50"`
	MetaJSON          datatypes.JSON `json:"meta,omitempty"`

	// Relationships
	Order *Order `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeSave applies the default status and validates the row
func (p *Payment) BeforeSave(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = PaymentPending
	}
	return Validate("payment", p)
}
