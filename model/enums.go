package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/sahilchouksey/byteboost-api/utils/apperr"
)

// UserRole is the role a user acts under
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// EnrollmentStatus tracks the lifecycle of an enrollment
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentRefunded  EnrollmentStatus = "refunded"
	EnrollmentExpired   EnrollmentStatus = "expired"
)

// OrderStatus tracks the lifecycle of an order
type OrderStatus string

const (
	OrderCreated    OrderStatus = "created"
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderFailed     OrderStatus = "failed"
	OrderRefunded   OrderStatus = "refunded"
)

// PaymentStatus tracks a single payment attempt
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// PaymentProvider is the gateway an order is paid through
type PaymentProvider string

const (
	ProviderRazorpay PaymentProvider = "razorpay"
	ProviderPhonePe  PaymentProvider = "phonepe"
	ProviderStripe   PaymentProvider = "stripe"
)

// SFUProvider is the realtime media service hosting a live room
type SFUProvider string

const (
	SFULiveKit SFUProvider = "livekit"
	SFUJitsi   SFUProvider = "jitsi"
	SFUCustom  SFUProvider = "custom"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentPending, EnrollmentActive, EnrollmentCompleted, EnrollmentRefunded, EnrollmentExpired:
		return true
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderCreated, OrderPending, OrderProcessing, OrderCompleted, OrderFailed, OrderRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentAuthorized, PaymentCaptured, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

func (p PaymentProvider) Valid() bool {
	switch p {
	case ProviderRazorpay, ProviderPhonePe, ProviderStripe:
		return true
	}
	return false
}

func (p SFUProvider) Valid() bool {
	switch p {
	case SFULiveKit, SFUJitsi, SFUCustom:
		return true
	}
	return false
}

// enum is the constraint shared by every closed string set above
type enum interface {
	~string
	Valid() bool
}

func parseEnum[T enum](kind, raw string) (T, error) {
	v := T(raw)
	if !v.Valid() {
		return v, apperr.Validation(kind, "", "enum", fmt.Sprintf("%q is not a valid %s", raw, kind))
	}
	return v, nil
}

func scanEnum[T enum](kind string, dst *T, src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return apperr.Validation(kind, "", "enum", "null is not a valid "+kind)
	default:
		return fmt.Errorf("cannot scan %T into %s", src, kind)
	}

	parsed, err := parseEnum[T](kind, raw)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

func enumValue[T enum](kind string, v T) (driver.Value, error) {
	if !v.Valid() {
		return nil, apperr.Validation(kind, "", "enum", fmt.Sprintf("%q is not a valid %s", string(v), kind))
	}
	return string(v), nil
}

func unmarshalEnum[T enum](kind string, dst *T, data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperr.Validation(kind, "", "enum", kind+" must be a string")
	}
	parsed, err := parseEnum[T](kind, raw)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

// ParseUserRole converts raw into a UserRole, rejecting unknown values
func ParseUserRole(raw string) (UserRole, error) { return parseEnum[UserRole]("user_role", raw) }

// ParseEnrollmentStatus converts raw into an EnrollmentStatus
func ParseEnrollmentStatus(raw string) (EnrollmentStatus, error) {
	return parseEnum[EnrollmentStatus]("enrollment_status", raw)
}

// ParseOrderStatus converts raw into an OrderStatus
func ParseOrderStatus(raw string) (OrderStatus, error) {
	return parseEnum[OrderStatus]("order_status", raw)
}

// ParsePaymentStatus converts raw into a PaymentStatus
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	return parseEnum[PaymentStatus]("payment_status", raw)
}

// ParsePaymentProvider converts raw into a PaymentProvider
func ParsePaymentProvider(raw string) (PaymentProvider, error) {
	return parseEnum[PaymentProvider]("payment_provider", raw)
}

// ParseSFUProvider converts raw into an SFUProvider
func ParseSFUProvider(raw string) (SFUProvider, error) {
	return parseEnum[SFUProvider]("sfu_provider", raw)
}

func (r *UserRole) Scan(src interface{}) error { return scanEnum("user_role", r, src) }

func (r UserRole) Value() (driver.Value, error) { return enumValue("user_role", r) }

func (r *UserRole) UnmarshalJSON(data []byte) error { return unmarshalEnum("user_role", r, data) }

func (s *EnrollmentStatus) Scan(src interface{}) error { return scanEnum("enrollment_status", s, src) }

func (s EnrollmentStatus) Value() (driver.Value, error) { return enumValue("enrollment_status", s) }

func (s *EnrollmentStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum("enrollment_status", s, data)
}

func (s *OrderStatus) Scan(src interface{}) error { return scanEnum("order_status", s, src) }

func (s OrderStatus) Value() (driver.Value, error) { return enumValue("order_status", s) }

func (s *OrderStatus) UnmarshalJSON(data []byte) error { return unmarshalEnum("order_status", s, data) }

func (s *PaymentStatus) Scan(src interface{}) error { return scanEnum("payment_status", s, src) }

func (s PaymentStatus) Value() (driver.Value, error) { return enumValue("payment_status", s) }

func (s *PaymentStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum("payment_status", s, data)
}

func (p *PaymentProvider) Scan(src interface{}) error { return scanEnum("payment_provider", p, src) }

func (p PaymentProvider) Value() (driver.Value, error) { return enumValue("payment_provider", p) }

func (p *PaymentProvider) UnmarshalJSON(data []byte) error {
	return unmarshalEnum("payment_provider", p, data)
}

func (p *SFUProvider) Scan(src interface{}) error { return scanEnum("sfu_provider", p, src) }

func (p SFUProvider) Value() (driver.Value, error) { return enumValue("sfu_provider", p) }

func (p *SFUProvider) UnmarshalJSON(data []byte) error { return unmarshalEnum("sfu_provider", p, data) }
