package model

import (
	"time"

	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is an append-only record of an action taken by a user
type AuditLog struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	ActorID   uint              `gorm:"not null;index:idx_audit_actor" json:"actor_id" validate:"required"`
	Action    string            `gorm:"type:varchar(100);not null;index:idx_audit_action" json:"action" validate:"required,max=100"` // e.g. "course.create"
	Target    string            `gorm:"type:varchar(100);not null;index:idx_audit_target" json:"target" validate:"required,max=100"` // e.g. "courses"
	TargetID  *uint             `json:"target_id,omitempty"`
	Meta      datatypes.JSONMap `json:"meta,omitempty"`
	IPAddress *string           `gorm:"type:varchar(45)" json:"ip_address,omitempty" validate:"omitempty,max=45"`
	UserAgent *string           `gorm:"type:varchar(500)" json:"user_agent,omitempty"`
	CreatedAt time.Time         `gorm:"not null;index:idx_audit_created" json:"created_at"`

	// Relationships
	Actor *User `gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE" json:"actor,omitempty"`
}

// ErrAuditLogImmutable is returned when an audit row is updated or deleted directly
var ErrAuditLogImmutable = apperr.Conflict("audit log entries are append-only")

// BeforeCreate validates the row and truncates the user agent to its column size
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.UserAgent != nil && len(*a.UserAgent) > 500 {
		ua := (*a.UserAgent)[:500]
		a.UserAgent = &ua
	}
	return Validate("audit_log", a)
}

// BeforeUpdate rejects every update
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}

// BeforeDelete rejects direct deletes; rows go away only with their actor
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_log"
}
