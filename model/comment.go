package model

import (
	"time"

	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"gorm.io/gorm"
)

// Comment is a lesson discussion entry; ParentID threads replies
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_comment_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;index:idx_comment_user" json:"user_id" validate:"required"`
	LessonID  uint      `gorm:"not null;index:idx_comment_lesson;index:idx_comment_created,priority:1" json:"lesson_id" validate:"required"`
	Body      string    `gorm:"type:text;not null" json:"body" validate:"required_if=IsDeleted false,max=5000"`
	ParentID  *uint     `gorm:"index:idx_comment_parent" json:"parent_id,omitempty"`
	IsEdited  bool      `gorm:"not null;default:false" json:"is_edited"`
	IsDeleted bool      `gorm:"not null;default:false" json:"is_deleted"`

	// Relationships
	User    *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Lesson  *Lesson   `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
	Replies []Comment `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeSave validates the comment row
func (c *Comment) BeforeSave(tx *gorm.DB) error {
	if c.ParentID != nil && *c.ParentID == c.ID && c.ID != 0 {
		return apperr.Validation("comment", "parent_id", "self_reference", "comment cannot reply to itself")
	}
	return Validate("comment", c)
}

// Tombstone clears the body and marks the comment deleted while keeping its place in the thread
func (c *Comment) Tombstone() {
	c.Body = ""
	c.IsDeleted = true
}
