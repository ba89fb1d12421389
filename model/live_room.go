package model

import (
	"time"

	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"gorm.io/gorm"
)

const (
	DefaultMaxParticipants = 100
	MaxParticipantsLimit   = 1000
)

// LiveRoom is a scheduled realtime class for a course
type LiveRoom struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	CourseID        uint        `gorm:"not null;index:idx_liveroom_course" json:"course_id" validate:"required"`
	Title           string      `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	Description     *string     `gorm:"type:text" json:"description,omitempty"`
	StartTS         time.Time   `gorm:"not null;index:idx_liveroom_start" json:"start_ts" validate:"required"`
	EndTS           time.Time   `gorm:"not null;check:chk_room_time_valid,end_ts > start_ts" json:"end_ts" validate:"required,gtfield=StartTS"`
	SFUProvider     SFUProvider `gorm:"type:varchar(20);not null;check:chk_room_sfu_provider,sfu_provider IN ('livekit','jitsi','custom')" json:"sfu_provider" validate:"enum"`
	RoomName        string      `gorm:"type:varchar(100);uniqueIndex:idx_liveroom_name;not null" json:"room_name" validate:"required,max=100"`
	IsActive        bool        `gorm:"not null;index:idx_liveroom_active" json:"is_active"`
	RecordingURL    *string     `gorm:"type:varchar(500)" json:"recording_url,omitempty" validate:"omitempty,max=500"`
	MaxParticipants int         `gorm:"not null;default:100;check:chk_room_max_participants,max_participants >= 1 AND max_participants <= 1000" json:"max_participants" validate:"gte=1,lte=1000"`

	// Relationships
	Course     *Course      `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Attendance []Attendance `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeSave applies defaults and validates the row
func (r *LiveRoom) BeforeSave(tx *gorm.DB) error {
	if r.SFUProvider == "" {
		r.SFUProvider = SFULiveKit
	}
	if r.MaxParticipants == 0 {
		r.MaxParticipants = DefaultMaxParticipants
	}
	return Validate("live_room", r)
}

// InWindow reports whether now falls inside [StartTS, EndTS)
func (r *LiveRoom) InWindow(now time.Time) bool {
	return !now.Before(r.StartTS) && now.Before(r.EndTS)
}

// IsLive reports whether the room is active and running at now
func (r *LiveRoom) IsLive(now time.Time) bool {
	return r.IsActive && r.InWindow(now)
}

// Attendance records a user's presence in a live room
type Attendance struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	RoomID      uint       `gorm:"not null;uniqueIndex:uq_room_user_attendance,priority:1;index:idx_attendance_room" json:"room_id" validate:"required"`
	UserID      uint       `gorm:"not null;uniqueIndex:uq_room_user_attendance,priority:2;index:idx_attendance_user" json:"user_id" validate:"required"`
	JoinedAt    time.Time  `gorm:"not null" json:"joined_at" validate:"required"`
	LeftAt      *time.Time `json:"left_at,omitempty"`
	DurationSec *int       `gorm:"check:chk_attendance_duration,duration_sec IS NULL OR duration_sec >= 0" json:"duration_sec,omitempty"`

	// Relationships
	Room *LiveRoom `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
	User *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// BeforeSave derives the duration from LeftAt and validates the row
func (a *Attendance) BeforeSave(tx *gorm.DB) error {
	if err := Validate("attendance", a); err != nil {
		return err
	}
	if a.LeftAt == nil {
		a.DurationSec = nil
		return nil
	}
	if a.LeftAt.Before(a.JoinedAt) {
		return apperr.Validation("attendance", "left_at", "gtefield", "left_at must not be before joined_at")
	}
	d := int(a.LeftAt.Sub(a.JoinedAt) / time.Second)
	a.DurationSec = &d
	return nil
}

// Leave closes the attendance at t. A second call keeps the first departure time.
func (a *Attendance) Leave(t time.Time) {
	if a.LeftAt != nil {
		return
	}
	a.LeftAt = &t
}

// TableName specifies the table name for Attendance
func (Attendance) TableName() string {
	return "attendance"
}
