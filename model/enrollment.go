package model

import (
	"math"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Enrollment grants a user access to a course
type Enrollment struct {
	ID                uint                      `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
	UserID            uint                      `gorm:"not null;uniqueIndex:uq_user_course_enrollment,priority:1;index:idx_enrollment_user" json:"user_id" validate:"required"`
	CourseID          uint                      `gorm:"not null;uniqueIndex:uq_user_course_enrollment,priority:2;index:idx_enrollment_course" json:"course_id" validate:"required"`
	Status            EnrollmentStatus          `gorm:"type:varchar(20);not null;index:idx_enrollment_status;check:chk_enrollment_status,status IN ('pending','active','completed','refunded','expired')" json:"status" validate:"enum"`
	ProgressPercent   float64                   `gorm:"not null;default:0;check:chk_enrollment_progress,progress_percent >= 0 AND progress_percent <= 100" json:"progress_percent" validate:"gte=0,lte=100"`
	CompletedLessons  datatypes.JSONSlice[uint] `json:"completed_lessons,omitempty"`
	CertificateIssued bool                      `gorm:"not null;default:false" json:"certificate_issued"`
	CertificateURL    *string                   `gorm:"type:varchar(500)" json:"certificate_url,omitempty" validate:"omitempty,max=500"`
	ExpiresAt         *time.Time                `json:"expires_at,omitempty"`

	// Relationships
	User   *User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// BeforeSave applies the default status and validates the row
func (e *Enrollment) BeforeSave(tx *gorm.DB) error {
	if e.Status == "" {
		e.Status = EnrollmentPending
	}
	return Validate("enrollment", e)
}

// GrantsAccess reports whether the enrollment currently unlocks course content
func (e *Enrollment) GrantsAccess(now time.Time) bool {
	if e.Status != EnrollmentActive && e.Status != EnrollmentCompleted {
		return false
	}
	return e.ExpiresAt == nil || now.Before(*e.ExpiresAt)
}

// MarkCompleted merges lessonIDs into CompletedLessons and recomputes the progress
// against totalLessons. Reaching 100% moves an active enrollment to completed.
func (e *Enrollment) MarkCompleted(lessonIDs []uint, totalLessons int) {
	seen := make(map[uint]struct{}, len(e.CompletedLessons)+len(lessonIDs))
	merged := make([]uint, 0, len(e.CompletedLessons)+len(lessonIDs))
	for _, id := range append(append([]uint{}, e.CompletedLessons...), lessonIDs...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	e.CompletedLessons = merged

	e.ProgressPercent = ProgressPercent(len(merged), totalLessons)
	if e.ProgressPercent >= 100 && e.Status == EnrollmentActive {
		e.Status = EnrollmentCompleted
	}
}

// ProgressPercent returns done/total as a percentage rounded to two decimals and clamped to [0,100]
func ProgressPercent(done, total int) float64 {
	if total <= 0 || done <= 0 {
		return 0
	}
	p := float64(done) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return math.Round(p*100) / 100
}
