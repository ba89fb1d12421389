package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"gorm.io/gorm"
)

// EnrollmentService tracks course access and lesson progress
type EnrollmentService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db, now: time.Now}
}

// UpdateProgressRequest lists lessons the learner has finished
type UpdateProgressRequest struct {
	CompletedLessons []uint `json:"completed_lessons" validate:"required,min=1,dive,gt=0"`
}

// ListMine returns the enrollments of userID with their courses
func (s *EnrollmentService) ListMine(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateProgress merges finished lessons into the enrollment and recomputes progress
func (s *EnrollmentService) UpdateProgress(ctx context.Context, actor *model.User, enrollmentID uint, req UpdateProgressRequest) (*model.Enrollment, error) {
	if err := validateRequest("enrollment", req); err != nil {
		return nil, err
	}

	var enrollment model.Enrollment
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&enrollment, enrollmentID).Error; err != nil {
			return database.Translate("enrollment", err)
		}
		if enrollment.UserID != actor.ID {
			return apperr.NotFound("enrollment")
		}
		if !enrollment.GrantsAccess(s.now()) {
			return apperr.Conflict("enrollment is not active")
		}

		lessons := courseLessons(tx, enrollment.CourseID)

		var matched int64
		if err := lessons.Where("lessons.id IN ?", req.CompletedLessons).Count(&matched).Error; err != nil {
			return fmt.Errorf("failed to check lessons: %w", err)
		}
		if int(matched) != len(uniqueIDs(req.CompletedLessons)) {
			return apperr.Validation("enrollment", "completed_lessons", "course", "lessons must belong to the enrolled course")
		}

		var total int64
		if err := courseLessons(tx, enrollment.CourseID).Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count lessons: %w", err)
		}

		enrollment.MarkCompleted(req.CompletedLessons, int(total))
		return database.Translate("enrollment", tx.Save(&enrollment).Error)
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExpireDue moves active enrollments whose expires_at has passed to expired
func (s *EnrollmentService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&model.Enrollment{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", model.EnrollmentActive, now).
		Update("status", model.EnrollmentExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire enrollments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func courseLessons(tx *gorm.DB, courseID uint) *gorm.DB {
	return tx.Model(&model.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID)
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// activateEnrollment grants userID access to courseID, creating the enrollment when needed
func activateEnrollment(tx *gorm.DB, userID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		enrollment = model.Enrollment{UserID: userID, CourseID: courseID, Status: model.EnrollmentActive}
		if err := tx.Create(&enrollment).Error; err != nil {
			return nil, database.Translate("enrollment", err)
		}
		return &enrollment, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}

	if enrollment.Status == model.EnrollmentCompleted || enrollment.Status == model.EnrollmentActive {
		return &enrollment, nil
	}
	enrollment.Status = model.EnrollmentActive
	enrollment.ExpiresAt = nil
	if err := tx.Save(&enrollment).Error; err != nil {
		return nil, database.Translate("enrollment", err)
	}
	return &enrollment, nil
}

// refundEnrollment revokes the access granted by a refunded order
func refundEnrollment(tx *gorm.DB, userID, courseID uint) error {
	return tx.Session(&gorm.Session{SkipHooks: true}).
		Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Update("status", model.EnrollmentRefunded).Error
}
