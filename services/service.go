package services

import (
	"context"
	"time"

	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"github.com/sahilchouksey/byteboost-api/utils/response"
	"github.com/sahilchouksey/byteboost-api/utils/validation"
	"gorm.io/gorm"
)

var requestValidator = validation.NewValidator()

// validateRequest checks a request struct and reports the first violation as a ValidationError
func validateRequest(entity string, req interface{}) error {
	return requestValidator.ValidateEntity(entity, req)
}

// Page is a normalised page request
type Page struct {
	Page     int
	PageSize int
}

// Normalize applies the default and maximum page size
func (p Page) Normalize() Page {
	p.Page, p.PageSize = response.NormalizePage(p.Page, p.PageSize)
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.PageSize
}

// loadCourse fetches a course or reports it as not found
func loadCourse(tx *gorm.DB, id uint) (*model.Course, error) {
	var course model.Course
	if err := tx.First(&course, id).Error; err != nil {
		return nil, database.Translate("course", err)
	}
	return &course, nil
}

// canManageCourse reports whether actor may edit course content
func canManageCourse(actor *model.User, course *model.Course) bool {
	return actor != nil && (actor.IsAdmin() || (actor.CanTeach() && course.IsOwnedBy(actor.ID)))
}

// requireCourseManager loads the course and checks that actor owns it or is an admin
func requireCourseManager(tx *gorm.DB, actor *model.User, courseID uint) (*model.Course, error) {
	course, err := loadCourse(tx, courseID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(actor, course) {
		return nil, apperr.Forbidden("only the course owner or an admin can change this course")
	}
	return course, nil
}

// hasCourseAccess reports whether userID holds an enrollment that currently unlocks courseID
func hasCourseAccess(tx *gorm.DB, userID, courseID uint, now time.Time) (bool, error) {
	var enrollment model.Enrollment
	err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return enrollment.GrantsAccess(now), nil
}

// withTx runs fn inside a transaction bound to ctx
func withTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
