package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"gorm.io/gorm"
)

// CourseService manages courses and their modules and lessons
type CourseService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCourseService creates a new course service
func NewCourseService(db *gorm.DB) *CourseService {
	return &CourseService{db: db, now: time.Now}
}

// CourseFilter selects published courses
type CourseFilter struct {
	Search string
	Page
}

// CreateCourseRequest represents a request to create a course
type CreateCourseRequest struct {
	Title           string   `json:"title" validate:"required,max=200"`
	Slug            string   `json:"slug" validate:"required,max=200,slug"`
	Summary         string   `json:"summary" validate:"required"`
	Description     *string  `json:"description"`
	PriceINR        int      `json:"price_inr" validate:"gte=0"`
	ThumbnailURL    *string  `json:"thumbnail_url" validate:"omitempty,max=500"`
	PreviewVideoURL *string  `json:"preview_video_url" validate:"omitempty,max=500"`
	DurationHours   *float64 `json:"duration_hours" validate:"omitempty,gte=0"`
	DifficultyLevel *string  `json:"difficulty_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Tags            []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

// UpdateCourseRequest represents a partial course update
type UpdateCourseRequest struct {
	Title           *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Summary         *string  `json:"summary" validate:"omitempty,min=1"`
	Description     *string  `json:"description"`
	PriceINR        *int     `json:"price_inr" validate:"omitempty,gte=0"`
	ThumbnailURL    *string  `json:"thumbnail_url" validate:"omitempty,max=500"`
	PreviewVideoURL *string  `json:"preview_video_url" validate:"omitempty,max=500"`
	DurationHours   *float64 `json:"duration_hours" validate:"omitempty,gte=0"`
	DifficultyLevel *string  `json:"difficulty_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Tags            []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	IsPublished     *bool    `json:"is_published"`
	IsFeatured      *bool    `json:"is_featured"`
}

// CourseDetail is a course with its curriculum and enrollment count
type CourseDetail struct {
	model.Course
	EnrollmentsCount int64 `json:"enrollments_count"`
}

// CreateModuleRequest represents a request to add a module to a course
type CreateModuleRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description"`
	OrderIndex  int     `json:"order_index" validate:"gte=0"`
}

// UpdateModuleRequest represents a partial module update
type UpdateModuleRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	OrderIndex  *int    `json:"order_index" validate:"omitempty,gte=0"`
}

// CreateLessonRequest represents a request to add a lesson to a module
type CreateLessonRequest struct {
	Title       string                 `json:"title" validate:"required,max=200"`
	Description *string                `json:"description"`
	OrderIndex  int                    `json:"order_index" validate:"gte=0"`
	VideoKey    *string                `json:"video_key" validate:"omitempty,max=500"`
	VideoURL    *string                `json:"video_url" validate:"omitempty,max=500"`
	DurationSec *int                   `json:"duration_sec" validate:"omitempty,gte=0"`
	FreePreview bool                   `json:"free_preview"`
	Resources   []model.LessonResource `json:"resources" validate:"omitempty,dive"`
}

// LessonDetail is a lesson with its comment count
type LessonDetail struct {
	model.Lesson
	CommentsCount int64 `json:"comments_count"`
}

// ListPublished returns published courses matching the filter, newest first
func (s *CourseService) ListPublished(ctx context.Context, filter CourseFilter) ([]model.Course, int64, error) {
	page := filter.Page.Normalize()

	query := s.db.WithContext(ctx).Model(&model.Course{}).Where("is_published = ?", true)
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	var courses []model.Course
	err := query.Preload("Owner").
		Order("is_featured DESC").Order("created_at DESC").Order("id DESC").
		Offset(page.offset()).Limit(page.PageSize).
		Find(&courses).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, total, nil
}

// Create creates a course owned by actor
func (s *CourseService) Create(ctx context.Context, actor *model.User, req CreateCourseRequest) (*model.Course, error) {
	if !actor.CanTeach() {
		return nil, apperr.Forbidden("only instructors and admins can create courses")
	}
	if err := validateRequest("course", req); err != nil {
		return nil, err
	}

	course := &model.Course{
		Title:           req.Title,
		Slug:            req.Slug,
		Summary:         req.Summary,
		Description:     req.Description,
		PriceINR:        req.PriceINR,
		OwnerID:         actor.ID,
		ThumbnailURL:    req.ThumbnailURL,
		PreviewVideoURL: req.PreviewVideoURL,
		DurationHours:   req.DurationHours,
		DifficultyLevel: req.DifficultyLevel,
		Tags:            req.Tags,
	}
	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, database.Translate("course", err)
	}
	return course, nil
}

// Get returns a course with modules and lessons in order.
// Unpublished courses are visible only to their owner and admins.
func (s *CourseService) Get(ctx context.Context, viewer *model.User, id uint) (*CourseDetail, error) {
	db := s.db.WithContext(ctx)

	var course model.Course
	err := db.Preload("Owner").
		Preload("Modules", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index ASC") }).
		Preload("Modules.Lessons", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index ASC") }).
		First(&course, id).Error
	if err != nil {
		return nil, database.Translate("course", err)
	}
	if !course.IsPublished && !canManageCourse(viewer, &course) {
		return nil, apperr.NotFound("course")
	}

	detail := &CourseDetail{Course: course}
	err = db.Model(&model.Enrollment{}).
		Where("course_id = ? AND status IN ?", id, []model.EnrollmentStatus{model.EnrollmentActive, model.EnrollmentCompleted}).
		Count(&detail.EnrollmentsCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return detail, nil
}

// Update applies a partial update to a course owned by actor
func (s *CourseService) Update(ctx context.Context, actor *model.User, id uint, req UpdateCourseRequest) (*model.Course, error) {
	if err := validateRequest("course", req); err != nil {
		return nil, err
	}

	var course *model.Course
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if course, err = requireCourseManager(tx, actor, id); err != nil {
			return err
		}

		if req.Title != nil {
			course.Title = *req.Title
		}
		if req.Summary != nil {
			course.Summary = *req.Summary
		}
		if req.Description != nil {
			course.Description = req.Description
		}
		if req.PriceINR != nil {
			course.PriceINR = *req.PriceINR
		}
		if req.ThumbnailURL != nil {
			course.ThumbnailURL = req.ThumbnailURL
		}
		if req.PreviewVideoURL != nil {
			course.PreviewVideoURL = req.PreviewVideoURL
		}
		if req.DurationHours != nil {
			course.DurationHours = req.DurationHours
		}
		if req.DifficultyLevel != nil {
			course.DifficultyLevel = req.DifficultyLevel
		}
		if req.Tags != nil {
			course.Tags = req.Tags
		}
		if req.IsPublished != nil {
			course.IsPublished = *req.IsPublished
		}
		if req.IsFeatured != nil {
			if *req.IsFeatured && !actor.IsAdmin() {
				return apperr.Forbidden("only admins can feature a course")
			}
			course.IsFeatured = *req.IsFeatured
		}

		return database.Translate("course", tx.Save(course).Error)
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// Delete removes a course together with its modules, lessons, enrollments, orders and rooms
func (s *CourseService) Delete(ctx context.Context, actor *model.User, id uint) error {
	return withTx(ctx, s.db, func(tx *gorm.DB) error {
		course, err := requireCourseManager(tx, actor, id)
		if err != nil {
			return err
		}
		return database.Translate("course", tx.Delete(course).Error)
	})
}

// AddModule adds a module to a course owned by actor
func (s *CourseService) AddModule(ctx context.Context, actor *model.User, courseID uint, req CreateModuleRequest) (*model.Module, error) {
	if err := validateRequest("module", req); err != nil {
		return nil, err
	}

	module := &model.Module{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
	}
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := requireCourseManager(tx, actor, courseID); err != nil {
			return err
		}
		return database.Translate("module", tx.Create(module).Error)
	})
	if err != nil {
		return nil, err
	}
	return module, nil
}

// UpdateModule applies a partial update to a module
func (s *CourseService) UpdateModule(ctx context.Context, actor *model.User, moduleID uint, req UpdateModuleRequest) (*model.Module, error) {
	if err := validateRequest("module", req); err != nil {
		return nil, err
	}

	var module model.Module
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&module, moduleID).Error; err != nil {
			return database.Translate("module", err)
		}
		if _, err := requireCourseManager(tx, actor, module.CourseID); err != nil {
			return err
		}

		if req.Title != nil {
			module.Title = *req.Title
		}
		if req.Description != nil {
			module.Description = req.Description
		}
		if req.OrderIndex != nil {
			module.OrderIndex = *req.OrderIndex
		}
		return database.Translate("module", tx.Save(&module).Error)
	})
	if err != nil {
		return nil, err
	}
	return &module, nil
}

// AddLesson adds a lesson to a module of a course owned by actor
func (s *CourseService) AddLesson(ctx context.Context, actor *model.User, moduleID uint, req CreateLessonRequest) (*model.Lesson, error) {
	if err := validateRequest("lesson", req); err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		ModuleID:    moduleID,
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
		VideoKey:    req.VideoKey,
		VideoURL:    req.VideoURL,
		DurationSec: req.DurationSec,
		FreePreview: req.FreePreview,
		Resources:   req.Resources,
	}
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		var module model.Module
		if err := tx.First(&module, moduleID).Error; err != nil {
			return database.Translate("module", err)
		}
		if _, err := requireCourseManager(tx, actor, module.CourseID); err != nil {
			return err
		}
		return database.Translate("lesson", tx.Create(lesson).Error)
	})
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

// GetLesson returns a lesson. Lessons that are not free previews require an
// enrollment that grants access, course ownership or the admin role.
func (s *CourseService) GetLesson(ctx context.Context, viewer *model.User, lessonID uint) (*LessonDetail, error) {
	db := s.db.WithContext(ctx)

	var lesson model.Lesson
	if err := db.Preload("Module").First(&lesson, lessonID).Error; err != nil {
		return nil, database.Translate("lesson", err)
	}

	course, err := loadCourse(db, lesson.Module.CourseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished && !canManageCourse(viewer, course) {
		return nil, apperr.NotFound("lesson")
	}

	if !lesson.FreePreview && !canManageCourse(viewer, course) {
		if viewer == nil {
			return nil, apperr.Forbidden("enroll in the course to watch this lesson")
		}
		ok, err := hasCourseAccess(db, viewer.ID, course.ID, s.now())
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if !ok {
			return nil, apperr.Forbidden("enroll in the course to watch this lesson")
		}
	}

	detail := &LessonDetail{Lesson: lesson}
	err = db.Model(&model.Comment{}).
		Where("lesson_id = ? AND is_deleted = ?", lessonID, false).
		Count(&detail.CommentsCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	return detail, nil
}
