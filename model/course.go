package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course is a sellable unit of content owned by an instructor
type Course struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
	Title           string                      `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	Slug            string                      `gorm:"type:varchar(200);uniqueIndex:idx_course_slug;not null" json:"slug" validate:"required,max=200,slug"`
	Summary         string                      `gorm:"type:text;not null" json:"summary" validate:"required"`
	Description     *string                     `gorm:"type:text" json:"description,omitempty"`
	PriceINR        int                         `gorm:"not null;check:chk_course_price_positive,price_inr >= 0" json:"price_inr" validate:"gte=0"` // paise
	IsPublished     bool                        `gorm:"not null;default:false;index:idx_course_published" json:"is_published"`
	IsFeatured      bool                        `gorm:"not null;default:false" json:"is_featured"`
	OwnerID         uint                        `gorm:"not null;index:idx_course_owner" json:"owner_id" validate:"required"`
	ThumbnailURL    *string                     `gorm:"type:varchar(500)" json:"thumbnail_url,omitempty" validate:"omitempty,max=500"`
	PreviewVideoURL *string                     `gorm:"type:varchar(500)" json:"preview_video_url,omitempty" validate:"omitempty,max=500"`
	DurationHours   *float64                    `json:"duration_hours,omitempty" validate:"omitempty,gte=0"`
	DifficultyLevel *string                     `gorm:"type:varchar(20)" json:"difficulty_level,omitempty" validate:"omitempty,max=20"`
	Tags            datatypes.JSONSlice[string] `json:"tags,omitempty"`

	// Relationships
	Owner       *User        `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Modules     []Module     `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"modules,omitempty"`
	Enrollments []Enrollment `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Orders      []Order      `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	LiveRooms   []LiveRoom   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeSave validates the course row
func (c *Course) BeforeSave(tx *gorm.DB) error {
	return Validate("course", c)
}

// IsOwnedBy reports whether userID authored the course
func (c *Course) IsOwnedBy(userID uint) bool {
	return c.OwnerID == userID
}

// Module is an ordered section of a course
type Module struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CourseID    uint      `gorm:"not null;uniqueIndex:uq_module_order,priority:1" json:"course_id" validate:"required"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	OrderIndex  int       `gorm:"not null;uniqueIndex:uq_module_order,priority:2;check:chk_module_order_index,order_index >= 0" json:"order_index" validate:"gte=0"`

	// Relationships
	Course  *Course  `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Lessons []Lesson `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// BeforeSave validates the module row
func (m *Module) BeforeSave(tx *gorm.DB) error {
	return Validate("module", m)
}

// LessonResource is an attachment listed under a lesson
type LessonResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type,omitempty"`
}

// Lesson is an ordered item of a module, usually a video
type Lesson struct {
	ID          uint                                `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time                           `json:"created_at"`
	UpdatedAt   time.Time                           `json:"updated_at"`
	ModuleID    uint                                `gorm:"not null;uniqueIndex:uq_lesson_order,priority:1" json:"module_id" validate:"required"`
	Title       string                              `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	Description *string                             `gorm:"type:text" json:"description,omitempty"`
	OrderIndex  int                                 `gorm:"not null;uniqueIndex:uq_lesson_order,priority:2;check:chk_lesson_order_index,order_index >= 0" json:"order_index" validate:"gte=0"`
	VideoKey    *string                             `gorm:"type:varchar(500)" json:"video_key,omitempty" validate:"omitempty,max=500"`
	VideoURL    *string                             `gorm:"type:varchar(500)" json:"video_url,omitempty" validate:"omitempty,max=500"`
	DurationSec *int                                `gorm:"check:chk_lesson_duration,duration_sec IS NULL OR duration_sec >= 0" json:"duration_sec,omitempty" validate:"omitempty,gte=0"`
	FreePreview bool                                `gorm:"not null;default:false" json:"free_preview"`
	Resources   datatypes.JSONSlice[LessonResource] `json:"resources,omitempty"`

	// Relationships
	Module   *Module   `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"-"`
	Comments []Comment `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeSave validates the lesson row
func (l *Lesson) BeforeSave(tx *gorm.DB) error {
	return Validate("lesson", l)
}
