package database

import (
	"errors"
	"fmt"

	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"gorm.io/gorm"
)

// SeedConfig names the accounts the seeder creates
type SeedConfig struct {
	AdminEmail      string
	AdminName       string
	InstructorEmail string
	InstructorName  string
}

// DefaultSeedConfig is used when no override is given
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		AdminEmail:      "admin@byteboost.in",
		AdminName:       "ByteBoost Admin",
		InstructorEmail: "instructor@byteboost.in",
		InstructorName:  "ByteBoost Instructor",
	}
}

// Seeder handles database seeding operations. Every step is idempotent.
type Seeder struct {
	db  *gorm.DB
	cfg SeedConfig
	log *logger.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg SeedConfig, log *logger.Logger) *Seeder {
	return &Seeder{db: db, cfg: cfg, log: log}
}

type seedLesson struct {
	title       string
	durationSec int
	freePreview bool
}

type seedModule struct {
	title   string
	lessons []seedLesson
}

type seedCourse struct {
	slug     string
	title    string
	summary  string
	priceINR int
	level    string
	tags     []string
	modules  []seedModule
}

var demoCourses = []seedCourse{
	{
		slug:     "go-backend-fundamentals",
		title:    "Go Backend Fundamentals",
		summary:  "Build production HTTP services in Go with Fiber, GORM and PostgreSQL.",
		priceINR: 149900,
		level:    "beginner",
		tags:     []string{"go", "backend", "postgres"},
		modules: []seedModule{
			{title: "Getting Started", lessons: []seedLesson{
				{title: "Course Overview", durationSec: 300, freePreview: true},
				{title: "Installing the Toolchain", durationSec: 540},
			}},
			{title: "HTTP Services", lessons: []seedLesson{
				{title: "Routing with Fiber", durationSec: 900},
				{title: "Middleware", durationSec: 780},
				{title: "Persisting Data with GORM", durationSec: 1200},
			}},
		},
	},
	{
		slug:     "intro-to-system-design",
		title:    "Intro to System Design",
		summary:  "Caching, queues and data partitioning explained through real architectures.",
		priceINR: 0,
		level:    "intermediate",
		tags:     []string{"architecture"},
		modules: []seedModule{
			{title: "Foundations", lessons: []seedLesson{
				{title: "Latency Numbers", durationSec: 600, freePreview: true},
				{title: "Caching Strategies", durationSec: 840, freePreview: true},
			}},
		},
	},
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	s.log.Info("starting database seeding")

	if _, err := s.seedUser(s.cfg.AdminEmail, s.cfg.AdminName, model.RoleAdmin); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	instructor, err := s.seedUser(s.cfg.InstructorEmail, s.cfg.InstructorName, model.RoleInstructor)
	if err != nil {
		return fmt.Errorf("failed to seed instructor: %w", err)
	}

	for _, course := range demoCourses {
		if err := s.seedCourse(instructor, course); err != nil {
			return fmt.Errorf("failed to seed course %s: %w", course.slug, err)
		}
	}

	s.log.Info("database seeding completed")
	return nil
}

func (s *Seeder) seedUser(email, name string, role model.UserRole) (*model.User, error) {
	var user model.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		s.log.Info("user already exists, skipping", "email", email)
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = model.User{Email: email, Name: name, Role: role, IsActive: true, IsVerified: true}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, Translate("user", err)
	}
	s.log.Info("created user", "email", email, "role", role)
	return &user, nil
}

func (s *Seeder) seedCourse(owner *model.User, seed seedCourse) error {
	var count int64
	if err := s.db.Model(&model.Course{}).Where("slug = ?", seed.slug).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		s.log.Info("course already exists, skipping", "slug", seed.slug)
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		level := seed.level
		course := model.Course{
			Title:           seed.title,
			Slug:            seed.slug,
			Summary:         seed.summary,
			PriceINR:        seed.priceINR,
			IsPublished:     true,
			OwnerID:         owner.ID,
			DifficultyLevel: &level,
			Tags:            seed.tags,
		}
		if err := tx.Create(&course).Error; err != nil {
			return Translate("course", err)
		}

		for mi, m := range seed.modules {
			module := model.Module{CourseID: course.ID, Title: m.title, OrderIndex: mi}
			if err := tx.Create(&module).Error; err != nil {
				return Translate("module", err)
			}
			for li, l := range m.lessons {
				duration := l.durationSec
				lesson := model.Lesson{
					ModuleID:    module.ID,
					Title:       l.title,
					OrderIndex:  li,
					DurationSec: &duration,
					FreePreview: l.freePreview,
				}
				if err := tx.Create(&lesson).Error; err != nil {
					return Translate("lesson", err)
				}
			}
		}

		s.log.Info("created course", "slug", seed.slug, "modules", len(seed.modules))
		return nil
	})
}
