package services

import (
	"testing"
	"time"

	"github.com/sahilchouksey/byteboost-api/database/dbtest"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	admin      *model.User
	instructor *model.User
	student    *model.User
	course     *model.Course
	module     *model.Module
	lessons    []model.Lesson
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	f := &fixture{db: db}

	f.admin = f.user(t, "admin@byteboost.in", model.RoleAdmin)
	f.instructor = f.user(t, "mentor@byteboost.in", model.RoleInstructor)
	f.student = f.user(t, "student@byteboost.in", model.RoleStudent)

	f.course = &model.Course{
		Title:       "Go for Backend Engineers",
		Slug:        "go-backend",
		Summary:     "Services in Go",
		PriceINR:    49900,
		IsPublished: true,
		OwnerID:     f.instructor.ID,
	}
	require.NoError(t, db.Create(f.course).Error)

	f.module = &model.Module{CourseID: f.course.ID, Title: "Basics", OrderIndex: 0}
	require.NoError(t, db.Create(f.module).Error)

	for i, title := range []string{"Setup", "Types", "Errors"} {
		lesson := model.Lesson{ModuleID: f.module.ID, Title: title, OrderIndex: i, FreePreview: i == 0}
		require.NoError(t, db.Create(&lesson).Error)
		f.lessons = append(f.lessons, lesson)
	}
	return f
}

func (f *fixture) user(t *testing.T, email string, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: email[:len(email)-len("@byteboost.in")], Role: role, IsActive: true}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) enroll(t *testing.T, user *model.User, status model.EnrollmentStatus, expiresAt *time.Time) *model.Enrollment {
	t.Helper()
	e := &model.Enrollment{UserID: user.ID, CourseID: f.course.ID, Status: status, ExpiresAt: expiresAt}
	require.NoError(t, f.db.Create(e).Error)
	return e
}

func (f *fixture) addCourse(t *testing.T, slug string, published bool) *model.Course {
	t.Helper()
	c := &model.Course{Title: slug, Slug: slug, Summary: "summary of " + slug, PriceINR: 9900, IsPublished: published, OwnerID: f.instructor.ID}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T {
	return &v
}
