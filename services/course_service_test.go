package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseCreateRequiresInstructor(t *testing.T) {
	f := newFixture(t)
	svc := NewCourseService(f.db)

	req := CreateCourseRequest{Title: "Rust", Slug: "rust", Summary: "Ownership", PriceINR: 1000}
	_, err := svc.Create(context.Background(), f.student, req)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	course, err := svc.Create(context.Background(), f.instructor, req)
	require.NoError(t, err)
	assert.Equal(t, f.instructor.ID, course.OwnerID)
	assert.False(t, course.IsPublished)
}

func TestCourseCreateRejectsInvalidSlugAndDuplicates(t *testing.T) {
	f := newFixture(t)
	svc := NewCourseService(f.db)

	_, err := svc.Create(context.Background(), f.instructor, CreateCourseRequest{Title: "X", Slug: "Not A Slug", Summary: "s"})
	v, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "slug", v.Rule)

	_, err = svc.Create(context.Background(), f.instructor, CreateCourseRequest{Title: "Dup", Slug: f.course.Slug, Summary: "s"})
	v, ok = apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "unique", v.Rule)
}

func TestListPublishedFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	f.addCourse(t, "draft-course", false)
	f.addCourse(t, "kubernetes-intro", true)
	svc := NewCourseService(f.db)

	courses, total, err := svc.ListPublished(context.Background(), CourseFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, courses, 2)

	courses, total, err = svc.ListPublished(context.Background(), CourseFilter{Search: "KUBER"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, courses, 1)
	assert.Equal(t, "kubernetes-intro", courses[0].Slug)

	courses, total, err = svc.ListPublished(context.Background(), CourseFilter{Page: Page{Page: 2, PageSize: 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, courses, 1)
}

func TestGetCourseHidesDraftsFromOutsiders(t *testing.T) {
	f := newFixture(t)
	draft := f.addCourse(t, "draft", false)
	svc := NewCourseService(f.db)

	_, err := svc.Get(context.Background(), f.student, draft.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = svc.Get(context.Background(), nil, draft.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	detail, err := svc.Get(context.Background(), f.instructor, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, detail.ID)
}

func TestGetCourseOrdersCurriculumAndCountsEnrollments(t *testing.T) {
	f := newFixture(t)
	second := &model.Module{CourseID: f.course.ID, Title: "Advanced", OrderIndex: 5}
	require.NoError(t, f.db.Create(second).Error)
	f.enroll(t, f.student, model.EnrollmentActive, nil)
	refunded := f.user(t, "refunded@byteboost.in", model.RoleStudent)
	f.enroll(t, refunded, model.EnrollmentRefunded, nil)

	detail, err := NewCourseService(f.db).Get(context.Background(), nil, f.course.ID)
	require.NoError(t, err)
	require.Len(t, detail.Modules, 2)
	assert.Equal(t, "Basics", detail.Modules[0].Title)
	assert.Equal(t, "Advanced", detail.Modules[1].Title)
	require.Len(t, detail.Modules[0].Lessons, 3)
	assert.Equal(t, "Setup", detail.Modules[0].Lessons[0].Title)
	assert.EqualValues(t, 1, detail.EnrollmentsCount)
}

func TestUpdateCourseOwnershipAndFeaturing(t *testing.T) {
	f := newFixture(t)
	svc := NewCourseService(f.db)

	_, err := svc.Update(context.Background(), f.student, f.course.ID, UpdateCourseRequest{Title: ptr("Hijacked")})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = svc.Update(context.Background(), f.instructor, f.course.ID, UpdateCourseRequest{IsFeatured: ptr(true)})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	course, err := svc.Update(context.Background(), f.instructor, f.course.ID, UpdateCourseRequest{Title: ptr("Go, Revised"), PriceINR: ptr(59900)})
	require.NoError(t, err)
	assert.Equal(t, "Go, Revised", course.Title)
	assert.Equal(t, 59900, course.PriceINR)

	course, err = svc.Update(context.Background(), f.admin, f.course.ID, UpdateCourseRequest{IsFeatured: ptr(true)})
	require.NoError(t, err)
	assert.True(t, course.IsFeatured)
}

func TestDeleteCourseCascades(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.student, model.EnrollmentActive, nil)
	svc := NewCourseService(f.db)

	require.NoError(t, svc.Delete(context.Background(), f.instructor, f.course.ID))

	var lessons, enrollments int64
	require.NoError(t, f.db.Model(&model.Lesson{}).Count(&lessons).Error)
	require.NoError(t, f.db.Model(&model.Enrollment{}).Count(&enrollments).Error)
	assert.Zero(t, lessons)
	assert.Zero(t, enrollments)
}

func TestAddModuleAndLessonEnforceOrderIndex(t *testing.T) {
	f := newFixture(t)
	svc := NewCourseService(f.db)

	_, err := svc.AddModule(context.Background(), f.instructor, f.course.ID, CreateModuleRequest{Title: "Clash", OrderIndex: 0})
	v, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "unique", v.Rule)

	module, err := svc.AddModule(context.Background(), f.instructor, f.course.ID, CreateModuleRequest{Title: "Concurrency", OrderIndex: 1})
	require.NoError(t, err)

	lesson, err := svc.AddLesson(context.Background(), f.instructor, module.ID, CreateLessonRequest{Title: "Goroutines", OrderIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, module.ID, lesson.ModuleID)

	_, err = svc.AddLesson(context.Background(), f.student, module.ID, CreateLessonRequest{Title: "Nope"})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	updated, err := svc.UpdateModule(context.Background(), f.instructor, module.ID, UpdateModuleRequest{OrderIndex: ptr(7)})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.OrderIndex)
}

func TestGetLessonRequiresAccessUnlessPreview(t *testing.T) {
	f := newFixture(t)
	svc := NewCourseService(f.db)
	preview, locked := f.lessons[0], f.lessons[1]

	_, err := svc.GetLesson(context.Background(), nil, preview.ID)
	require.NoError(t, err)

	_, err = svc.GetLesson(context.Background(), f.student, locked.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = svc.GetLesson(context.Background(), f.instructor, locked.ID)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	e := f.enroll(t, f.student, model.EnrollmentActive, &past)
	_, err = svc.GetLesson(context.Background(), f.student, locked.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "expired enrollment grants no access")

	e.ExpiresAt = nil
	require.NoError(t, f.db.Save(e).Error)
	detail, err := svc.GetLesson(context.Background(), f.student, locked.ID)
	require.NoError(t, err)
	assert.Equal(t, locked.ID, detail.ID)
}
