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

func TestUpdateProgressRecomputesPercent(t *testing.T) {
	f := newFixture(t)
	e := f.enroll(t, f.student, model.EnrollmentActive, nil)
	svc := NewEnrollmentService(f.db)
	ctx := context.Background()

	got, err := svc.UpdateProgress(ctx, f.student, e.ID, UpdateProgressRequest{CompletedLessons: []uint{f.lessons[0].ID, f.lessons[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, 33.33, got.ProgressPercent)
	assert.Equal(t, model.EnrollmentActive, got.Status)

	got, err = svc.UpdateProgress(ctx, f.student, e.ID, UpdateProgressRequest{CompletedLessons: []uint{f.lessons[1].ID, f.lessons[2].ID}})
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.ProgressPercent)
	assert.Equal(t, model.EnrollmentCompleted, got.Status)
	assert.Len(t, got.CompletedLessons, 3)
}

func TestUpdateProgressRejectsForeignLessons(t *testing.T) {
	f := newFixture(t)
	e := f.enroll(t, f.student, model.EnrollmentActive, nil)
	other := f.addCourse(t, "other", true)
	m := &model.Module{CourseID: other.ID, Title: "M", OrderIndex: 0}
	require.NoError(t, f.db.Create(m).Error)
	l := &model.Lesson{ModuleID: m.ID, Title: "L", OrderIndex: 0}
	require.NoError(t, f.db.Create(l).Error)

	_, err := NewEnrollmentService(f.db).UpdateProgress(context.Background(), f.student, e.ID, UpdateProgressRequest{CompletedLessons: []uint{l.ID}})
	v, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "course", v.Rule)
}

func TestUpdateProgressOwnershipAndState(t *testing.T) {
	f := newFixture(t)
	svc := NewEnrollmentService(f.db)
	e := f.enroll(t, f.student, model.EnrollmentRefunded, nil)
	req := UpdateProgressRequest{CompletedLessons: []uint{f.lessons[0].ID}}

	_, err := svc.UpdateProgress(context.Background(), f.instructor, e.ID, req)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = svc.UpdateProgress(context.Background(), f.student, e.ID, req)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = svc.UpdateProgress(context.Background(), f.student, e.ID, UpdateProgressRequest{})
	_, ok := apperr.AsValidation(err)
	assert.True(t, ok)
}

func TestExpireDue(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	past, future := now.Add(-2*time.Hour), now.Add(2*time.Hour)

	due := f.enroll(t, f.student, model.EnrollmentActive, &past)
	other := f.user(t, "other@byteboost.in", model.RoleStudent)
	later := f.enroll(t, other, model.EnrollmentActive, &future)
	forever := f.user(t, "forever@byteboost.in", model.RoleStudent)
	open := f.enroll(t, forever, model.EnrollmentActive, nil)

	n, err := NewEnrollmentService(f.db).ExpireDue(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	for id, want := range map[uint]model.EnrollmentStatus{
		due.ID:   model.EnrollmentExpired,
		later.ID: model.EnrollmentActive,
		open.ID:  model.EnrollmentActive,
	} {
		var e model.Enrollment
		require.NoError(t, f.db.First(&e, id).Error)
		assert.Equal(t, want, e.Status)
	}
}

func TestActivateEnrollmentReactivates(t *testing.T) {
	f := newFixture(t)
	past := time.Now().Add(-time.Hour)
	e := f.enroll(t, f.student, model.EnrollmentExpired, &past)

	got, err := activateEnrollment(f.db, f.student.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, model.EnrollmentActive, got.Status)
	assert.Nil(t, got.ExpiresAt)

	fresh, err := activateEnrollment(f.db, f.instructor.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentActive, fresh.Status)
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.student, model.EnrollmentActive, nil)

	list, err := NewEnrollmentService(f.db).ListMine(context.Background(), f.student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Course)
	assert.Equal(t, f.course.Slug, list[0].Course.Slug)
}
