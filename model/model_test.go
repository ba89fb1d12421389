package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	role, err := ParseUserRole("instructor")
	require.NoError(t, err)
	assert.Equal(t, RoleInstructor, role)

	_, err = ParseUserRole("superuser")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = ParseOrderStatus("")
	assert.Error(t, err)

	status, err := ParseEnrollmentStatus("refunded")
	require.NoError(t, err)
	assert.Equal(t, EnrollmentRefunded, status)

	_, err = ParseSFUProvider("zoom")
	assert.Error(t, err)
}

func TestEnumScanValue(t *testing.T) {
	var s PaymentStatus
	require.NoError(t, s.Scan([]byte("captured")))
	assert.Equal(t, PaymentCaptured, s)

	assert.Error(t, s.Scan("bogus"))
	assert.Error(t, s.Scan(nil))
	assert.Equal(t, PaymentCaptured, s, "failed scans leave the value untouched")

	v, err := ProviderPhonePe.Value()
	require.NoError(t, err)
	assert.Equal(t, "phonepe", v)

	_, err = PaymentProvider("paypal").Value()
	assert.Error(t, err)
}

func TestEnumJSON(t *testing.T) {
	var body struct {
		Provider PaymentProvider `json:"provider"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"provider":"razorpay"}`), &body))
	assert.Equal(t, ProviderRazorpay, body.Provider)

	err := json.Unmarshal([]byte(`{"provider":"paypal"}`), &body)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	out, err := json.Marshal(struct {
		Role UserRole `json:"role"`
	}{RoleAdmin})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"admin"}`, string(out))
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0.0, ProgressPercent(0, 10))
	assert.Equal(t, 0.0, ProgressPercent(3, 0))
	assert.Equal(t, 33.33, ProgressPercent(1, 3))
	assert.Equal(t, 100.0, ProgressPercent(5, 4))
}

func TestEnrollmentMarkCompleted(t *testing.T) {
	e := Enrollment{Status: EnrollmentActive, CompletedLessons: []uint{2}}

	e.MarkCompleted([]uint{3, 2, 1}, 4)
	assert.Equal(t, []uint{1, 2, 3}, []uint(e.CompletedLessons))
	assert.Equal(t, 75.0, e.ProgressPercent)
	assert.Equal(t, EnrollmentActive, e.Status)

	e.MarkCompleted([]uint{4}, 4)
	assert.Equal(t, 100.0, e.ProgressPercent)
	assert.Equal(t, EnrollmentCompleted, e.Status)
}

func TestEnrollmentGrantsAccess(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	assert.True(t, (&Enrollment{Status: EnrollmentActive}).GrantsAccess(now))
	assert.False(t, (&Enrollment{Status: EnrollmentPending}).GrantsAccess(now))
	assert.False(t, (&Enrollment{Status: EnrollmentActive, ExpiresAt: &past}).GrantsAccess(now))
}

func TestLiveRoomWindow(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	r := LiveRoom{StartTS: start, EndTS: start.Add(time.Hour), IsActive: true}

	assert.False(t, r.IsLive(start.Add(-time.Second)))
	assert.True(t, r.IsLive(start))
	assert.True(t, r.IsLive(start.Add(59*time.Minute)))
	assert.False(t, r.IsLive(start.Add(time.Hour)))

	r.IsActive = false
	assert.False(t, r.IsLive(start))
}

func TestAttendanceLeaveKeepsFirstDeparture(t *testing.T) {
	joined := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a := Attendance{RoomID: 1, UserID: 1, JoinedAt: joined}

	a.Leave(joined.Add(time.Minute))
	a.Leave(joined.Add(time.Hour))
	require.NoError(t, a.BeforeSave(nil))
	require.NotNil(t, a.DurationSec)
	assert.Equal(t, 60, *a.DurationSec)
}

func TestCommentValidation(t *testing.T) {
	c := Comment{UserID: 1, LessonID: 1}
	err := c.BeforeSave(nil)
	v, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "body", v.Field)

	c.Tombstone()
	assert.NoError(t, c.BeforeSave(nil), "tombstones carry no body")

	self := uint(7)
	c = Comment{ID: 7, UserID: 1, LessonID: 1, Body: "x", ParentID: &self}
	assert.Error(t, c.BeforeSave(nil))
}

func TestCourseSlugFormat(t *testing.T) {
	c := Course{Title: "Go", Slug: "Go 101", Summary: "x", OwnerID: 1}
	v, ok := apperr.AsValidation(c.BeforeSave(nil))
	require.True(t, ok)
	assert.Equal(t, "slug", v.Rule)
}
