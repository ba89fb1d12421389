package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditListFilters(t *testing.T) {
	f := newFixture(t)
	svc := NewAuditService(f.db)
	ctx := context.Background()

	entries := []model.AuditLog{
		{ActorID: f.instructor.ID, Action: "POST /courses", Target: "courses"},
		{ActorID: f.instructor.ID, Action: "PUT /courses/:id", Target: "courses", TargetID: &f.course.ID},
		{ActorID: f.student.ID, Action: "POST /comments", Target: "comments"},
	}
	for i := range entries {
		require.NoError(t, svc.Record(ctx, &entries[i]))
	}

	logs, total, err := svc.List(ctx, AuditFilter{Target: "courses"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, logs, 2)

	logs, total, err = svc.List(ctx, AuditFilter{ActorID: f.student.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, "POST /comments", logs[0].Action)
	require.NotNil(t, logs[0].Actor)

	logs, total, err = svc.List(ctx, AuditFilter{Page: Page{Page: 1, PageSize: 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, logs, 1)
}

func TestAuditRecordValidates(t *testing.T) {
	f := newFixture(t)
	err := NewAuditService(f.db).Record(context.Background(), &model.AuditLog{ActorID: f.student.ID})
	require.Error(t, err)
}
