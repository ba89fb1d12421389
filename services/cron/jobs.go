package cron

import (
	"context"
	"time"
)

// DeactivateEndedRooms closes live rooms whose end time has passed
// and the attendance still open in them
func (m *CronManager) DeactivateEndedRooms() {
	m.run("deactivate_ended_rooms", m.jobs.Rooms.DeactivateEnded)
}

// ExpireEnrollments moves enrollments past expires_at to expired
func (m *CronManager) ExpireEnrollments() {
	m.run("expire_enrollments", m.jobs.Enrollments.ExpireDue)
}

// FailStaleOrders fails orders left unpaid for longer than StaleOrderAge
func (m *CronManager) FailStaleOrders() {
	m.run("fail_stale_orders", func(ctx context.Context, now time.Time) (int64, error) {
		return m.jobs.Orders.FailStaleOrders(ctx, now, StaleOrderAge)
	})
}
