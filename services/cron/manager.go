package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
)

// Schedules use the six-field format with a leading seconds column
const (
	scheduleDeactivateRooms   = "0 */5 * * * *"
	scheduleExpireEnrollments = "0 0 * * * *"
	scheduleFailStaleOrders   = "0 30 * * * *"

	// StaleOrderAge is how long an order may stay unpaid
	StaleOrderAge = 24 * time.Hour
)

// RoomCloser deactivates live rooms that have ended
type RoomCloser interface {
	DeactivateEnded(ctx context.Context, now time.Time) (int64, error)
}

// EnrollmentExpirer expires enrollments past their expiry time
type EnrollmentExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// OrderReaper fails orders that were never paid
type OrderReaper interface {
	FailStaleOrders(ctx context.Context, now time.Time, maxAge time.Duration) (int64, error)
}

// Jobs are the services the scheduled jobs act on
type Jobs struct {
	Rooms       RoomCloser
	Enrollments EnrollmentExpirer
	Orders      OrderReaper
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron *cron.Cron
	jobs Jobs
	log  *logger.Logger
	now  func() time.Time
}

// NewCronManager creates a new cron manager
func NewCronManager(jobs Jobs, log *logger.Logger) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{log})))

	return &CronManager{
		cron: c,
		jobs: jobs,
		log:  log.With("component", "cron"),
		now:  time.Now,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	m.log.Info("starting cron jobs")

	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()

	m.log.Info("cron jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	m.log.Info("stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Every 5 minutes: close ended live rooms
	if _, err := m.cron.AddFunc(scheduleDeactivateRooms, m.DeactivateEndedRooms); err != nil {
		return err
	}

	// 2. Hourly: expire enrollments
	if _, err := m.cron.AddFunc(scheduleExpireEnrollments, m.ExpireEnrollments); err != nil {
		return err
	}

	// 3. Hourly: fail abandoned orders
	if _, err := m.cron.AddFunc(scheduleFailStaleOrders, m.FailStaleOrders); err != nil {
		return err
	}

	m.log.Debug("all cron jobs registered")
	return nil
}

// run executes a job with a timeout and logs its outcome
func (m *CronManager) run(name string, job func(ctx context.Context, now time.Time) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := m.now()
	m.log.Debug("job started", "job", name)

	affected, err := job(ctx, start)
	if err != nil {
		m.log.Error("job failed", "job", name, "error", err, "elapsed", time.Since(start))
		return
	}
	m.log.Info("job completed", "job", name, "affected", affected, "elapsed", time.Since(start))
}

// cronLogger adapts the zap logger to cron.Logger for the recover wrapper
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
