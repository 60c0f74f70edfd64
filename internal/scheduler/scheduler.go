package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"motorhome-booking-backend/internal/jobs"
	"motorhome-booking-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler.
// A job with a bad or empty schedule is logged and skipped.
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	entries := []struct {
		name     string
		schedule string
		run      func()
	}{
		// Frequent
		{"ExpireStalePayments", cfg.ExpirePendingPayments, s.jobs.ExpireStalePayments},
		// Nightly
		{"ReconcilePaymentStatuses", cfg.ReconcilePaymentStatuses, s.jobs.ReconcilePaymentStatuses},
		{"AdvanceBookingStatuses", cfg.AdvanceBookingStatuses, s.jobs.AdvanceBookingStatuses},
		// Daily, during office hours
		{"SendSecondPaymentReminders", cfg.SendSecondPaymentReminders, s.jobs.SendSecondPaymentReminders},
	}

	registered := 0
	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.schedule, e.run); err != nil {
			logger.Error("Failed to register job", "job", e.name, "schedule", e.schedule, "error", err)
			continue
		}
		registered++
	}

	logger.Info("Cron jobs registered", "count", registered, "total", len(entries))
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has any jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
