package jobs

import (
	"time"

	"motorhome-booking-backend/internal/config"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/repository"
	"motorhome-booking-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	bookings repository.BookingRepository
	payments repository.PaymentRepository
	notifier service.NotificationService
	config   *config.Config
	now      func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(bookings repository.BookingRepository, payments repository.PaymentRepository, notifier service.NotificationService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		bookings: bookings,
		payments: payments,
		notifier: notifier,
		config:   cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once, in dependency order (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpireStalePayments()
	jr.ReconcilePaymentStatuses()
	jr.AdvanceBookingStatuses()
	jr.SendSecondPaymentReminders()
}
