package jobs

import (
	"context"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/service"
)

// SendSecondPaymentReminders emails customers who still owe the second
// installment. A booking is reminded when its pickup is exactly the
// configured lead time away, and once more the day before.
func (jr *JobRunner) SendSecondPaymentReminders() {
	jr.runWithRecovery("SendSecondPaymentReminders", func() {
		ctx := context.Background()
		lead := jr.config.Scheduler.ReminderDaysBeforePickup
		today := jr.now()
		leadDate := today.AddDate(0, 0, lead).Format(domain.DateLayout)
		lastCall := today.AddDate(0, 0, 1).Format(domain.DateLayout)

		bookings, err := jr.bookings.ListAwaitingSecondPayment(ctx, leadDate)
		if err != nil {
			logger.Error("Failed to list bookings awaiting second payment", "error", err)
			return
		}

		sent := 0
		for i := range bookings {
			b := &bookings[i]
			if b.PickupDate != leadDate && b.PickupDate != lastCall {
				continue
			}
			if b.PendingCents() == 0 {
				continue
			}
			if err := jr.notifier.Send(ctx, service.NotifySecondPaymentReminder, b); err != nil {
				logger.Error("Failed to send second payment reminder", "booking_id", b.ID, "error", err)
				continue
			}
			sent++
		}

		logger.Info("Sent second payment reminders", "candidates", len(bookings), "sent", sent)
	})
}

// AdvanceBookingStatuses starts bookings on their pickup day and completes
// them once the dropoff date has passed.
func (jr *JobRunner) AdvanceBookingStatuses() {
	jr.runWithRecovery("AdvanceBookingStatuses", func() {
		ctx := context.Background()
		today := jr.now().Format(domain.DateLayout)

		started, completed, err := jr.bookings.AdvanceStatuses(ctx, today)
		if err != nil {
			logger.Error("Failed to advance booking statuses", "error", err)
			return
		}
		logger.Info("Advanced booking statuses", "started", started, "completed", completed, "today", today)
	})
}
