package jobs

import (
	"context"
	"time"

	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/payment"
)

// ExpireStalePayments cancels gateway payments the customer abandoned. An
// expired payment is settled, so a late callback cannot credit it.
func (jr *JobRunner) ExpireStalePayments() {
	jr.runWithRecovery("ExpireStalePayments", func() {
		ctx := context.Background()
		ttl := time.Duration(jr.config.Payments.PendingTTLMinutes) * time.Minute
		cutoff := jr.now().Add(-ttl)

		count, err := jr.payments.ExpirePending(ctx, cutoff)
		if err != nil {
			logger.Error("Failed to expire pending payments", "error", err)
			return
		}
		logger.Info("Expired pending payments", "count", count, "older_than", cutoff.Format(time.RFC3339))
	})
}

// ReconcilePaymentStatuses repairs bookings whose stored payment status no
// longer matches their amounts, e.g. after a hand edit in the database.
func (jr *JobRunner) ReconcilePaymentStatuses() {
	jr.runWithRecovery("ReconcilePaymentStatuses", func() {
		ctx := context.Background()

		drifted, err := jr.bookings.ListPaymentStatusDrift(ctx)
		if err != nil {
			logger.Error("Failed to list drifted bookings", "error", err)
			return
		}

		fixed := 0
		for i := range drifted {
			b := &drifted[i]
			was := b.PaymentStatus
			payment.Rederive(b)
			if b.PaymentStatus == was {
				continue
			}
			if err := jr.bookings.UpdatePaymentStatus(ctx, b.ID, b.PaymentStatus); err != nil {
				logger.Error("Failed to fix payment status", "booking_id", b.ID, "error", err)
				continue
			}
			logger.Debug("Fixed payment status", "booking_id", b.ID, "from", was, "to", b.PaymentStatus)
			fixed++
		}

		logger.Info("Reconciled payment statuses", "checked", len(drifted), "fixed", fixed)
	})
}
