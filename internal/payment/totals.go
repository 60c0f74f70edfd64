package payment

import (
	"fmt"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/pricing"
)

// TotalsInput is the state a booking's stored money fields derive from.
type TotalsInput struct {
	Pricing         pricing.Input
	AmountPaidCents int64
	Mode            Mode
	// Set when an admin fixes the total by hand. The difference to the
	// priced total is booked as discount.
	TotalOverrideCents *int64
	Refunded           bool
}

// BookingTotals is every derived money field of a booking.
type BookingTotals struct {
	Quote            pricing.Quote
	BasePriceCents   int64
	ExtrasPriceCents int64
	LocationFeeCents int64
	DiscountCents    int64
	TotalPriceCents  int64
	PaymentStatus    domain.PaymentStatus
	Schedule         Schedule
}

// DeriveBookingTotals prices the booking and derives its payment state in
// one step, so callers never compute status from a stale total.
func DeriveBookingTotals(in TotalsInput) (BookingTotals, error) {
	q, err := pricing.Calculate(in.Pricing)
	if err != nil {
		return BookingTotals{}, err
	}
	total := q.TotalPriceCents
	discount := q.DiscountCents
	if in.TotalOverrideCents != nil {
		gross := q.BasePriceCents + q.ExtrasPriceCents + q.LocationFeeCents
		if err := CheckTotalOverride(gross, *in.TotalOverrideCents); err != nil {
			return BookingTotals{}, err
		}
		total = *in.TotalOverrideCents
		discount = gross - total
	}
	mode := in.Mode
	if mode == "" {
		mode = ModeInstallment
	}
	sched := Plan(total, in.AmountPaidCents, mode)
	status := sched.Status
	if in.Refunded {
		status = domain.PaymentStatusRefunded
	}
	return BookingTotals{
		Quote:            q,
		BasePriceCents:   q.BasePriceCents,
		ExtrasPriceCents: q.ExtrasPriceCents,
		LocationFeeCents: q.LocationFeeCents,
		DiscountCents:    discount,
		TotalPriceCents:  total,
		PaymentStatus:    status,
		Schedule:         sched,
	}, nil
}

// CheckTotalOverride rejects a hand-set total outside [0, gross]. The
// difference is stored as discount, which is never negative.
func CheckTotalOverride(grossCents, totalCents int64) error {
	if totalCents < 0 || totalCents > grossCents {
		return domain.NewValidationError(domain.ErrInvalidQuantity, "total_price_cents",
			fmt.Sprintf("total %d must be between 0 and %d", totalCents, grossCents))
	}
	return nil
}

// ApplyTo copies the derived fields onto a booking.
func (t BookingTotals) ApplyTo(b *domain.Booking) {
	b.Days = t.Quote.Days
	b.PricingDays = t.Quote.PricingDays
	b.BasePriceCents = t.BasePriceCents
	b.ExtrasPriceCents = t.ExtrasPriceCents
	b.LocationFeeCents = t.LocationFeeCents
	b.DiscountCents = t.DiscountCents
	b.TotalPriceCents = t.TotalPriceCents
	b.PaymentStatus = t.PaymentStatus
}
