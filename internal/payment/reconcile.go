package payment

import (
	"fmt"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/pricing"
)

// Mode selects how much of the outstanding balance a customer pays now.
type Mode string

const (
	// ModeInstallment pays half the total first, then the remainder.
	ModeInstallment Mode = "installment"
	// ModeFull pays everything still owed.
	ModeFull Mode = "full"
)

func (m Mode) Valid() bool {
	return m == ModeInstallment || m == ModeFull
}

// FirstInstallmentShare is the fraction of the total due with the first payment, in basis points.
const FirstInstallmentShare = 5000

// DeriveStatus maps totals to a payment status. Refunded is never derived;
// it is only reached through Refund.
func DeriveStatus(totalCents, paidCents int64) domain.PaymentStatus {
	switch {
	case paidCents <= 0:
		return domain.PaymentStatusPending
	case paidCents < totalCents:
		return domain.PaymentStatusPartial
	default:
		return domain.PaymentStatusPaid
	}
}

// Schedule describes what is owed on a booking and what to charge next.
type Schedule struct {
	Status                 domain.PaymentStatus `json:"payment_status"`
	TotalCents             int64                `json:"total_cents"`
	PaidCents              int64                `json:"paid_cents"`
	PendingCents           int64                `json:"pending_cents"`
	FirstInstallmentCents  int64                `json:"first_installment_cents"`
	SecondInstallmentCents int64                `json:"second_installment_cents"`
	PayableNowCents        int64                `json:"payable_now_cents"`
	IsFirstPayment         bool                 `json:"is_first_payment"`
	PaymentType            domain.PaymentType   `json:"payment_type"`
}

// Plan computes the schedule for a booking with the given totals. An
// overpaid booking reports paid with nothing pending.
func Plan(totalCents, paidCents int64, mode Mode) Schedule {
	if paidCents < 0 {
		paidCents = 0
	}
	s := Schedule{
		Status:         DeriveStatus(totalCents, paidCents),
		TotalCents:     totalCents,
		PaidCents:      paidCents,
		IsFirstPayment: paidCents == 0,
	}
	if totalCents > paidCents {
		s.PendingCents = totalCents - paidCents
	}
	s.FirstInstallmentCents = pricing.PercentOf(totalCents, FirstInstallmentShare)
	s.SecondInstallmentCents = totalCents - s.FirstInstallmentCents

	switch {
	case s.PendingCents == 0:
		s.PayableNowCents = 0
	case mode == ModeFull:
		s.PayableNowCents = s.PendingCents
		s.PaymentType = domain.PaymentTypeFull
	case s.IsFirstPayment:
		s.PayableNowCents = s.FirstInstallmentCents
		s.PaymentType = domain.PaymentTypeDeposit
	default:
		s.PayableNowCents = s.PendingCents
		s.PaymentType = domain.PaymentTypePartial
	}
	return s
}

// Fees holds the surcharge each gateway adds, in basis points.
type Fees map[domain.PaymentMethod]int64

// DefaultFees charges the 2% card surcharge on Stripe only.
var DefaultFees = Fees{domain.PaymentMethodStripe: 200}

// Surcharge returns the fee for charging baseCents at feeBasisPoints,
// rounded half-up to the cent.
func Surcharge(baseCents, feeBasisPoints int64) int64 {
	if feeBasisPoints <= 0 {
		return 0
	}
	return pricing.PercentOf(baseCents, feeBasisPoints)
}

// Charge is the split between the amount credited and the amount captured.
type Charge struct {
	BaseCents    int64
	FeeCents     int64
	ChargedCents int64
}

// ChargeFor returns what the gateway of the given method must capture to
// credit baseCents.
func (f Fees) ChargeFor(baseCents int64, method domain.PaymentMethod) Charge {
	fee := Surcharge(baseCents, f[method])
	return Charge{BaseCents: baseCents, FeeCents: fee, ChargedCents: baseCents + fee}
}

// VerifyCapture rejects a capture that does not match what was requested.
func VerifyCapture(p *domain.Payment, capturedCents int64) error {
	if capturedCents != p.ChargedCents {
		return fmt.Errorf("%w: order %s captured %d cents, expected %d",
			domain.ErrPaymentAmountMismatch, p.OrderNumber, capturedCents, p.ChargedCents)
	}
	return nil
}

// Credit adds a fee-exclusive amount to the booking and re-derives its
// payment status. A pending booking becomes confirmed on its first credit.
func Credit(b *domain.Booking, baseCents int64) error {
	if baseCents <= 0 {
		return fmt.Errorf("credit must be positive, got %d", baseCents)
	}
	if b.Status == domain.BookingStatusCancelled || b.PaymentStatus == domain.PaymentStatusRefunded {
		return fmt.Errorf("%w: cannot credit a %s booking", domain.ErrInvalidStatusTransition, b.Status)
	}
	b.AmountPaidCents += baseCents
	b.PaymentStatus = DeriveStatus(b.TotalPriceCents, b.AmountPaidCents)
	if b.Status == domain.BookingStatusPending {
		b.Status = domain.BookingStatusConfirmed
	}
	return nil
}

// Rederive recomputes the payment status after the total or paid amount
// was edited. A refunded booking keeps its status.
func Rederive(b *domain.Booking) {
	if b.PaymentStatus == domain.PaymentStatusRefunded {
		return
	}
	b.PaymentStatus = DeriveStatus(b.TotalPriceCents, b.AmountPaidCents)
}

// Refund marks a cancelled, fully paid booking as refunded.
func Refund(b *domain.Booking) error {
	if b.Status != domain.BookingStatusCancelled {
		return fmt.Errorf("%w: only cancelled bookings can be refunded, booking is %s",
			domain.ErrInvalidStatusTransition, b.Status)
	}
	if b.PaymentStatus != domain.PaymentStatusPaid {
		return fmt.Errorf("%w: only paid bookings can be refunded, payment is %s",
			domain.ErrInvalidStatusTransition, b.PaymentStatus)
	}
	b.PaymentStatus = domain.PaymentStatusRefunded
	return nil
}

// EmailKind names the confirmation sent after a credit.
func EmailKind(paidBeforeCents int64) string {
	if paidBeforeCents == 0 {
		return "first_payment"
	}
	return "second_payment"
}
