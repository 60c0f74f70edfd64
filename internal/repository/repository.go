package repository

import (
	"context"
	"time"

	"motorhome-booking-backend/internal/domain"
)

type VehicleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
}

type LocationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Location, error)
}

type ExtraRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.Extra, error)
	ListActive(ctx context.Context) ([]domain.Extra, error)
}

type SeasonRepository interface {
	// ListActiveBetween returns active seasons overlapping [from, to] (YYYY-MM-DD).
	ListActiveBetween(ctx context.Context, from, to string) ([]domain.Season, error)
}

type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

type OfferRepository interface {
	GetByID(ctx context.Context, id string) (*domain.LastMinuteOffer, error)
}

// BookingFilter narrows admin listings. Empty fields match everything.
type BookingFilter struct {
	Status        domain.BookingStatus
	PaymentStatus domain.PaymentStatus
	PickupFrom    string
	PickupTo      string
	Search        string
}

type BookingRepository interface {
	// Create stores the booking, its customer and its extras atomically.
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByNumber(ctx context.Context, number string) (*domain.Booking, error)
	List(ctx context.Context, filter BookingFilter, page, pageSize int32) ([]domain.Booking, int32, error)
	// Update stores the booking row and reconciles its extras atomically.
	Update(ctx context.Context, b *domain.Booking) error
	// UpdateStatus moves a booking from one status to another and fails
	// with ErrInvalidStatusTransition if it is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) error
	UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error
	ListAwaitingSecondPayment(ctx context.Context, pickupOnOrBefore string) ([]domain.Booking, error)
	// ListPaymentStatusDrift returns non-refunded bookings whose stored
	// payment status no longer matches their amounts.
	ListPaymentStatusDrift(ctx context.Context) ([]domain.Booking, error)
	// AdvanceStatuses starts confirmed bookings whose pickup has come and
	// completes running ones whose dropoff has passed.
	AdvanceStatuses(ctx context.Context, today string) (started, completed int64, err error)
}

// SettleFunc mutates the locked booking when a payment is authorised.
type SettleFunc func(b *domain.Booking, p *domain.Payment) error

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Payment, error)
	ListByBooking(ctx context.Context, bookingID string) ([]domain.Payment, error)
	// Settle records the outcome of a pending payment and, when it is
	// authorised, applies fn to the booking in the same transaction.
	Settle(ctx context.Context, paymentID string, outcome domain.PaymentOutcome, fn SettleFunc) (*domain.Booking, *domain.Payment, error)
	// ExpirePending cancels gateway payments still pending since before olderThan.
	ExpirePending(ctx context.Context, olderThan time.Time) (int64, error)
}
