package service

import (
	"context"
	"time"

	"motorhome-booking-backend/internal/config"
	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/payment"
	"motorhome-booking-backend/internal/pricing"
	"motorhome-booking-backend/internal/repository"
)

// ExtraRequest is one extra chosen by the customer.
type ExtraRequest struct {
	ExtraID  string `json:"extra_id"`
	Quantity int    `json:"quantity"`
}

type QuoteRequest struct {
	VehicleID         string         `json:"vehicle_id"`
	PickupLocationID  string         `json:"pickup_location_id"`
	DropoffLocationID string         `json:"dropoff_location_id"`
	PickupDate        string         `json:"pickup_date"`
	PickupTime        string         `json:"pickup_time"`
	DropoffDate       string         `json:"dropoff_date"`
	DropoffTime       string         `json:"dropoff_time"`
	Extras            []ExtraRequest `json:"extras"`
	CouponCode        string         `json:"coupon_code"`
	LastMinuteOfferID string         `json:"last_minute_offer_id"`
}

type CouponRequest struct {
	Code              string `json:"code"`
	PickupDate        string `json:"pickup_date"`
	DropoffDate       string `json:"dropoff_date"`
	RentalAmountCents int64  `json:"rental_amount_cents"`
}

type CouponResult struct {
	Coupon        *domain.Coupon `json:"coupon"`
	DiscountCents int64          `json:"discount_cents"`
}

type CustomerDetails struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	DNI        string `json:"dni"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type CreateBookingRequest struct {
	QuoteRequest
	Customer CustomerDetails `json:"customer"`
	Notes    string          `json:"notes"`
}

// UpdateBookingRequest is an admin edit. Nil fields are left unchanged.
type UpdateBookingRequest struct {
	VehicleID         *string         `json:"vehicle_id"`
	PickupLocationID  *string         `json:"pickup_location_id"`
	DropoffLocationID *string         `json:"dropoff_location_id"`
	PickupDate        *string         `json:"pickup_date"`
	PickupTime        *string         `json:"pickup_time"`
	DropoffDate       *string         `json:"dropoff_date"`
	DropoffTime       *string         `json:"dropoff_time"`
	Extras            *[]ExtraRequest `json:"extras"`
	// Replaces the computed total; the difference is booked as discount.
	TotalPriceCents *int64           `json:"total_price_cents"`
	AmountPaidCents *int64           `json:"amount_paid_cents"`
	Customer        *CustomerDetails `json:"customer"`
	Notes           *string          `json:"notes"`
	AdminNotes      *string          `json:"admin_notes"`
}

type PricingService interface {
	Quote(ctx context.Context, req QuoteRequest) (*pricing.Quote, error)
	ValidateCoupon(ctx context.Context, req CouponRequest) (*CouponResult, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	GetBookingByNumber(ctx context.Context, number string) (*domain.Booking, error)
	ListBookings(ctx context.Context, filter repository.BookingFilter, page, pageSize int32) ([]domain.Booking, int32, error)
	UpdateBooking(ctx context.Context, id string, req UpdateBookingRequest) (*domain.Booking, error)
	ChangeStatus(ctx context.Context, id string, to domain.BookingStatus) (*domain.Booking, error)
	RefundBooking(ctx context.Context, id string) (*domain.Booking, error)
	GetPaymentPlan(ctx context.Context, id string, mode payment.Mode) (*payment.Schedule, error)
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, bookingID string, method domain.PaymentMethod, mode payment.Mode) (*payment.Redirect, error)
	HandleRedsysNotification(ctx context.Context, signatureVersion, params, signature string) (*domain.Payment, error)
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error
	ConfirmManualPayment(ctx context.Context, paymentID string, method domain.PaymentMethod, notes string) (*domain.Payment, error)
}

type NotificationService interface {
	// Notify sends in the background; failures are only logged.
	Notify(ctx context.Context, kind NotificationKind, b *domain.Booking)
	Send(ctx context.Context, kind NotificationKind, b *domain.Booking) error
	// Wait blocks until background sends have finished.
	Wait()
}

type EmailMessage struct {
	To        string
	ToName    string
	CC        string
	Subject   string
	PlainText string
	HTML      string
}

type EmailService interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// Settings are the operator-tunable rules shared by the services.
type Settings struct {
	Policy              pricing.Policy
	LowSeason           pricing.RateTiers
	LowSeasonName       string
	DefaultDepositCents int64
	Fees                payment.Fees
	// PublicBaseURL is where the customer is sent back after paying and
	// where gateways post their notifications.
	PublicBaseURL  string
	IdempotencyTTL time.Duration
	Now            func() time.Time
}

func (s Settings) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SettingsFromConfig maps a validated config onto service settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	tiers := cfg.Pricing.LowSeasonTiersCents
	fees := payment.Fees{
		domain.PaymentMethodRedsys: cfg.Payments.Redsys.FeeBasisPoints,
		domain.PaymentMethodStripe: cfg.Payments.Stripe.FeeBasisPoints,
	}
	s := Settings{
		Policy:              pricing.DefaultPolicy,
		LowSeason:           pricing.LowSeasonTiers,
		LowSeasonName:       cfg.Pricing.LowSeasonName,
		DefaultDepositCents: cfg.Pricing.DefaultDepositCents,
		Fees:                fees,
		PublicBaseURL:       cfg.Server.BaseURL,
		IdempotencyTTL:      time.Duration(cfg.Redis.IdempotencyTTLHours) * time.Hour,
	}
	if cfg.Pricing.BillTwoDaysAsThree != nil {
		s.Policy.BillTwoDaysAsTwo = !*cfg.Pricing.BillTwoDaysAsThree
	}
	if len(tiers) == 4 {
		s.LowSeason = pricing.RateTiers{
			LessThanWeekCents: tiers[0],
			OneWeekCents:      tiers[1],
			TwoWeeksCents:     tiers[2],
			ThreeWeeksCents:   tiers[3],
		}
	}
	return s
}
