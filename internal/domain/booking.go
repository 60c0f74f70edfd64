package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

const (
	DefaultPickupTime  = "11:00"
	DefaultDropoffTime = "11:00"
	DateLayout         = "2006-01-02"
)

type Booking struct {
	ID                string  `json:"id"`
	BookingNumber     string  `json:"booking_number"`
	VehicleID         string  `json:"vehicle_id"`
	CustomerID        *string `json:"customer_id,omitempty"`
	PickupLocationID  string  `json:"pickup_location_id"`
	DropoffLocationID string  `json:"dropoff_location_id"`
	PickupDate        string  `json:"pickup_date"` // Format: 'YYYY-MM-DD'
	DropoffDate       string  `json:"dropoff_date"`
	PickupTime        string  `json:"pickup_time"` // Format: 'HH:MM'
	DropoffTime       string  `json:"dropoff_time"`
	Days              int     `json:"days"`
	PricingDays       int     `json:"pricing_days"`
	// Price snapshot, fixed when the booking is created or re-priced by an admin.
	BasePriceCents     int64          `json:"base_price_cents"`
	ExtrasPriceCents   int64          `json:"extras_price_cents"`
	LocationFeeCents   int64          `json:"location_fee_cents"`
	DiscountCents      int64          `json:"discount_cents"`
	CouponID           *string        `json:"coupon_id,omitempty"`
	CouponCode         string         `json:"coupon_code,omitempty"`
	LastMinuteOfferID  *string        `json:"last_minute_offer_id,omitempty"`
	TotalPriceCents    int64          `json:"total_price_cents"`
	DepositAmountCents int64          `json:"deposit_amount_cents"`
	AmountPaidCents    int64          `json:"amount_paid_cents"`
	Status             BookingStatus  `json:"status"`
	PaymentStatus      PaymentStatus  `json:"payment_status"`
	CustomerName       string         `json:"customer_name"`
	CustomerEmail      string         `json:"customer_email"`
	CustomerPhone      string         `json:"customer_phone"`
	CustomerDNI        string         `json:"customer_dni"`
	CustomerAddress    string         `json:"customer_address"`
	CustomerCity       string         `json:"customer_city"`
	CustomerPostalCode string         `json:"customer_postal_code"`
	Notes              string         `json:"notes"`
	AdminNotes         string         `json:"admin_notes"`
	Extras             []BookingExtra `json:"extras"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// PendingCents is what is still owed, never negative.
func (b *Booking) PendingCents() int64 {
	if b.AmountPaidCents >= b.TotalPriceCents {
		return 0
	}
	return b.TotalPriceCents - b.AmountPaidCents
}

type BookingExtra struct {
	ID              string `json:"id"`
	BookingID       string `json:"booking_id"`
	ExtraID         string `json:"extra_id"`
	ExtraName       string `json:"extra_name,omitempty"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

// NewBookingNumber builds the public reference: "FG" followed by the last
// eight digits of the unix millisecond clock.
func NewBookingNumber(now time.Time) string {
	ms := now.UnixMilli() % 100000000
	return fmt.Sprintf("FG%08d", ms)
}
