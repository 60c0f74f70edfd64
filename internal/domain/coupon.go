package domain

import "time"

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	DiscountType DiscountType `json:"discount_type"`
	// Percent for percentage coupons, cents for fixed ones.
	DiscountValue        int64      `json:"discount_value"`
	ValidFrom            *time.Time `json:"valid_from,omitempty"`
	ValidUntil           *time.Time `json:"valid_until,omitempty"`
	MinRentalDays        int        `json:"min_rental_days"`
	MinRentalAmountCents int64      `json:"min_rental_amount_cents"`
	MaxUses              *int       `json:"max_uses,omitempty"`
	CurrentUses          int        `json:"current_uses"`
	IsActive             bool       `json:"is_active"`
}

type OfferStatus string

const (
	OfferStatusPublished OfferStatus = "published"
	OfferStatusReserved  OfferStatus = "reserved"
	OfferStatusExpired   OfferStatus = "expired"
)

// LastMinuteOffer is a fixed-date discounted rental of one vehicle.
type LastMinuteOffer struct {
	ID                       string      `json:"id"`
	VehicleID                string      `json:"vehicle_id"`
	PickupLocationID         string      `json:"pickup_location_id"`
	DropoffLocationID        string      `json:"dropoff_location_id"`
	PickupDate               string      `json:"pickup_date"`
	DropoffDate              string      `json:"dropoff_date"`
	OfferDays                int         `json:"offer_days"`
	OriginalPricePerDayCents int64       `json:"original_price_per_day_cents"`
	FinalPricePerDayCents    int64       `json:"final_price_per_day_cents"`
	Status                   OfferStatus `json:"status"`
}

type Customer struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	DNI             string    `json:"dni"`
	Address         string    `json:"address"`
	City            string    `json:"city"`
	PostalCode      string    `json:"postal_code"`
	Country         string    `json:"country"`
	TotalBookings   int       `json:"total_bookings"`
	TotalSpentCents int64     `json:"total_spent_cents"`
	CreatedAt       time.Time `json:"created_at"`
}
