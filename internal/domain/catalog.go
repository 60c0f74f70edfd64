package domain

import "time"

type Vehicle struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Slug                 string `json:"slug"`
	BasePricePerDayCents int64  `json:"base_price_per_day_cents"`
	IsForRent            bool   `json:"is_for_rent"`
}

type Location struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	ExtraFeeCents int64  `json:"extra_fee_cents"`
	IsPickup      bool   `json:"is_pickup"`
	IsDropoff     bool   `json:"is_dropoff"`
	IsActive      bool   `json:"is_active"`
}

type PriceType string

const (
	PriceTypePerDay    PriceType = "per_day"
	PriceTypePerRental PriceType = "per_rental"
)

// ParsePriceType folds the legacy catalog values into the two billing modes.
func ParsePriceType(s string) PriceType {
	if s == string(PriceTypePerDay) {
		return PriceTypePerDay
	}
	return PriceTypePerRental
}

type Extra struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	PriceType           PriceType `json:"price_type"`
	PricePerDayCents    int64     `json:"price_per_day_cents"`
	PricePerRentalCents int64     `json:"price_per_rental_cents"`
	// Zero means unlimited.
	MaxQuantity int  `json:"max_quantity"`
	IsActive    bool `json:"is_active"`
}

// Season is a dated price band. Rates are per day and the applicable tier
// depends on the total billed length of the rental.
type Season struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Slug                   string    `json:"slug"`
	StartDate              time.Time `json:"start_date"`
	EndDate                time.Time `json:"end_date"`
	PriceLessThanWeekCents int64     `json:"price_less_than_week_cents"`
	PriceOneWeekCents      int64     `json:"price_one_week_cents"`
	PriceTwoWeeksCents     int64     `json:"price_two_weeks_cents"`
	PriceThreeWeeksCents   int64     `json:"price_three_weeks_cents"`
	MinDays                int       `json:"min_days"`
	IsActive               bool      `json:"is_active"`
}

// Covers reports whether the calendar day falls inside the season, both ends inclusive.
func (s Season) Covers(day time.Time) bool {
	d := day.Format(DateLayout)
	return d >= s.StartDate.Format(DateLayout) && d <= s.EndDate.Format(DateLayout)
}
