package pricing

import (
	"fmt"
	"strings"
	"time"

	"motorhome-booking-backend/internal/domain"
)

const dayDuration = 24 * time.Hour

// Policy holds the business rules that operators may switch. The zero
// value is the standard rule set.
type Policy struct {
	// Turns off the two day minimum charge, under which a two day rental
	// is billed as three.
	BillTwoDaysAsTwo bool
}

var DefaultPolicy = Policy{}

// ExtraSelection is one chosen catalog extra with its quantity.
type ExtraSelection struct {
	Extra    domain.Extra
	Quantity int
}

// OfferRate is the day rate pair of a last-minute offer.
type OfferRate struct {
	OriginalPricePerDayCents int64
	FinalPricePerDayCents    int64
}

// Input is everything needed to price one rental. An Offer fixes the day
// rate. Otherwise the Calendar prices the days its seasons cover and
// DayRateCents prices the rest; without a Calendar every day is billed at
// DayRateCents.
type Input struct {
	PickupDate  string
	PickupTime  string
	DropoffDate string
	DropoffTime string

	DayRateCents int64
	Calendar     *SeasonCalendar
	Offer        *OfferRate

	Extras []ExtraSelection

	PickupLocationFeeCents  int64
	DropoffLocationFeeCents int64

	// Percentage discount on the base price, in basis points (1000 = 10%).
	DiscountBasisPoints int64
	// Fixed discount, capped at the base price.
	FixedDiscountCents int64

	Policy Policy
}

type ExtraLine struct {
	ExtraID         string           `json:"extra_id"`
	Name            string           `json:"name"`
	PriceType       domain.PriceType `json:"price_type"`
	Quantity        int              `json:"quantity"`
	UnitPriceCents  int64            `json:"unit_price_cents"`
	TotalPriceCents int64            `json:"total_price_cents"`
}

// Quote is a fully itemised price.
type Quote struct {
	Days                     int         `json:"days"`
	PricingDays              int         `json:"pricing_days"`
	BasePriceCents           int64       `json:"base_price_cents"`
	ExtrasPriceCents         int64       `json:"extras_price_cents"`
	ExtraLines               []ExtraLine `json:"extra_lines"`
	LocationFeeCents         int64       `json:"location_fee_cents"`
	DiscountCents            int64       `json:"discount_cents"`
	TotalPriceCents          int64       `json:"total_price_cents"`
	PricePerDayCents         int64       `json:"price_per_day_cents"`
	OriginalPricePerDayCents int64       `json:"original_price_per_day_cents,omitempty"`
	SavingsCents             int64       `json:"savings_cents,omitempty"`
	DurationDiscountPercent  int64       `json:"duration_discount_percent"`
	DominantSeason           string      `json:"season,omitempty"`
}

// ParseDateTime combines a YYYY-MM-DD date and an HH:MM clock in UTC.
// An empty clock means the default hand-over time.
func ParseDateTime(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, domain.MissingField("date")
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		clock = domain.DefaultPickupTime
	}
	// Accept HH:MM:SS as stored by the database.
	if len(clock) == 8 {
		clock = clock[:5]
	}
	t, err := time.ParseInLocation(domain.DateLayout+" 15:04", date+" "+clock, time.UTC)
	if err != nil {
		return time.Time{}, domain.NewValidationError(domain.ErrInvalidDateRange, "date",
			fmt.Sprintf("cannot parse %q %q", date, clock))
	}
	return t, nil
}

// CountDays returns the number of started 24h periods between pickup and
// dropoff. A range that is empty or reversed is rejected, never clamped.
func CountDays(pickup, dropoff time.Time) (int, error) {
	diff := dropoff.Sub(pickup)
	if diff <= 0 {
		return 0, domain.NewValidationError(domain.ErrInvalidDateRange, "dropoff_date",
			"dropoff must be after pickup")
	}
	days := int(diff / dayDuration)
	if diff%dayDuration != 0 {
		days++
	}
	return days, nil
}

// PricingDays returns the number of days billed for a rental of the given length.
func (p Policy) PricingDays(days int) int {
	if !p.BillTwoDaysAsTwo && days == 2 {
		return 3
	}
	return days
}

// PricingDays applies the default policy.
func PricingDays(days int) int {
	return DefaultPolicy.PricingDays(days)
}

// ExtraUnitPrice is the catalog price of one unit for the extra's billing mode.
func ExtraUnitPrice(extra domain.Extra) int64 {
	if extra.PriceType == domain.PriceTypePerDay {
		return extra.PricePerDayCents
	}
	return extra.PricePerRentalCents
}

// ExtraLineTotal prices qty units of extra over pricingDays billed days.
func ExtraLineTotal(extra domain.Extra, qty, pricingDays int) (int64, error) {
	if qty < 0 {
		return 0, domain.NewValidationError(domain.ErrInvalidQuantity, extra.Name,
			fmt.Sprintf("quantity %d is negative", qty))
	}
	if extra.MaxQuantity > 0 && qty > extra.MaxQuantity {
		return 0, domain.NewValidationError(domain.ErrInvalidQuantity, extra.Name,
			fmt.Sprintf("quantity %d exceeds maximum of %d", qty, extra.MaxQuantity))
	}
	total := ExtraUnitPrice(extra) * int64(qty)
	if extra.PriceType == domain.PriceTypePerDay {
		total *= int64(pricingDays)
	}
	return total, nil
}

// Calculate prices a rental. All component prices are whole cents; the
// percentage discount is kept exact and the total rounded half-up once.
func Calculate(in Input) (Quote, error) {
	pickup, err := ParseDateTime(in.PickupDate, in.PickupTime)
	if err != nil {
		return Quote{}, err
	}
	dropoff, err := ParseDateTime(in.DropoffDate, in.DropoffTime)
	if err != nil {
		return Quote{}, err
	}
	days, err := CountDays(pickup, dropoff)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{Days: days, PricingDays: in.Policy.PricingDays(days)}

	switch {
	case in.Offer != nil:
		q.PricePerDayCents = in.Offer.FinalPricePerDayCents
		q.OriginalPricePerDayCents = in.Offer.OriginalPricePerDayCents
		q.BasePriceCents = in.Offer.FinalPricePerDayCents * int64(q.PricingDays)
		q.SavingsCents = (in.Offer.OriginalPricePerDayCents - in.Offer.FinalPricePerDayCents) * int64(q.PricingDays)
		if q.SavingsCents < 0 {
			q.SavingsCents = 0
		}
	case in.Calendar != nil:
		cal := in.Calendar
		if in.DayRateCents > 0 {
			cal = cal.WithFlatDefault(in.DayRateCents)
		}
		sb := cal.BasePrice(pickup, q.PricingDays)
		q.BasePriceCents = sb.TotalCents
		q.DominantSeason = sb.DominantSeason
		q.OriginalPricePerDayCents = divRoundHalfUp(sb.UndiscountedCents, int64(q.PricingDays))
		q.PricePerDayCents = divRoundHalfUp(sb.TotalCents, int64(q.PricingDays))
		q.SavingsCents = sb.UndiscountedCents - sb.TotalCents
		q.DurationDiscountPercent = sb.DurationDiscountPercent()
	default:
		if in.DayRateCents <= 0 {
			return Quote{}, domain.MissingField("day_rate")
		}
		q.PricePerDayCents = in.DayRateCents
		q.BasePriceCents = in.DayRateCents * int64(q.PricingDays)
	}

	for _, sel := range in.Extras {
		if sel.Quantity == 0 {
			continue
		}
		lineTotal, err := ExtraLineTotal(sel.Extra, sel.Quantity, q.PricingDays)
		if err != nil {
			return Quote{}, err
		}
		q.ExtraLines = append(q.ExtraLines, ExtraLine{
			ExtraID:         sel.Extra.ID,
			Name:            sel.Extra.Name,
			PriceType:       sel.Extra.PriceType,
			Quantity:        sel.Quantity,
			UnitPriceCents:  ExtraUnitPrice(sel.Extra),
			TotalPriceCents: lineTotal,
		})
		q.ExtrasPriceCents += lineTotal
	}

	q.LocationFeeCents = in.PickupLocationFeeCents + in.DropoffLocationFeeCents

	if in.DiscountBasisPoints < 0 || in.DiscountBasisPoints > 10000 {
		return Quote{}, domain.NewValidationError(domain.ErrInvalidCoupon, "discount",
			"percentage must be between 0 and 100")
	}
	if in.FixedDiscountCents < 0 {
		return Quote{}, domain.NewValidationError(domain.ErrInvalidCoupon, "discount",
			"fixed discount cannot be negative")
	}

	gross := q.BasePriceCents + q.ExtrasPriceCents + q.LocationFeeCents
	fixed := in.FixedDiscountCents
	if fixed > q.BasePriceCents {
		fixed = q.BasePriceCents
	}
	// total = gross - fixed - base*bp/10000, rounded once.
	const scale = 10000
	remainingBase := q.BasePriceCents - fixed
	pct := q.BasePriceCents * in.DiscountBasisPoints
	if pct > remainingBase*scale {
		pct = remainingBase * scale
	}
	q.TotalPriceCents = divRoundHalfUp((gross-fixed)*scale-pct, scale)
	q.DiscountCents = gross - q.TotalPriceCents
	return q, nil
}

// divRoundHalfUp divides and rounds to the nearest integer, halves towards +inf.
func divRoundHalfUp(num, den int64) int64 {
	if den == 0 {
		return 0
	}
	if den < 0 {
		num, den = -num, -den
	}
	n := 2*num + den
	d := 2 * den
	q := n / d
	if n%d != 0 && n < 0 {
		q--
	}
	return q
}

// PercentOf returns bp basis points of amount, rounded half-up.
func PercentOf(amountCents, bp int64) int64 {
	return divRoundHalfUp(amountCents*bp, 10000)
}
