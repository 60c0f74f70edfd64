package pricing

import (
	"time"

	"motorhome-booking-backend/internal/domain"
)

// RateTiers are per-day prices that decrease with the total rental length.
type RateTiers struct {
	LessThanWeekCents int64
	OneWeekCents      int64
	TwoWeeksCents     int64
	ThreeWeeksCents   int64
}

// LowSeasonTiers apply on days no season covers.
var LowSeasonTiers = RateTiers{
	LessThanWeekCents: 9500,
	OneWeekCents:      8500,
	TwoWeeksCents:     7500,
	ThreeWeeksCents:   6500,
}

const LowSeasonName = "Temporada Baja"

// ForDays picks the tier for a rental billed over pricingDays days.
func (t RateTiers) ForDays(pricingDays int) int64 {
	switch {
	case pricingDays >= 21:
		return t.ThreeWeeksCents
	case pricingDays >= 14:
		return t.TwoWeeksCents
	case pricingDays >= 7:
		return t.OneWeekCents
	default:
		return t.LessThanWeekCents
	}
}

func TiersOf(s domain.Season) RateTiers {
	return RateTiers{
		LessThanWeekCents: s.PriceLessThanWeekCents,
		OneWeekCents:      s.PriceOneWeekCents,
		TwoWeeksCents:     s.PriceTwoWeeksCents,
		ThreeWeeksCents:   s.PriceThreeWeeksCents,
	}
}

// SeasonCalendar resolves the day rate of any calendar day.
type SeasonCalendar struct {
	Seasons     []domain.Season
	Default     RateTiers
	DefaultName string
}

func NewSeasonCalendar(seasons []domain.Season) *SeasonCalendar {
	return &SeasonCalendar{Seasons: seasons, Default: LowSeasonTiers, DefaultName: LowSeasonName}
}

// FlatTiers bills every rental length at the same day rate.
func FlatTiers(dayRateCents int64) RateTiers {
	return RateTiers{
		LessThanWeekCents: dayRateCents,
		OneWeekCents:      dayRateCents,
		TwoWeeksCents:     dayRateCents,
		ThreeWeeksCents:   dayRateCents,
	}
}

// WithFlatDefault returns a copy of c that prices days outside every season
// at dayRateCents.
func (c *SeasonCalendar) WithFlatDefault(dayRateCents int64) *SeasonCalendar {
	out := *c
	out.Default = FlatTiers(dayRateCents)
	return &out
}

func (c *SeasonCalendar) seasonFor(day time.Time) (RateTiers, string) {
	for _, s := range c.Seasons {
		if s.IsActive && s.Covers(day) {
			return TiersOf(s), s.Name
		}
	}
	name := c.DefaultName
	if name == "" {
		name = LowSeasonName
	}
	return c.Default, name
}

// RateForDay returns the per-day price of one calendar day for a rental
// billed over pricingDays days, with the name of the season it falls in.
func (c *SeasonCalendar) RateForDay(day time.Time, pricingDays int) (int64, string) {
	tiers, name := c.seasonFor(day)
	return tiers.ForDays(pricingDays), name
}

// SeasonalBase is the result of walking every billed day through the calendar.
type SeasonalBase struct {
	TotalCents int64
	// Every day priced at the shortest-rental tier.
	UndiscountedCents int64
	DominantSeason    string
	DaysBySeason      map[string]int
}

// DurationDiscountPercent is the whole-percent saving of the length tiers.
func (b SeasonalBase) DurationDiscountPercent() int64 {
	if b.UndiscountedCents <= 0 {
		return 0
	}
	return divRoundHalfUp((b.UndiscountedCents-b.TotalCents)*100, b.UndiscountedCents)
}

// BasePrice walks pricingDays days starting on the pickup date.
func (c *SeasonCalendar) BasePrice(pickup time.Time, pricingDays int) SeasonalBase {
	out := SeasonalBase{DaysBySeason: make(map[string]int)}
	start := time.Date(pickup.Year(), pickup.Month(), pickup.Day(), 0, 0, 0, 0, time.UTC)
	var order []string
	for i := 0; i < pricingDays; i++ {
		day := start.AddDate(0, 0, i)
		tiers, name := c.seasonFor(day)
		out.TotalCents += tiers.ForDays(pricingDays)
		out.UndiscountedCents += tiers.LessThanWeekCents
		if _, seen := out.DaysBySeason[name]; !seen {
			order = append(order, name)
		}
		out.DaysBySeason[name]++
	}
	// Ties go to the season met first.
	best := 0
	for _, name := range order {
		if out.DaysBySeason[name] > best {
			best = out.DaysBySeason[name]
			out.DominantSeason = name
		}
	}
	if out.DominantSeason == "" {
		out.DominantSeason = c.DefaultName
	}
	return out
}
