package pricing

import (
	"testing"
	"time"

	"motorhome-booking-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, date, clock string) time.Time {
	t.Helper()
	tm, err := ParseDateTime(date, clock)
	require.NoError(t, err)
	return tm
}

func TestParseDateTime(t *testing.T) {
	t.Run("Default clock", func(t *testing.T) {
		tm, err := ParseDateTime("2024-07-01", "")
		assert.NoError(t, err)
		assert.Equal(t, 11, tm.Hour())
	})

	t.Run("Database clock with seconds", func(t *testing.T) {
		tm, err := ParseDateTime("2024-07-01", "09:30:00")
		assert.NoError(t, err)
		assert.Equal(t, 9, tm.Hour())
		assert.Equal(t, 30, tm.Minute())
	})

	t.Run("Missing date", func(t *testing.T) {
		_, err := ParseDateTime("", "10:00")
		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := ParseDateTime("2024/07/01", "10:00")
		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	})
}

func TestCountDays(t *testing.T) {
	tests := []struct {
		name     string
		pickup   string
		dropoff  string
		expected int
	}{
		{"Exact three days", "2024-07-01 11:00", "2024-07-04 11:00", 3},
		{"One hour over starts a new day", "2024-07-01 11:00", "2024-07-04 12:00", 4},
		{"Shorter than a day", "2024-07-01 11:00", "2024-07-01 18:00", 1},
		{"Across month end", "2024-06-29 11:00", "2024-07-02 11:00", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := time.Parse("2006-01-02 15:04", tt.pickup)
			d, _ := time.Parse("2006-01-02 15:04", tt.dropoff)
			days, err := CountDays(p, d)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, days)
		})
	}

	t.Run("Same instant is rejected", func(t *testing.T) {
		p := mustTime(t, "2024-07-01", "11:00")
		_, err := CountDays(p, p)
		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	})

	t.Run("Reversed range is rejected", func(t *testing.T) {
		_, err := CountDays(mustTime(t, "2024-07-04", "11:00"), mustTime(t, "2024-07-01", "11:00"))
		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	})
}

func TestPricingDays(t *testing.T) {
	assert.Equal(t, 1, PricingDays(1))
	assert.Equal(t, 3, PricingDays(2))
	assert.Equal(t, 3, PricingDays(3))
	assert.Equal(t, 10, PricingDays(10))
	assert.Equal(t, 2, Policy{BillTwoDaysAsTwo: true}.PricingDays(2))
}

func TestExtraLineTotal(t *testing.T) {
	perDay := domain.Extra{Name: "Bike rack", PriceType: domain.PriceTypePerDay, PricePerDayCents: 1000, MaxQuantity: 2}
	perRental := domain.Extra{Name: "Cleaning", PriceType: domain.PriceTypePerRental, PricePerRentalCents: 5000}

	t.Run("Per day scales with billed days", func(t *testing.T) {
		total, err := ExtraLineTotal(perDay, 2, 3)
		assert.NoError(t, err)
		assert.Equal(t, int64(6000), total)
	})

	t.Run("Per rental ignores days", func(t *testing.T) {
		total, err := ExtraLineTotal(perRental, 1, 10)
		assert.NoError(t, err)
		assert.Equal(t, int64(5000), total)
	})

	t.Run("Above max quantity", func(t *testing.T) {
		_, err := ExtraLineTotal(perDay, 3, 3)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		assert.Contains(t, err.Error(), "exceeds maximum of 2")
	})

	t.Run("Negative quantity", func(t *testing.T) {
		_, err := ExtraLineTotal(perRental, -1, 3)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})
}

func TestCalculate(t *testing.T) {
	extras := []ExtraSelection{
		{Extra: domain.Extra{ID: "e1", Name: "Bike rack", PriceType: domain.PriceTypePerDay, PricePerDayCents: 1000, MaxQuantity: 4}, Quantity: 2},
		{Extra: domain.Extra{ID: "e2", Name: "Cleaning", PriceType: domain.PriceTypePerRental, PricePerRentalCents: 5000}, Quantity: 1},
		{Extra: domain.Extra{ID: "e3", Name: "Unused", PriceType: domain.PriceTypePerDay, PricePerDayCents: 700}, Quantity: 0},
	}

	t.Run("Full breakdown", func(t *testing.T) {
		q, err := Calculate(Input{
			PickupDate:              "2024-07-01",
			DropoffDate:             "2024-07-04",
			DayRateCents:            10000,
			Extras:                  extras,
			PickupLocationFeeCents:  2000,
			DropoffLocationFeeCents: 3000,
			DiscountBasisPoints:     1000,
			Policy:                  DefaultPolicy,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, q.Days)
		assert.Equal(t, 3, q.PricingDays)
		assert.Equal(t, int64(30000), q.BasePriceCents)
		assert.Equal(t, int64(11000), q.ExtrasPriceCents)
		assert.Len(t, q.ExtraLines, 2)
		assert.Equal(t, int64(5000), q.LocationFeeCents)
		assert.Equal(t, int64(3000), q.DiscountCents)
		assert.Equal(t, int64(43000), q.TotalPriceCents)
	})

	t.Run("Two days billed as three", func(t *testing.T) {
		q, err := Calculate(Input{PickupDate: "2024-07-01", DropoffDate: "2024-07-03", DayRateCents: 10000, Policy: DefaultPolicy})
		require.NoError(t, err)
		assert.Equal(t, 2, q.Days)
		assert.Equal(t, 3, q.PricingDays)
		assert.Equal(t, int64(30000), q.BasePriceCents)
	})

	t.Run("Zero value policy keeps the two day minimum", func(t *testing.T) {
		q, err := Calculate(Input{PickupDate: "2024-07-01", DropoffDate: "2024-07-03", DayRateCents: 10000})
		require.NoError(t, err)
		assert.Equal(t, 3, q.PricingDays)
		assert.Equal(t, int64(30000), q.BasePriceCents)
	})

	t.Run("Two day minimum switched off", func(t *testing.T) {
		q, err := Calculate(Input{PickupDate: "2024-07-01", DropoffDate: "2024-07-03", DayRateCents: 10000, Policy: Policy{BillTwoDaysAsTwo: true}})
		require.NoError(t, err)
		assert.Equal(t, 2, q.PricingDays)
		assert.Equal(t, int64(20000), q.BasePriceCents)
	})

	t.Run("Per day extras use billed days", func(t *testing.T) {
		q, err := Calculate(Input{PickupDate: "2024-07-01", DropoffDate: "2024-07-03", DayRateCents: 10000, Extras: extras[:1], Policy: DefaultPolicy})
		require.NoError(t, err)
		assert.Equal(t, int64(6000), q.ExtrasPriceCents)
	})

	t.Run("Rounds half up once at the total", func(t *testing.T) {
		q, err := Calculate(Input{PickupDate: "2024-07-01", DropoffDate: "2024-07-04", DayRateCents: 333, DiscountBasisPoints: 5000, Policy: DefaultPolicy})
		require.NoError(t, err)
		assert.Equal(t, int64(999), q.BasePriceCents)
		assert.Equal(t, int64(500), q.TotalPriceCents)
		assert.Equal(t, int64(499), q.DiscountCents)
	})

	t.Run("Fixed discount capped at base", func(t *testing.T) {
		q, err := Calculate(Input{
			PickupDate: "2024-07-01", DropoffDate: "2024-07-02", DayRateCents: 10000,
			PickupLocationFeeCents: 1500, FixedDiscountCents: 50000, Policy: DefaultPolicy,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(10000), q.DiscountCents)
		assert.Equal(t, int64(1500), q.TotalPriceCents)
	})

	t.Run("Invalid quantity propagates", func(t *testing.T) {
		bad := []ExtraSelection{{Extra: domain.Extra{Name: "Chair", PriceType: domain.PriceTypePerRental, MaxQuantity: 1}, Quantity: 5}}
		_, err := Calculate(Input{PickupDate: "2024-07-01", DropoffDate: "2024-07-04", DayRateCents: 10000, Extras: bad})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})

	t.Run("Invalid range", func(t *testing.T) {
		_, err := Calculate(Input{PickupDate: "2024-07-04", DropoffDate: "2024-07-01", DayRateCents: 10000})
		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	})

	t.Run("Missing rate", func(t *testing.T) {
		_, err := Calculate(Input{PickupDate: "2024-07-01", DropoffDate: "2024-07-04"})
		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})

	t.Run("Last minute offer", func(t *testing.T) {
		q, err := Calculate(Input{
			PickupDate: "2024-07-01", DropoffDate: "2024-07-04",
			Offer:  &OfferRate{OriginalPricePerDayCents: 12000, FinalPricePerDayCents: 9000},
			Policy: DefaultPolicy,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(27000), q.BasePriceCents)
		assert.Equal(t, int64(9000), q.SavingsCents)
		assert.Equal(t, int64(27000), q.TotalPriceCents)
	})
}

func TestSeasonCalendar(t *testing.T) {
	high := domain.Season{
		Name:                   "Temporada Alta",
		StartDate:              time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:                time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC),
		PriceLessThanWeekCents: 15000,
		PriceOneWeekCents:      14000,
		PriceTwoWeeksCents:     13000,
		PriceThreeWeeksCents:   12000,
		IsActive:               true,
	}
	cal := NewSeasonCalendar([]domain.Season{high})

	t.Run("Tier selection", func(t *testing.T) {
		day := time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)
		for days, want := range map[int]int64{3: 15000, 7: 14000, 14: 13000, 21: 12000, 30: 12000} {
			rate, name := cal.RateForDay(day, days)
			assert.Equal(t, want, rate)
			assert.Equal(t, "Temporada Alta", name)
		}
	})

	t.Run("Uncovered day uses low season", func(t *testing.T) {
		rate, name := cal.RateForDay(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), 7)
		assert.Equal(t, int64(8500), rate)
		assert.Equal(t, LowSeasonName, name)
	})

	t.Run("Inactive seasons are ignored", func(t *testing.T) {
		off := high
		off.IsActive = false
		rate, _ := NewSeasonCalendar([]domain.Season{off}).RateForDay(time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC), 3)
		assert.Equal(t, int64(9500), rate)
	})

	t.Run("Blended across a season boundary", func(t *testing.T) {
		q, err := Calculate(Input{PickupDate: "2024-06-29", DropoffDate: "2024-07-02", Calendar: cal, Policy: DefaultPolicy})
		require.NoError(t, err)
		assert.Equal(t, int64(9500+9500+15000), q.BasePriceCents)
		assert.Equal(t, LowSeasonName, q.DominantSeason)
		assert.Equal(t, int64(0), q.DurationDiscountPercent)
	})

	t.Run("Vehicle rate prices days outside every season", func(t *testing.T) {
		q, err := Calculate(Input{PickupDate: "2024-06-29", DropoffDate: "2024-07-02", Calendar: cal, DayRateCents: 10000})
		require.NoError(t, err)
		assert.Equal(t, int64(10000+10000+15000), q.BasePriceCents)
		rate, _ := cal.RateForDay(time.Date(2024, 6, 29, 0, 0, 0, 0, time.UTC), 3)
		assert.Equal(t, int64(9500), rate)
	})

	t.Run("Vehicle rate without seasons", func(t *testing.T) {
		q, err := Calculate(Input{PickupDate: "2024-09-01", DropoffDate: "2024-09-03", Calendar: NewSeasonCalendar(nil), DayRateCents: 10000})
		require.NoError(t, err)
		assert.Equal(t, 3, q.PricingDays)
		assert.Equal(t, int64(30000), q.BasePriceCents)
		assert.Equal(t, int64(0), q.DurationDiscountPercent)
	})

	t.Run("Weekly tier reports duration discount", func(t *testing.T) {
		q, err := Calculate(Input{PickupDate: "2024-07-01", DropoffDate: "2024-07-08", Calendar: cal, Policy: DefaultPolicy})
		require.NoError(t, err)
		assert.Equal(t, int64(98000), q.BasePriceCents)
		assert.Equal(t, int64(15000), q.OriginalPricePerDayCents)
		assert.Equal(t, int64(14000), q.PricePerDayCents)
		assert.Equal(t, int64(7000), q.SavingsCents)
		assert.Equal(t, int64(7), q.DurationDiscountPercent)
		assert.Equal(t, "Temporada Alta", q.DominantSeason)
	})
}

func TestDivRoundHalfUp(t *testing.T) {
	assert.Equal(t, int64(3), divRoundHalfUp(5, 2))
	assert.Equal(t, int64(2), divRoundHalfUp(7, 4))
	assert.Equal(t, int64(-2), divRoundHalfUp(-5, 2))
	assert.Equal(t, int64(0), divRoundHalfUp(1, 0))
}
