//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"motorhome-booking-backend/internal/config"
	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configPath = flag.String("config", "../../../config/config.test.yaml", "path to config file")

func prepareDB(t *testing.T) *sql.DB {
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		t.Skipf("no test config at %s", *configPath)
	}
	cfg, err := config.Load(*configPath)
	require.NoError(t, err)

	var db *sql.DB
	// Retry connection as DB might still be starting up
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err == nil {
			if err = db.Ping(); err == nil {
				require.NoError(t, Migrate(context.Background(), db))
				return db
			}
		}
		time.Sleep(2 * time.Second)
	}
	t.Fatalf("failed to connect to database: %v", err)
	return nil
}

func seedCatalog(t *testing.T, db *sql.DB) (vehicleID, locationID string) {
	t.Helper()
	suffix := uuid.NewString()[:8]
	require.NoError(t, db.QueryRow(
		`INSERT INTO vehicles (name, slug, base_price_per_day_cents) VALUES ($1, $2, 9500) RETURNING id`,
		"Integration van", "van-"+suffix).Scan(&vehicleID))
	require.NoError(t, db.QueryRow(
		`INSERT INTO locations (name, slug, extra_fee_cents) VALUES ($1, $2, 0) RETURNING id`,
		"Murcia", "murcia-"+suffix).Scan(&locationID))
	return vehicleID, locationID
}

func TestIntegration_SettleCreditsOnce(t *testing.T) {
	db := prepareDB(t)
	defer db.Close()
	ctx := context.Background()
	store := NewStore(db)
	vehicleID, locationID := seedCatalog(t, db)

	b := &domain.Booking{
		BookingNumber:     domain.NewBookingNumber(time.Now()),
		VehicleID:         vehicleID,
		PickupLocationID:  locationID,
		DropoffLocationID: locationID,
		PickupDate:        "2031-07-01",
		DropoffDate:       "2031-07-08",
		PickupTime:        domain.DefaultPickupTime,
		DropoffTime:       domain.DefaultDropoffTime,
		Days:              7,
		PricingDays:       7,
		BasePriceCents:    59500,
		TotalPriceCents:   59500,
		Status:            domain.BookingStatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		CustomerName:      "Ana García",
		CustomerEmail:     fmt.Sprintf("ana+%s@example.com", uuid.NewString()[:8]),
	}
	require.NoError(t, store.BookingRepository.Create(ctx, b))

	p := &domain.Payment{
		BookingID:    b.ID,
		OrderNumber:  uuid.NewString()[:12],
		AmountCents:  29750,
		ChargedCents: 29750,
		Status:       domain.PaymentRecordPending,
		PaymentType:  domain.PaymentTypeDeposit,
		Method:       domain.PaymentMethodRedsys,
	}
	require.NoError(t, store.PaymentRepository.Create(ctx, p))

	credit := func(b *domain.Booking, p *domain.Payment) error {
		return payment.Credit(b, p.AmountCents)
	}
	outcome := domain.PaymentOutcome{Status: domain.PaymentRecordAuthorized, CapturedCents: 29750, ResponseCode: "0000"}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = store.PaymentRepository.Settle(ctx, p.ID, outcome, credit)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrAlreadySettled), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	got, err := store.BookingRepository.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(29750), got.AmountPaidCents)
	assert.Equal(t, domain.PaymentStatusPartial, got.PaymentStatus)
	assert.Equal(t, domain.BookingStatusConfirmed, got.Status)
}

func TestIntegration_ExpirePending(t *testing.T) {
	db := prepareDB(t)
	defer db.Close()
	ctx := context.Background()
	store := NewStore(db)

	n, err := store.PaymentRepository.ExpirePending(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(0))
}
