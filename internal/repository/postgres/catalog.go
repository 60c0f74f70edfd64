package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/repository"
)

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT id, name, slug, base_price_per_day_cents, is_for_rent FROM vehicles WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Name, &v.Slug, &v.BasePricePerDayCents, &v.IsForRent)
	if err != nil {
		return nil, notFound("vehicle", id, err)
	}
	return v, nil
}

type locationRepository struct {
	db *sql.DB
}

func NewLocationRepository(db *sql.DB) repository.LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	l := &domain.Location{}
	query := `SELECT id, name, slug, extra_fee_cents, is_pickup, is_dropoff, is_active FROM locations WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Name, &l.Slug, &l.ExtraFeeCents, &l.IsPickup, &l.IsDropoff, &l.IsActive)
	if err != nil {
		return nil, notFound("location", id, err)
	}
	return l, nil
}

type extraRepository struct {
	db *sql.DB
}

func NewExtraRepository(db *sql.DB) repository.ExtraRepository {
	return &extraRepository{db: db}
}

const extraColumns = `id, name, price_type, price_per_day_cents, price_per_rental_cents, max_quantity, is_active`

func scanExtras(rows *sql.Rows) ([]domain.Extra, error) {
	defer rows.Close()
	var extras []domain.Extra
	for rows.Next() {
		var e domain.Extra
		var priceType string
		if err := rows.Scan(&e.ID, &e.Name, &priceType, &e.PricePerDayCents, &e.PricePerRentalCents, &e.MaxQuantity, &e.IsActive); err != nil {
			return nil, err
		}
		e.PriceType = domain.ParsePriceType(priceType)
		extras = append(extras, e)
	}
	return extras, rows.Err()
}

func (r *extraRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Extra, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+extraColumns+` FROM extras WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return scanExtras(rows)
}

func (r *extraRepository) ListActive(ctx context.Context) ([]domain.Extra, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+extraColumns+` FROM extras WHERE is_active = true ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return scanExtras(rows)
}

type seasonRepository struct {
	db *sql.DB
}

func NewSeasonRepository(db *sql.DB) repository.SeasonRepository {
	return &seasonRepository{db: db}
}

func (r *seasonRepository) ListActiveBetween(ctx context.Context, from, to string) ([]domain.Season, error) {
	query := `SELECT id, name, slug, start_date, end_date, price_less_than_week_cents, price_one_week_cents,
	                 price_two_weeks_cents, price_three_weeks_cents, min_days, is_active
	          FROM seasons
	          WHERE is_active = true AND start_date <= $2 AND end_date >= $1
	          ORDER BY start_date`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seasons []domain.Season
	for rows.Next() {
		var s domain.Season
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.StartDate, &s.EndDate, &s.PriceLessThanWeekCents, &s.PriceOneWeekCents,
			&s.PriceTwoWeeksCents, &s.PriceThreeWeeksCents, &s.MinDays, &s.IsActive); err != nil {
			return nil, err
		}
		seasons = append(seasons, s)
	}
	return seasons, rows.Err()
}

type couponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) repository.CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c := &domain.Coupon{}
	var maxUses sql.NullInt64
	var validFrom, validUntil sql.NullTime
	var discountType string
	query := `SELECT id, code, name, discount_type, discount_value, valid_from, valid_until, min_rental_days,
	                 min_rental_amount_cents, max_uses, current_uses, is_active
	          FROM coupons WHERE code = $1`
	err := r.db.QueryRowContext(ctx, query, code).Scan(&c.ID, &c.Code, &c.Name, &discountType, &c.DiscountValue, &validFrom, &validUntil,
		&c.MinRentalDays, &c.MinRentalAmountCents, &maxUses, &c.CurrentUses, &c.IsActive)
	if err != nil {
		return nil, notFound("coupon", code, err)
	}
	c.DiscountType = domain.DiscountType(discountType)
	if validFrom.Valid {
		c.ValidFrom = &validFrom.Time
	}
	if validUntil.Valid {
		c.ValidUntil = &validUntil.Time
	}
	if maxUses.Valid {
		m := int(maxUses.Int64)
		c.MaxUses = &m
	}
	return c, nil
}

type offerRepository struct {
	db *sql.DB
}

func NewOfferRepository(db *sql.DB) repository.OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) GetByID(ctx context.Context, id string) (*domain.LastMinuteOffer, error) {
	o := &domain.LastMinuteOffer{}
	var status string
	query := `SELECT id, vehicle_id, pickup_location_id, dropoff_location_id, to_char(pickup_date, 'YYYY-MM-DD'),
	                 to_char(dropoff_date, 'YYYY-MM-DD'), offer_days, original_price_per_day_cents,
	                 final_price_per_day_cents, status
	          FROM last_minute_offers WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.VehicleID, &o.PickupLocationID, &o.DropoffLocationID, &o.PickupDate,
		&o.DropoffDate, &o.OfferDays, &o.OriginalPricePerDayCents, &o.FinalPricePerDayCents, &status)
	if err != nil {
		return nil, notFound("offer", id, err)
	}
	o.Status = domain.OfferStatus(status)
	return o, nil
}
