package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/repository"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

const bookingSelect = `SELECT b.id, b.booking_number, b.vehicle_id, b.customer_id, b.pickup_location_id, b.dropoff_location_id,
	to_char(b.pickup_date, 'YYYY-MM-DD'), to_char(b.dropoff_date, 'YYYY-MM-DD'),
	to_char(b.pickup_time, 'HH24:MI'), to_char(b.dropoff_time, 'HH24:MI'),
	b.days, b.pricing_days, b.base_price_cents, b.extras_price_cents, b.location_fee_cents, b.discount_cents,
	b.coupon_id, COALESCE(b.coupon_code, ''), b.last_minute_offer_id, b.total_price_cents, b.deposit_amount_cents,
	b.amount_paid_cents, b.status, b.payment_status, b.customer_name, b.customer_email,
	COALESCE(b.customer_phone, ''), COALESCE(b.customer_dni, ''), COALESCE(b.customer_address, ''),
	COALESCE(b.customer_city, ''), COALESCE(b.customer_postal_code, ''),
	COALESCE(b.notes, ''), COALESCE(b.admin_notes, ''), b.created_at, b.updated_at
	FROM bookings b`

func scanBooking(s scanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var status, paymentStatus string
	err := s.Scan(&b.ID, &b.BookingNumber, &b.VehicleID, &b.CustomerID, &b.PickupLocationID, &b.DropoffLocationID,
		&b.PickupDate, &b.DropoffDate, &b.PickupTime, &b.DropoffTime,
		&b.Days, &b.PricingDays, &b.BasePriceCents, &b.ExtrasPriceCents, &b.LocationFeeCents, &b.DiscountCents,
		&b.CouponID, &b.CouponCode, &b.LastMinuteOfferID, &b.TotalPriceCents, &b.DepositAmountCents,
		&b.AmountPaidCents, &status, &paymentStatus, &b.CustomerName, &b.CustomerEmail,
		&b.CustomerPhone, &b.CustomerDNI, &b.CustomerAddress, &b.CustomerCity, &b.CustomerPostalCode,
		&b.Notes, &b.AdminNotes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = domain.PaymentStatus(paymentStatus)
	return b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create upserts the customer by email, then inserts the booking and its
// extras. Nothing is written unless every step succeeds.
func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	logger.DatabaseCall("CreateBooking", "INSERT INTO bookings", "booking_number", b.BookingNumber)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var customerID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO customers (id, email, name, phone, dni, address, city, postal_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name,
		     phone = COALESCE(EXCLUDED.phone, customers.phone),
		     dni = COALESCE(EXCLUDED.dni, customers.dni),
		     address = COALESCE(EXCLUDED.address, customers.address),
		     city = COALESCE(EXCLUDED.city, customers.city),
		     postal_code = COALESCE(EXCLUDED.postal_code, customers.postal_code)
		 RETURNING id`,
		uuid.NewString(), strings.ToLower(b.CustomerEmail), b.CustomerName, nullString(b.CustomerPhone), nullString(b.CustomerDNI),
		nullString(b.CustomerAddress), nullString(b.CustomerCity), nullString(b.CustomerPostalCode)).Scan(&customerID)
	if err != nil {
		logger.DatabaseResult("CreateBooking", 0, err, "step", "customer")
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	b.CustomerID = &customerID

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, booking_number, vehicle_id, customer_id, pickup_location_id, dropoff_location_id,
		     pickup_date, dropoff_date, pickup_time, dropoff_time, days, pricing_days, base_price_cents,
		     extras_price_cents, location_fee_cents, discount_cents, coupon_id, coupon_code, last_minute_offer_id,
		     total_price_cents, deposit_amount_cents, amount_paid_cents, status, payment_status, customer_name,
		     customer_email, customer_phone, customer_dni, customer_address, customer_city, customer_postal_code,
		     notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		     $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34)`,
		b.ID, b.BookingNumber, b.VehicleID, customerID, b.PickupLocationID, b.DropoffLocationID,
		b.PickupDate, b.DropoffDate, b.PickupTime, b.DropoffTime, b.Days, b.PricingDays, b.BasePriceCents,
		b.ExtrasPriceCents, b.LocationFeeCents, b.DiscountCents, b.CouponID, nullString(b.CouponCode), b.LastMinuteOfferID,
		b.TotalPriceCents, b.DepositAmountCents, b.AmountPaidCents, b.Status, b.PaymentStatus, b.CustomerName,
		b.CustomerEmail, nullString(b.CustomerPhone), nullString(b.CustomerDNI), nullString(b.CustomerAddress),
		nullString(b.CustomerCity), nullString(b.CustomerPostalCode), nullString(b.Notes), now, now)
	if err != nil {
		logger.DatabaseResult("CreateBooking", 0, err, "step", "booking")
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	for i := range b.Extras {
		if err := insertExtra(ctx, tx, b.ID, &b.Extras[i]); err != nil {
			logger.DatabaseResult("CreateBooking", 0, err, "step", "extras")
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE customers SET total_bookings = total_bookings + 1 WHERE id = $1`, customerID); err != nil {
		return fmt.Errorf("failed to update customer stats: %w", err)
	}

	if b.CouponID != nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE coupons SET current_uses = current_uses + 1
			 WHERE id = $1 AND (max_uses IS NULL OR current_uses < max_uses)`, *b.CouponID)
		if err != nil {
			return fmt.Errorf("failed to redeem coupon: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.NewValidationError(domain.ErrInvalidCoupon, "coupon_code", "coupon usage limit reached")
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logger.DatabaseResult("CreateBooking", 1, nil, "booking_id", b.ID)
	return nil
}

func (r *bookingRepository) loadExtras(ctx context.Context, b *domain.Booking) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT be.id, be.booking_id, be.extra_id, COALESCE(e.name, ''), be.quantity, be.unit_price_cents, be.total_price_cents
		 FROM booking_extras be LEFT JOIN extras e ON e.id = be.extra_id
		 WHERE be.booking_id = $1 ORDER BY e.name`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	b.Extras = nil
	for rows.Next() {
		var be domain.BookingExtra
		if err := rows.Scan(&be.ID, &be.BookingID, &be.ExtraID, &be.ExtraName, &be.Quantity, &be.UnitPriceCents, &be.TotalPriceCents); err != nil {
			return err
		}
		b.Extras = append(b.Extras, be)
	}
	return rows.Err()
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if err != nil {
		return nil, notFound("booking", id, err)
	}
	if err := r.loadExtras(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.booking_number = $1`, number))
	if err != nil {
		return nil, notFound("booking", number, err)
	}
	if err := r.loadExtras(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) List(ctx context.Context, f repository.BookingFilter, page, pageSize int32) ([]domain.Booking, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := bookingSelect + ` WHERE 1 = 1`
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		query += fmt.Sprintf(clause, len(args))
	}
	if f.Status != "" {
		add(" AND b.status = $%d", f.Status)
	}
	if f.PaymentStatus != "" {
		add(" AND b.payment_status = $%d", f.PaymentStatus)
	}
	if f.PickupFrom != "" {
		add(" AND b.pickup_date >= $%d", f.PickupFrom)
	}
	if f.PickupTo != "" {
		add(" AND b.pickup_date <= $%d", f.PickupTo)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (b.booking_number ILIKE $%d OR b.customer_name ILIKE $%d OR b.customer_email ILIKE $%d)", n, n, n)
	}

	var count int32
	countSql := "SELECT count(*) FROM (" + query + ") as sub"
	if err := r.db.QueryRowContext(ctx, countSql, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY b.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, count, rows.Err()
}

// Update writes every editable column and reconciles the extras to match
// b.Extras in one transaction.
func (r *bookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	logger.DatabaseCall("UpdateBooking", "UPDATE bookings", "booking_id", b.ID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b.UpdatedAt = time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET vehicle_id = $1, pickup_location_id = $2, dropoff_location_id = $3, pickup_date = $4,
		     dropoff_date = $5, pickup_time = $6, dropoff_time = $7, days = $8, pricing_days = $9,
		     base_price_cents = $10, extras_price_cents = $11, location_fee_cents = $12, discount_cents = $13,
		     coupon_id = $14, coupon_code = $15, total_price_cents = $16, deposit_amount_cents = $17,
		     amount_paid_cents = $18, status = $19, payment_status = $20, customer_name = $21, customer_email = $22,
		     customer_phone = $23, customer_dni = $24, customer_address = $25, customer_city = $26,
		     customer_postal_code = $27, notes = $28, admin_notes = $29, updated_at = $30
		 WHERE id = $31`,
		b.VehicleID, b.PickupLocationID, b.DropoffLocationID, b.PickupDate,
		b.DropoffDate, b.PickupTime, b.DropoffTime, b.Days, b.PricingDays,
		b.BasePriceCents, b.ExtrasPriceCents, b.LocationFeeCents, b.DiscountCents,
		b.CouponID, nullString(b.CouponCode), b.TotalPriceCents, b.DepositAmountCents,
		b.AmountPaidCents, b.Status, b.PaymentStatus, b.CustomerName, b.CustomerEmail,
		nullString(b.CustomerPhone), nullString(b.CustomerDNI), nullString(b.CustomerAddress), nullString(b.CustomerCity),
		nullString(b.CustomerPostalCode), nullString(b.Notes), nullString(b.AdminNotes), b.UpdatedAt,
		b.ID)
	if err != nil {
		logger.DatabaseResult("UpdateBooking", 0, err)
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("booking %s: %w", b.ID, domain.ErrNotFound)
	}

	if err := reconcileExtras(ctx, tx, b); err != nil {
		logger.DatabaseResult("UpdateBooking", 0, err, "step", "extras")
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logger.DatabaseResult("UpdateBooking", 1, nil, "booking_id", b.ID)
	return nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) error {
	query := `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: booking %s is no longer %s", domain.ErrInvalidStatusTransition, id, from)
	}
	return nil
}

func (r *bookingRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	query := `UPDATE bookings SET payment_status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

// ListAwaitingSecondPayment returns confirmed, partially paid bookings whose
// pickup is between today and the given date.
func (r *bookingRepository) ListAwaitingSecondPayment(ctx context.Context, pickupOnOrBefore string) ([]domain.Booking, error) {
	query := bookingSelect + ` WHERE b.status = 'confirmed' AND b.payment_status = 'partial'
	          AND b.pickup_date >= CURRENT_DATE AND b.pickup_date <= $1 ORDER BY b.pickup_date`
	rows, err := r.db.QueryContext(ctx, query, pickupOnOrBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) ListPaymentStatusDrift(ctx context.Context) ([]domain.Booking, error) {
	query := bookingSelect + ` WHERE b.payment_status <> 'refunded' AND b.payment_status <>
	          CASE WHEN b.amount_paid_cents <= 0 THEN 'pending'
	               WHEN b.amount_paid_cents < b.total_price_cents THEN 'partial'
	               ELSE 'paid' END`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) AdvanceStatuses(ctx context.Context, today string) (int64, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'completed', updated_at = $1
		 WHERE status = 'in_progress' AND dropoff_date < $2`, now, today)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to complete bookings: %w", err)
	}
	completed, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'in_progress', updated_at = $1
		 WHERE status = 'confirmed' AND pickup_date <= $2 AND dropoff_date >= $2`, now, today)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start bookings: %w", err)
	}
	started, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	logger.DatabaseResult("AdvanceStatuses", started+completed, nil, "started", started, "completed", completed)
	return started, completed, nil
}
