package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/repository"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentSelect = `SELECT id, booking_id, order_number, amount_cents, fee_cents, charged_cents, status, payment_type,
	payment_method, COALESCE(gateway_reference, ''), COALESCE(response_code, ''), COALESCE(authorization_code, ''),
	COALESCE(notes, ''), created_at, updated_at
	FROM payments`

func scanPayment(s scanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	var status, paymentType, method string
	err := s.Scan(&p.ID, &p.BookingID, &p.OrderNumber, &p.AmountCents, &p.FeeCents, &p.ChargedCents, &status, &paymentType,
		&method, &p.GatewayReference, &p.ResponseCode, &p.AuthorizationCode, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PaymentRecordStatus(status)
	p.PaymentType = domain.PaymentType(paymentType)
	p.Method = domain.PaymentMethod(method)
	return p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	query := `INSERT INTO payments (id, booking_id, order_number, amount_cents, fee_cents, charged_cents, status,
	              payment_type, payment_method, gateway_reference, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.BookingID, p.OrderNumber, p.AmountCents, p.FeeCents, p.ChargedCents, p.Status,
		p.PaymentType, p.Method, nullString(p.GatewayReference), nullString(p.Notes), now, now)
	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, paymentSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("payment", id, err)
	}
	return p, nil
}

func (r *paymentRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, paymentSelect+` WHERE order_number = $1`, orderNumber))
	if err != nil {
		return nil, notFound("payment", orderNumber, err)
	}
	return p, nil
}

func (r *paymentRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, paymentSelect+` WHERE booking_id = $1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// Settle locks the payment, refuses it if a callback already settled it,
// and otherwise stores the outcome. For an authorised outcome the booking is
// locked too and fn decides its new amounts.
func (r *paymentRepository) Settle(ctx context.Context, paymentID string, outcome domain.PaymentOutcome, fn repository.SettleFunc) (*domain.Booking, *domain.Payment, error) {
	logger.DatabaseCall("SettlePayment", "UPDATE payments", "payment_id", paymentID, "status", outcome.Status)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	p, err := scanPayment(tx.QueryRowContext(ctx, paymentSelect+` WHERE id = $1 FOR UPDATE`, paymentID))
	if err != nil {
		return nil, nil, notFound("payment", paymentID, err)
	}
	if p.Status.Settled() {
		return nil, p, fmt.Errorf("payment %s is %s: %w", p.OrderNumber, p.Status, domain.ErrAlreadySettled)
	}

	p.Status = outcome.Status
	if outcome.GatewayReference != "" {
		p.GatewayReference = outcome.GatewayReference
	}
	if outcome.ResponseCode != "" {
		p.ResponseCode = outcome.ResponseCode
	}
	if outcome.AuthorizationCode != "" {
		p.AuthorizationCode = outcome.AuthorizationCode
	}
	if outcome.Method != "" {
		p.Method = outcome.Method
	}
	if outcome.Notes != "" {
		p.Notes = outcome.Notes
	}
	p.UpdatedAt = time.Now()

	var b *domain.Booking
	if outcome.Status == domain.PaymentRecordAuthorized && fn != nil {
		b, err = scanBooking(tx.QueryRowContext(ctx, bookingSelect+` WHERE b.id = $1 FOR UPDATE`, p.BookingID))
		if err != nil {
			return nil, nil, notFound("booking", p.BookingID, err)
		}
		if err := fn(b, p); err != nil {
			return nil, nil, err
		}
		b.UpdatedAt = p.UpdatedAt
		_, err = tx.ExecContext(ctx,
			`UPDATE bookings SET amount_paid_cents = $1, payment_status = $2, status = $3, updated_at = $4 WHERE id = $5`,
			b.AmountPaidCents, b.PaymentStatus, b.Status, b.UpdatedAt, b.ID)
		if err != nil {
			logger.DatabaseResult("SettlePayment", 0, err, "step", "booking")
			return nil, nil, fmt.Errorf("failed to credit booking: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE payments SET status = $1, gateway_reference = $2, response_code = $3, authorization_code = $4,
		     payment_method = $5, notes = $6, updated_at = $7
		 WHERE id = $8`,
		p.Status, nullString(p.GatewayReference), nullString(p.ResponseCode), nullString(p.AuthorizationCode),
		p.Method, nullString(p.Notes), p.UpdatedAt, p.ID)
	if err != nil {
		logger.DatabaseResult("SettlePayment", 0, err, "step", "payment")
		return nil, nil, fmt.Errorf("failed to update payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	logger.DatabaseResult("SettlePayment", 1, nil, "payment_id", p.ID)
	return b, p, nil
}

func (r *paymentRepository) ExpirePending(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `UPDATE payments SET status = 'cancelled', notes = COALESCE(notes, 'expired'), updated_at = $1
	          WHERE status = 'pending' AND payment_method <> 'manual' AND created_at < $2`
	res, err := r.db.ExecContext(ctx, query, time.Now(), olderThan)
	if err != nil {
		logger.DatabaseResult("ExpirePendingPayments", 0, err)
		return 0, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("ExpirePendingPayments", n, err)
	return n, err
}
