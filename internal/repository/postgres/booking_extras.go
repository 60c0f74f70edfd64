package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"motorhome-booking-backend/internal/domain"
)

// extrasDiff is the set of row changes turning the stored extras of a
// booking into the desired ones, keyed by catalog extra.
type extrasDiff struct {
	Insert []domain.BookingExtra
	Update []domain.BookingExtra
	Delete []string
}

func (d extrasDiff) Empty() bool {
	return len(d.Insert) == 0 && len(d.Update) == 0 && len(d.Delete) == 0
}

func diffExtras(existing, desired []domain.BookingExtra) extrasDiff {
	var d extrasDiff
	current := make(map[string]domain.BookingExtra, len(existing))
	for _, e := range existing {
		current[e.ExtraID] = e
	}
	wanted := make(map[string]bool, len(desired))
	for _, want := range desired {
		if want.Quantity <= 0 {
			continue
		}
		wanted[want.ExtraID] = true
		have, ok := current[want.ExtraID]
		if !ok {
			d.Insert = append(d.Insert, want)
			continue
		}
		if have.Quantity != want.Quantity || have.UnitPriceCents != want.UnitPriceCents || have.TotalPriceCents != want.TotalPriceCents {
			want.ID = have.ID
			d.Update = append(d.Update, want)
		}
	}
	for _, e := range existing {
		if !wanted[e.ExtraID] {
			d.Delete = append(d.Delete, e.ID)
		}
	}
	return d
}

func insertExtra(ctx context.Context, tx *sql.Tx, bookingID string, be *domain.BookingExtra) error {
	if be.ID == "" {
		be.ID = uuid.NewString()
	}
	be.BookingID = bookingID
	_, err := tx.ExecContext(ctx,
		`INSERT INTO booking_extras (id, booking_id, extra_id, quantity, unit_price_cents, total_price_cents)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		be.ID, bookingID, be.ExtraID, be.Quantity, be.UnitPriceCents, be.TotalPriceCents)
	if err != nil {
		return fmt.Errorf("failed to insert booking extra %s: %w", be.ExtraID, err)
	}
	return nil
}

// reconcileExtras locks the stored extras of b and applies the minimal set
// of deletes, updates and inserts.
func reconcileExtras(ctx context.Context, tx *sql.Tx, b *domain.Booking) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, extra_id, quantity, unit_price_cents, total_price_cents
		 FROM booking_extras WHERE booking_id = $1 FOR UPDATE`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to load booking extras: %w", err)
	}
	var existing []domain.BookingExtra
	for rows.Next() {
		var be domain.BookingExtra
		if err := rows.Scan(&be.ID, &be.ExtraID, &be.Quantity, &be.UnitPriceCents, &be.TotalPriceCents); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, be)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	diff := diffExtras(existing, b.Extras)
	for _, id := range diff.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM booking_extras WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete booking extra: %w", err)
		}
	}
	for _, be := range diff.Update {
		if _, err := tx.ExecContext(ctx,
			`UPDATE booking_extras SET quantity = $1, unit_price_cents = $2, total_price_cents = $3 WHERE id = $4`,
			be.Quantity, be.UnitPriceCents, be.TotalPriceCents, be.ID); err != nil {
			return fmt.Errorf("failed to update booking extra: %w", err)
		}
	}
	for i := range diff.Insert {
		if err := insertExtra(ctx, tx, b.ID, &diff.Insert[i]); err != nil {
			return err
		}
	}
	return nil
}
