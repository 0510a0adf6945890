package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quicktix/booking-engine/internal/model"
)

// TicketTypeRepo provides read access to the ticket type catalog and
// the sold-quantity updates performed on payment confirmation.  The
// available quantity consulted during holds lives in the ephemeral
// inventory ledger, never here.
type TicketTypeRepo struct {
	db *sql.DB
}

// NewTicketTypeRepo returns a TicketTypeRepo bound to the given database.
func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

const ticketTypeColumns = `id, event_id, show_id, name, price_cents, quantity, sold_quantity, created_at, updated_at`

func scanTicketType(row interface{ Scan(...any) error }) (*model.TicketType, error) {
	var t model.TicketType
	err := row.Scan(&t.ID, &t.EventID, &t.ShowID, &t.Name, &t.PriceCents,
		&t.Quantity, &t.SoldQuantity, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TicketTypeByID loads a single ticket type.  Used by the inventory
// ledger to seed counters on first touch.
func (r *TicketTypeRepo) TicketTypeByID(ctx context.Context, id uint64) (*model.TicketType, error) {
	const q = `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = ?`
	t, err := scanTicketType(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketTypeNotFound
	}
	return t, err
}

// TicketTypesByShow lists every ticket type of a show; used by the seat
// availability payload.
func (r *TicketTypeRepo) TicketTypesByShow(ctx context.Context, showID uint64) ([]model.TicketType, error) {
	const q = `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE show_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TicketType
	for rows.Next() {
		t, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// IncrementSoldTx adds qty to sold_quantity within an existing
// transaction, refusing to push it past the total quantity.  The guard
// keeps the 0 <= sold <= quantity invariant even if the ephemeral
// ledger and the durable store have drifted.
func (r *TicketTypeRepo) IncrementSoldTx(ctx context.Context, tx *sql.Tx, id uint64, qty int64) error {
	const q = `UPDATE ticket_types
	           SET sold_quantity = sold_quantity + ?
	           WHERE id = ? AND sold_quantity + ? <= quantity`
	res, err := tx.ExecContext(ctx, q, qty, id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleVersion
	}
	return nil
}
