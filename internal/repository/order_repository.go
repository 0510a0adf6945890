package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quicktix/booking-engine/internal/model"
)

// OrderRepo is the durable half of the booking transaction writer.  It
// owns the only multi-row transactions in the system: creating a
// pending order (order + items + statistics, all or nothing) and
// confirming payment (status flip + seat booking + sold counters).
type OrderRepo struct {
	db    *sql.DB
	stats *StatsRepo
	seats *SeatRepo
	types *TicketTypeRepo
}

// NewOrderRepo wires the order repository with the collaborators whose
// rows participate in its transactions.
func NewOrderRepo(db *sql.DB, stats *StatsRepo, seats *SeatRepo, types *TicketTypeRepo) *OrderRepo {
	return &OrderRepo{db: db, stats: stats, seats: seats, types: types}
}

// CreatePending persists a freshly acquired hold: the order header, its
// items and the event statistics counters, in a single transaction.  On
// success the generated identifiers are filled into the passed order
// and its items, seeding the booking snapshot.  On any error the whole
// transaction rolls back; the caller decides what to do with the
// ephemeral holds it already acquired.
func (r *OrderRepo) CreatePending(ctx context.Context, o *model.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO orders
	  (booking_code, user_id, event_id, show_id, status, subtotal_cents, discount_cents, discount_code, total_cents, reserved_until)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, o.BookingCode, o.UserID, o.EventID, o.ShowID,
		model.OrderPending, o.SubtotalCents, o.DiscountCents, o.DiscountCode, o.TotalCents,
		o.ReservedUntil.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	o.Status = model.OrderPending

	if len(o.Items) > 0 {
		query := `INSERT INTO order_items
		  (order_id, ticket_type_id, name, seat_id, row_label, seat_number, section_id, quantity, price_cents) VALUES `
		args := make([]interface{}, 0, len(o.Items)*9)
		for i := range o.Items {
			it := &o.Items[i]
			it.OrderID = o.ID
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args, it.OrderID, it.TicketTypeID, it.Name,
				nullString(it.SeatID), it.RowLabel, it.SeatNumber,
				nullString(it.SectionID), it.Quantity, it.PriceCents)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		// MySQL returns the id of the first inserted row; the rest are
		// consecutive for a multi-row insert.
		first, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for i := range o.Items {
			o.Items[i].ID = uint64(first) + uint64(i)
		}
	}

	if err := r.stats.ApplyOrderTx(ctx, tx, o); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

const orderColumns = `id, booking_code, user_id, event_id, show_id, status,
  subtotal_cents, discount_cents, discount_code, total_cents, reserved_until, paid_at, created_at, updated_at`

// ByBookingCode loads an order and its items by booking code.
func (r *OrderRepo) ByBookingCode(ctx context.Context, bookingCode string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE booking_code = ?`
	var o model.Order
	var paidAt sql.NullTime
	var discountCode sql.NullString
	err := r.db.QueryRowContext(ctx, q, bookingCode).Scan(
		&o.ID, &o.BookingCode, &o.UserID, &o.EventID, &o.ShowID, &o.Status,
		&o.SubtotalCents, &o.DiscountCents, &discountCode, &o.TotalCents,
		&o.ReservedUntil, &paidAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.DiscountCode = discountCode.String
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}

	const qi = `SELECT id, order_id, ticket_type_id, name, seat_id, row_label, seat_number, section_id, quantity, price_cents, created_at
	            FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, qi, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		var seatID, sectionID sql.NullString
		if err := rows.Scan(&it.ID, &it.OrderID, &it.TicketTypeID, &it.Name,
			&seatID, &it.RowLabel, &it.SeatNumber, &sectionID,
			&it.Quantity, &it.PriceCents, &it.CreatedAt); err != nil {
			return nil, err
		}
		it.SeatID = seatID.String
		it.SectionID = sectionID.String
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

// Transition moves an order between statuses with a guard on the
// current status, making the state machine one-way even under races.
// It reports false when the order was not in the expected state.
func (r *OrderRepo) Transition(ctx context.Context, orderID uint64, from, to string) (bool, error) {
	const q = `UPDATE orders SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, to, orderID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ExpireByCode marks a PENDING order EXPIRED by booking code.  Used by
// the reconciliation worker, which knows the code from the cleanup key
// but not the row id.  Reports false when the order had already left
// PENDING (confirmed or cancelled in the meantime), which makes the
// restoration path idempotent at the durable layer.
func (r *OrderRepo) ExpireByCode(ctx context.Context, bookingCode string) (bool, error) {
	const q = `UPDATE orders SET status = ? WHERE booking_code = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.OrderExpired, bookingCode, model.OrderPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ApplyDiscount records a voucher application on the order row.
func (r *OrderRepo) ApplyDiscount(ctx context.Context, orderID uint64, discountCents, totalCents int64, code string) error {
	const q = `UPDATE orders SET discount_cents = ?, total_cents = ?, discount_code = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, discountCents, totalCents, code, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Confirm finalizes payment in one transaction: the order flips
// PENDING -> PAID, every seated item's seat is marked BOOKED and each
// ticket type's sold quantity grows by the item quantity.  Reports
// ErrStaleVersion when the order was no longer PENDING.
func (r *OrderRepo) Confirm(ctx context.Context, o *model.Order, paidAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE orders SET status = ?, paid_at = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.OrderPaid, paidAt.UTC().Format("2006-01-02 15:04:05"), o.ID, model.OrderPending)
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

	var seatIDs []string
	for _, it := range o.Items {
		if it.SeatID != "" {
			seatIDs = append(seatIDs, it.SeatID)
		}
		if err := r.types.IncrementSoldTx(ctx, tx, it.TicketTypeID, it.Quantity); err != nil {
			return err
		}
	}
	if err := r.seats.MarkBookedTx(ctx, tx, seatIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	o.Status = model.OrderPaid
	o.PaidAt = &paidAt
	return nil
}

// nullString maps the empty string to SQL NULL for optional columns.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
