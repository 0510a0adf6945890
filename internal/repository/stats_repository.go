package repository

import (
	"context"
	"database/sql"

	"github.com/quicktix/booking-engine/internal/model"
)

// StatsRepo maintains the aggregate and daily sales counters for an
// event.  Both tables carry a version column; updates are guarded on
// the version read so concurrent writers within parallel transactions
// fail loudly instead of losing increments.
type StatsRepo struct {
	db *sql.DB
}

// NewStatsRepo returns a StatsRepo bound to the given database.
func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// ApplyOrderTx folds one order into the aggregate and daily statistics
// rows inside the caller's transaction.  Rows are created on first use.
func (r *StatsRepo) ApplyOrderTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	if err := r.applyAggregateTx(ctx, tx, o); err != nil {
		return err
	}
	return r.applyDailyTx(ctx, tx, o)
}

func (r *StatsRepo) applyAggregateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	ticketsSold := o.TotalQuantity()

	var version uint32
	err := tx.QueryRowContext(ctx,
		`SELECT version FROM event_statistics WHERE event_id = ?`, o.EventID).Scan(&version)
	if err == sql.ErrNoRows {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO event_statistics
			   (event_id, tickets_sold, sales_total_gross, sales_total_net, total_discount, orders_created, version)
			 VALUES (?, ?, ?, ?, ?, 1, 1)`,
			o.EventID, ticketsSold, o.SubtotalCents, o.TotalCents, o.DiscountCents)
		return err
	}
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE event_statistics SET
		   tickets_sold = tickets_sold + ?,
		   sales_total_gross = sales_total_gross + ?,
		   sales_total_net = sales_total_net + ?,
		   total_discount = total_discount + ?,
		   orders_created = orders_created + 1,
		   version = version + 1
		 WHERE event_id = ? AND version = ?`,
		ticketsSold, o.SubtotalCents, o.TotalCents, o.DiscountCents, o.EventID, version)
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

func (r *StatsRepo) applyDailyTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	ticketsSold := o.TotalQuantity()
	date := o.CreatedAt.UTC().Format("2006-01-02")
	if o.CreatedAt.IsZero() {
		date = o.ReservedUntil.UTC().Format("2006-01-02")
	}

	var version uint32
	err := tx.QueryRowContext(ctx,
		`SELECT version FROM event_daily_statistics WHERE event_id = ? AND date = ?`,
		o.EventID, date).Scan(&version)
	if err == sql.ErrNoRows {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO event_daily_statistics
			   (event_id, date, tickets_sold, sales_total_gross, sales_total_net, total_discount, orders_created, version)
			 VALUES (?, ?, ?, ?, ?, ?, 1, 1)`,
			o.EventID, date, ticketsSold, o.SubtotalCents, o.TotalCents, o.DiscountCents)
		return err
	}
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE event_daily_statistics SET
		   tickets_sold = tickets_sold + ?,
		   sales_total_gross = sales_total_gross + ?,
		   sales_total_net = sales_total_net + ?,
		   total_discount = total_discount + ?,
		   orders_created = orders_created + 1,
		   version = version + 1
		 WHERE event_id = ? AND date = ? AND version = ?`,
		ticketsSold, o.SubtotalCents, o.TotalCents, o.DiscountCents, o.EventID, date, version)
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
