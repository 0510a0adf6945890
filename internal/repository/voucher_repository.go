package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/quicktix/booking-engine/internal/model"
)

// VoucherRepo provides voucher lookups and the optimistic quantity
// decrement used when a voucher is redeemed against a held booking.
type VoucherRepo struct {
	db *sql.DB
}

// NewVoucherRepo returns a VoucherRepo bound to the given database.
func NewVoucherRepo(db *sql.DB) *VoucherRepo { return &VoucherRepo{db: db} }

// ByCode loads an event's voucher by discount code.
func (r *VoucherRepo) ByCode(ctx context.Context, eventID uint64, code string) (*model.Voucher, error) {
	const q = `SELECT id, event_id, name, discount_code, active, status, discount_type, discount_value,
	             quantity, is_unlimited, min_qty_per_order, max_qty_per_order, is_all_showings,
	             showing_configs, start_time, end_time, version, created_at, updated_at
	           FROM vouchers WHERE event_id = ? AND discount_code = ?`
	var v model.Voucher
	var configs sql.NullString
	err := r.db.QueryRowContext(ctx, q, eventID, code).Scan(
		&v.ID, &v.EventID, &v.Name, &v.DiscountCode, &v.Active, &v.Status,
		&v.DiscountType, &v.DiscountValue, &v.Quantity, &v.IsUnlimited,
		&v.MinQtyPerOrder, &v.MaxQtyPerOrder, &v.IsAllShowings,
		&configs, &v.StartTime, &v.EndTime, &v.Version, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	if configs.Valid && configs.String != "" {
		if err := json.Unmarshal([]byte(configs.String), &v.ShowingConfigs); err != nil {
			return nil, err
		}
	}
	return &v, nil
}

// Redeem decrements the remaining quantity under optimistic
// concurrency: the update only lands when the version still matches
// the one read and at least one redemption remains.  Reports false on
// a lost race or an exhausted voucher; the caller surfaces that as
// out-of-stock rather than retrying.
func (r *VoucherRepo) Redeem(ctx context.Context, voucherID string, version uint32) (bool, error) {
	const q = `UPDATE vouchers
	           SET quantity = quantity - 1, version = version + 1
	           WHERE id = ? AND version = ? AND quantity >= 1`
	res, err := r.db.ExecContext(ctx, q, voucherID, version)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
