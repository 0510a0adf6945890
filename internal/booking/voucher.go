package booking

import (
	"context"
	"errors"
	"time"

	"github.com/quicktix/booking-engine/internal/model"
	"github.com/quicktix/booking-engine/internal/repository"
)

// ApplyVoucher applies a discount code to a held booking.  Validation
// runs against the snapshot; on success the voucher's remaining
// quantity is decremented under its version guard, the durable order
// row gets the new totals and the snapshot is rewritten.  A lost
// optimistic race on the last redemption surfaces as out-of-stock, not
// a retry.
func (s *Service) ApplyVoucher(ctx context.Context, showID uint64, bookingCode, code string) (*model.BookingSnapshot, error) {
	snap, err := s.snapshots.Status(ctx, showID, bookingCode)
	if err != nil {
		return nil, err
	}
	if snap.ExpireIn <= 0 {
		// Hold has lapsed; reconciliation owns it now.
		return nil, ErrBookingNotFound
	}

	v, err := s.vouchers.ByCode(ctx, snap.EventID, code)
	if errors.Is(err, repository.ErrVoucherNotFound) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	if !v.Active || v.Status != model.VoucherActive {
		return nil, ErrVoucherNotFound
	}
	if !v.WithinWindow(time.Now()) {
		return nil, ErrVoucherExpired
	}
	if !v.AppliesToShow(snap.ShowID) {
		return nil, ErrVoucherInvalidShowing
	}

	var eligibleQty, eligibleSubtotal int64
	for _, it := range snap.Items {
		if !v.AppliesToTicketType(snap.ShowID, it.TicketTypeID) {
			continue
		}
		eligibleQty += it.Quantity
		eligibleSubtotal += it.PriceCents * it.Quantity
	}
	if eligibleQty == 0 {
		return nil, ErrVoucherInvalidTicketTypes
	}
	if v.MinQtyPerOrder > 0 && eligibleQty < v.MinQtyPerOrder {
		return nil, ErrVoucherMinQuantity
	}
	if v.MaxQtyPerOrder > 0 && eligibleQty > v.MaxQtyPerOrder {
		return nil, ErrVoucherMaxQuantity
	}
	if !v.IsUnlimited && v.Quantity < 1 {
		return nil, ErrVoucherOutOfStock
	}

	discount := computeDiscount(v, eligibleSubtotal)

	if !v.IsUnlimited {
		ok, err := s.vouchers.Redeem(ctx, v.ID, v.Version)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrVoucherOutOfStock
		}
	}

	total := snap.SubtotalCents - discount
	if err := s.orders.ApplyDiscount(ctx, snap.OrderID, discount, total, v.DiscountCode); err != nil {
		return nil, err
	}

	snap.DiscountCents = discount
	snap.DiscountCode = v.DiscountCode
	snap.TotalCents = total
	for i := range snap.Items {
		if v.AppliesToTicketType(snap.ShowID, snap.Items[i].TicketTypeID) {
			snap.Items[i].DiscountCode = v.DiscountCode
		}
	}
	if err := s.snapshots.Rewrite(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// computeDiscount derives the discount amount in cents for the eligible
// subtotal: a percentage of it, or a fixed amount.  Either form is
// capped at the eligible subtotal so a misconfigured voucher (say, a
// 150% percentage) can never push the total negative.
func computeDiscount(v *model.Voucher, eligibleSubtotal int64) int64 {
	var discount int64
	switch v.DiscountType {
	case model.DiscountPercentage:
		discount = eligibleSubtotal * v.DiscountValue / 100
	default:
		discount = v.DiscountValue
	}
	if discount > eligibleSubtotal {
		return eligibleSubtotal
	}
	return discount
}
