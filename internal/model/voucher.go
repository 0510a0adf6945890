package model

import "time"

// Voucher discount types.
const (
	DiscountFixed      = "FIXED"
	DiscountPercentage = "PERCENTAGE"
)

// Voucher status values.
const (
	VoucherActive   = "ACTIVE"
	VoucherInactive = "INACTIVE"
)

// ShowingConfig scopes a voucher to one show and optionally to a subset
// of its ticket types.  Stored as JSON in vouchers.showing_configs.
type ShowingConfig struct {
	ShowID           uint64   `json:"id"`
	IsAllTicketTypes bool     `json:"isAllTicketTypes"`
	TicketTypeIDs    []uint64 `json:"ticketTypeIds"`
}

// Voucher is a discount code redeemable against a held booking.
// Quantity is the remaining number of redemptions and is decremented
// under optimistic concurrency; it must never go negative.  Version
// backs that optimistic check.
//
// Fields:
//  ID             – primary key identifier (opaque string).
//  EventID        – event the voucher belongs to.
//  Name           – administrative display name.
//  DiscountCode   – the code buyers enter.
//  Active         – administrative on/off switch.
//  Status         – lifecycle status, see constants above.
//  DiscountType   – FIXED (amount in cents) or PERCENTAGE (of subtotal).
//  DiscountValue  – cents for FIXED, percent points for PERCENTAGE.
//  Quantity       – remaining redemptions; ignored when IsUnlimited.
//  IsUnlimited    – redemptions are not counted when true.
//  MinQtyPerOrder – minimum eligible tickets per order (0 = no minimum).
//  MaxQtyPerOrder – maximum eligible tickets per order (0 = no maximum).
//  IsAllShowings  – voucher applies to every show of the event.
//  ShowingConfigs – per-show scoping when IsAllShowings is false.
//  StartTime      – beginning of the validity window.
//  EndTime        – end of the validity window.
//  Version        – optimistic concurrency column.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Voucher struct {
	ID             string          // vouchers.id
	EventID        uint64          // vouchers.event_id
	Name           string          // vouchers.name
	DiscountCode   string          // vouchers.discount_code
	Active         bool            // vouchers.active
	Status         string          // vouchers.status
	DiscountType   string          // vouchers.discount_type
	DiscountValue  int64           // vouchers.discount_value
	Quantity       int64           // vouchers.quantity
	IsUnlimited    bool            // vouchers.is_unlimited
	MinQtyPerOrder int64           // vouchers.min_qty_per_order
	MaxQtyPerOrder int64           // vouchers.max_qty_per_order
	IsAllShowings  bool            // vouchers.is_all_showings
	ShowingConfigs []ShowingConfig // vouchers.showing_configs (JSON)
	StartTime      time.Time       // vouchers.start_time
	EndTime        time.Time       // vouchers.end_time
	Version        uint32          // vouchers.version
	CreatedAt      time.Time       // vouchers.created_at
	UpdatedAt      time.Time       // vouchers.updated_at
}

// WithinWindow reports whether now falls inside the validity window.
func (v Voucher) WithinWindow(now time.Time) bool {
	return !now.Before(v.StartTime) && !now.After(v.EndTime)
}

// AppliesToShow reports whether the voucher covers the given show.
func (v Voucher) AppliesToShow(showID uint64) bool {
	if v.IsAllShowings {
		return true
	}
	for _, cfg := range v.ShowingConfigs {
		if cfg.ShowID == showID {
			return true
		}
	}
	return false
}

// AppliesToTicketType reports whether the voucher covers the given
// ticket type within the given show.  Callers must have checked
// AppliesToShow first; an all-showings voucher covers every type.
func (v Voucher) AppliesToTicketType(showID, ticketTypeID uint64) bool {
	if v.IsAllShowings {
		return true
	}
	for _, cfg := range v.ShowingConfigs {
		if cfg.ShowID != showID {
			continue
		}
		if cfg.IsAllTicketTypes {
			return true
		}
		for _, id := range cfg.TicketTypeIDs {
			if id == ticketTypeID {
				return true
			}
		}
	}
	return false
}
