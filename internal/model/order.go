package model

import "time"

// Order status values.  The machine is one-way: PENDING is the only
// non-terminal state and moves to exactly one of PAID, CANCELLED,
// EXPIRED or PAYMENT_FAILED.  A failed payment does not reopen the
// order; the buyer starts over with a fresh booking.
const (
	OrderPending       = "PENDING"
	OrderPaid          = "PAID"
	OrderCancelled     = "CANCELLED"
	OrderExpired       = "EXPIRED"
	OrderPaymentFailed = "PAYMENT_FAILED"
)

// Order is the durable record of a booking.  One row is created per
// successful acquisition, while the hold itself lives in the ephemeral
// store.  BookingCode is an opaque UUID that correlates the row with
// its ephemeral keys and doubles as the seat-lock owner token, so it
// must be unguessable.
//
// Fields:
//  ID            – primary key identifier.
//  BookingCode   – opaque correlation id, also the seat-lock owner token.
//  UserID        – buyer identifier (opaque string).
//  EventID       – event being booked.
//  ShowID        – show being booked.
//  Status        – order state, see constants above.
//  SubtotalCents – sum of item prices before discount.
//  DiscountCents – voucher discount applied, zero when none.
//  DiscountCode  – voucher code applied, empty when none.
//  TotalCents    – SubtotalCents minus DiscountCents.
//  ReservedUntil – end of the hold window recorded at creation.
//  PaidAt        – payment completion time (nil until PAID).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Order struct {
	ID            uint64     // orders.id
	BookingCode   string     // orders.booking_code
	UserID        string     // orders.user_id
	EventID       uint64     // orders.event_id
	ShowID        uint64     // orders.show_id
	Status        string     // orders.status
	SubtotalCents int64      // orders.subtotal_cents
	DiscountCents int64      // orders.discount_cents
	DiscountCode  string     // orders.discount_code
	TotalCents    int64      // orders.total_cents
	ReservedUntil time.Time  // orders.reserved_until
	PaidAt        *time.Time // orders.paid_at (nullable)
	CreatedAt     time.Time  // orders.created_at
	UpdatedAt     time.Time  // orders.updated_at
	Items         []OrderItem
}

// TotalQuantity sums the quantities across all items.
func (o Order) TotalQuantity() int64 {
	var n int64
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// OrderItem is one line of an order.  PriceCents is the unit price
// captured at hold time; it is never re-read at confirmation so price
// changes cannot retroactively alter an in-flight booking.  SeatID and
// SectionID are empty for plain quantity purchases.
//
// Fields:
//  ID           – primary key identifier.
//  OrderID      – owning order.
//  TicketTypeID – ticket type purchased.
//  Name         – ticket type name snapshot.
//  SeatID       – specific seat, empty for quantity purchases.
//  RowLabel     – seat row snapshot, empty without a seat.
//  SeatNumber   – seat number snapshot, zero without a seat.
//  SectionID    – section scope, empty when unsectioned.
//  Quantity     – number of tickets on this line.
//  PriceCents   – unit price snapshot taken at hold time.
//  CreatedAt    – creation timestamp.
type OrderItem struct {
	ID           uint64    // order_items.id
	OrderID      uint64    // order_items.order_id
	TicketTypeID uint64    // order_items.ticket_type_id
	Name         string    // order_items.name
	SeatID       string    // order_items.seat_id (empty = none)
	RowLabel     string    // order_items.row_label
	SeatNumber   uint32    // order_items.seat_number
	SectionID    string    // order_items.section_id (empty = none)
	Quantity     int64     // order_items.quantity
	PriceCents   int64     // order_items.price_cents
	CreatedAt    time.Time // order_items.created_at
}
