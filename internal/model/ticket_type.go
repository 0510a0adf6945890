package model

import "time"

// TicketType describes a sellable class of tickets for a show, such as
// "Early Bird" or "VIP".  The quantity pair is the durable record of
// stock: Quantity never changes after catalog setup, SoldQuantity is
// incremented only by confirmed sales.  The available quantity used
// during holds lives in the ephemeral inventory counter, not here, and
// is reconciled back on confirmation.  Invariant: 0 <= SoldQuantity <=
// Quantity.
//
// Fields:
//  ID           – primary key identifier.
//  EventID      – event this ticket type belongs to.
//  ShowID       – show this ticket type belongs to.
//  Name         – display name of the ticket type.
//  PriceCents   – unit price in cents.
//  Quantity     – total quantity ever put on sale.
//  SoldQuantity – quantity sold through confirmed orders.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type TicketType struct {
	ID           uint64    // ticket_types.id
	EventID      uint64    // ticket_types.event_id
	ShowID       uint64    // ticket_types.show_id
	Name         string    // ticket_types.name
	PriceCents   int64     // ticket_types.price_cents
	Quantity     int64     // ticket_types.quantity
	SoldQuantity int64     // ticket_types.sold_quantity
	CreatedAt    time.Time // ticket_types.created_at
	UpdatedAt    time.Time // ticket_types.updated_at
}

// Available returns the durable view of unsold stock.  It seeds the
// ephemeral counter on first touch and is otherwise advisory.
func (t TicketType) Available() int64 {
	return t.Quantity - t.SoldQuantity
}
