package model

import "time"

// Seat status values.  A seat flips to BOOKED only inside the payment
// confirmation transaction; holds are tracked in the ephemeral seat
// lock table and never touch this column.
const (
	SeatAvailable = "AVAILABLE"
	SeatBooked    = "BOOKED"
)

// Seat is a physical seat within a show's seating plan.  Seats are
// identified by opaque string IDs so upstream seating-chart tooling can
// use UUIDs.  SectionID groups seats for section-capacity accounting
// and is empty for unsectioned layouts.
//
// Fields:
//  ID         – primary key identifier (opaque string).
//  ShowID     – show this seat belongs to.
//  SectionID  – section grouping, empty when the layout has none.
//  RowLabel   – letter or string designating the row.
//  SeatNumber – number of the seat within the row.
//  Status     – AVAILABLE or BOOKED.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Seat struct {
	ID         string    // seats.id
	ShowID     uint64    // seats.show_id
	SectionID  string    // seats.section_id
	RowLabel   string    // seats.row_label
	SeatNumber uint32    // seats.seat_number
	Status     string    // seats.status
	CreatedAt  time.Time // seats.created_at
	UpdatedAt  time.Time // seats.updated_at
}

// SeatInfo is the static subset of Seat cached in the ephemeral store
// under seat:info:<id> so order items can be labelled without a durable
// read on the hot path.
type SeatInfo struct {
	ID         string `json:"id"`
	RowLabel   string `json:"rowLabel"`
	SeatNumber uint32 `json:"seatNumber"`
	SectionID  string `json:"sectionId,omitempty"`
}
