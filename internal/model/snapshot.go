package model

// SnapshotSchemaVersion is bumped whenever the BookingSnapshot shape
// changes so stale payloads written by older processes can be detected
// instead of silently drifting.
const SnapshotSchemaVersion = 1

// Booking steps recorded on the snapshot.  They describe how far the
// buyer has progressed through the purchase flow.
const (
	StepQuestionForm = "question_form"
	StepPayment      = "payment"
)

// BookingSnapshot is the denormalized, ephemeral copy of an in-flight
// order kept under booking:<showID>:<code>.  It exists purely for fast
// read-after-hold queries and is always derivable by replaying the
// Order and its OrderItems from the durable store.  Its lifecycle is
// bounded by the cleanup key's TTL, not its own.
type BookingSnapshot struct {
	SchemaVersion int            `json:"schemaVersion"`
	EventID       uint64         `json:"eventId"`
	ShowID        uint64         `json:"showingId"`
	OrderID       uint64         `json:"orderId"`
	BookingCode   string         `json:"bookingCode"`
	Step          string         `json:"step"`
	SubtotalCents int64          `json:"subtotalAmount"`
	DiscountCents int64          `json:"discountAmount"`
	DiscountCode  string         `json:"discountCode"`
	TotalCents    int64          `json:"totalAmount"`
	ExpireIn      int64          `json:"expireIn"`
	Items         []SnapshotItem `json:"items"`
}

// SnapshotItem mirrors one OrderItem inside the snapshot.
type SnapshotItem struct {
	TicketTypeID  uint64 `json:"id"`
	Name          string `json:"name"`
	PriceCents    int64  `json:"price"`
	Quantity      int64  `json:"quantity"`
	SeatID        string `json:"seatId,omitempty"`
	RowLabel      string `json:"rowLabel,omitempty"`
	SeatNumber    uint32 `json:"seatNumber,omitempty"`
	SectionID     string `json:"sectionId,omitempty"`
	DiscountCents int64  `json:"discount"`
	DiscountCode  string `json:"discountCode,omitempty"`
}

// TotalQuantity sums the item quantities; used for voucher min/max
// checks against the held booking.
func (s BookingSnapshot) TotalQuantity() int64 {
	var n int64
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}
