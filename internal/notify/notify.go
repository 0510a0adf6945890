// Package notify defines the seats-released event contract and its
// RabbitMQ transport.  The booking core publishes through the Notifier
// interface only, so tests and alternative transports can stand in
// without touching the coordinator or the reconciliation worker.
package notify

import "context"

// ReleasedSeat identifies one seat returned to availability.
type ReleasedSeat struct {
	ID        string `json:"id"`
	SectionID string `json:"sectionId,omitempty"`
}

// SeatsReleased is emitted whenever held seats return to the pool:
// explicit cancellation or hold expiry.  Consumers use it to patch seat
// availability caches without polling the durable store.
type SeatsReleased struct {
	ShowID uint64         `json:"show_id"`
	Seats  []ReleasedSeat `json:"seats"`
}

// Notifier delivers seats-released events to interested consumers.
// Delivery is best-effort and at-least-once; consumers must tolerate
// duplicates.
type Notifier interface {
	SeatsReleased(ctx context.Context, ev SeatsReleased) error
}

// Nop discards every event.  Used when no broker is configured.
type Nop struct{}

func (Nop) SeatsReleased(context.Context, SeatsReleased) error { return nil }
