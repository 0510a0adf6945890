package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Key builders shared by every component that touches the ephemeral
// store.  Keeping them in one place guarantees that the coordinator, the
// reconciliation worker and the seat cache always agree on naming.

// SeatLockKey holds the booking code of the hold that owns the seat.
func SeatLockKey(seatID string) string {
	return "seat:lock:" + seatID
}

// SeatInfoKey caches static seat data (row label, number) as JSON.
func SeatInfoKey(seatID string) string {
	return "seat:info:" + seatID
}

// TicketTypeCountKey holds the remaining available quantity counter.
func TicketTypeCountKey(ticketTypeID uint64) string {
	return "ticket-type:lock:" + strconv.FormatUint(ticketTypeID, 10)
}

// TicketTypeInfoKey caches the ticket type's price and name as JSON.
func TicketTypeInfoKey(ticketTypeID uint64) string {
	return "ticket-type:info:" + strconv.FormatUint(ticketTypeID, 10)
}

// SectionCountKey holds the remaining capacity counter of a section.
func SectionCountKey(sectionID string) string {
	return "section:lock:" + sectionID
}

// BookingKey holds the denormalized booking snapshot; it carries no TTL.
func BookingKey(showID uint64, bookingCode string) string {
	return fmt.Sprintf("booking:%d:%s", showID, bookingCode)
}

// BookingCleanupKey is an empty marker whose TTL bounds the hold.  Its
// expiry is the authoritative signal that the hold timed out.
func BookingCleanupKey(showID uint64, bookingCode string) string {
	return fmt.Sprintf("booking:cleanup:%d:%s", showID, bookingCode)
}

// BookingAnswerKey holds the attendee form answers submitted for a
// booking; stored without a TTL and removed with the snapshot.
func BookingAnswerKey(showID uint64, bookingCode string) string {
	return fmt.Sprintf("booking:answer:%d:%s", showID, bookingCode)
}

// ShowSeatsKey caches the availability payload served to seat pickers.
func ShowSeatsKey(showID uint64) string {
	return fmt.Sprintf("seats:show:%d:availability", showID)
}

// BookingCleanupPattern matches every cleanup key; used by the
// reconciliation fallback scan.
const BookingCleanupPattern = "booking:cleanup:*"

// ParseBookingCleanupKey extracts the show ID and booking code from a
// cleanup key.  It reports false for keys of any other shape.
func ParseBookingCleanupKey(key string) (showID uint64, bookingCode string, ok bool) {
	const prefix = "booking:cleanup:"
	if !strings.HasPrefix(key, prefix) {
		return 0, "", false
	}
	rest := strings.SplitN(key[len(prefix):], ":", 2)
	if len(rest) != 2 || rest[1] == "" {
		return 0, "", false
	}
	id, err := strconv.ParseUint(rest[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, rest[1], true
}
