package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quicktix/booking-engine/internal/store"
)

func TestParseBookingCleanupKey(t *testing.T) {
	showID, code, ok := store.ParseBookingCleanupKey("booking:cleanup:42:abc-def")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), showID)
	assert.Equal(t, "abc-def", code)

	// Round trip through the builder.
	showID, code, ok = store.ParseBookingCleanupKey(store.BookingCleanupKey(7, "c0de"))
	assert.True(t, ok)
	assert.Equal(t, uint64(7), showID)
	assert.Equal(t, "c0de", code)

	for _, bad := range []string{
		"booking:42:abc",
		"booking:cleanup:",
		"booking:cleanup:42",
		"booking:cleanup:notanumber:abc",
		"seat:lock:s1",
	} {
		_, _, ok := store.ParseBookingCleanupKey(bad)
		assert.False(t, ok, bad)
	}
}

func TestBookingKeyFamilyStaysDisjoint(t *testing.T) {
	// The data, cleanup and answer keys of one booking must never
	// collide, and the cleanup parser must not mistake its siblings.
	assert.Equal(t, "booking:9:c0de", store.BookingKey(9, "c0de"))
	assert.Equal(t, "booking:answer:9:c0de", store.BookingAnswerKey(9, "c0de"))
	_, _, ok := store.ParseBookingCleanupKey(store.BookingKey(9, "c0de"))
	assert.False(t, ok)
	_, _, ok = store.ParseBookingCleanupKey(store.BookingAnswerKey(9, "c0de"))
	assert.False(t, ok)
}
