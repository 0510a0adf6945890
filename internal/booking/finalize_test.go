package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktix/booking-engine/internal/booking"
	"github.com/quicktix/booking-engine/internal/model"
	"github.com/quicktix/booking-engine/internal/store"
)

func reserve(t *testing.T, h *harness, items ...booking.ItemRequest) *model.BookingSnapshot {
	t.Helper()
	snap, err := h.svc.Reserve(context.Background(), booking.ReserveRequest{
		UserID: "u1", EventID: 5, ShowID: 10, Items: items,
	})
	require.NoError(t, err)
	return snap
}

func TestConfirmKeepsUnitsSold(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultSource())
	snap := reserve(t, h,
		booking.ItemRequest{TicketTypeID: 1, Quantity: 2},
		booking.ItemRequest{TicketTypeID: 2, SeatIDs: []string{"s1"}},
	)

	order, err := h.svc.Confirm(ctx, 10, snap.BookingCode)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaid, order.Status)
	require.NotNil(t, order.PaidAt)

	// The hold is disarmed: snapshot and cleanup key are gone.
	_, err = h.svc.Status(ctx, 10, snap.BookingCode)
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	_, err = h.kv.TTL(ctx, store.BookingCleanupKey(10, snap.BookingCode))
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The seat lock is dropped but the counters stay decremented.
	owner, err := h.locks.Owner(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, owner)
	assert.Equal(t, int64(8), counter(t, h.kv, store.TicketTypeCountKey(1)))
	assert.Equal(t, int64(3), counter(t, h.kv, store.TicketTypeCountKey(2)))
}

func TestConfirmTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultSource())
	snap := reserve(t, h, booking.ItemRequest{TicketTypeID: 1, Quantity: 1})

	_, err := h.svc.Confirm(ctx, 10, snap.BookingCode)
	require.NoError(t, err)
	_, err = h.svc.Confirm(ctx, 10, snap.BookingCode)
	assert.ErrorIs(t, err, booking.ErrInvalidStateTransition)
}

func TestConfirmUnknownCode(t *testing.T) {
	h := newHarness(t, defaultSource())
	_, err := h.svc.Confirm(context.Background(), 10, "nope")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestCancelReleasesEverything(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultSource())
	snap := reserve(t, h,
		booking.ItemRequest{TicketTypeID: 1, SectionID: "balcony", Quantity: 2},
		booking.ItemRequest{TicketTypeID: 2, SeatIDs: []string{"s1", "s3"}},
	)
	assert.Equal(t, int64(8), counter(t, h.kv, store.TicketTypeCountKey(1)))
	assert.Equal(t, int64(0), counter(t, h.kv, store.SectionCountKey("balcony")))

	order, err := h.svc.Cancel(ctx, 10, snap.BookingCode)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)

	// Counters are bit-for-bit back where they started.
	assert.Equal(t, int64(10), counter(t, h.kv, store.TicketTypeCountKey(1)))
	assert.Equal(t, int64(4), counter(t, h.kv, store.TicketTypeCountKey(2)))
	assert.Equal(t, int64(2), counter(t, h.kv, store.SectionCountKey("balcony")))

	for _, id := range []string{"s1", "s3"} {
		owner, err := h.locks.Owner(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, owner)
	}

	// The availability cache got the seats back and the release was
	// announced once with both seats.
	assert.Len(t, h.cache.added, 2)
	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, uint64(10), h.notifier.events[0].ShowID)
	assert.Len(t, h.notifier.events[0].Seats, 2)

	_, err = h.svc.Status(ctx, 10, snap.BookingCode)
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestCancelAfterConfirmConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultSource())
	snap := reserve(t, h, booking.ItemRequest{TicketTypeID: 1, Quantity: 1})

	_, err := h.svc.Confirm(ctx, 10, snap.BookingCode)
	require.NoError(t, err)
	_, err = h.svc.Cancel(ctx, 10, snap.BookingCode)
	assert.ErrorIs(t, err, booking.ErrInvalidStateTransition)

	// The confirmed sale was not undone.
	assert.Equal(t, int64(9), counter(t, h.kv, store.TicketTypeCountKey(1)))
}

func TestCancelQuantityOnlySkipsAnnouncement(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultSource())
	snap := reserve(t, h, booking.ItemRequest{TicketTypeID: 1, Quantity: 3})

	_, err := h.svc.Cancel(ctx, 10, snap.BookingCode)
	require.NoError(t, err)
	assert.Empty(t, h.cache.added)
	assert.Empty(t, h.notifier.events)
	assert.Equal(t, int64(10), counter(t, h.kv, store.TicketTypeCountKey(1)))
}

func TestFinalizeRejectsWrongShow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultSource())
	snap := reserve(t, h, booking.ItemRequest{TicketTypeID: 2, SeatIDs: []string{"s1"}})

	// A valid code presented under another show must not finalize: its
	// ephemeral keys live under show 10, and deleting keys under show 99
	// would leave the real cleanup key armed.
	_, err := h.svc.Confirm(ctx, 99, snap.BookingCode)
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	_, err = h.svc.Cancel(ctx, 99, snap.BookingCode)
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	_, err = h.svc.FailPayment(ctx, 99, snap.BookingCode)
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)

	// Nothing moved: order still pending, hold still armed, seat held.
	order, err := h.orders.ByBookingCode(ctx, snap.BookingCode)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
	ttl, err := h.kv.TTL(ctx, store.BookingCleanupKey(10, snap.BookingCode))
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	owner, err := h.locks.Owner(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, snap.BookingCode, owner)
	assert.Equal(t, int64(3), counter(t, h.kv, store.TicketTypeCountKey(2)))
}

func TestFailPaymentLeavesHoldToLapse(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultSource())
	snap := reserve(t, h, booking.ItemRequest{TicketTypeID: 1, Quantity: 2})

	order, err := h.svc.FailPayment(ctx, 10, snap.BookingCode)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaymentFailed, order.Status)

	// The hold is untouched: counters stay decremented and the cleanup
	// key keeps ticking until expiry reconciliation returns the units.
	assert.Equal(t, int64(8), counter(t, h.kv, store.TicketTypeCountKey(1)))
	ttl, err := h.kv.TTL(ctx, store.BookingCleanupKey(10, snap.BookingCode))
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestFailPaymentIsTerminal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultSource())
	snap := reserve(t, h, booking.ItemRequest{TicketTypeID: 1, Quantity: 1})

	_, err := h.svc.FailPayment(ctx, 10, snap.BookingCode)
	require.NoError(t, err)
	_, err = h.svc.FailPayment(ctx, 10, snap.BookingCode)
	assert.ErrorIs(t, err, booking.ErrInvalidStateTransition)
	_, err = h.svc.Confirm(ctx, 10, snap.BookingCode)
	assert.ErrorIs(t, err, booking.ErrInvalidStateTransition)
}
