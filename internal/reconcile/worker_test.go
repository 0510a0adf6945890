package reconcile_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktix/booking-engine/internal/booking"
	"github.com/quicktix/booking-engine/internal/inventory"
	"github.com/quicktix/booking-engine/internal/model"
	"github.com/quicktix/booking-engine/internal/notify"
	"github.com/quicktix/booking-engine/internal/reconcile"
	"github.com/quicktix/booking-engine/internal/repository"
	"github.com/quicktix/booking-engine/internal/seatlock"
	"github.com/quicktix/booking-engine/internal/store"
)

const holdTTL = 600 * time.Second

type fakeSource struct {
	types    map[uint64]model.TicketType
	sections map[string]int64
}

func (f *fakeSource) TicketTypeByID(_ context.Context, id uint64) (*model.TicketType, error) {
	tt, ok := f.types[id]
	if !ok {
		return nil, repository.ErrTicketTypeNotFound
	}
	return &tt, nil
}

func (f *fakeSource) SectionCapacity(_ context.Context, sectionID string) (int64, error) {
	return f.sections[sectionID], nil
}

// fakeOrders covers both the coordinator's and the worker's view of the
// durable order store.
type fakeOrders struct {
	mu         sync.Mutex
	nextID     uint64
	byCode     map[string]*model.Order
	failExpire int // fail this many ExpireByCode calls before recovering
}

func (f *fakeOrders) CreatePending(_ context.Context, o *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o.ID = f.nextID
	o.Status = model.OrderPending
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	f.byCode[o.BookingCode] = &cp
	return nil
}

func (f *fakeOrders) ByBookingCode(_ context.Context, code string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byCode[code]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) Transition(_ context.Context, orderID uint64, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byCode {
		if o.ID == orderID && o.Status == from {
			o.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrders) ApplyDiscount(context.Context, uint64, int64, int64, string) error {
	return nil
}

func (f *fakeOrders) Confirm(_ context.Context, o *model.Order, paidAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byCode[o.BookingCode]
	if !ok || stored.Status != model.OrderPending {
		return repository.ErrStaleVersion
	}
	stored.Status = model.OrderPaid
	stored.PaidAt = &paidAt
	return nil
}

func (f *fakeOrders) ExpireByCode(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExpire > 0 {
		f.failExpire--
		return false, errors.New("durable store unavailable")
	}
	o, ok := f.byCode[code]
	if !ok || o.Status != model.OrderPending {
		return false, nil
	}
	o.Status = model.OrderExpired
	return true, nil
}

func (f *fakeOrders) status(code string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.byCode[code]; ok {
		return o.Status
	}
	return ""
}

type fakeCache struct {
	mu    sync.Mutex
	info  map[string]model.SeatInfo
	added []model.SeatInfo
}

func (f *fakeCache) SeatInfo(_ context.Context, seatID string) (model.SeatInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.info[seatID]; ok {
		return s, nil
	}
	return model.SeatInfo{}, repository.ErrSeatNotFound
}

func (f *fakeCache) RemoveSeats(context.Context, uint64, []string) error { return nil }

func (f *fakeCache) AddSeats(_ context.Context, _ uint64, seats []model.SeatInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, seats...)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.SeatsReleased
}

func (f *fakeNotifier) SeatsReleased(_ context.Context, ev notify.SeatsReleased) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

type harness struct {
	kv       *store.Memory
	svc      *booking.Service
	worker   *reconcile.Worker
	orders   *fakeOrders
	cache    *fakeCache
	notifier *fakeNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	kv := store.NewMemory()
	src := &fakeSource{
		types: map[uint64]model.TicketType{
			1: {ID: 1, ShowID: 10, Name: "GA", PriceCents: 2500, Quantity: 10},
		},
		sections: map[string]int64{"balcony": 4},
	}
	ledger := inventory.NewLedger(kv, src, time.Hour)
	locks := seatlock.NewTable(kv)
	orders := &fakeOrders{byCode: make(map[string]*model.Order)}
	cache := &fakeCache{info: map[string]model.SeatInfo{
		"s1": {ID: "s1", RowLabel: "A", SeatNumber: 1, SectionID: "floor"},
	}}
	notifier := &fakeNotifier{}
	snapshots := booking.NewSnapshotStore(kv)
	svc := booking.NewService(ledger, locks, orders, nil, cache, snapshots, notifier, holdTTL)
	worker := reconcile.NewWorker(kv, ledger, snapshots, orders, cache, notifier)
	return &harness{kv: kv, svc: svc, worker: worker, orders: orders, cache: cache, notifier: notifier}
}

func counter(t *testing.T, kv *store.Memory, key string) int64 {
	t.Helper()
	v, err := kv.Get(context.Background(), key)
	require.NoError(t, err)
	n, err := strconv.ParseInt(v, 10, 64)
	require.NoError(t, err)
	return n
}

func TestExpiredHoldIsFullyRestored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	snap, err := h.svc.Reserve(ctx, booking.ReserveRequest{
		UserID: "u1", EventID: 5, ShowID: 10,
		Items: []booking.ItemRequest{
			{TicketTypeID: 1, SectionID: "balcony", Quantity: 2},
			{TicketTypeID: 1, SeatIDs: []string{"s1"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), counter(t, h.kv, store.TicketTypeCountKey(1)))
	require.Equal(t, int64(2), counter(t, h.kv, store.SectionCountKey("balcony")))

	h.kv.Advance(holdTTL + time.Second)
	key := store.BookingCleanupKey(10, snap.BookingCode)
	require.NoError(t, h.worker.HandleExpiredKey(ctx, key))

	assert.Equal(t, int64(10), counter(t, h.kv, store.TicketTypeCountKey(1)))
	assert.Equal(t, int64(4), counter(t, h.kv, store.SectionCountKey("balcony")))
	assert.Equal(t, model.OrderExpired, h.orders.status(snap.BookingCode))

	// The seat went back into the availability payload and was announced.
	require.Len(t, h.cache.added, 1)
	assert.Equal(t, "s1", h.cache.added[0].ID)
	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, uint64(10), h.notifier.events[0].ShowID)

	// Both ephemeral keys are gone.
	_, err = h.kv.Get(ctx, store.BookingKey(10, snap.BookingCode))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.kv.Get(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRestoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	snap, err := h.svc.Reserve(ctx, booking.ReserveRequest{
		UserID: "u1", EventID: 5, ShowID: 10,
		Items: []booking.ItemRequest{{TicketTypeID: 1, Quantity: 3}},
	})
	require.NoError(t, err)

	h.kv.Advance(holdTTL + time.Second)
	key := store.BookingCleanupKey(10, snap.BookingCode)
	require.NoError(t, h.worker.HandleExpiredKey(ctx, key))
	require.NoError(t, h.worker.HandleExpiredKey(ctx, key))

	// The second pass found no snapshot and released nothing again.
	assert.Equal(t, int64(10), counter(t, h.kv, store.TicketTypeCountKey(1)))
}

func TestScanRestoresOnlyLapsedHolds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	old, err := h.svc.Reserve(ctx, booking.ReserveRequest{
		UserID: "u1", EventID: 5, ShowID: 10,
		Items: []booking.ItemRequest{{TicketTypeID: 1, Quantity: 4}},
	})
	require.NoError(t, err)

	h.kv.Advance(holdTTL + time.Second)

	fresh, err := h.svc.Reserve(ctx, booking.ReserveRequest{
		UserID: "u2", EventID: 5, ShowID: 10,
		Items: []booking.ItemRequest{{TicketTypeID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, h.worker.ScanOnce(ctx))

	// Only the lapsed hold's units came back: 10 - 4 + 4 - 2.
	assert.Equal(t, int64(8), counter(t, h.kv, store.TicketTypeCountKey(1)))
	assert.Equal(t, model.OrderExpired, h.orders.status(old.BookingCode))
	assert.Equal(t, model.OrderPending, h.orders.status(fresh.BookingCode))

	// The fresh hold is still queryable.
	got, err := h.svc.Status(ctx, 10, fresh.BookingCode)
	require.NoError(t, err)
	assert.Positive(t, got.ExpireIn)
}

func TestExpiryAfterConfirmIsANoOp(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	snap, err := h.svc.Reserve(ctx, booking.ReserveRequest{
		UserID: "u1", EventID: 5, ShowID: 10,
		Items: []booking.ItemRequest{{TicketTypeID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	_, err = h.svc.Confirm(ctx, 10, snap.BookingCode)
	require.NoError(t, err)

	// A stale expiry event for the confirmed booking must not release
	// sold units or touch the order.
	key := store.BookingCleanupKey(10, snap.BookingCode)
	require.NoError(t, h.worker.HandleExpiredKey(ctx, key))
	assert.Equal(t, int64(8), counter(t, h.kv, store.TicketTypeCountKey(1)))
	assert.Equal(t, model.OrderPaid, h.orders.status(snap.BookingCode))
}

func TestRemnantCleanupKeyIsDropped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	// A cleanup key without its snapshot, left over from a crashed
	// restoration that got as far as deleting the snapshot.
	key := store.BookingCleanupKey(10, "orphan-code")
	require.NoError(t, h.kv.Set(ctx, key, "1", time.Second))
	h.kv.Advance(2 * time.Second)

	require.NoError(t, h.worker.ScanOnce(ctx))
	_, err := h.kv.Get(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, h.cache.added)
}

func TestForeignExpiredKeysAreIgnored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	// The expiry stream carries every expired key in the database; only
	// cleanup keys trigger restoration.
	require.NoError(t, h.worker.HandleExpiredKey(ctx, store.SeatLockKey("s1")))
	require.NoError(t, h.worker.HandleExpiredKey(ctx, "some:other:key"))
	assert.Empty(t, h.orders.byCode)
}

func TestRunEventsConsumesExpiryStream(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap, err := h.svc.Reserve(ctx, booking.ReserveRequest{
		UserID: "u1", EventID: 5, ShowID: 10,
		Items: []booking.ItemRequest{{TicketTypeID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	// Register the stream up front; the worker attaches to the same
	// buffered channel, so events swept before it starts are not lost.
	_, err = h.kv.SubscribeExpired(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.worker.RunEvents(ctx, h.kv)
	}()

	h.kv.Advance(holdTTL + time.Second)
	h.kv.Sweep()

	require.Eventually(t, func() bool {
		return h.orders.status(snap.BookingCode) == model.OrderExpired
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, int64(10), counter(t, h.kv, store.TicketTypeCountKey(1)))
}

func TestFailedRestorationRearmsCleanupKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	snap, err := h.svc.Reserve(ctx, booking.ReserveRequest{
		UserID: "u1", EventID: 5, ShowID: 10,
		Items: []booking.ItemRequest{{TicketTypeID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	h.orders.failExpire = 1
	h.kv.Advance(holdTTL + time.Second)
	key := store.BookingCleanupKey(10, snap.BookingCode)
	require.Error(t, h.worker.HandleExpiredKey(ctx, key))

	// The original key expired for good, so a short-lived replacement is
	// what gets this booking back into the expiry stream.
	ttl, err := h.kv.TTL(ctx, key)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
	assert.Equal(t, model.OrderPending, h.orders.status(snap.BookingCode))

	// The replacement lapses and the retry completes the restoration.
	h.kv.Advance(ttl + time.Second)
	require.NoError(t, h.worker.HandleExpiredKey(ctx, key))
	assert.Equal(t, model.OrderExpired, h.orders.status(snap.BookingCode))
	_, err = h.kv.Get(ctx, store.BookingKey(10, snap.BookingCode))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.kv.Get(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExpiryAfterFailedPaymentRestoresUnits(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	snap, err := h.svc.Reserve(ctx, booking.ReserveRequest{
		UserID: "u1", EventID: 5, ShowID: 10,
		Items: []booking.ItemRequest{{TicketTypeID: 1, Quantity: 3}},
	})
	require.NoError(t, err)
	_, err = h.svc.FailPayment(ctx, 10, snap.BookingCode)
	require.NoError(t, err)

	// The failed payment left the hold ticking; when it lapses the units
	// come back while the order stays PAYMENT_FAILED.
	h.kv.Advance(holdTTL + time.Second)
	key := store.BookingCleanupKey(10, snap.BookingCode)
	require.NoError(t, h.worker.HandleExpiredKey(ctx, key))
	assert.Equal(t, int64(10), counter(t, h.kv, store.TicketTypeCountKey(1)))
	assert.Equal(t, model.OrderPaymentFailed, h.orders.status(snap.BookingCode))
	_, err = h.kv.Get(ctx, store.BookingKey(10, snap.BookingCode))
	assert.ErrorIs(t, err, store.ErrNotFound)
}
