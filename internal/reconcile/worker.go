// Package reconcile implements the expiry reconciliation worker.  When
// a booking's cleanup key lapses without a confirm or cancel, the
// worker restores the ticket-type and section counters, flips the
// durable order to EXPIRED and announces the released seats.  It runs
// in exactly one of two modes per deployment: driven by the store's
// key-expiry event stream, or by a periodic scan when the deployment
// cannot enable keyspace notifications.  Running both would double
// release, so the choice is made once at startup.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/quicktix/booking-engine/internal/booking"
	"github.com/quicktix/booking-engine/internal/inventory"
	"github.com/quicktix/booking-engine/internal/model"
	"github.com/quicktix/booking-engine/internal/notify"
	"github.com/quicktix/booking-engine/internal/store"
)

// Snapshots is the slice of the booking state store the worker needs.
type Snapshots interface {
	Get(ctx context.Context, showID uint64, bookingCode string) (*model.BookingSnapshot, error)
	Delete(ctx context.Context, showID uint64, bookingCode string) error
}

// Orders marks lapsed orders EXPIRED in the durable store.
type Orders interface {
	// ExpireByCode flips a PENDING order to EXPIRED; false means the
	// order had already left PENDING.
	ExpireByCode(ctx context.Context, bookingCode string) (bool, error)
}

// Cache re-admits released seats into the availability payload.
type Cache interface {
	AddSeats(ctx context.Context, showID uint64, seats []model.SeatInfo) error
}

// Worker restores expired holds.
type Worker struct {
	kv        store.KV
	ledger    *inventory.Ledger
	snapshots Snapshots
	orders    Orders
	cache     Cache
	notifier  notify.Notifier
}

// NewWorker wires the reconciliation worker.
func NewWorker(kv store.KV, ledger *inventory.Ledger, snapshots Snapshots,
	orders Orders, cache Cache, notifier notify.Notifier) *Worker {
	return &Worker{
		kv:        kv,
		ledger:    ledger,
		snapshots: snapshots,
		orders:    orders,
		cache:     cache,
		notifier:  notifier,
	}
}

// RunEvents consumes the store's expired-key stream until ctx is
// cancelled.  Restoration failures are logged; the booking snapshot
// stays in place so a later scan or manual pass can retry.
func (w *Worker) RunEvents(ctx context.Context, sub store.ExpiryNotifier) error {
	events, err := sub.SubscribeExpired(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: subscribe: %w", err)
	}
	log.Printf("reconcile: consuming key-expiry events")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case key, ok := <-events:
			if !ok {
				return fmt.Errorf("reconcile: expiry stream closed")
			}
			if err := w.HandleExpiredKey(ctx, key); err != nil {
				log.Printf("reconcile: handle %s: %v", key, err)
			}
		}
	}
}

// RunScan polls for lapsed cleanup keys every interval until ctx is
// cancelled.  It is the fallback for deployments where the event stream
// cannot be enabled.
func (w *Worker) RunScan(ctx context.Context, interval time.Duration) error {
	log.Printf("reconcile: scanning every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ScanOnce(ctx); err != nil {
				log.Printf("reconcile: scan: %v", err)
			}
		}
	}
}

// ScanOnce enumerates cleanup keys and restores every one whose TTL has
// run out.  A key that disappears between the scan and the TTL read
// counts as expired too.
func (w *Worker) ScanOnce(ctx context.Context) error {
	keys, err := w.kv.Scan(ctx, store.BookingCleanupPattern)
	if err != nil {
		return err
	}
	for _, key := range keys {
		ttl, err := w.kv.TTL(ctx, key)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Evicted already; fall through to restoration.
		case err != nil:
			log.Printf("reconcile: ttl %s: %v", key, err)
			continue
		case ttl == store.NoExpiry || ttl > 0:
			continue
		}
		if err := w.HandleExpiredKey(ctx, key); err != nil {
			log.Printf("reconcile: handle %s: %v", key, err)
		}
	}
	return nil
}

// retryTTL re-arms a cleanup key whose restoration failed.  Once the
// original key has expired the event stream will never mention it
// again, so a short-lived replacement is what schedules the retry; the
// scan mode picks it up the same way.
const retryTTL = 30 * time.Second

// HandleExpiredKey runs restoration for one expired cleanup key.  Keys
// of any other shape are ignored, since the expiry stream carries every
// expired key in the database.
//
// Restoration is idempotent: the snapshot is deleted last, and a second
// invocation for the same booking finds no snapshot and does nothing.
func (w *Worker) HandleExpiredKey(ctx context.Context, key string) error {
	showID, bookingCode, ok := store.ParseBookingCleanupKey(key)
	if !ok {
		return nil
	}
	err := w.restore(ctx, showID, bookingCode)
	if err != nil {
		if armErr := w.kv.Set(ctx, key, "1", retryTTL); armErr != nil {
			log.Printf("reconcile: re-arm %s: %v", key, armErr)
		}
	}
	return err
}

func (w *Worker) restore(ctx context.Context, showID uint64, bookingCode string) error {
	snap, err := w.snapshots.Get(ctx, showID, bookingCode)
	if err != nil {
		// A missing snapshot means the booking was confirmed, cancelled
		// or already reconciled.  Drop any cleanup-key remnant and stop.
		if errors.Is(err, booking.ErrBookingNotFound) {
			return w.kv.Del(ctx, store.BookingCleanupKey(showID, bookingCode))
		}
		return err
	}

	// Counters first: an error here returns before anything is deleted,
	// so the next pass retries the whole restoration.
	for _, it := range snap.Items {
		if err := w.ledger.Release(ctx, it.TicketTypeID, it.Quantity); err != nil {
			return err
		}
		if it.SectionID != "" && it.SeatID == "" {
			if err := w.ledger.ReleaseSection(ctx, it.SectionID, it.Quantity); err != nil {
				return err
			}
		}
	}
	// Seat locks carry the same TTL as the cleanup key, so they have
	// lapsed on their own by now.

	expired, err := w.orders.ExpireByCode(ctx, bookingCode)
	if err != nil {
		return err
	}
	if !expired {
		log.Printf("reconcile: booking %s already left PENDING", bookingCode)
	}

	var released []model.SeatInfo
	var announced []notify.ReleasedSeat
	for _, it := range snap.Items {
		if it.SeatID == "" {
			continue
		}
		released = append(released, model.SeatInfo{
			ID:         it.SeatID,
			RowLabel:   it.RowLabel,
			SeatNumber: it.SeatNumber,
			SectionID:  it.SectionID,
		})
		announced = append(announced, notify.ReleasedSeat{ID: it.SeatID, SectionID: it.SectionID})
	}
	if len(released) > 0 {
		if err := w.cache.AddSeats(ctx, showID, released); err != nil {
			log.Printf("reconcile: booking %s: restore availability cache: %v", bookingCode, err)
		}
		if err := w.notifier.SeatsReleased(ctx, notify.SeatsReleased{ShowID: showID, Seats: announced}); err != nil {
			log.Printf("reconcile: booking %s: publish seats released: %v", bookingCode, err)
		}
	}

	if err := w.snapshots.Delete(ctx, showID, bookingCode); err != nil {
		return err
	}
	log.Printf("reconcile: booking %s expired, %d item(s) restored", bookingCode, len(snap.Items))
	return nil
}
