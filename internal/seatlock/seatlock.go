// Package seatlock provides the per-seat exclusive lock table backed by
// the ephemeral store.  A lock is one key whose value is the owning
// booking code and whose TTL bounds the hold; first writer wins and the
// natural expiry of the key is the only release path when a holder
// abandons the flow.
package seatlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quicktix/booking-engine/internal/store"
)

// Table acquires and releases seat locks.
type Table struct {
	kv store.KV
}

// NewTable binds the lock table to an ephemeral store.
func NewTable(kv store.KV) *Table {
	return &Table{kv: kv}
}

// TryLock claims the seat for bookingCode for the duration of ttl.  It
// is a single set-if-absent, so of any number of concurrent callers at
// most one succeeds.  A seat already locked by anyone, including the
// same booking, reports false.
func (t *Table) TryLock(ctx context.Context, seatID, bookingCode string, ttl time.Duration) (bool, error) {
	ok, err := t.kv.SetNX(ctx, store.SeatLockKey(seatID), bookingCode, ttl)
	if err != nil {
		return false, fmt.Errorf("seatlock: lock %s: %w", seatID, err)
	}
	return ok, nil
}

// Unlock releases the seat only when ownerBookingCode still owns it.
// Releasing a seat locked by someone else is a silent no-op: a late
// request from an expired hold must never free a seat that has since
// been relocked by another booking.
func (t *Table) Unlock(ctx context.Context, seatID, ownerBookingCode string) error {
	key := store.SeatLockKey(seatID)
	current, err := t.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seatlock: read %s: %w", seatID, err)
	}
	if current != ownerBookingCode {
		return nil
	}
	if err := t.kv.Del(ctx, key); err != nil {
		return fmt.Errorf("seatlock: unlock %s: %w", seatID, err)
	}
	return nil
}

// Owner reports the booking code currently holding the seat, or empty
// when the seat is free.
func (t *Table) Owner(ctx context.Context, seatID string) (string, error) {
	v, err := t.kv.Get(ctx, store.SeatLockKey(seatID))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("seatlock: read %s: %w", seatID, err)
	}
	return v, nil
}
