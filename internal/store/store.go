// Package store abstracts the ephemeral key-value store used for
// reservation coordination.  All cross-process exclusion in the booking
// engine goes through the single-key atomic primitives defined here;
// callers must never read-modify-write a counter on their side.  The
// package ships a Redis-backed implementation for production and an
// in-memory implementation used by tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get and TTL when the key does not exist
// (or has already expired).  Callers should compare with errors.Is.
var ErrNotFound = errors.New("store: key not found")

// NoExpiry is the TTL reported for a key that exists but carries no
// expiration.  It mirrors the Redis convention of -1 seconds.
const NoExpiry = time.Duration(-1)

// KV is the narrow contract the coordination engine requires from the
// ephemeral store: plain get/set, set-if-absent with TTL, atomic
// counters, deletion, TTL inspection and pattern scans.  Every method
// operates on exactly one logical key (Del accepts a batch purely as a
// convenience); the store is never asked for cross-key transactions.
type KV interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes value at key.  A ttl of zero stores the key without
	// expiration; a positive ttl replaces any existing expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes value at key with the given TTL only when the key is
	// absent.  It reports whether the write happened.  First writer wins.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// IncrBy atomically adds n to the integer at key (missing keys count
	// as zero) and returns the new value.
	IncrBy(ctx context.Context, key string, n int64) (int64, error)
	// DecrBy atomically subtracts n from the integer at key and returns
	// the new value.  The result may be negative; compensating for an
	// oversubscribed decrement is the caller's job.
	DecrBy(ctx context.Context, key string, n int64) (int64, error)
	// Del removes the given keys.  Missing keys are ignored.
	Del(ctx context.Context, keys ...string) error
	// TTL reports the remaining lifetime of key.  It returns NoExpiry for
	// keys without expiration and ErrNotFound for missing keys.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Expire sets or replaces the expiration of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Scan returns every key matching the glob pattern.  Used only by the
	// reconciliation fallback; not part of any hot path.
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// ExpiryNotifier is implemented by stores that can push key-expiry
// events.  SubscribeExpired delivers the names of expired keys until ctx
// is cancelled; delivery is at-least-once and may drop events under
// load, which is why consumers also run an idempotent fallback scan.
type ExpiryNotifier interface {
	SubscribeExpired(ctx context.Context) (<-chan string, error)
}
