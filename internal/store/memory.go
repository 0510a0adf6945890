package store

import (
	"context"
	"path"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value string
	// expiresAt is the zero time for keys without expiration.
	expiresAt time.Time
}

// Memory is an in-process KV used by tests and by the coordinator's own
// unit tests.  All operations take one mutex, which makes every method
// atomic with respect to concurrent callers, matching the single-key
// atomicity the Redis implementation provides.
//
// Time is injectable: Advance moves a virtual clock forward so TTL
// behavior can be exercised without sleeping.
type Memory struct {
	mu      sync.Mutex
	offset  time.Duration
	entries map[string]memEntry
	expired chan string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry)}
}

func (m *Memory) now() time.Time {
	return time.Now().Add(m.offset)
}

// Advance moves the store's clock forward.  Keys whose TTL elapses are
// not collected here; they disappear lazily on access or via Sweep.
func (m *Memory) Advance(d time.Duration) {
	m.mu.Lock()
	m.offset += d
	m.mu.Unlock()
}

// live returns the entry at key if it exists and has not expired.
// Expired entries are removed as a side effect.  Caller holds mu.
func (m *Memory) live(key string) (memEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return memEntry{}, false
	}
	return e, true
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return true, nil
}

func (m *Memory) IncrBy(_ context.Context, key string, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(key, n)
}

func (m *Memory) DecrBy(_ context.Context, key string, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(key, -n)
}

// addLocked implements INCRBY/DECRBY semantics: a missing key counts as
// zero and the write preserves any existing expiration.  Caller holds mu.
func (m *Memory) addLocked(key string, delta int64) (int64, error) {
	e, ok := m.live(key)
	var cur int64
	if ok {
		v, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		cur = v
	}
	cur += delta
	e.value = strconv.FormatInt(cur, 10)
	m.entries[key] = e
	return cur, nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return 0, ErrNotFound
	}
	if e.expiresAt.IsZero() {
		return NoExpiry, nil
	}
	return e.expiresAt.Sub(m.now()), nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return ErrNotFound
	}
	e.expiresAt = m.now().Add(ttl)
	m.entries[key] = e
	return nil
}

// Scan matches Redis SCAN semantics: an expired key that has not been
// evicted yet may still be returned, and a subsequent TTL or Get on it
// reports it missing.  The reconciliation fallback relies on this to
// notice lapsed cleanup keys.
func (m *Memory) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.entries {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// SubscribeExpired returns a channel fed by Sweep.  Tests drive expiry
// deterministically: Advance the clock, then call Sweep.
func (m *Memory) SubscribeExpired(ctx context.Context) (<-chan string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expired == nil {
		m.expired = make(chan string, 64)
	}
	ch := m.expired
	go func() {
		<-ctx.Done()
		m.mu.Lock()
		if m.expired == ch {
			close(m.expired)
			m.expired = nil
		}
		m.mu.Unlock()
	}()
	return ch, nil
}

// Sweep removes every expired entry and publishes the key names to the
// subscriber, if any.  It reports the removed keys.
func (m *Memory) Sweep() []string {
	m.mu.Lock()
	var dead []string
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
			dead = append(dead, k)
			delete(m.entries, k)
		}
	}
	ch := m.expired
	m.mu.Unlock()
	if ch != nil {
		for _, k := range dead {
			select {
			case ch <- k:
			default:
			}
		}
	}
	return dead
}

var _ KV = (*Memory)(nil)
var _ ExpiryNotifier = (*Memory)(nil)
