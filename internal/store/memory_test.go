package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktix/booking-engine/internal/store"
)

func TestMemoryGetSetTTL(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	ttl, err := m.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, store.NoExpiry, ttl)

	require.NoError(t, m.Set(ctx, "tmp", "v", time.Minute))
	ttl, err = m.TTL(ctx, "tmp")
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	m.Advance(2 * time.Minute)
	_, err = m.Get(ctx, "tmp")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = m.TTL(ctx, "tmp")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemorySetNXFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	ok, err := m.SetNX(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := m.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	// After expiry the key is free again.
	m.Advance(2 * time.Minute)
	ok, err = m.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCounters(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	n, err := m.IncrBy(ctx, "c", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	n, err = m.DecrBy(ctx, "c", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	// Past zero is allowed; compensation is the caller's job.
	n, err = m.DecrBy(ctx, "c", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(-4), n)
}

func TestMemorySweepPublishesExpiredKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := store.NewMemory()

	events, err := m.SubscribeExpired(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "booking:cleanup:1:abc", "1", time.Second))
	require.NoError(t, m.Set(ctx, "keep", "1", time.Hour))

	m.Advance(2 * time.Second)
	dead := m.Sweep()
	require.Equal(t, []string{"booking:cleanup:1:abc"}, dead)

	select {
	case key := <-events:
		assert.Equal(t, "booking:cleanup:1:abc", key)
	case <-time.After(time.Second):
		t.Fatal("no expiry event delivered")
	}
}

func TestMemoryScanReturnsLapsedKeys(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.Set(ctx, "booking:cleanup:7:x", "1", time.Second))
	require.NoError(t, m.Set(ctx, "other:7:x", "1", time.Second))
	m.Advance(2 * time.Second)

	// Like Redis SCAN, a lapsed but unevicted key still shows up; TTL
	// then reports it missing.  The reconciliation fallback depends on
	// this sequence.
	keys, err := m.Scan(ctx, "booking:cleanup:*")
	require.NoError(t, err)
	require.Equal(t, []string{"booking:cleanup:7:x"}, keys)

	_, err = m.TTL(ctx, "booking:cleanup:7:x")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
