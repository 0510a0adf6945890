package seatlock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktix/booking-engine/internal/seatlock"
	"github.com/quicktix/booking-engine/internal/store"
)

func TestTryLockFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	table := seatlock.NewTable(kv)

	ok, err := table.TryLock(ctx, "s1", "booking-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = table.TryLock(ctx, "s1", "booking-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Even the owning booking cannot re-lock its own seat.
	ok, err = table.TryLock(ctx, "s1", "booking-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	owner, err := table.Owner(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "booking-a", owner)
}

func TestConcurrentTryLockGrantsExactlyOne(t *testing.T) {
	ctx := context.Background()
	table := seatlock.NewTable(store.NewMemory())

	const workers = 32
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := table.TryLock(ctx, "s1", string(rune('a'+i)), time.Minute)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestUnlockOnlyByOwner(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	table := seatlock.NewTable(kv)

	ok, err := table.TryLock(ctx, "s1", "booking-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A non-owner unlock is a silent no-op.
	require.NoError(t, table.Unlock(ctx, "s1", "booking-b"))
	owner, err := table.Owner(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "booking-a", owner)

	require.NoError(t, table.Unlock(ctx, "s1", "booking-a"))
	owner, err = table.Owner(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, owner)

	// Unlocking an already free seat is fine too.
	require.NoError(t, table.Unlock(ctx, "s1", "booking-a"))
}

func TestLateUnlockNeverReleasesRelockedSeat(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	table := seatlock.NewTable(kv)

	ok, err := table.TryLock(ctx, "s1", "booking-a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// booking-a's hold lapses and booking-b takes the seat.
	kv.Advance(2 * time.Second)
	ok, err = table.TryLock(ctx, "s1", "booking-b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A late request from the expired hold must not free it.
	require.NoError(t, table.Unlock(ctx, "s1", "booking-a"))
	owner, err := table.Owner(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "booking-b", owner)
}
