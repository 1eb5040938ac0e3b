package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryStore_GetUnseenSession(t *testing.T) {
	store := NewMemoryStore()
	count, err := store.Get(context.Background(), "unseen")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		count, ok, err := store.TryIncrement(ctx, "s1", 5)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, count)
	}

	used, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, used)

	other, err := store.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestMemoryStore_TryIncrementStopsAtLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tests := []struct {
		wantCount int
		wantOK    bool
	}{
		{1, true},
		{2, true},
		{2, false},
		{2, false},
	}

	for i, tt := range tests {
		count, ok, err := store.TryIncrement(ctx, "s1", 2)
		require.NoError(t, err)
		assert.Equal(t, tt.wantCount, count, "call %d", i)
		assert.Equal(t, tt.wantOK, ok, "call %d", i)
	}
}

func TestMemoryStore_ConcurrentTryIncrementNeverExceedsLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewMemoryStore()
	ctx := context.Background()
	const limit = 5

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.TryIncrement(ctx, "shared", limit)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, succeeded)
	count, err := store.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, limit, count)
}
