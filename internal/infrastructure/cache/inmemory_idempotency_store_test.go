package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("remembers a new submission key", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "submit-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew, "new key should return true")
	})

	t.Run("rejects a repeated submission key", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "submit-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "submit-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew, "repeated key should return false")
	})

	t.Run("accepts the key again after expiry", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "submit-3", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, "submit-3", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew, "expired key should be accepted again")
	})

	t.Run("exactly one of concurrent duplicates wins", func(t *testing.T) {
		const workers = 16
		var wg sync.WaitGroup
		wins := make(chan bool, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				isNew, err := store.MarkProcessed(ctx, "submit-race", time.Hour)
				require.NoError(t, err)
				wins <- isNew
			}()
		}
		wg.Wait()
		close(wins)

		winners := 0
		for isNew := range wins {
			if isNew {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("unknown key is not processed", func(t *testing.T) {
		processed, err := store.IsProcessed(ctx, "never-seen")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("remembered key is processed", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "seen", time.Hour)
		require.NoError(t, err)

		processed, err := store.IsProcessed(ctx, "seen")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("expired key is not processed", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "short-lived", 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, "short-lived")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestInMemoryIdempotencyStore_Eviction(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := store.MarkProcessed(ctx, fmt.Sprintf("evict-%d", i), time.Millisecond)
		require.NoError(t, err)
	}
	assert.Equal(t, 10, store.Size())

	time.Sleep(5 * time.Millisecond)
	store.evictExpired()

	assert.Equal(t, 0, store.Size())
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	require.NoError(t, store.Close())
	// Second close must not panic or block
	require.NoError(t, store.Close())
}
