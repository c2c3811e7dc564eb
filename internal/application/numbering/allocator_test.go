package numbering

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerkeep/backend/internal/domain/numbering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSequenceStore is an in-memory SequenceStore with real commit/rollback
// semantics: counter changes apply only when the transaction callback
// returns nil.
type fakeSequenceStore struct {
	mu       sync.Mutex
	counters map[numbering.ScopeKey]int64

	schemaCalls int
	schemaErr   error

	// failNext makes the next n LockOrCreate calls fail with failErr
	failNext int
	failErr  error
}

func newFakeSequenceStore() *fakeSequenceStore {
	return &fakeSequenceStore{counters: make(map[numbering.ScopeKey]int64)}
}

func (s *fakeSequenceStore) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaCalls++
	return s.schemaErr
}

func (s *fakeSequenceStore) InTransaction(ctx context.Context, fn func(tx numbering.SequenceTx) error) error {
	// Serializing transactions models the exclusive row lock
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext > 0 {
		s.failNext--
		return s.failErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &fakeSequenceTx{store: s, pending: make(map[numbering.ScopeKey]int64)}
	if err := fn(tx); err != nil {
		return err
	}
	// Commit
	for key, val := range tx.pending {
		s.counters[key] = val
	}
	return nil
}

type fakeSequenceTx struct {
	store   *fakeSequenceStore
	pending map[numbering.ScopeKey]int64
}

func (t *fakeSequenceTx) LockOrCreate(ctx context.Context, key numbering.ScopeKey) (*numbering.SequenceCounter, error) {
	row := numbering.NewSequenceCounter(key)
	row.CurrentNo = t.store.counters[key]
	return row, nil
}

func (t *fakeSequenceTx) Increment(ctx context.Context, row *numbering.SequenceCounter, next int64) error {
	if next <= row.CurrentNo {
		return fmt.Errorf("sequence must advance: current %d, next %d", row.CurrentNo, next)
	}
	t.pending[row.Scope()] = next
	row.CurrentNo = next
	return nil
}

func testRequest() AllocationRequest {
	return AllocationRequest{
		TenantID:    uuid.New(),
		OwnerKind:   numbering.OwnerUser,
		OwnerID:     uuid.New(),
		VoucherKind: numbering.KindSales,
		Date:        time.Date(2025, 7, 9, 10, 0, 0, 0, time.UTC),
	}
}

func newTestAllocator(store numbering.SequenceStore) *Allocator {
	cfg := DefaultAllocatorConfig()
	cfg.RetryBackoff = time.Millisecond
	return NewAllocator(store, cfg, zap.NewNop())
}

func TestAllocator_Allocate(t *testing.T) {
	t.Run("numbers are sequential and gapless within a scope", func(t *testing.T) {
		store := newFakeSequenceStore()
		alloc := newTestAllocator(store)
		req := testRequest()

		for i := 1; i <= 5; i++ {
			number, err := alloc.Allocate(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("SLV/25-26/07/%06d", i), number)
		}
	})

	t.Run("scopes count independently", func(t *testing.T) {
		store := newFakeSequenceStore()
		alloc := newTestAllocator(store)

		sales := testRequest()
		purchase := sales
		purchase.VoucherKind = numbering.KindPurchase

		n1, err := alloc.Allocate(context.Background(), sales)
		require.NoError(t, err)
		n2, err := alloc.Allocate(context.Background(), sales)
		require.NoError(t, err)
		n3, err := alloc.Allocate(context.Background(), purchase)
		require.NoError(t, err)

		assert.Equal(t, "SLV/25-26/07/000001", n1)
		assert.Equal(t, "SLV/25-26/07/000002", n2)
		assert.Equal(t, "PRV/25-26/07/000001", n3)
	})

	t.Run("fiscal rollover starts a fresh counter", func(t *testing.T) {
		store := newFakeSequenceStore()
		alloc := newTestAllocator(store)

		req := testRequest()
		req.Date = time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
		n1, err := alloc.Allocate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "SLV/24-25/03/000001", n1)

		req.Date = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		n2, err := alloc.Allocate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "SLV/25-26/04/000001", n2)
	})

	t.Run("concurrent allocations never collide", func(t *testing.T) {
		store := newFakeSequenceStore()
		alloc := newTestAllocator(store)
		req := testRequest()

		const workers = 50
		numbers := make(chan string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				number, err := alloc.Allocate(context.Background(), req)
				require.NoError(t, err)
				numbers <- number
			}()
		}
		wg.Wait()
		close(numbers)

		seen := make(map[string]bool)
		for number := range numbers {
			assert.False(t, seen[number], "duplicate number %s", number)
			seen[number] = true
		}
		assert.Len(t, seen, workers)
	})

	t.Run("retries transient conflicts and succeeds", func(t *testing.T) {
		store := newFakeSequenceStore()
		store.failNext = 2
		store.failErr = numbering.ErrScopeRace
		alloc := newTestAllocator(store)

		number, err := alloc.Allocate(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Equal(t, "SLV/25-26/07/000001", number)
	})

	t.Run("exhausted retries surface the last conflict", func(t *testing.T) {
		store := newFakeSequenceStore()
		store.failNext = 10
		store.failErr = numbering.ErrLockTimeout
		alloc := newTestAllocator(store)

		_, err := alloc.Allocate(context.Background(), testRequest())
		require.Error(t, err)

		var allocErr *numbering.AllocationError
		assert.ErrorAs(t, err, &allocErr)
		assert.ErrorIs(t, err, numbering.ErrLockTimeout)
	})

	t.Run("terminal store failure is not retried", func(t *testing.T) {
		store := newFakeSequenceStore()
		store.failNext = 10
		store.failErr = numbering.ErrStoreUnavailable
		alloc := newTestAllocator(store)

		_, err := alloc.Allocate(context.Background(), testRequest())
		require.Error(t, err)
		assert.ErrorIs(t, err, numbering.ErrStoreUnavailable)
		// One attempt consumed, nine failures left unconsumed
		assert.Equal(t, 9, store.failNext)
	})

	t.Run("failed allocation does not advance the counter", func(t *testing.T) {
		store := newFakeSequenceStore()
		alloc := newTestAllocator(store)
		req := testRequest()

		_, err := alloc.Allocate(context.Background(), req)
		require.NoError(t, err)

		store.failNext = 10
		store.failErr = numbering.ErrStoreUnavailable
		_, err = alloc.Allocate(context.Background(), req)
		require.Error(t, err)
		store.failNext = 0

		number, err := alloc.Allocate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "SLV/25-26/07/000002", number, "failed attempt must not burn a number")
	})

	t.Run("rejects invalid scope without touching the store", func(t *testing.T) {
		store := newFakeSequenceStore()
		alloc := newTestAllocator(store)

		req := testRequest()
		req.TenantID = uuid.Nil
		_, err := alloc.Allocate(context.Background(), req)
		assert.Error(t, err)

		req = testRequest()
		req.Date = time.Time{}
		_, err = alloc.Allocate(context.Background(), req)
		assert.Error(t, err)

		assert.Equal(t, 0, store.schemaCalls)
	})

	t.Run("cancelled context aborts the allocation", func(t *testing.T) {
		store := newFakeSequenceStore()
		alloc := newTestAllocator(store)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := alloc.Allocate(ctx, testRequest())
		assert.Error(t, err)
	})
}

func TestAllocator_EnsureSchema(t *testing.T) {
	t.Run("provisions the schema once", func(t *testing.T) {
		store := newFakeSequenceStore()
		alloc := newTestAllocator(store)

		for i := 0; i < 3; i++ {
			_, err := alloc.Allocate(context.Background(), testRequest())
			require.NoError(t, err)
		}
		assert.Equal(t, 1, store.schemaCalls)
	})

	t.Run("failed provisioning is retried on the next call", func(t *testing.T) {
		store := newFakeSequenceStore()
		store.schemaErr = numbering.ErrStoreUnavailable
		alloc := newTestAllocator(store)

		_, err := alloc.Allocate(context.Background(), testRequest())
		require.Error(t, err)
		assert.ErrorIs(t, err, numbering.ErrStoreUnavailable)

		store.mu.Lock()
		store.schemaErr = nil
		store.mu.Unlock()

		number, err := alloc.Allocate(context.Background(), testRequest())
		require.NoError(t, err)
		assert.NotEmpty(t, number)
		assert.Equal(t, 2, store.schemaCalls)
	})
}
