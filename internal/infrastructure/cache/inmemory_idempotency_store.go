package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerkeep/backend/internal/domain/shared"
)

// record tracks when a handled request key stops being remembered
type record struct {
	expiresAt time.Time
}

// InMemoryIdempotencyStore remembers handled voucher submission keys in a map.
// Suitable for single-instance deployments and testing; keys are not shared
// across processes.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	records   map[string]record
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts a background
// goroutine that evicts expired keys
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		records:  make(map[string]record),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.evictLoop()

	return store
}

// MarkProcessed remembers a submission key for ttl. Returns false when the key
// is already remembered and unexpired, which signals a duplicate submission.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, exists := s.records[key]; exists && time.Now().Before(r.expiresAt) {
		return false, nil
	}

	s.records[key] = record{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// IsProcessed reports whether a submission key is remembered and unexpired
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.records[key]
	if !exists || time.Now().After(r.expiresAt) {
		return false, nil
	}
	return true, nil
}

// Close stops the eviction goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) evictLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *InMemoryIdempotencyStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, r := range s.records {
		if now.After(r.expiresAt) {
			delete(s.records, key)
		}
	}
}

// Size returns the number of remembered keys (for testing/monitoring)
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
