package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores request keys that have already been handled so a
// resubmitted request does not create a second voucher
type IdempotencyStore interface {
	// MarkProcessed marks a request key as handled with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether a request key has already been handled
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for duplicate-submission handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for handled request keys.
	// After this duration the same key is accepted again.
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
