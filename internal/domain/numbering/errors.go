package numbering

import (
	"errors"

	"github.com/ledgerkeep/backend/internal/domain/shared"
)

// Allocation error taxonomy. The store implementation classifies raw driver
// failures into these; the allocator retries the transient ones and wraps
// whatever survives in an AllocationError.
var (
	// ErrStoreUnavailable signals a transport or connection failure talking
	// to the sequence store. Not retried internally.
	ErrStoreUnavailable = shared.NewDomainError("STORE_UNAVAILABLE", "Sequence store is unavailable")

	// ErrScopeRace signals that two transactions raced to create the first
	// counter row for the same scope and this one lost the unique constraint.
	// Retryable: the retry finds the row already created and proceeds.
	ErrScopeRace = shared.NewDomainError("SCOPE_RACE", "Concurrent creation of the same sequence scope")

	// ErrLockTimeout signals the exclusive row lock could not be acquired
	// within the configured bound. Retryable a bounded number of times.
	ErrLockTimeout = shared.NewDomainError("LOCK_TIMEOUT", "Timed out waiting for the sequence row lock")
)

// AllocationError is the terminal failure surfaced to callers once retries
// are exhausted or a non-retryable cause occurred. The caller must not assume
// a voucher number was reserved.
type AllocationError struct {
	Cause error
}

// Error implements the error interface
func (e *AllocationError) Error() string {
	if e.Cause == nil {
		return "voucher number allocation failed"
	}
	return "voucher number allocation failed: " + e.Cause.Error()
}

// Unwrap exposes the underlying cause for errors.Is/As
func (e *AllocationError) Unwrap() error {
	return e.Cause
}

// NewAllocationError wraps the terminal cause of a failed allocation
func NewAllocationError(cause error) *AllocationError {
	return &AllocationError{Cause: cause}
}

// IsRetryable reports whether an allocation attempt that failed with err is
// worth retrying on a fresh transaction
func IsRetryable(err error) bool {
	return errors.Is(err, ErrScopeRace) || errors.Is(err, ErrLockTimeout)
}
