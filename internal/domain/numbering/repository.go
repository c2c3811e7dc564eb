package numbering

import "context"

// SequenceTx is the view of the sequence store inside one open transaction.
// LockOrCreate holds an exclusive lock on the returned row until the
// transaction ends, so the read-increment-write below it is serialized per
// scope.
type SequenceTx interface {
	// LockOrCreate selects the counter row for the scope with an exclusive
	// row lock, inserting a fresh row with CurrentNo 0 if none exists. A
	// concurrent first-insert for the same scope fails with ErrScopeRace.
	LockOrCreate(ctx context.Context, key ScopeKey) (*SequenceCounter, error)

	// Increment updates CurrentNo of the locked row to next within the same
	// transaction
	Increment(ctx context.Context, row *SequenceCounter, next int64) error
}

// SequenceStore is the durable home of voucher counters
type SequenceStore interface {
	// EnsureSchema creates the counter table and its scope uniqueness
	// constraint if not already present. Idempotent and safe to call
	// concurrently from multiple allocator instances.
	EnsureSchema(ctx context.Context) error

	// InTransaction runs fn inside a single database transaction. The
	// transaction commits when fn returns nil and rolls back otherwise,
	// including when ctx is cancelled mid-flight.
	InTransaction(ctx context.Context, fn func(tx SequenceTx) error) error
}
