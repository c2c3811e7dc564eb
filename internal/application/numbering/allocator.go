package numbering

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerkeep/backend/internal/domain/numbering"
	"github.com/ledgerkeep/backend/internal/domain/shared"
	"github.com/ledgerkeep/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AllocationRequest carries the scope of a voucher number request. The fiscal
// fields are resolved from Date inside Allocate; callers never supply them.
type AllocationRequest struct {
	TenantID    uuid.UUID
	OwnerKind   numbering.OwnerKind
	OwnerID     uuid.UUID
	VoucherKind numbering.VoucherKind
	Date        time.Time
}

// AllocatorConfig holds retry and lock-wait policy for the allocator
type AllocatorConfig struct {
	// MaxAttempts is the total number of transaction attempts, including the
	// first. 1 disables internal retries entirely.
	MaxAttempts int
	// RetryBackoff is the base delay between attempts; the actual delay is
	// randomized around it to avoid retry lockstep between competing callers.
	RetryBackoff time.Duration
	// LockWait bounds how long a single attempt may wait for the exclusive
	// sequence row lock before it is treated as a lock timeout.
	LockWait time.Duration
}

// DefaultAllocatorConfig returns the default allocation policy
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		MaxAttempts:  3,
		RetryBackoff: 25 * time.Millisecond,
		LockWait:     3 * time.Second,
	}
}

// Allocator issues unique, sequential, formatted voucher numbers per scope
// key. Every call re-reads the counter under an exclusive row lock inside its
// own transaction; nothing about the counter is cached between calls, so a
// returned number is always backed by a durably committed increment.
type Allocator struct {
	store   numbering.SequenceStore
	cfg     AllocatorConfig
	log     *zap.Logger
	metrics *telemetry.AllocatorMetrics

	schemaMu    sync.Mutex
	schemaReady bool
}

// NewAllocator creates an Allocator backed by the given sequence store
func NewAllocator(store numbering.SequenceStore, cfg AllocatorConfig, log *zap.Logger) *Allocator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Allocator{
		store: store,
		cfg:   cfg,
		log:   log,
	}
}

// SetMetrics attaches allocator telemetry. Optional; a nil receiver is safe.
func (a *Allocator) SetMetrics(m *telemetry.AllocatorMetrics) {
	a.metrics = m
}

// Allocate issues the next voucher number for the request's scope.
// One database transaction per attempt: resolve fiscal scope, lock or create
// the counter row, increment, commit, format. Transient contention
// (first-insert race, lock timeout) is retried on a fresh transaction with
// randomized backoff; anything that survives the retry budget is returned as
// an AllocationError and no number is considered spent.
func (a *Allocator) Allocate(ctx context.Context, req AllocationRequest) (string, error) {
	if req.Date.IsZero() {
		return "", shared.NewDomainError("INVALID_VOUCHER_DATE", "Voucher date is required")
	}

	period := numbering.ResolveFiscalYear(req.Date)
	key := numbering.ScopeKey{
		TenantID:    req.TenantID,
		OwnerKind:   req.OwnerKind,
		OwnerID:     req.OwnerID,
		VoucherKind: req.VoucherKind,
		FiscalYear:  period.Year,
		FiscalMonth: period.Month,
	}
	if err := key.Validate(); err != nil {
		return "", err
	}

	if err := a.ensureSchema(ctx); err != nil {
		a.log.Error("sequence schema provisioning failed", zap.Error(err))
		return "", numbering.NewAllocationError(err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		next, err := a.allocateOnce(ctx, key)
		if err == nil {
			number, ferr := numbering.FormatVoucherNumber(
				numbering.PrefixFor(key.VoucherKind), key.FiscalYear, key.FiscalMonth, next)
			if ferr != nil {
				return "", ferr
			}
			a.metrics.RecordAllocation(ctx, string(key.VoucherKind), attempt, time.Since(start))
			return number, nil
		}

		lastErr = err
		if !numbering.IsRetryable(err) || attempt == a.cfg.MaxAttempts {
			break
		}

		a.metrics.RecordConflict(ctx, string(key.VoucherKind))
		a.log.Warn("voucher number allocation retry",
			zap.Int("attempt", attempt),
			zap.String("voucher_kind", string(key.VoucherKind)),
			zap.String("fiscal_year", key.FiscalYear),
			zap.Error(err),
		)
		if err := a.sleep(ctx, a.backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	a.log.Error("voucher number allocation failed",
		zap.String("tenant_id", key.TenantID.String()),
		zap.String("voucher_kind", string(key.VoucherKind)),
		zap.Error(lastErr),
	)
	return "", numbering.NewAllocationError(lastErr)
}

// allocateOnce runs one lock-increment transaction. The exclusive lock from
// LockOrCreate is held until the transaction ends, so the read and the write
// of CurrentNo cannot interleave with another allocation for the same scope.
func (a *Allocator) allocateOnce(ctx context.Context, key numbering.ScopeKey) (int64, error) {
	attemptCtx := ctx
	if a.cfg.LockWait > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, a.cfg.LockWait)
		defer cancel()
	}

	var next int64
	err := a.store.InTransaction(attemptCtx, func(tx numbering.SequenceTx) error {
		row, err := tx.LockOrCreate(attemptCtx, key)
		if err != nil {
			return err
		}
		next = row.CurrentNo + 1
		return tx.Increment(attemptCtx, row, next)
	})
	if err != nil {
		// A tripped per-attempt deadline is a lock timeout; cancellation of
		// the caller's own context is not.
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			return 0, numbering.ErrLockTimeout
		}
		return 0, err
	}
	return next, nil
}

// ensureSchema provisions the counter table once per process lifetime. The
// ready flag latches only after a successful run, so a failed cold start is
// retried on the next allocation.
func (a *Allocator) ensureSchema(ctx context.Context) error {
	a.schemaMu.Lock()
	defer a.schemaMu.Unlock()

	if a.schemaReady {
		return nil
	}
	if err := a.store.EnsureSchema(ctx); err != nil {
		return err
	}
	a.schemaReady = true
	return nil
}

// backoff returns the delay before the given retry, randomized between 50%
// and 150% of the scaled base
func (a *Allocator) backoff(attempt int) time.Duration {
	base := a.cfg.RetryBackoff * time.Duration(attempt)
	if base <= 0 {
		return 0
	}
	half := int64(base) / 2
	return time.Duration(half + rand.Int63n(int64(base)))
}

func (a *Allocator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
