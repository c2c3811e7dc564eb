package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ledgerkeep/backend/internal/domain/numbering"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pgLockNotAvailable is the Postgres error code raised when lock_timeout expires
const pgLockNotAvailable = "55P03"

// GormSequenceStore implements numbering.SequenceStore using GORM
type GormSequenceStore struct {
	db       *gorm.DB
	lockWait time.Duration
}

// NewGormSequenceStore creates a new GORM-based sequence store.
// lockWait bounds how long a transaction may wait on a locked sequence row;
// zero disables the server-side lock timeout.
func NewGormSequenceStore(db *gorm.DB, lockWait time.Duration) *GormSequenceStore {
	return &GormSequenceStore{db: db, lockWait: lockWait}
}

// EnsureSchema creates the voucher_sequences table and its unique scope index
// if they do not exist. Safe to call concurrently from multiple instances.
func (s *GormSequenceStore) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&numbering.SequenceCounter{}); err != nil {
		return fmt.Errorf("%w: %v", numbering.ErrStoreUnavailable, err)
	}
	return nil
}

// InTransaction runs fn inside a database transaction. The transaction commits
// when fn returns nil and rolls back otherwise, so a failed allocation never
// advances a counter. Errors raised by the transaction machinery itself, at
// begin or commit, are classified like any other store error; fn's own errors
// pass through untouched.
func (s *GormSequenceStore) InTransaction(ctx context.Context, fn func(tx numbering.SequenceTx) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockWait > 0 && tx.Dialector.Name() == "postgres" {
			// SET LOCAL scopes the timeout to this transaction only
			if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockWait.Milliseconds())).Error; err != nil {
				return classifySequenceError(err)
			}
		}
		fnErr = fn(&gormSequenceTx{tx: tx})
		return fnErr
	})
	if err == nil || errors.Is(err, fnErr) {
		return err
	}
	if errors.Is(err, numbering.ErrScopeRace) ||
		errors.Is(err, numbering.ErrLockTimeout) ||
		errors.Is(err, numbering.ErrStoreUnavailable) {
		return err
	}
	return classifySequenceError(err)
}

// gormSequenceTx exposes sequence operations bound to one open transaction
type gormSequenceTx struct {
	tx *gorm.DB
}

// LockOrCreate locks the counter row for the scope with FOR UPDATE, creating
// it at zero first if no row exists yet. Two transactions racing to create the
// same scope are arbitrated by the unique scope index; the loser surfaces
// numbering.ErrScopeRace and can retry against the now-existing row.
func (t *gormSequenceTx) LockOrCreate(ctx context.Context, key numbering.ScopeKey) (*numbering.SequenceCounter, error) {
	var row numbering.SequenceCounter

	err := t.scopeQuery(ctx, key).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, classifySequenceError(err)
	}

	fresh := numbering.NewSequenceCounter(key)
	if err := t.tx.WithContext(ctx).Create(fresh).Error; err != nil {
		return nil, classifySequenceError(err)
	}
	// The insert holds an exclusive lock on the new row until commit
	return fresh, nil
}

// Increment advances the locked counter row to next. The guard on the current
// value makes a lost update impossible even if the row lock were bypassed.
func (t *gormSequenceTx) Increment(ctx context.Context, row *numbering.SequenceCounter, next int64) error {
	if next <= row.CurrentNo {
		return fmt.Errorf("sequence must advance: current %d, next %d", row.CurrentNo, next)
	}

	result := t.tx.WithContext(ctx).
		Model(&numbering.SequenceCounter{}).
		Where("id = ? AND current_no = ?", row.ID, row.CurrentNo).
		Update("current_no", next)
	if result.Error != nil {
		return classifySequenceError(result.Error)
	}
	if result.RowsAffected == 0 {
		return numbering.ErrScopeRace
	}

	row.CurrentNo = next
	return nil
}

// scopeQuery builds the WHERE clause matching one sequence scope
func (t *gormSequenceTx) scopeQuery(ctx context.Context, key numbering.ScopeKey) *gorm.DB {
	return t.tx.WithContext(ctx).
		Where("tenant_id = ? AND owner_kind = ? AND owner_id = ? AND voucher_kind = ? AND fiscal_year = ? AND fiscal_month = ?",
			key.TenantID, key.OwnerKind, key.OwnerID, key.VoucherKind, key.FiscalYear, key.FiscalMonth)
}

// classifySequenceError maps driver errors onto the allocation error taxonomy
func classifySequenceError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return numbering.ErrScopeRace
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", numbering.ErrLockTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return fmt.Errorf("%w: %v", numbering.ErrLockTimeout, err)
	}
	return fmt.Errorf("%w: %v", numbering.ErrStoreUnavailable, err)
}
