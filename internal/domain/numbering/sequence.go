package numbering

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerkeep/backend/internal/domain/shared"
)

// ScopeKey is the composite identity a voucher counter is tracked against.
// Two vouchers share a counter only when every field matches; counters for
// different scopes are fully independent and never contend.
type ScopeKey struct {
	TenantID    uuid.UUID
	OwnerKind   OwnerKind
	OwnerID     uuid.UUID
	VoucherKind VoucherKind
	FiscalYear  string
	FiscalMonth int
}

// Validate checks the scope key for caller contract violations
func (k ScopeKey) Validate() error {
	if k.TenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !k.OwnerKind.IsValid() {
		return shared.NewDomainError("INVALID_OWNER_KIND", "Owner kind must be user or employee")
	}
	if k.OwnerID == uuid.Nil {
		return shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if k.VoucherKind == "" {
		return shared.NewDomainError("INVALID_VOUCHER_KIND", "Voucher kind cannot be empty")
	}
	if k.FiscalYear == "" {
		return shared.NewDomainError("INVALID_FISCAL_YEAR", "Fiscal year label cannot be empty")
	}
	if k.FiscalMonth < 1 || k.FiscalMonth > 12 {
		return shared.NewDomainError("INVALID_FISCAL_MONTH", "Fiscal month is out of range 1-12")
	}
	return nil
}

// SequenceCounter is one durable counter row per scope key. CurrentNo is the
// count of vouchers issued so far in the scope: 0 on creation, 1 after the
// first allocation. Rows are created lazily on first allocation and are never
// deleted in normal operation; deleting one risks number reuse and is an
// administrative action outside this package.
type SequenceCounter struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_voucher_seq_scope,priority:1"`
	OwnerKind   OwnerKind   `gorm:"type:varchar(20);not null;uniqueIndex:idx_voucher_seq_scope,priority:2"`
	OwnerID     uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_voucher_seq_scope,priority:3"`
	VoucherKind VoucherKind `gorm:"type:varchar(30);not null;uniqueIndex:idx_voucher_seq_scope,priority:4"`
	FiscalYear  string      `gorm:"type:varchar(5);not null;uniqueIndex:idx_voucher_seq_scope,priority:5"`
	FiscalMonth int         `gorm:"not null;uniqueIndex:idx_voucher_seq_scope,priority:6"`
	CurrentNo   int64       `gorm:"not null;default:0"`
	CreatedAt   time.Time   `gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (SequenceCounter) TableName() string {
	return "voucher_sequences"
}

// NewSequenceCounter creates an unissued counter row for a scope
func NewSequenceCounter(key ScopeKey) *SequenceCounter {
	return &SequenceCounter{
		ID:          uuid.New(),
		TenantID:    key.TenantID,
		OwnerKind:   key.OwnerKind,
		OwnerID:     key.OwnerID,
		VoucherKind: key.VoucherKind,
		FiscalYear:  key.FiscalYear,
		FiscalMonth: key.FiscalMonth,
		CurrentNo:   0,
	}
}

// Scope reconstructs the scope key the counter row belongs to
func (c *SequenceCounter) Scope() ScopeKey {
	return ScopeKey{
		TenantID:    c.TenantID,
		OwnerKind:   c.OwnerKind,
		OwnerID:     c.OwnerID,
		VoucherKind: c.VoucherKind,
		FiscalYear:  c.FiscalYear,
		FiscalMonth: c.FiscalMonth,
	}
}
