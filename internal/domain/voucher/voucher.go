package voucher

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerkeep/backend/internal/domain/numbering"
	"github.com/ledgerkeep/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// VoucherStatus represents the lifecycle state of a voucher
type VoucherStatus string

const (
	StatusDraft     VoucherStatus = "DRAFT"
	StatusConfirmed VoucherStatus = "CONFIRMED"
	StatusCancelled VoucherStatus = "CANCELLED"
)

// IsValid reports whether the status is a known state
func (s VoucherStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// CanConfirm reports whether a voucher in this status may be confirmed
func (s VoucherStatus) CanConfirm() bool {
	return s == StatusDraft
}

// CanCancel reports whether a voucher in this status may be cancelled
func (s VoucherStatus) CanCancel() bool {
	return s == StatusDraft || s == StatusConfirmed
}

// Voucher is a single accounting transaction record. Its display number is
// issued by the sequence allocator before construction and is immutable for
// the life of the record; a voucher is never persisted without one.
type Voucher struct {
	shared.TenantAggregateRoot
	VoucherNumber string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_vouchers_tenant_number,priority:2"`
	OwnerKind     numbering.OwnerKind   `gorm:"type:varchar(20);not null;index:idx_vouchers_owner,priority:1"`
	OwnerID       uuid.UUID             `gorm:"type:uuid;not null;index:idx_vouchers_owner,priority:2"`
	VoucherKind   numbering.VoucherKind `gorm:"type:varchar(30);not null;index"`
	VoucherDate   time.Time             `gorm:"not null"`
	PartyName     string                `gorm:"type:varchar(200);not null"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Narration     string                `gorm:"type:text"`
	Status        VoucherStatus         `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ConfirmedAt   *time.Time
	ConfirmedBy   *uuid.UUID `gorm:"type:uuid"`
	CancelledAt   *time.Time
	CancelledBy   *uuid.UUID `gorm:"type:uuid"`
	CancelReason  string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Voucher) TableName() string {
	return "vouchers"
}

// NewVoucher creates a draft voucher carrying an already-allocated number
func NewVoucher(
	tenantID uuid.UUID,
	voucherNumber string,
	ownerKind numbering.OwnerKind,
	ownerID uuid.UUID,
	kind numbering.VoucherKind,
	voucherDate time.Time,
	partyName string,
	amount decimal.Decimal,
	narration string,
) (*Voucher, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if voucherNumber == "" {
		return nil, shared.NewDomainError("INVALID_VOUCHER_NUMBER", "Voucher number cannot be empty")
	}
	if len(voucherNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_VOUCHER_NUMBER", "Voucher number cannot exceed 50 characters")
	}
	if !ownerKind.IsValid() {
		return nil, shared.NewDomainError("INVALID_OWNER_KIND", "Owner kind must be user or employee")
	}
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if kind == "" {
		return nil, shared.NewDomainError("INVALID_VOUCHER_KIND", "Voucher kind cannot be empty")
	}
	if voucherDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_VOUCHER_DATE", "Voucher date is required")
	}
	if partyName == "" {
		return nil, shared.NewDomainError("INVALID_PARTY_NAME", "Party name cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}

	return &Voucher{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		VoucherNumber:       voucherNumber,
		OwnerKind:           ownerKind,
		OwnerID:             ownerID,
		VoucherKind:         kind,
		VoucherDate:         voucherDate,
		PartyName:           partyName,
		Amount:              amount,
		Narration:           narration,
		Status:              StatusDraft,
	}, nil
}

// Confirm moves a draft voucher into the confirmed state
func (v *Voucher) Confirm(confirmedBy uuid.UUID) error {
	if !v.Status.CanConfirm() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm voucher in %s status", v.Status))
	}
	if confirmedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Confirming user ID is required")
	}

	now := time.Now()
	v.Status = StatusConfirmed
	v.ConfirmedAt = &now
	v.ConfirmedBy = &confirmedBy
	v.UpdatedAt = now
	v.IncrementVersion()

	return nil
}

// Cancel cancels a voucher. The voucher number stays spent; cancellation
// never releases a number back to the sequence.
func (v *Voucher) Cancel(cancelledBy uuid.UUID, reason string) error {
	if !v.Status.CanCancel() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel voucher in %s status", v.Status))
	}
	if cancelledBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Cancelling user ID is required")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_CANCEL_REASON", "Cancel reason is required")
	}

	now := time.Now()
	v.Status = StatusCancelled
	v.CancelledAt = &now
	v.CancelledBy = &cancelledBy
	v.CancelReason = reason
	v.UpdatedAt = now
	v.IncrementVersion()

	return nil
}
