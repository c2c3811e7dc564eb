package voucher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerkeep/backend/internal/domain/numbering"
	"github.com/ledgerkeep/backend/internal/domain/shared"
)

// VoucherFilter defines filtering options for voucher list queries.
// Paging comes from the embedded shared.Filter.
type VoucherFilter struct {
	shared.Filter

	OwnerKind *numbering.OwnerKind
	OwnerID   *uuid.UUID
	Kind      *numbering.VoucherKind
	Status    *VoucherStatus
	FromDate  *time.Time
	ToDate    *time.Time
}

// VoucherRepository defines persistence operations for vouchers
type VoucherRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Voucher, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Voucher, error)
	FindByVoucherNumber(ctx context.Context, tenantID uuid.UUID, voucherNumber string) (*Voucher, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter VoucherFilter) ([]Voucher, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter VoucherFilter) (int64, error)
	ExistsByVoucherNumber(ctx context.Context, tenantID uuid.UUID, voucherNumber string) (bool, error)
	Save(ctx context.Context, v *Voucher) error
	SaveWithLock(ctx context.Context, v *Voucher) error
}
