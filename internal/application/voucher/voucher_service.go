package voucher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerkeep/backend/internal/application/numbering"
	domnumbering "github.com/ledgerkeep/backend/internal/domain/numbering"
	"github.com/ledgerkeep/backend/internal/domain/shared"
	"github.com/ledgerkeep/backend/internal/domain/voucher"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VoucherService provides application-level voucher operations. Number
// allocation happens inside CreateVoucher; callers never pick numbers.
type VoucherService struct {
	voucherRepo voucher.VoucherRepository
	allocator   *numbering.Allocator
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	logger      *zap.Logger
}

// VoucherServiceOption is a functional option for configuring VoucherService
type VoucherServiceOption func(*VoucherService)

// WithIdempotencyStore enables duplicate-submission detection
func WithIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) VoucherServiceOption {
	return func(s *VoucherService) {
		s.idempotency = store
		s.idemConfig = cfg
	}
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(
	voucherRepo voucher.VoucherRepository,
	allocator *numbering.Allocator,
	logger *zap.Logger,
	opts ...VoucherServiceOption,
) *VoucherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &VoucherService{
		voucherRepo: voucherRepo,
		allocator:   allocator,
		idemConfig:  shared.DefaultIdempotencyConfig(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateVoucherRequest contains input for voucher creation
type CreateVoucherRequest struct {
	OwnerKind   domnumbering.OwnerKind
	OwnerID     uuid.UUID
	VoucherKind domnumbering.VoucherKind
	VoucherDate time.Time
	PartyName   string
	Amount      decimal.Decimal
	Narration   string
	CreatedBy   *uuid.UUID
	// RequestKey is the client's idempotency key. Empty disables the
	// duplicate-submission check for this request.
	RequestKey string
}

// VoucherResponse represents a voucher in API responses
type VoucherResponse struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	VoucherNumber string          `json:"voucher_number"`
	OwnerKind     string          `json:"owner_kind"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	VoucherKind   string          `json:"voucher_kind"`
	VoucherDate   time.Time       `json:"voucher_date"`
	PartyName     string          `json:"party_name"`
	Amount        decimal.Decimal `json:"amount"`
	Narration     string          `json:"narration,omitempty"`
	Status        string          `json:"status"`
	ConfirmedAt   *time.Time      `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// VoucherListFilter defines filtering options for voucher list queries
type VoucherListFilter struct {
	OwnerKind   string
	OwnerID     *uuid.UUID
	VoucherKind string
	Status      string
	FromDate    *time.Time
	ToDate      *time.Time
	Page        int
	PageSize    int
}

// ToSharedFilter converts VoucherListFilter to shared.Filter
func (f VoucherListFilter) ToSharedFilter() shared.Filter {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
	}
}

// CreateVoucher allocates the next voucher number for the request's scope and
// persists a draft voucher carrying it, all before returning. A failed
// allocation aborts the creation; a failed save does not burn the number's
// uniqueness guarantee because the tenant-number unique index arbitrates.
func (s *VoucherService) CreateVoucher(ctx context.Context, tenantID uuid.UUID, req CreateVoucherRequest) (*VoucherResponse, error) {
	if s.idempotency != nil && s.idemConfig.Enabled && req.RequestKey != "" {
		// Tenant-scoped so two tenants can use the same client key
		key := tenantID.String() + ":" + req.RequestKey
		fresh, err := s.idempotency.MarkProcessed(ctx, key, s.idemConfig.TTL)
		if err != nil {
			s.logger.Warn("idempotency check unavailable, proceeding without it",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else if !fresh {
			return nil, shared.ErrDuplicateSubmission
		}
	}

	// Validate before allocating so rejected input does not leave a gap in
	// the sequence
	if req.PartyName == "" {
		return nil, shared.NewDomainError("INVALID_PARTY_NAME", "Party name cannot be empty")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}

	number, err := s.allocator.Allocate(ctx, numbering.AllocationRequest{
		TenantID:    tenantID,
		OwnerKind:   req.OwnerKind,
		OwnerID:     req.OwnerID,
		VoucherKind: req.VoucherKind,
		Date:        req.VoucherDate,
	})
	if err != nil {
		return nil, err
	}

	v, err := voucher.NewVoucher(
		tenantID,
		number,
		req.OwnerKind,
		req.OwnerID,
		req.VoucherKind,
		req.VoucherDate,
		req.PartyName,
		req.Amount,
		req.Narration,
	)
	if err != nil {
		return nil, err
	}

	if req.CreatedBy != nil {
		v.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.voucherRepo.Save(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("voucher created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("voucher_number", v.VoucherNumber),
		zap.String("voucher_kind", string(v.VoucherKind)),
	)

	return toVoucherResponse(v), nil
}

// GetVoucherByID returns a voucher scoped to a tenant
func (s *VoucherService) GetVoucherByID(ctx context.Context, tenantID, id uuid.UUID) (*VoucherResponse, error) {
	v, err := s.voucherRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, shared.ErrNotFound
	}
	return toVoucherResponse(v), nil
}

// GetVoucherByNumber returns a voucher by its display number within a tenant
func (s *VoucherService) GetVoucherByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*VoucherResponse, error) {
	v, err := s.voucherRepo.FindByVoucherNumber(ctx, tenantID, number)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, shared.ErrNotFound
	}
	return toVoucherResponse(v), nil
}

// ListVouchers returns vouchers for a tenant with filtering and pagination
func (s *VoucherService) ListVouchers(ctx context.Context, tenantID uuid.UUID, filter VoucherListFilter) (*shared.Paginated[VoucherResponse], error) {
	paging := filter.ToSharedFilter()
	repoFilter := voucher.VoucherFilter{
		Filter:   paging,
		OwnerID:  filter.OwnerID,
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
	}
	if filter.OwnerKind != "" {
		kind := domnumbering.OwnerKind(filter.OwnerKind)
		repoFilter.OwnerKind = &kind
	}
	if filter.VoucherKind != "" {
		kind := domnumbering.VoucherKind(filter.VoucherKind)
		repoFilter.Kind = &kind
	}
	if filter.Status != "" {
		status := voucher.VoucherStatus(filter.Status)
		repoFilter.Status = &status
	}

	vouchers, err := s.voucherRepo.FindAllForTenant(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.voucherRepo.CountForTenant(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]VoucherResponse, len(vouchers))
	for i := range vouchers {
		responses[i] = *toVoucherResponse(&vouchers[i])
	}
	result := shared.NewPaginated(responses, total, paging.Page, paging.PageSize)
	return &result, nil
}

// ConfirmVoucher confirms a draft voucher
func (s *VoucherService) ConfirmVoucher(ctx context.Context, tenantID, voucherID, userID uuid.UUID) (*VoucherResponse, error) {
	v, err := s.voucherRepo.FindByIDForTenant(ctx, tenantID, voucherID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, shared.ErrNotFound
	}

	if err := v.Confirm(userID); err != nil {
		return nil, err
	}

	if err := s.voucherRepo.SaveWithLock(ctx, v); err != nil {
		return nil, err
	}
	return toVoucherResponse(v), nil
}

// CancelVoucher cancels a voucher. Its number stays spent; the sequence never
// reuses numbers of cancelled vouchers.
func (s *VoucherService) CancelVoucher(ctx context.Context, tenantID, voucherID, userID uuid.UUID, reason string) (*VoucherResponse, error) {
	v, err := s.voucherRepo.FindByIDForTenant(ctx, tenantID, voucherID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, shared.ErrNotFound
	}

	if err := v.Cancel(userID, reason); err != nil {
		return nil, err
	}

	if err := s.voucherRepo.SaveWithLock(ctx, v); err != nil {
		return nil, err
	}
	return toVoucherResponse(v), nil
}

func toVoucherResponse(v *voucher.Voucher) *VoucherResponse {
	return &VoucherResponse{
		ID:            v.ID,
		TenantID:      v.TenantID,
		VoucherNumber: v.VoucherNumber,
		OwnerKind:     string(v.OwnerKind),
		OwnerID:       v.OwnerID,
		VoucherKind:   string(v.VoucherKind),
		VoucherDate:   v.VoucherDate,
		PartyName:     v.PartyName,
		Amount:        v.Amount,
		Narration:     v.Narration,
		Status:        string(v.Status),
		ConfirmedAt:   v.ConfirmedAt,
		CancelledAt:   v.CancelledAt,
		CancelReason:  v.CancelReason,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
		Version:       v.Version,
	}
}
