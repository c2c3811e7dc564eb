package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledgerkeep/backend/internal/domain/shared"
	"github.com/ledgerkeep/backend/internal/domain/voucher"
	"gorm.io/gorm"
)

// GormVoucherRepository implements voucher.VoucherRepository using GORM
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// FindByID finds a voucher by ID
func (r *GormVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	var v voucher.Voucher
	if err := r.db.WithContext(ctx).
		First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// FindByIDForTenant finds a voucher by ID for a specific tenant
func (r *GormVoucherRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*voucher.Voucher, error) {
	var v voucher.Voucher
	if err := r.db.WithContext(ctx).
		First(&v, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// FindByVoucherNumber finds by voucher number for a tenant
func (r *GormVoucherRepository) FindByVoucherNumber(ctx context.Context, tenantID uuid.UUID, voucherNumber string) (*voucher.Voucher, error) {
	var v voucher.Voucher
	if err := r.db.WithContext(ctx).
		First(&v, "voucher_number = ? AND tenant_id = ?", voucherNumber, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// FindAllForTenant finds all vouchers for a tenant with filtering
func (r *GormVoucherRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter voucher.VoucherFilter) ([]voucher.Voucher, error) {
	var vouchers []voucher.Voucher
	query := r.applyFilter(r.db.WithContext(ctx).Where("tenant_id = ?", tenantID), filter)

	// Apply pagination
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Order("voucher_date DESC, voucher_number DESC").Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

// CountForTenant counts vouchers for a tenant with optional filters
func (r *GormVoucherRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter voucher.VoucherFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&voucher.Voucher{}).Where("tenant_id = ?", tenantID), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByVoucherNumber reports whether a voucher number is already taken within a tenant
func (r *GormVoucherRepository) ExistsByVoucherNumber(ctx context.Context, tenantID uuid.UUID, voucherNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voucher.Voucher{}).
		Where("tenant_id = ? AND voucher_number = ?", tenantID, voucherNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a voucher. A duplicate voucher number within the
// tenant surfaces as ErrDuplicateSubmission.
func (r *GormVoucherRepository) Save(ctx context.Context, v *voucher.Voucher) error {
	if err := r.db.WithContext(ctx).Save(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrDuplicateSubmission
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormVoucherRepository) SaveWithLock(ctx context.Context, v *voucher.Voucher) error {
	result := r.db.WithContext(ctx).
		Model(v).
		Where("id = ? AND version = ?", v.ID, v.Version-1).
		Updates(v)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("optimistic lock error: %w", shared.ErrConcurrencyConflict)
	}
	return nil
}

// applyFilter translates the filter struct into WHERE clauses
func (r *GormVoucherRepository) applyFilter(query *gorm.DB, filter voucher.VoucherFilter) *gorm.DB {
	if filter.OwnerKind != nil {
		query = query.Where("owner_kind = ?", *filter.OwnerKind)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Kind != nil {
		query = query.Where("voucher_kind = ?", *filter.Kind)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("voucher_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("voucher_date <= ?", *filter.ToDate)
	}
	return query
}
