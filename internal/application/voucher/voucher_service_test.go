package voucher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appnumbering "github.com/ledgerkeep/backend/internal/application/numbering"
	"github.com/ledgerkeep/backend/internal/domain/numbering"
	"github.com/ledgerkeep/backend/internal/domain/shared"
	"github.com/ledgerkeep/backend/internal/domain/voucher"
	"github.com/ledgerkeep/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memSequenceStore is a minimal in-memory SequenceStore for service tests
type memSequenceStore struct {
	mu       sync.Mutex
	counters map[numbering.ScopeKey]int64
	err      error
}

func (s *memSequenceStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *memSequenceStore) InTransaction(ctx context.Context, fn func(tx numbering.SequenceTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.counters == nil {
		s.counters = make(map[numbering.ScopeKey]int64)
	}
	return fn(&memSequenceTx{s})
}

type memSequenceTx struct{ store *memSequenceStore }

func (t *memSequenceTx) LockOrCreate(ctx context.Context, key numbering.ScopeKey) (*numbering.SequenceCounter, error) {
	row := numbering.NewSequenceCounter(key)
	row.CurrentNo = t.store.counters[key]
	return row, nil
}

func (t *memSequenceTx) Increment(ctx context.Context, row *numbering.SequenceCounter, next int64) error {
	t.store.counters[row.Scope()] = next
	row.CurrentNo = next
	return nil
}

// fakeVoucherRepo records saved vouchers in memory
type fakeVoucherRepo struct {
	mu       sync.Mutex
	vouchers map[uuid.UUID]*voucher.Voucher
	saveErr  error
}

func newFakeVoucherRepo() *fakeVoucherRepo {
	return &fakeVoucherRepo{vouchers: make(map[uuid.UUID]*voucher.Voucher)}
}

func (r *fakeVoucherRepo) FindByID(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vouchers[id], nil
}

func (r *fakeVoucherRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*voucher.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.vouchers[id]
	if v == nil || v.TenantID != tenantID {
		return nil, nil
	}
	return v, nil
}

func (r *fakeVoucherRepo) FindByVoucherNumber(ctx context.Context, tenantID uuid.UUID, number string) (*voucher.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.vouchers {
		if v.TenantID == tenantID && v.VoucherNumber == number {
			return v, nil
		}
	}
	return nil, nil
}

func (r *fakeVoucherRepo) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter voucher.VoucherFilter) ([]voucher.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []voucher.Voucher
	for _, v := range r.vouchers {
		if v.TenantID == tenantID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *fakeVoucherRepo) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter voucher.VoucherFilter) (int64, error) {
	vs, _ := r.FindAllForTenant(ctx, tenantID, filter)
	return int64(len(vs)), nil
}

func (r *fakeVoucherRepo) ExistsByVoucherNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	v, _ := r.FindByVoucherNumber(ctx, tenantID, number)
	return v != nil, nil
}

func (r *fakeVoucherRepo) Save(ctx context.Context, v *voucher.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.vouchers[v.ID] = v
	return nil
}

func (r *fakeVoucherRepo) SaveWithLock(ctx context.Context, v *voucher.Voucher) error {
	return r.Save(ctx, v)
}

func newTestService(t *testing.T, repo *fakeVoucherRepo, store *memSequenceStore, opts ...VoucherServiceOption) *VoucherService {
	t.Helper()
	alloc := appnumbering.NewAllocator(store, appnumbering.DefaultAllocatorConfig(), zap.NewNop())
	return NewVoucherService(repo, alloc, zap.NewNop(), opts...)
}

func createRequest() CreateVoucherRequest {
	return CreateVoucherRequest{
		OwnerKind:   numbering.OwnerUser,
		OwnerID:     uuid.New(),
		VoucherKind: numbering.KindPayment,
		VoucherDate: time.Date(2025, 7, 9, 10, 0, 0, 0, time.UTC),
		PartyName:   "Acme Supplies",
		Amount:      decimal.NewFromInt(1500),
	}
}

func TestVoucherService_CreateVoucher(t *testing.T) {
	t.Run("creates a draft voucher with an allocated number", func(t *testing.T) {
		repo := newFakeVoucherRepo()
		svc := newTestService(t, repo, &memSequenceStore{})
		tenantID := uuid.New()

		resp, err := svc.CreateVoucher(context.Background(), tenantID, createRequest())
		require.NoError(t, err)

		assert.Equal(t, "PV/25-26/07/000001", resp.VoucherNumber)
		assert.Equal(t, "DRAFT", resp.Status)
		assert.Equal(t, tenantID, resp.TenantID)

		saved, err := repo.FindByIDForTenant(context.Background(), tenantID, resp.ID)
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, resp.VoucherNumber, saved.VoucherNumber)
	})

	t.Run("numbers advance across creations in the same scope", func(t *testing.T) {
		repo := newFakeVoucherRepo()
		svc := newTestService(t, repo, &memSequenceStore{})
		tenantID := uuid.New()
		req := createRequest()

		for i := 1; i <= 3; i++ {
			resp, err := svc.CreateVoucher(context.Background(), tenantID, req)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("PV/25-26/07/%06d", i), resp.VoucherNumber)
		}
	})

	t.Run("allocation failure aborts creation", func(t *testing.T) {
		repo := newFakeVoucherRepo()
		store := &memSequenceStore{err: numbering.ErrStoreUnavailable}
		svc := newTestService(t, repo, store)

		_, err := svc.CreateVoucher(context.Background(), uuid.New(), createRequest())
		require.Error(t, err)
		assert.ErrorIs(t, err, numbering.ErrStoreUnavailable)
		assert.Empty(t, repo.vouchers, "no voucher may exist without a number")
	})

	t.Run("repeated request key is rejected as duplicate", func(t *testing.T) {
		repo := newFakeVoucherRepo()
		idem := cache.NewInMemoryIdempotencyStore()
		defer idem.Close()

		svc := newTestService(t, repo, &memSequenceStore{},
			WithIdempotencyStore(idem, shared.DefaultIdempotencyConfig()))
		tenantID := uuid.New()

		req := createRequest()
		req.RequestKey = "client-req-1"

		_, err := svc.CreateVoucher(context.Background(), tenantID, req)
		require.NoError(t, err)

		_, err = svc.CreateVoucher(context.Background(), tenantID, req)
		assert.ErrorIs(t, err, shared.ErrDuplicateSubmission)
	})

	t.Run("same request key in different tenants is independent", func(t *testing.T) {
		repo := newFakeVoucherRepo()
		idem := cache.NewInMemoryIdempotencyStore()
		defer idem.Close()

		svc := newTestService(t, repo, &memSequenceStore{},
			WithIdempotencyStore(idem, shared.DefaultIdempotencyConfig()))

		req := createRequest()
		req.RequestKey = "client-req-1"

		_, err := svc.CreateVoucher(context.Background(), uuid.New(), req)
		require.NoError(t, err)
		_, err = svc.CreateVoucher(context.Background(), uuid.New(), req)
		require.NoError(t, err)
	})

	t.Run("invalid input never reaches the repository", func(t *testing.T) {
		repo := newFakeVoucherRepo()
		svc := newTestService(t, repo, &memSequenceStore{})

		req := createRequest()
		req.Amount = decimal.Zero
		_, err := svc.CreateVoucher(context.Background(), uuid.New(), req)
		assert.Error(t, err)
		assert.Empty(t, repo.vouchers)
	})
}

func TestVoucherService_Lifecycle(t *testing.T) {
	repo := newFakeVoucherRepo()
	svc := newTestService(t, repo, &memSequenceStore{})
	tenantID := uuid.New()
	userID := uuid.New()

	created, err := svc.CreateVoucher(context.Background(), tenantID, createRequest())
	require.NoError(t, err)

	t.Run("confirm a draft", func(t *testing.T) {
		resp, err := svc.ConfirmVoucher(context.Background(), tenantID, created.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, "CONFIRMED", resp.Status)
		require.NotNil(t, resp.ConfirmedAt)
	})

	t.Run("cancel keeps the number spent", func(t *testing.T) {
		resp, err := svc.CancelVoucher(context.Background(), tenantID, created.ID, userID, "entered twice")
		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", resp.Status)
		assert.Equal(t, created.VoucherNumber, resp.VoucherNumber)

		// The scope's next number does not reuse the cancelled one
		next, err := svc.CreateVoucher(context.Background(), tenantID, createRequest())
		require.NoError(t, err)
		assert.NotEqual(t, created.VoucherNumber, next.VoucherNumber)
	})

	t.Run("unknown voucher yields not found", func(t *testing.T) {
		_, err := svc.ConfirmVoucher(context.Background(), tenantID, uuid.New(), userID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("wrong tenant cannot see the voucher", func(t *testing.T) {
		_, err := svc.GetVoucherByID(context.Background(), uuid.New(), created.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestVoucherService_GetAndList(t *testing.T) {
	repo := newFakeVoucherRepo()
	svc := newTestService(t, repo, &memSequenceStore{})
	tenantID := uuid.New()

	created, err := svc.CreateVoucher(context.Background(), tenantID, createRequest())
	require.NoError(t, err)

	t.Run("get by number", func(t *testing.T) {
		resp, err := svc.GetVoucherByNumber(context.Background(), tenantID, created.VoucherNumber)
		require.NoError(t, err)
		assert.Equal(t, created.ID, resp.ID)
	})

	t.Run("list returns the tenant's vouchers", func(t *testing.T) {
		result, err := svc.ListVouchers(context.Background(), tenantID, VoucherListFilter{Page: 1, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
		require.Len(t, result.Items, 1)
		assert.Equal(t, created.VoucherNumber, result.Items[0].VoucherNumber)
	})

	t.Run("list defaults paging when unset", func(t *testing.T) {
		result, err := svc.ListVouchers(context.Background(), tenantID, VoucherListFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 20, result.PageSize)
		assert.Equal(t, 1, result.TotalPages)
		require.Len(t, result.Items, 1)
	})
}
