package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ledgerkeep/backend/internal/domain/numbering"
	"github.com/ledgerkeep/backend/internal/domain/shared"
	"github.com/ledgerkeep/backend/internal/domain/voucher"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockVoucherRepository creates a GormVoucherRepository with a mocked SQL connection
func newMockVoucherRepository(t *testing.T) (*GormVoucherRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	return NewGormVoucherRepository(gormDB), mock, mockDB
}

func voucherColumns() []string {
	return []string{"id", "tenant_id", "voucher_number", "owner_kind", "owner_id", "voucher_kind", "voucher_date", "party_name", "amount", "status", "version"}
}

func TestGormVoucherRepository_FindByIDForTenant(t *testing.T) {
	t.Run("finds voucher scoped to tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockVoucherRepository(t)
		defer mockDB.Close()

		voucherID := uuid.New()
		tenantID := uuid.New()
		ownerID := uuid.New()

		rows := sqlmock.NewRows(voucherColumns()).
			AddRow(voucherID, tenantID, "PV/25-26/07/000001", "user", ownerID, "payment", time.Now(), "Acme Supplies", decimal.NewFromInt(1500), "DRAFT", 1)

		mock.ExpectQuery(`SELECT \* FROM "vouchers" WHERE id = \$1 AND tenant_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(voucherID, tenantID, 1).
			WillReturnRows(rows)

		v, err := repo.FindByIDForTenant(context.Background(), tenantID, voucherID)

		assert.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, voucherID, v.ID)
		assert.Equal(t, "PV/25-26/07/000001", v.VoucherNumber)
		assert.Equal(t, voucher.StatusDraft, v.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil for missing voucher", func(t *testing.T) {
		repo, mock, mockDB := newMockVoucherRepository(t)
		defer mockDB.Close()

		voucherID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "vouchers" WHERE id = \$1 AND tenant_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(voucherID, tenantID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		v, err := repo.FindByIDForTenant(context.Background(), tenantID, voucherID)

		assert.NoError(t, err)
		assert.Nil(t, v)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormVoucherRepository_FindByVoucherNumber(t *testing.T) {
	t.Run("finds voucher by number within tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockVoucherRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		number := "RV/25-26/04/000012"

		rows := sqlmock.NewRows(voucherColumns()).
			AddRow(uuid.New(), tenantID, number, "employee", uuid.New(), "receipt", time.Now(), "Walk-in", decimal.NewFromInt(200), "CONFIRMED", 2)

		mock.ExpectQuery(`SELECT \* FROM "vouchers" WHERE voucher_number = \$1 AND tenant_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(number, tenantID, 1).
			WillReturnRows(rows)

		v, err := repo.FindByVoucherNumber(context.Background(), tenantID, number)

		assert.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, number, v.VoucherNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormVoucherRepository_FindAllForTenant(t *testing.T) {
	t.Run("applies filters and pagination", func(t *testing.T) {
		repo, mock, mockDB := newMockVoucherRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		ownerID := uuid.New()
		kind := numbering.KindSales
		status := voucher.StatusConfirmed

		rows := sqlmock.NewRows(voucherColumns()).
			AddRow(uuid.New(), tenantID, "SLV/25-26/07/000002", "user", ownerID, "sales", time.Now(), "Customer A", decimal.NewFromInt(900), "CONFIRMED", 1).
			AddRow(uuid.New(), tenantID, "SLV/25-26/07/000001", "user", ownerID, "sales", time.Now(), "Customer B", decimal.NewFromInt(450), "CONFIRMED", 1)

		mock.ExpectQuery(`SELECT \* FROM "vouchers" WHERE tenant_id = \$1 AND owner_id = \$2 AND voucher_kind = \$3 AND status = \$4 ORDER BY voucher_date DESC, voucher_number DESC LIMIT .* OFFSET .*`).
			WithArgs(tenantID, ownerID, kind, status, 20, 20).
			WillReturnRows(rows)

		vouchers, err := repo.FindAllForTenant(context.Background(), tenantID, voucher.VoucherFilter{
			Filter:  shared.Filter{Page: 2, PageSize: 20},
			OwnerID: &ownerID,
			Kind:    &kind,
			Status:  &status,
		})

		assert.NoError(t, err)
		assert.Len(t, vouchers, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormVoucherRepository_ExistsByVoucherNumber(t *testing.T) {
	t.Run("reports taken number", func(t *testing.T) {
		repo, mock, mockDB := newMockVoucherRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "vouchers" WHERE tenant_id = \$1 AND voucher_number = \$2`).
			WithArgs(tenantID, "JV/25-26/01/000003").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsByVoucherNumber(context.Background(), tenantID, "JV/25-26/01/000003")

		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormVoucherRepository_Save(t *testing.T) {
	t.Run("duplicate voucher number surfaces as duplicate submission", func(t *testing.T) {
		repo, mock, mockDB := newMockVoucherRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		ownerID := uuid.New()
		v, err := voucher.NewVoucher(tenantID, "PV/25-26/07/000001", numbering.OwnerUser, ownerID,
			numbering.KindPayment, time.Now(), "Acme Supplies", decimal.NewFromInt(100), "")
		require.NoError(t, err)

		// Save on a populated primary key updates first, then creates on zero rows
		mock.ExpectExec(`UPDATE "vouchers" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO "vouchers"`).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err = repo.Save(context.Background(), v)

		assert.ErrorIs(t, err, shared.ErrDuplicateSubmission)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormVoucherRepository_SaveWithLock(t *testing.T) {
	t.Run("version mismatch fails the save", func(t *testing.T) {
		repo, mock, mockDB := newMockVoucherRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		ownerID := uuid.New()
		v, err := voucher.NewVoucher(tenantID, "PV/25-26/07/000002", numbering.OwnerUser, ownerID,
			numbering.KindPayment, time.Now(), "Acme Supplies", decimal.NewFromInt(100), "")
		require.NoError(t, err)
		v.Version = 2

		mock.ExpectExec(`UPDATE "vouchers" SET .* WHERE .*id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.SaveWithLock(context.Background(), v)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "optimistic lock")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
