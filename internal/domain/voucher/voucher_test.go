package voucher

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerkeep/backend/internal/domain/numbering"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVoucher(t *testing.T) *Voucher {
	t.Helper()
	v, err := NewVoucher(
		uuid.New(),
		"SLV/25-26/07/000001",
		numbering.OwnerUser,
		uuid.New(),
		numbering.KindSales,
		time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
		"Acme Traders",
		decimal.NewFromInt(1500),
		"July sale",
	)
	require.NoError(t, err)
	return v
}

func TestNewVoucher(t *testing.T) {
	t.Run("creates draft voucher", func(t *testing.T) {
		v := newTestVoucher(t)
		assert.Equal(t, StatusDraft, v.Status)
		assert.Equal(t, "SLV/25-26/07/000001", v.VoucherNumber)
		assert.Equal(t, 1, v.Version)
	})

	t.Run("rejects empty voucher number", func(t *testing.T) {
		_, err := NewVoucher(uuid.New(), "", numbering.OwnerUser, uuid.New(),
			numbering.KindSales, time.Now(), "Acme", decimal.NewFromInt(10), "")
		assert.Error(t, err)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewVoucher(uuid.New(), "SLV/25-26/07/000001", numbering.OwnerUser, uuid.New(),
			numbering.KindSales, time.Now(), "Acme", decimal.Zero, "")
		assert.Error(t, err)
	})

	t.Run("rejects unknown owner kind", func(t *testing.T) {
		_, err := NewVoucher(uuid.New(), "SLV/25-26/07/000001", numbering.OwnerKind("bot"), uuid.New(),
			numbering.KindSales, time.Now(), "Acme", decimal.NewFromInt(10), "")
		assert.Error(t, err)
	})
}

func TestVoucherConfirm(t *testing.T) {
	t.Run("confirms a draft voucher", func(t *testing.T) {
		v := newTestVoucher(t)
		userID := uuid.New()

		require.NoError(t, v.Confirm(userID))
		assert.Equal(t, StatusConfirmed, v.Status)
		assert.Equal(t, &userID, v.ConfirmedBy)
		assert.NotNil(t, v.ConfirmedAt)
		assert.Equal(t, 2, v.Version)
	})

	t.Run("cannot confirm twice", func(t *testing.T) {
		v := newTestVoucher(t)
		require.NoError(t, v.Confirm(uuid.New()))
		assert.Error(t, v.Confirm(uuid.New()))
	})
}

func TestVoucherCancel(t *testing.T) {
	t.Run("cancels a confirmed voucher with reason", func(t *testing.T) {
		v := newTestVoucher(t)
		require.NoError(t, v.Confirm(uuid.New()))

		require.NoError(t, v.Cancel(uuid.New(), "entered against wrong party"))
		assert.Equal(t, StatusCancelled, v.Status)
		assert.Equal(t, "entered against wrong party", v.CancelReason)
	})

	t.Run("requires a reason", func(t *testing.T) {
		v := newTestVoucher(t)
		assert.Error(t, v.Cancel(uuid.New(), ""))
	})

	t.Run("cannot cancel a cancelled voucher", func(t *testing.T) {
		v := newTestVoucher(t)
		require.NoError(t, v.Cancel(uuid.New(), "duplicate entry"))
		assert.Error(t, v.Cancel(uuid.New(), "again"))
	})

	t.Run("number stays on the cancelled voucher", func(t *testing.T) {
		v := newTestVoucher(t)
		require.NoError(t, v.Cancel(uuid.New(), "duplicate entry"))
		assert.Equal(t, "SLV/25-26/07/000001", v.VoucherNumber)
	})
}
