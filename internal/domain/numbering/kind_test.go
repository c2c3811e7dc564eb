package numbering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixFor(t *testing.T) {
	t.Run("registered kinds use the fixed table", func(t *testing.T) {
		assert.Equal(t, "PV", PrefixFor(KindPayment))
		assert.Equal(t, "PRV", PrefixFor(KindPurchase))
		assert.Equal(t, "SLV", PrefixFor(KindSales))
		assert.Equal(t, "RV", PrefixFor(KindReceipt))
		assert.Equal(t, "CV", PrefixFor(KindContra))
		assert.Equal(t, "JV", PrefixFor(KindJournal))
	})

	t.Run("unregistered kind falls back to upper-cased kind", func(t *testing.T) {
		assert.Equal(t, "UNKNOWN-KIND", PrefixFor(VoucherKind("unknown-kind")))
	})

	t.Run("fallback never errors", func(t *testing.T) {
		assert.Equal(t, "", PrefixFor(VoucherKind("")))
		assert.False(t, VoucherKind("expense").IsRegistered())
		assert.True(t, KindJournal.IsRegistered())
	})
}

func TestOwnerKindIsValid(t *testing.T) {
	assert.True(t, OwnerUser.IsValid())
	assert.True(t, OwnerEmployee.IsValid())
	assert.False(t, OwnerKind("admin").IsValid())
	assert.False(t, OwnerKind("").IsValid())
}
