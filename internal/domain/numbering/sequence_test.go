package numbering

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validScope() ScopeKey {
	return ScopeKey{
		TenantID:    uuid.New(),
		OwnerKind:   OwnerUser,
		OwnerID:     uuid.New(),
		VoucherKind: KindSales,
		FiscalYear:  "25-26",
		FiscalMonth: 7,
	}
}

func TestScopeKeyValidate(t *testing.T) {
	t.Run("accepts a complete scope", func(t *testing.T) {
		assert.NoError(t, validScope().Validate())
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		cases := map[string]func(*ScopeKey){
			"nil tenant":      func(k *ScopeKey) { k.TenantID = uuid.Nil },
			"bad owner kind":  func(k *ScopeKey) { k.OwnerKind = "robot" },
			"nil owner":       func(k *ScopeKey) { k.OwnerID = uuid.Nil },
			"empty kind":      func(k *ScopeKey) { k.VoucherKind = "" },
			"empty year":      func(k *ScopeKey) { k.FiscalYear = "" },
			"month too small": func(k *ScopeKey) { k.FiscalMonth = 0 },
			"month too large": func(k *ScopeKey) { k.FiscalMonth = 13 },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				key := validScope()
				mutate(&key)
				assert.Error(t, key.Validate())
			})
		}
	})
}

func TestNewSequenceCounter(t *testing.T) {
	key := validScope()
	row := NewSequenceCounter(key)

	require.NotEqual(t, uuid.Nil, row.ID)
	assert.EqualValues(t, 0, row.CurrentNo)
	assert.Equal(t, key, row.Scope())
}
