package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

func TestInventoryItem_RecordCount_Diferencia(t *testing.T) {
	cases := []struct {
		system, counted, want string
	}{
		{"10", "12", "2"},
		{"10", "7", "-3"},
		{"10", "10", "0"},
		{"10.5", "9.8", "-0.7"},
	}
	for _, tc := range cases {
		item := entity.InventoryItem{SystemQuantity: decimal.RequireFromString(tc.system)}
		diff := item.RecordCount(decimal.RequireFromString(tc.counted), "ok")
		assert.True(t, diff.Equal(decimal.RequireFromString(tc.want)), "%s-%s = %s", tc.counted, tc.system, diff)
		require.NotNil(t, item.Difference)
		assert.True(t, item.Difference.Equal(diff))
		assert.True(t, item.Counted())
		assert.Equal(t, "ok", item.Notes)
	}
}

func TestParseMovementType(t *testing.T) {
	for _, s := range []string{"ENTRADA", "SAIDA", "DOACAO", "EMPRESTIMO", "VENCIMENTO", "AJUSTE"} {
		typ, ok := entity.ParseMovementType(s)
		assert.True(t, ok, s)
		assert.Equal(t, entity.MovementType(s), typ)
	}
	for _, s := range []string{"", "INVALIDO", "ABERTURA", "FINALIZACAO", "EXCLUSAO", "entrada"} {
		_, ok := entity.ParseMovementType(s)
		assert.False(t, ok, s)
	}
	assert.Len(t, entity.RecordableMovementTypes, 6)
}

func TestProductStock_BelowMinimum(t *testing.T) {
	p := entity.ProductStock{
		Product:        entity.Product{MinimumStock: decimal.NewFromInt(10)},
		ClosedQuantity: decimal.NewFromInt(8),
		InUseQuantity:  decimal.NewFromInt(2),
	}
	assert.False(t, p.BelowMinimum(), "igual al mínimo no alerta")
	p.InUseQuantity = decimal.NewFromInt(1)
	assert.True(t, p.BelowMinimum())
}

func TestValidStorageCondition(t *testing.T) {
	assert.True(t, entity.ValidStorageCondition(entity.StorageAmbient))
	assert.True(t, entity.ValidStorageCondition("2°C-8°C"))
	assert.True(t, entity.ValidStorageCondition("−20°C"))
	assert.False(t, entity.ValidStorageCondition("-20°C"), "el guion ASCII no es la condición registrada")
}
