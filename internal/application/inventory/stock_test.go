package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

func TestBelowMinimum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.db.SeedProduct(entity.Product{ID: "p-3", Code: "REA-003", Description: "Acetona", UnitMeasure: "L", MinimumStock: dec("4")})
	f.db.SeedProduct(entity.Product{ID: "p-4", Code: "REA-004", Description: "Sin mínimo", UnitMeasure: "kg"})

	// p-1 mínimo 5: exactamente en el mínimo, no alerta.
	f.batch(t, "p-1", "L-1", "3", "2")
	// p-2 mínimo 20: 12 en dos lotes.
	f.batch(t, "p-2", "L-2", "10", "0")
	f.batch(t, "p-2", "L-3", "0", "2")
	// p-3 mínimo 4: sin lotes.

	alerts, err := f.stock.BelowMinimum(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, "REA-003", alerts[0].Code)
	assert.True(t, alerts[0].Total.IsZero())
	assert.True(t, alerts[0].Deficit.Equal(dec("4")))
	assert.Equal(t, 1, alerts[0].Priority)

	assert.Equal(t, "REA-002", alerts[1].Code)
	assert.True(t, alerts[1].ClosedQuantity.Equal(dec("10")))
	assert.True(t, alerts[1].InUseQuantity.Equal(dec("2")))
	assert.True(t, alerts[1].Deficit.Equal(dec("8")))
	assert.Equal(t, 2, alerts[1].Priority)
}

func TestConsolidated_SumaBolsasPorProducto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.batch(t, "p-1", "L-1", "3", "2")
	f.batch(t, "p-1", "L-2", "0.5", "0")

	lines, err := f.stock.Consolidated(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "REA-001", lines[0].Code)
	assert.True(t, lines[0].ClosedQuantity.Equal(dec("3.5")))
	assert.True(t, lines[0].InUseQuantity.Equal(dec("2")))
	assert.True(t, lines[0].Total.Equal(dec("5.5")))
	assert.Equal(t, 2, lines[0].BatchCount)
	assert.False(t, lines[0].BelowMinimum)

	// Producto sin lotes: todo en cero y bajo el mínimo.
	assert.Equal(t, "REA-002", lines[1].Code)
	assert.True(t, lines[1].Total.IsZero())
	assert.Equal(t, 0, lines[1].BatchCount)
	assert.True(t, lines[1].BelowMinimum)
}
