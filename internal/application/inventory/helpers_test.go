package inventory_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labinventario-api/internal/application/inventory"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
	"github.com/jhoicas/labinventario-api/internal/infrastructure/memory"
	"github.com/jhoicas/labinventario-api/pkg/logger"
	"github.com/jhoicas/labinventario-api/pkg/metrics"
)

type fixture struct {
	db        *memory.DB
	reg       *prometheus.Registry
	ledger    *inventory.BatchLedgerUseCase
	recorder  *inventory.MovementRecorderUseCase
	snapshot  *inventory.SnapshotUseCase
	finalizer *inventory.FinalizeUseCase
	stock     *inventory.StockUseCase
}

func seededDB() *memory.DB {
	db := memory.NewDB()
	db.SeedProduct(entity.Product{ID: "p-1", Code: "REA-001", Description: "Ácido clorhídrico 37%", UnitMeasure: "L", MinimumStock: dec("5")})
	db.SeedProduct(entity.Product{ID: "p-2", Code: "REA-002", Description: "Etanol absoluto", UnitMeasure: "L", MinimumStock: dec("20")})
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := seededDB()
	return newFixtureWith(t, db, db)
}

// newFixtureWith permite sustituir el TxRunner (inyección de fallos) manteniendo la misma base.
func newFixtureWith(t *testing.T, db *memory.DB, runner repository.TxRunner) *fixture {
	t.Helper()
	log := logger.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := db.Store()
	return &fixture{
		db:        db,
		reg:       reg,
		ledger:    inventory.NewBatchLedgerUseCase(runner, store, log, m),
		recorder:  inventory.NewMovementRecorderUseCase(runner, store, log, m),
		snapshot:  inventory.NewSnapshotUseCase(runner, store, log, m),
		finalizer: inventory.NewFinalizeUseCase(runner, 4, log, m),
		stock:     inventory.NewStockUseCase(store.Products),
	}
}

// batch crea un lote y deja sus bolsas en closed/inUse.
func (f *fixture) batch(t *testing.T, productID, lot, closed, inUse string) *entity.Batch {
	t.Helper()
	ctx := context.Background()
	b, err := f.ledger.Create(ctx, inventory.CreateBatchInput{
		ProductID:       productID,
		LotNumber:       lot,
		InitialQuantity: dec(closed).Add(dec(inUse)),
		Manufacturer:    "Merck",
	})
	require.NoError(t, err)
	require.NoError(t, f.ledger.ApplyQuantities(ctx, b.ID, dec(closed), dec(inUse)))
	return f.reload(t, b.ID)
}

func (f *fixture) reload(t *testing.T, batchID string) *entity.Batch {
	t.Helper()
	b, err := f.db.Store().Batches.GetByID(context.Background(), batchID)
	require.NoError(t, err)
	return b
}

func (f *fixture) movements(t *testing.T, filter repository.MovementFilter) []*entity.MovementView {
	t.Helper()
	list, err := f.recorder.List(context.Background(), filter)
	require.NoError(t, err)
	return list
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
