package inventory_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labinventario-api/internal/application/inventory"
	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
	"github.com/jhoicas/labinventario-api/pkg/logger"
)

func TestCreate_TodoEnBolsaCerradaSinMovimiento(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, inventory.CreateBatchInput{ProductID: "p-1", LotNumber: " L-100 ", InitialQuantity: dec("12.5")})
	require.NoError(t, err)

	assert.Equal(t, "L-100", b.LotNumber)
	assert.True(t, b.ClosedQuantity.Equal(dec("12.5")))
	assert.True(t, b.InUseQuantity.IsZero())
	assert.False(t, b.Opened)
	assert.Equal(t, entity.StorageAmbient, b.StorageCondition)
	assert.Empty(t, f.movements(t, repository.MovementFilter{BatchID: b.ID}))
}

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   inventory.CreateBatchInput
		want error
	}{
		{"sin lote", inventory.CreateBatchInput{ProductID: "p-1", InitialQuantity: dec("1")}, domain.ErrInvalidInput},
		{"cantidad negativa", inventory.CreateBatchInput{ProductID: "p-1", LotNumber: "L", InitialQuantity: dec("-1")}, domain.ErrInvalidInput},
		{"almacenamiento desconocido", inventory.CreateBatchInput{ProductID: "p-1", LotNumber: "L", StorageCondition: "Estufa"}, domain.ErrInvalidInput},
		{"producto inexistente", inventory.CreateBatchInput{ProductID: "p-9", LotNumber: "L"}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Create(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreate_LoteDuplicadoPorProducto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.batch(t, "p-1", "L-100", "1", "0")

	_, err := f.ledger.Create(ctx, inventory.CreateBatchInput{ProductID: "p-1", LotNumber: "L-100", InitialQuantity: dec("2")})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = f.ledger.Create(ctx, inventory.CreateBatchInput{ProductID: "p-2", LotNumber: "L-100", InitialQuantity: dec("2")})
	assert.NoError(t, err)
}

func TestApplyQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-100", "10", "0")

	require.NoError(t, f.ledger.ApplyQuantities(ctx, b.ID, dec("4"), dec("6")))
	total, err := f.ledger.GetTotal(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("10")))

	assert.ErrorIs(t, f.ledger.ApplyQuantities(ctx, b.ID, dec("-1"), dec("0")), domain.ErrInvalidInput)
	assert.ErrorIs(t, f.ledger.ApplyQuantities(ctx, "no-existe", dec("1"), dec("0")), domain.ErrNotFound)

	got := f.reload(t, b.ID)
	assert.True(t, got.ClosedQuantity.Equal(dec("4")))
	assert.True(t, got.InUseQuantity.Equal(dec("6")))
}

func TestGetTotal_LoteInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.GetTotal(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpen_ReglasDeJustificacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.batch(t, "p-1", "L-1", "5", "0")
	second := f.batch(t, "p-1", "L-2", "5", "0")
	third := f.batch(t, "p-1", "L-3", "5", "0")
	other := f.batch(t, "p-2", "L-9", "5", "0")

	// Sin hermanos abiertos no hace falta justificación.
	opened, err := f.ledger.Open(ctx, first.ID, nil)
	require.NoError(t, err)
	assert.True(t, opened.Opened)
	assert.NotNil(t, opened.OpenedAt)
	assert.Nil(t, opened.OpeningJustification)

	_, err = f.ledger.Open(ctx, first.ID, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyOpen)

	_, err = f.ledger.Open(ctx, second.ID, nil)
	assert.ErrorIs(t, err, domain.ErrJustificationRequired)

	blank := "   "
	_, err = f.ledger.Open(ctx, second.ID, &blank)
	assert.ErrorIs(t, err, domain.ErrJustificationRequired)
	assert.False(t, f.reload(t, second.ID).Opened)

	reason := "Lote L-1 contaminado"
	opened, err = f.ledger.Open(ctx, second.ID, &reason)
	require.NoError(t, err)
	require.NotNil(t, opened.OpeningJustification)
	assert.Equal(t, reason, *opened.OpeningJustification)

	// La justificación siempre habilita, aunque haya varios abiertos.
	_, err = f.ledger.Open(ctx, third.ID, &reason)
	assert.NoError(t, err)

	// Otro producto no cuenta como hermano.
	_, err = f.ledger.Open(ctx, other.ID, nil)
	assert.NoError(t, err)

	_, err = f.ledger.Open(ctx, "no-existe", &reason)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransferToInUse_ConservaTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "10", "0")

	pools, err := f.ledger.TransferToInUse(ctx, b.ID, dec("2.5"))
	require.NoError(t, err)
	assert.True(t, pools.Closed.Equal(dec("7.5")))
	assert.True(t, pools.InUse.Equal(dec("2.5")))

	_, err = f.ledger.TransferToInUse(ctx, b.ID, dec("8"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, f.reload(t, b.ID).Total().Equal(dec("10")))
}

func TestConsumeInUse_RegistraSaidaYFinaliza(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "8", "2")

	_, err := f.ledger.ConsumeInUse(ctx, b.ID, dec("3"), "u-1", "")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Empty(t, f.movements(t, repository.MovementFilter{BatchID: b.ID}))

	pools, err := f.ledger.ConsumeInUse(ctx, b.ID, dec("2"), "u-1", "práctica 3")
	require.NoError(t, err)
	assert.True(t, pools.Closed.Equal(dec("8")))
	assert.True(t, pools.InUse.IsZero())
	assert.NotNil(t, f.reload(t, b.ID).FinishedAt)

	movs := f.movements(t, repository.MovementFilter{BatchID: b.ID})
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementSaida, movs[0].Type)
	assert.True(t, movs[0].Quantity.Equal(dec("2")))
}

func TestSetStorageConditionYLicitacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "1", "0")

	require.NoError(t, f.ledger.SetStorageCondition(ctx, b.ID, entity.StorageRefrigerated))
	require.NoError(t, f.ledger.SetToBeTendered(ctx, b.ID, true))
	assert.ErrorIs(t, f.ledger.SetStorageCondition(ctx, b.ID, "Estufa"), domain.ErrInvalidInput)

	got := f.reload(t, b.ID)
	assert.Equal(t, entity.StorageRefrigerated, got.StorageCondition)
	assert.True(t, got.ToBeTendered)
}

func TestDelete_RegistraExclusaoConTotalFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-77", "3", "1.5")

	require.NoError(t, f.ledger.Delete(ctx, b.ID, "u-1"))

	_, err := f.ledger.Get(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	movs := f.movements(t, repository.MovementFilter{Type: entity.MovementExclusao})
	require.Len(t, movs, 1)
	assert.Nil(t, movs[0].BatchID)
	assert.True(t, movs[0].Quantity.Equal(dec("4.5")))
	assert.Equal(t, "Lote excluído do sistema", movs[0].Reason)
	assert.Equal(t, "Lote L-77 removido", movs[0].Notes)

	assert.ErrorIs(t, f.ledger.Delete(ctx, b.ID, "u-1"), domain.ErrNotFound)
}

func TestListByProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.batch(t, "p-1", "L-1", "1", "0")
	f.batch(t, "p-1", "L-2", "1", "0")
	f.batch(t, "p-2", "L-3", "1", "0")

	list, err := f.ledger.ListByProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, b := range list {
		assert.Equal(t, "REA-001", b.ProductCode)
	}

	_, err = f.ledger.ListByProduct(ctx, "p-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_RechazaLoteEnInventarioAbierto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "4", "0")
	_, err := f.snapshot.CreateSession(ctx, "u-1", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.ledger.Delete(ctx, b.ID, "u-1"), domain.ErrInvalidInput)
	assert.True(t, f.reload(t, b.ID).ClosedQuantity.Equal(dec("4")))
	assert.Empty(t, f.movements(t, repository.MovementFilter{Type: entity.MovementExclusao}))
}

func TestDelete_ConservaItemsDeInventarioFinalizado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "4", "0")
	sessionID := countSession(t, f, map[string]string{b.ID: "3"})
	_, err := f.finalizer.Finalize(ctx, sessionID, "u-1")
	require.NoError(t, err)

	require.NoError(t, f.ledger.Delete(ctx, b.ID, "u-1"))

	detail, err := f.snapshot.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, detail.Session.Finalized)
	require.Len(t, detail.Items, 1)
	assert.Empty(t, detail.Items[0].BatchID)
	require.NotNil(t, detail.Items[0].CountedQuantity)
	assert.True(t, detail.Items[0].CountedQuantity.Equal(dec("3")))
	assert.True(t, detail.Items[0].SystemQuantity.Equal(dec("4")))
}

func TestCantidadesSubPrecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "10", "2")

	_, err := f.ledger.Create(ctx, inventory.CreateBatchInput{ProductID: "p-1", LotNumber: "L-2", InitialQuantity: dec("1.0001")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, f.ledger.ApplyQuantities(ctx, b.ID, dec("1.2345"), dec("0")), domain.ErrInvalidInput)
	_, err = f.ledger.TransferToInUse(ctx, b.ID, dec("0.0005"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.ledger.ConsumeInUse(ctx, b.ID, dec("0.0001"), "u-1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.recorder.Record(ctx, inventory.RecordInput{BatchID: b.ID, Type: "SAIDA", Quantity: dec("0.0001"), ActorID: "u-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Tres decimales, o ceros de más, sí se aceptan.
	_, err = f.ledger.TransferToInUse(ctx, b.ID, dec("0.5000"))
	require.NoError(t, err)
	got := f.reload(t, b.ID)
	assert.True(t, got.ClosedQuantity.Equal(dec("9.5")))
	assert.True(t, got.InUseQuantity.Equal(dec("2.5")))
}

func TestUpdateDetails_NoTocaLasBolsas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "6", "2")

	expires := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	requested := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	finished := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	updated, err := f.ledger.UpdateDetails(ctx, b.ID, inventory.BatchDetails{
		ExpiresAt:    &expires,
		Manufacturer: " Sigma-Aldrich ",
		FinishedAt:   &finished,
		RequestedAt:  &requested,
		Notes:        "Pedido a compras",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sigma-Aldrich", updated.Manufacturer)

	got := f.reload(t, b.ID)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(expires))
	require.NotNil(t, got.RequestedAt)
	assert.True(t, got.RequestedAt.Equal(requested))
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(finished))
	assert.Equal(t, "Sigma-Aldrich", got.Manufacturer)
	assert.Equal(t, "Pedido a compras", got.Notes)
	assert.True(t, got.ClosedQuantity.Equal(dec("6")))
	assert.True(t, got.InUseQuantity.Equal(dec("2")))
	assert.Empty(t, f.movements(t, repository.MovementFilter{BatchID: b.ID}))
}

func TestUpdateDetails_FechaDeAperturaSoloEnLoteAbierto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "1", "0")
	opened := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)

	_, err := f.ledger.UpdateDetails(ctx, b.ID, inventory.BatchDetails{OpenedAt: &opened})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.ledger.Open(ctx, b.ID, nil)
	require.NoError(t, err)
	_, err = f.ledger.UpdateDetails(ctx, b.ID, inventory.BatchDetails{OpenedAt: &opened})
	require.NoError(t, err)
	got := f.reload(t, b.ID)
	require.NotNil(t, got.OpenedAt)
	assert.True(t, got.OpenedAt.Equal(opened))
	assert.True(t, got.Opened)

	_, err = f.ledger.UpdateDetails(ctx, "no-existe", inventory.BatchDetails{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLog_ComponenteUnaSolaVez(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "info", Out: &buf})
	db := seededDB()
	ledger := inventory.NewBatchLedgerUseCase(db, db.Store(), log, nil)

	_, err := ledger.Create(context.Background(), inventory.CreateBatchInput{ProductID: "p-1", LotNumber: "L-1", InitialQuantity: dec("1")})
	require.NoError(t, err)

	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, `"component"`), line)
	assert.Contains(t, line, `"component":"batch_ledger"`)
}
