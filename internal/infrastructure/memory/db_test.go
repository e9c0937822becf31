package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unsafe"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
	"github.com/jhoicas/labinventario-api/internal/infrastructure/memory"
)

func seed(t *testing.T) (*memory.DB, *entity.Batch) {
	t.Helper()
	db := memory.NewDB()
	db.SeedProduct(entity.Product{ID: "p-1", Code: "REA-001", Description: "Ácido clorhídrico", UnitMeasure: "L"})
	b := entity.NewBatch("b-1", "p-1", "L-100", decimal.NewFromInt(10), nil, "Merck", time.Now())
	require.NoError(t, db.Store().Batches.Create(context.Background(), b))
	return db, b
}

func TestRun_RollbackDeshaceEscrituras(t *testing.T) {
	db, b := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Run(ctx, func(s repository.Store) error {
		require.NoError(t, s.Batches.UpdateQuantities(ctx, b.ID, decimal.NewFromInt(3), decimal.NewFromInt(2)))
		id := b.ID
		require.NoError(t, s.Movements.Create(ctx, &entity.Movement{BatchID: &id, Type: entity.MovementSaida, Quantity: decimal.NewFromInt(5), UserID: "u"}))
		require.NoError(t, s.Batches.Create(ctx, entity.NewBatch("b-2", "p-1", "L-200", decimal.NewFromInt(1), nil, "", time.Now())))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := db.Store().Batches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.ClosedQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, got.InUseQuantity.IsZero())

	_, err = db.Store().Batches.GetByID(ctx, "b-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	movs, err := db.Store().Movements.List(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, movs)
}

func TestRun_PanicDeshaceEscrituras(t *testing.T) {
	db, b := seed(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = db.Run(ctx, func(s repository.Store) error {
			_ = s.Batches.UpdateQuantities(ctx, b.ID, decimal.Zero, decimal.Zero)
			panic("fallo")
		})
	})

	got, err := db.Store().Batches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Total().Equal(decimal.NewFromInt(10)))
}

func TestGetForUpdate_SerializaTransacciones(t *testing.T) {
	db, b := seed(t)
	ctx := context.Background()

	locked := make(chan struct{})
	releaseFirst := make(chan struct{})
	firstDone := make(chan struct{})

	go func() {
		defer close(firstDone)
		_ = db.Run(ctx, func(s repository.Store) error {
			if _, err := s.Batches.GetForUpdate(ctx, b.ID); err != nil {
				return err
			}
			close(locked)
			<-releaseFirst
			return s.Batches.UpdateQuantities(ctx, b.ID, decimal.NewFromInt(7), decimal.Zero)
		})
	}()
	<-locked

	secondGot := make(chan decimal.Decimal, 1)
	go func() {
		_ = db.Run(ctx, func(s repository.Store) error {
			got, err := s.Batches.GetForUpdate(ctx, b.ID)
			if err != nil {
				return err
			}
			secondGot <- got.ClosedQuantity
			return nil
		})
	}()

	select {
	case <-secondGot:
		t.Fatal("la segunda transacción leyó sin esperar el bloqueo")
	case <-time.After(50 * time.Millisecond):
	}

	close(releaseFirst)
	<-firstDone
	select {
	case closed := <-secondGot:
		assert.True(t, closed.Equal(decimal.NewFromInt(7)), "ve el valor confirmado por la primera")
	case <-time.After(time.Second):
		t.Fatal("la segunda transacción no obtuvo el bloqueo")
	}
}

func TestGetForUpdate_RespetaCancelacion(t *testing.T) {
	db, b := seed(t)
	hold := make(chan struct{})
	locked := make(chan struct{})
	go func() {
		_ = db.Run(context.Background(), func(s repository.Store) error {
			_, _ = s.Batches.GetForUpdate(context.Background(), b.ID)
			close(locked)
			<-hold
			return nil
		})
	}()
	<-locked
	defer close(hold)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := db.Run(ctx, func(s repository.Store) error {
		_, err := s.Batches.GetForUpdate(ctx, b.ID)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBatchDelete_ReplicaClavesForaneas(t *testing.T) {
	db, b := seed(t)
	ctx := context.Background()
	store := db.Store()

	id := b.ID
	require.NoError(t, store.Movements.Create(ctx, &entity.Movement{BatchID: &id, Type: entity.MovementEntrada, Quantity: decimal.NewFromInt(1), UserID: "u"}))
	session := &entity.InventorySession{ID: "s-1", UserID: "u", CreatedAt: time.Now()}
	require.NoError(t, store.Sessions.Create(ctx, session))
	require.NoError(t, store.Items.Create(ctx, &entity.InventoryItem{ID: "i-1", SessionID: "s-1", BatchID: b.ID, SystemQuantity: decimal.NewFromInt(10)}))

	require.NoError(t, store.Batches.Delete(ctx, b.ID))

	movs, err := store.Movements.List(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Nil(t, movs[0].BatchID)

	it, err := store.Items.GetByID(ctx, "i-1")
	require.NoError(t, err)
	assert.Empty(t, it.BatchID)
	assert.True(t, it.SystemQuantity.Equal(decimal.NewFromInt(10)))
}

func TestBatchDelete_RollbackRestauraReferencias(t *testing.T) {
	db, b := seed(t)
	ctx := context.Background()
	require.NoError(t, db.Store().Sessions.Create(ctx, &entity.InventorySession{ID: "s-1", CreatedAt: time.Now()}))
	require.NoError(t, db.Store().Items.Create(ctx, &entity.InventoryItem{ID: "i-1", SessionID: "s-1", BatchID: b.ID}))

	boom := errors.New("boom")
	err := db.Run(ctx, func(s repository.Store) error {
		require.NoError(t, s.Batches.Delete(ctx, b.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	it, err := db.Store().Items.GetByID(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, it.BatchID)
}

func TestExistsInOpenSession(t *testing.T) {
	db, b := seed(t)
	ctx := context.Background()
	store := db.Store()
	require.NoError(t, store.Sessions.Create(ctx, &entity.InventorySession{ID: "s-1", CreatedAt: time.Now()}))
	require.NoError(t, store.Items.Create(ctx, &entity.InventoryItem{ID: "i-1", SessionID: "s-1", BatchID: b.ID}))

	open, err := store.Items.ExistsInOpenSession(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, open)

	_, err = store.Sessions.MarkFinalized(ctx, "s-1", time.Now())
	require.NoError(t, err)
	open, err = store.Items.ExistsInOpenSession(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestEscrituras_NoRetienenElIdentificadorDelLlamador(t *testing.T) {
	db, b := seed(t)
	ctx := context.Background()

	// Un identificador sin copia sobre un búfer que luego se reutiliza, como los parámetros de ruta.
	buf := []byte(b.ID)
	id := unsafe.String(&buf[0], len(buf))
	require.NoError(t, db.Store().Batches.UpdateQuantities(ctx, id, decimal.NewFromInt(3), decimal.NewFromInt(1)))
	copy(buf, strings.Repeat("x", len(buf)))

	got, err := db.Store().Batches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.True(t, got.ClosedQuantity.Equal(decimal.NewFromInt(3)))
}

func TestRestricciones_Unicidad(t *testing.T) {
	db, b := seed(t)
	ctx := context.Background()
	store := db.Store()

	dup := entity.NewBatch("b-x", b.ProductID, b.LotNumber, decimal.NewFromInt(1), nil, "", time.Now())
	assert.ErrorIs(t, store.Batches.Create(ctx, dup), domain.ErrDuplicate)

	orphan := entity.NewBatch("b-y", "no-existe", "L-1", decimal.NewFromInt(1), nil, "", time.Now())
	assert.ErrorIs(t, store.Batches.Create(ctx, orphan), domain.ErrNotFound)

	require.NoError(t, store.Sessions.Create(ctx, &entity.InventorySession{ID: "s-1", CreatedAt: time.Now()}))
	require.NoError(t, store.Items.Create(ctx, &entity.InventoryItem{ID: "i-1", SessionID: "s-1", BatchID: b.ID}))
	assert.ErrorIs(t, store.Items.Create(ctx, &entity.InventoryItem{ID: "i-2", SessionID: "s-1", BatchID: b.ID}), domain.ErrDuplicate)

	assert.ErrorIs(t, store.Batches.UpdateQuantities(ctx, b.ID, decimal.NewFromInt(-1), decimal.Zero), domain.ErrInvalidInput)
}

func TestMarkFinalized_UnaSolaVez(t *testing.T) {
	db := memory.NewDB()
	ctx := context.Background()
	require.NoError(t, db.Store().Sessions.Create(ctx, &entity.InventorySession{ID: "s-1", CreatedAt: time.Now()}))

	ok, err := db.Store().Sessions.MarkFinalized(ctx, "s-1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.Store().Sessions.MarkFinalized(ctx, "s-1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.Store().Sessions.MarkFinalized(ctx, "no-existe", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}
