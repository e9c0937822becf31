package inventory_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labinventario-api/internal/application/inventory"
	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
	"github.com/jhoicas/labinventario-api/internal/infrastructure/memory"
)

// countSession crea una sesión y registra los conteos indicados por lote.
func countSession(t *testing.T, f *fixture, counts map[string]string) string {
	t.Helper()
	ctx := context.Background()
	res, err := f.snapshot.CreateSession(ctx, "u-1", "")
	require.NoError(t, err)
	detail, err := f.snapshot.GetSession(ctx, res.Session.ID)
	require.NoError(t, err)
	for _, it := range detail.Items {
		if c, ok := counts[it.BatchID]; ok {
			_, err := f.snapshot.RecordCount(ctx, it.ID, dec(c), "")
			require.NoError(t, err)
		}
	}
	return res.Session.ID
}

func TestFinalize_EscenarioCompleto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "10", "5")

	res, err := f.snapshot.CreateSession(ctx, "u-1", "")
	require.NoError(t, err)
	detail, err := f.snapshot.GetSession(ctx, res.Session.ID)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.True(t, detail.Items[0].SystemQuantity.Equal(dec("15")))

	item, err := f.snapshot.RecordCount(ctx, detail.Items[0].ID, dec("12"), "")
	require.NoError(t, err)
	assert.True(t, item.Difference.Equal(dec("-3")))

	result, err := f.finalizer.Finalize(ctx, res.Session.ID, "u-2")
	require.NoError(t, err)
	assert.False(t, result.AlreadyFinalized)
	assert.Equal(t, 1, result.Adjusted)
	assert.Empty(t, result.Failures)

	got := f.reload(t, b.ID)
	assert.True(t, got.ClosedQuantity.Equal(dec("12")))
	assert.True(t, got.InUseQuantity.IsZero())

	ajustes := f.movements(t, repository.MovementFilter{Type: entity.MovementAjuste})
	require.Len(t, ajustes, 1)
	assert.True(t, ajustes[0].Quantity.Equal(dec("3")))
	assert.Equal(t, "Ajuste de inventário #"+res.Session.ID, ajustes[0].Reason)
	assert.Equal(t, "u-2", ajustes[0].UserID)

	detail, err = f.snapshot.GetSession(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.True(t, detail.Session.Finalized)
	assert.NotNil(t, detail.Session.FinalizedAt)
}

func TestFinalize_AjustaContraTotalVivo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "10", "0")
	sessionID := countSession(t, f, map[string]string{b.ID: "9"})

	// Movimiento posterior a la foto: el ajuste se mide contra 6, no contra 10.
	_, err := record(f, b.ID, "SAIDA", "4")
	require.NoError(t, err)

	_, err = f.finalizer.Finalize(ctx, sessionID, "u-1")
	require.NoError(t, err)

	assert.True(t, f.reload(t, b.ID).ClosedQuantity.Equal(dec("9")))
	ajustes := f.movements(t, repository.MovementFilter{Type: entity.MovementAjuste})
	require.Len(t, ajustes, 1)
	assert.True(t, ajustes[0].Quantity.Equal(dec("3")))
}

func TestFinalize_SinCambiosNoEscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	counted := f.batch(t, "p-1", "L-1", "4", "2")
	uncounted := f.batch(t, "p-1", "L-2", "1", "1")
	sessionID := countSession(t, f, map[string]string{counted.ID: "6"})

	result, err := f.finalizer.Finalize(ctx, sessionID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Adjusted)
	assert.Equal(t, 1, result.Unchanged)

	got := f.reload(t, counted.ID)
	assert.True(t, got.ClosedQuantity.Equal(dec("4")))
	assert.True(t, got.InUseQuantity.Equal(dec("2")))
	assert.True(t, f.reload(t, uncounted.ID).InUseQuantity.Equal(dec("1")))
	assert.Empty(t, f.movements(t, repository.MovementFilter{Type: entity.MovementAjuste}))
}

func TestFinalize_ConteoIgualPeroLoteMovidoColapsa(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "8", "2")
	sessionID := countSession(t, f, map[string]string{b.ID: "9"})
	_, err := record(f, b.ID, "SAIDA", "1")
	require.NoError(t, err)

	result, err := f.finalizer.Finalize(ctx, sessionID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Adjusted)

	got := f.reload(t, b.ID)
	assert.True(t, got.ClosedQuantity.Equal(dec("9")))
	assert.True(t, got.InUseQuantity.IsZero())
	ajustes := f.movements(t, repository.MovementFilter{Type: entity.MovementAjuste})
	require.Len(t, ajustes, 1)
	assert.True(t, ajustes[0].Quantity.IsZero())
}

func TestFinalize_Idempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "10", "0")
	sessionID := countSession(t, f, map[string]string{b.ID: "7"})

	first, err := f.finalizer.Finalize(ctx, sessionID, "u-1")
	require.NoError(t, err)
	assert.False(t, first.AlreadyFinalized)

	// Un movimiento posterior no se revierte con un segundo cierre.
	_, err = record(f, b.ID, "ENTRADA", "5")
	require.NoError(t, err)

	second, err := f.finalizer.Finalize(ctx, sessionID, "u-1")
	require.NoError(t, err)
	assert.True(t, second.AlreadyFinalized)
	assert.True(t, f.reload(t, b.ID).Total().Equal(dec("12")))
	assert.Len(t, f.movements(t, repository.MovementFilter{Type: entity.MovementAjuste}), 1)
}

func TestFinalize_ConcurrenteSoloUnoConcilia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "10", "0")
	sessionID := countSession(t, f, map[string]string{b.ID: "4"})

	const callers = 6
	results := make([]*inventory.FinalizeResult, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.finalizer.Finalize(ctx, sessionID, "u-1")
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	sealed := 0
	for _, r := range results {
		require.NotNil(t, r)
		if !r.AlreadyFinalized {
			sealed++
		}
	}
	assert.Equal(t, 1, sealed)
	assert.True(t, f.reload(t, b.ID).Total().Equal(dec("4")))
	assert.Len(t, f.movements(t, repository.MovementFilter{Type: entity.MovementAjuste}), 1)
}

func TestFinalize_SesionInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.finalizer.Finalize(context.Background(), "no-existe", "u-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFinalize_MuchosItemsEnParalelo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	counts := map[string]string{}
	var ids []string
	for i := range 40 {
		b := f.batch(t, "p-1", "L-"+strings.Repeat("x", i+1), "10", "2")
		counts[b.ID] = "11"
		ids = append(ids, b.ID)
	}
	sessionID := countSession(t, f, counts)

	result, err := f.finalizer.Finalize(ctx, sessionID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 40, result.Adjusted)

	for _, id := range ids {
		got := f.reload(t, id)
		assert.True(t, got.ClosedQuantity.Equal(dec("11")))
		assert.True(t, got.InUseQuantity.IsZero())
	}

	expected := `
# HELP labinventario_inventory_finalize_items_total Ítems procesados al finalizar inventarios por resultado.
# TYPE labinventario_inventory_finalize_items_total counter
labinventario_inventory_finalize_items_total{result="adjusted"} 40
`
	assert.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "labinventario_inventory_finalize_items_total"))
}

// movementGate decide por lote si la escritura del movimiento falla.
type movementGate struct {
	mock.Mock
}

func (g *movementGate) Allow(batchID string) error {
	return g.Called(batchID).Error(0)
}

type gatedMovements struct {
	repository.MovementRepository
	gate *movementGate
}

func (r gatedMovements) Create(ctx context.Context, m *entity.Movement) error {
	if m.BatchID != nil {
		if err := r.gate.Allow(*m.BatchID); err != nil {
			return err
		}
	}
	return r.MovementRepository.Create(ctx, m)
}

type gatedRunner struct {
	db   *memory.DB
	gate *movementGate
}

func (r gatedRunner) Run(ctx context.Context, fn func(store repository.Store) error) error {
	return r.db.Run(ctx, func(s repository.Store) error {
		s.Movements = gatedMovements{MovementRepository: s.Movements, gate: r.gate}
		return fn(s)
	})
}

func TestFinalize_FalloPorItemNoImpideSellar(t *testing.T) {
	db := seededDB()
	gate := &movementGate{}
	f := newFixtureWith(t, db, gatedRunner{db: db, gate: gate})
	ctx := context.Background()

	good := f.batch(t, "p-1", "L-1", "10", "0")
	bad := f.batch(t, "p-1", "L-2", "10", "3")
	sessionID := countSession(t, f, map[string]string{good.ID: "8", bad.ID: "1"})

	diskFull := errors.New("disco lleno")
	gate.On("Allow", bad.ID).Return(diskFull).Once()
	gate.On("Allow", mock.Anything).Return(nil)

	result, err := f.finalizer.Finalize(ctx, sessionID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Adjusted)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, bad.ID, result.Failures[0].BatchID)
	assert.ErrorIs(t, result.Failures[0].Err, diskFull)

	// El ítem fallido no deja el lote a medias.
	failed := f.reload(t, bad.ID)
	assert.True(t, failed.ClosedQuantity.Equal(dec("10")))
	assert.True(t, failed.InUseQuantity.Equal(dec("3")))
	assert.True(t, f.reload(t, good.ID).ClosedQuantity.Equal(dec("8")))

	detail, err := f.snapshot.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, detail.Session.Finalized)

	gate.AssertCalled(t, "Allow", bad.ID)
	gate.AssertCalled(t, "Allow", good.ID)
}

func TestFinalize_ItemBloqueadoAgotaSuPlazo(t *testing.T) {
	f := newFixture(t)
	f.finalizer.WithLimits(50*time.Millisecond, 1)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "10", "0")
	sessionID := countSession(t, f, map[string]string{b.ID: "7"})

	// Otra transacción retiene el lote más allá del plazo del ítem.
	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- f.db.Run(ctx, func(s repository.Store) error {
			if _, err := s.Batches.GetForUpdate(ctx, b.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	result, err := f.finalizer.Finalize(ctx, sessionID, "u-1")
	close(release)
	require.NoError(t, <-done)
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, domain.ErrStorage)
	assert.ErrorIs(t, result.Failures[0].Err, context.DeadlineExceeded)
	assert.True(t, f.reload(t, b.ID).ClosedQuantity.Equal(dec("10")))

	detail, err := f.snapshot.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, detail.Session.Finalized)
}

func TestFinalize_LimiteDeCierresSimultaneos(t *testing.T) {
	f := newFixture(t)
	f.finalizer.WithLimits(time.Second, 1)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "10", "0")

	first := countSession(t, f, map[string]string{b.ID: "9"})
	_, err := f.finalizer.Finalize(ctx, first, "u-1")
	require.NoError(t, err)

	// El turno se libera al terminar: un segundo cierre no queda esperando.
	second := countSession(t, f, map[string]string{b.ID: "8"})
	result, err := f.finalizer.Finalize(ctx, second, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Adjusted)
	assert.True(t, f.reload(t, b.ID).ClosedQuantity.Equal(dec("8")))
}
