package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/inventory"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
	"github.com/jhoicas/labinventario-api/pkg/logger"
	"github.com/jhoicas/labinventario-api/pkg/metrics"
)

// DefaultItemTimeout es el plazo de cada ítem al finalizar si no se configura otro.
const DefaultItemTimeout = 30 * time.Second

// FinalizeUseCase cierra una sesión: ajusta cada lote contado a su conteo físico, registra un
// movimiento AJUSTE por cada lote que cambió y sella la sesión.
type FinalizeUseCase struct {
	txRunner    repository.TxRunner
	workers     int
	itemTimeout time.Duration
	slots       *semaphore.Weighted
	log         *logger.Logger
	metrics     *metrics.Metrics
	now         Clock
}

// NewFinalizeUseCase construye el caso de uso. workers limita los ítems conciliados en paralelo.
func NewFinalizeUseCase(txRunner repository.TxRunner, workers int, log *logger.Logger, m *metrics.Metrics) *FinalizeUseCase {
	if log == nil {
		log = logger.Nop()
	}
	if workers < 1 {
		workers = 1
	}
	return &FinalizeUseCase{
		txRunner:    txRunner,
		workers:     workers,
		itemTimeout: DefaultItemTimeout,
		log:         log.Component("finalizer"),
		metrics:     m,
		now:         time.Now,
	}
}

// WithLimits fija el plazo de cada ítem y cuántas finalizaciones corren a la vez (0 = sin límite).
// Cada finalización retiene una conexión durante el cierre y abre hasta workers más.
func (uc *FinalizeUseCase) WithLimits(itemTimeout time.Duration, maxConcurrent int) *FinalizeUseCase {
	if itemTimeout > 0 {
		uc.itemTimeout = itemTimeout
	}
	uc.slots = nil
	if maxConcurrent > 0 {
		uc.slots = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return uc
}

// ItemFailure es un ítem que no pudo conciliarse. La sesión se sella igualmente.
type ItemFailure struct {
	ItemID  string
	BatchID string
	Err     error
}

// FinalizeResult resume el cierre.
type FinalizeResult struct {
	SessionID string
	// AlreadyFinalized indica que la sesión ya estaba sellada y no se tocó nada.
	AlreadyFinalized bool
	Adjusted         int
	Unchanged        int
	Failures         []ItemFailure
}

type itemOutcome struct {
	result string
	err    error
}

// Finalize concilia los ítems contados de la sesión y la sella. Es idempotente: una segunda
// llamada (o una concurrente, que espera el bloqueo de la sesión) devuelve AlreadyFinalized.
// Una vez tomado el bloqueo el cierre no se interrumpe aunque el llamador cancele; cada ítem tiene
// su propio plazo y el que lo agota cuenta como fallido.
func (uc *FinalizeUseCase) Finalize(ctx context.Context, sessionID, actorID string) (_ *FinalizeResult, err error) {
	ctx, span := startSpan(ctx, "Finalizer.Finalize", attribute.String("session.id", sessionID))
	defer func() { endSpan(span, err) }()

	if uc.slots != nil {
		if err := uc.slots.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("%w: esperar turno de finalización: %w", domain.ErrStorage, err)
		}
		defer uc.slots.Release(1)
	}

	start := uc.now()
	result := FinalizeResult{SessionID: sessionID}

	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		session, err := s.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Finalized {
			result.AlreadyFinalized = true
			return nil
		}

		work := context.WithoutCancel(ctx)
		items, err := s.Items.ListCounted(work, sessionID)
		if err != nil {
			return err
		}

		itemCtx, cancel := context.WithTimeout(work, uc.itemTimeout)
		outcomes := uc.reconcileAll(itemCtx, sessionID, actorID, items)
		cancel()
		for i, o := range outcomes {
			uc.metrics.FinalizeItem(o.result)
			switch o.result {
			case metrics.ItemAdjusted:
				result.Adjusted++
			case metrics.ItemUnchanged:
				result.Unchanged++
			default:
				result.Failures = append(result.Failures, ItemFailure{ItemID: items[i].ID, BatchID: items[i].BatchID, Err: o.err})
				uc.log.Error().Err(o.err).
					Str("session_id", sessionID).
					Str("item_id", items[i].ID).
					Str("batch_id", items[i].BatchID).
					Msg("no se pudo ajustar el lote")
			}
		}

		sealed, err := s.Sessions.MarkFinalized(work, sessionID, uc.now())
		if err != nil {
			return err
		}
		if !sealed {
			return fmt.Errorf("%w: sesión %s", domain.ErrNotFound, sessionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyFinalized {
		uc.log.Info().Str("session_id", sessionID).Msg("inventario ya finalizado")
		return &result, nil
	}

	uc.metrics.FinalizeObserved(uc.now().Sub(start))
	span.SetAttributes(
		attribute.Int("finalize.adjusted", result.Adjusted),
		attribute.Int("finalize.unchanged", result.Unchanged),
		attribute.Int("finalize.failed", len(result.Failures)),
	)
	uc.log.Info().
		Str("session_id", sessionID).
		Str("user_id", actorID).
		Int("adjusted", result.Adjusted).
		Int("unchanged", result.Unchanged).
		Int("failed", len(result.Failures)).
		Msg("inventario finalizado")
	return &result, nil
}

// reconcileAll concilia los ítems con a lo sumo uc.workers transacciones simultáneas.
// Cada ítem es independiente: un fallo no detiene a los demás.
func (uc *FinalizeUseCase) reconcileAll(ctx context.Context, sessionID, actorID string, items []*entity.InventoryItem) []itemOutcome {
	outcomes := make([]itemOutcome, len(items))
	var g errgroup.Group
	g.SetLimit(uc.workers)
	for i, item := range items {
		g.Go(func() error {
			result, err := uc.reconcileItem(ctx, sessionID, actorID, item)
			if err != nil {
				outcomes[i] = itemOutcome{result: metrics.ItemFailed, err: err}
				return nil
			}
			outcomes[i] = itemOutcome{result: result}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// reconcileItem ajusta un lote en su propia transacción. Las bolsas se leen bajo bloqueo: el
// ajuste se calcula contra el total vivo, no contra la foto. Si el lote solo cambió desde la foto
// (delta 0) igualmente colapsa a la bolsa cerrada y queda un AJUSTE de cantidad 0.
func (uc *FinalizeUseCase) reconcileItem(ctx context.Context, sessionID, actorID string, item *entity.InventoryItem) (result string, err error) {
	ctx, span := startSpan(ctx, "Finalizer.ReconcileItem",
		attribute.String("item.id", item.ID),
		attribute.String("batch.id", item.BatchID),
	)
	defer func() { endSpan(span, err) }()

	result = metrics.ItemUnchanged
	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		batch, err := s.Batches.GetForUpdate(ctx, item.BatchID)
		if err != nil {
			return err
		}
		live := inventory.Pools{Closed: batch.ClosedQuantity, InUse: batch.InUseQuantity}
		adj := inventory.Reconcile(live, item.SystemQuantity, item.CountedQuantity)
		if !adj.Changed {
			return nil
		}
		if err := s.Batches.UpdateQuantities(ctx, batch.ID, adj.Closed, adj.InUse); err != nil {
			return err
		}
		batchID := batch.ID
		movement := &entity.Movement{
			ID:        uuid.New().String(),
			BatchID:   &batchID,
			Type:      entity.MovementAjuste,
			Quantity:  adj.Delta.Abs(),
			Reason:    fmt.Sprintf("Ajuste de inventário #%s", sessionID),
			UserID:    actorID,
			Notes:     fmt.Sprintf("sistema %s, contado %s", live.Total().String(), item.CountedQuantity.String()),
			CreatedAt: uc.now(),
		}
		if err := s.Movements.Create(ctx, movement); err != nil {
			return err
		}
		result = metrics.ItemAdjusted
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
