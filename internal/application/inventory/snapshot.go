package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/inventory"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
	"github.com/jhoicas/labinventario-api/pkg/logger"
	"github.com/jhoicas/labinventario-api/pkg/metrics"
)

// SnapshotUseCase crea sesiones de inventario (foto del total de cada lote) y gestiona sus ítems
// mientras la sesión siga abierta.
type SnapshotUseCase struct {
	txRunner repository.TxRunner
	store    repository.Store
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      Clock
}

// NewSnapshotUseCase construye el caso de uso.
func NewSnapshotUseCase(txRunner repository.TxRunner, store repository.Store, log *logger.Logger, m *metrics.Metrics) *SnapshotUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &SnapshotUseCase{
		txRunner: txRunner,
		store:    store,
		log:      log.Component("snapshot"),
		metrics:  m,
		now:      time.Now,
	}
}

// CreateSessionResult resultado de crear una sesión.
type CreateSessionResult struct {
	Session   *entity.InventorySession
	ItemCount int
}

// SessionDetail es una sesión con todos sus ítems.
type SessionDetail struct {
	Session *entity.InventorySession
	Items   []*entity.InventoryItemView
}

// CreateSession abre un ciclo de conciliación con un ítem por lote existente. La sesión y todos
// sus ítems se escriben en una transacción; sin lotes no se escribe nada (ErrNoBatches).
func (uc *SnapshotUseCase) CreateSession(ctx context.Context, actorID, notes string) (_ *CreateSessionResult, err error) {
	ctx, span := startSpan(ctx, "Snapshot.CreateSession")
	defer func() { endSpan(span, err) }()

	var result CreateSessionResult
	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		batches, err := s.Batches.ListForSnapshot(ctx)
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			return domain.ErrNoBatches
		}

		session := &entity.InventorySession{
			ID:        uuid.New().String(),
			UserID:    actorID,
			Notes:     notes,
			CreatedAt: uc.now(),
		}
		if err := s.Sessions.Create(ctx, session); err != nil {
			return err
		}

		items := make([]*entity.InventoryItem, 0, len(batches))
		for _, b := range batches {
			items = append(items, &entity.InventoryItem{
				ID:             uuid.New().String(),
				SessionID:      session.ID,
				BatchID:        b.ID,
				SystemQuantity: b.Total(),
			})
		}
		if err := s.Items.CreateMany(ctx, items); err != nil {
			return err
		}
		result = CreateSessionResult{Session: session, ItemCount: len(items)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("session.id", result.Session.ID), attribute.Int("session.items", result.ItemCount))
	uc.metrics.SessionCreated(result.ItemCount)
	uc.log.Info().Str("session_id", result.Session.ID).Int("items", result.ItemCount).Str("user_id", actorID).Msg("inventario creado")
	return &result, nil
}

// RecordCount registra el conteo físico de un ítem y devuelve la diferencia contra la foto.
// Una sesión finalizada no acepta conteos.
func (uc *SnapshotUseCase) RecordCount(ctx context.Context, itemID string, counted decimal.Decimal, notes string) (_ *entity.InventoryItem, err error) {
	ctx, span := startSpan(ctx, "Snapshot.RecordCount", attribute.String("item.id", itemID))
	defer func() { endSpan(span, err) }()

	if counted.IsNegative() {
		return nil, fmt.Errorf("%w: la cantidad contada no puede ser negativa", domain.ErrInvalidInput)
	}
	if err := inventory.CheckQuantity(counted); err != nil {
		return nil, err
	}

	var updated *entity.InventoryItem
	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		item, err := s.Items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if err := uc.ensureOpen(ctx, s, item.SessionID); err != nil {
			return err
		}
		item.RecordCount(counted, notes)
		if err := s.Items.UpdateCount(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveItem elimina un ítem de una sesión abierta.
func (uc *SnapshotUseCase) RemoveItem(ctx context.Context, itemID string) (err error) {
	ctx, span := startSpan(ctx, "Snapshot.RemoveItem", attribute.String("item.id", itemID))
	defer func() { endSpan(span, err) }()

	return uc.txRunner.Run(ctx, func(s repository.Store) error {
		item, err := s.Items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if err := uc.ensureOpen(ctx, s, item.SessionID); err != nil {
			return err
		}
		deleted, err := s.Items.Delete(ctx, itemID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrNotFound
		}
		return nil
	})
}

// AddBatchToSession agrega a una sesión abierta un lote que no tenía ítem (por ejemplo, creado
// después de la foto), con el total actual como cantidad del sistema.
func (uc *SnapshotUseCase) AddBatchToSession(ctx context.Context, sessionID, batchID string) (_ *entity.InventoryItem, err error) {
	ctx, span := startSpan(ctx, "Snapshot.AddBatchToSession",
		attribute.String("session.id", sessionID),
		attribute.String("batch.id", batchID),
	)
	defer func() { endSpan(span, err) }()

	var item *entity.InventoryItem
	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		if err := uc.ensureOpen(ctx, s, sessionID); err != nil {
			return err
		}
		batch, err := s.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		exists, err := s.Items.ExistsForBatch(ctx, sessionID, batchID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: el lote ya está en el inventario", domain.ErrDuplicate)
		}
		item = &entity.InventoryItem{
			ID:             uuid.New().String(),
			SessionID:      sessionID,
			BatchID:        batch.ID,
			SystemQuantity: batch.Total(),
		}
		return s.Items.Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ensureOpen bloquea la sesión en modo compartido y falla si ya está finalizada.
func (uc *SnapshotUseCase) ensureOpen(ctx context.Context, s repository.Store, sessionID string) error {
	session, err := s.Sessions.GetForShare(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Finalized {
		return domain.ErrSessionFinalized
	}
	return nil
}

// GetSession devuelve la sesión con sus ítems.
func (uc *SnapshotUseCase) GetSession(ctx context.Context, sessionID string) (*SessionDetail, error) {
	session, err := uc.store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items, err := uc.store.Items.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{Session: session, Items: items}, nil
}

// ListSessions devuelve las sesiones con su número de ítems, más recientes primero.
func (uc *SnapshotUseCase) ListSessions(ctx context.Context) ([]*entity.InventorySessionSummary, error) {
	return uc.store.Sessions.List(ctx)
}
