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

// MovementRecorderUseCase registra movimientos de stock de forma transaccional: bloquea el lote
// (SELECT FOR UPDATE), calcula las nuevas bolsas, inserta el movimiento y escribe las bolsas
// antes del Commit. Un rechazo no deja rastro.
type MovementRecorderUseCase struct {
	txRunner repository.TxRunner
	store    repository.Store
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      Clock
}

// NewMovementRecorderUseCase construye el caso de uso.
func NewMovementRecorderUseCase(txRunner repository.TxRunner, store repository.Store, log *logger.Logger, m *metrics.Metrics) *MovementRecorderUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &MovementRecorderUseCase{
		txRunner: txRunner,
		store:    store,
		log:      log.Component("movement_recorder"),
		metrics:  m,
		now:      time.Now,
	}
}

// RecordInput entrada para registrar un movimiento.
type RecordInput struct {
	BatchID  string
	Type     string
	Quantity decimal.Decimal
	Reason   string
	ActorID  string
	Notes    string
}

// RecordResult devuelve el movimiento creado y las bolsas resultantes del lote.
type RecordResult struct {
	Movement *entity.Movement
	Pools    inventory.Pools
}

// Record valida el tipo y la cantidad, aplica el movimiento al lote y lo deja registrado.
// ENTRADA suma a la bolsa cerrada; los demás tipos consumen primero la bolsa en uso.
func (uc *MovementRecorderUseCase) Record(ctx context.Context, in RecordInput) (_ *RecordResult, err error) {
	ctx, span := startSpan(ctx, "MovementRecorder.Record",
		attribute.String("batch.id", in.BatchID),
		attribute.String("movement.type", in.Type),
	)
	defer func() {
		if err != nil {
			uc.metrics.MovementRejected(rejectionReason(err))
		}
		endSpan(span, err)
	}()

	movementType, ok := entity.ParseMovementType(in.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidType, in.Type)
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	if err := inventory.CheckQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if in.BatchID == "" {
		return nil, fmt.Errorf("%w: lote obligatorio", domain.ErrInvalidInput)
	}

	var result RecordResult
	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		batch, err := s.Batches.GetForUpdate(ctx, in.BatchID)
		if err != nil {
			return err
		}
		next, err := inventory.ApplyMovement(movementType, inventory.Pools{Closed: batch.ClosedQuantity, InUse: batch.InUseQuantity}, in.Quantity)
		if err != nil {
			return err
		}

		batchID := batch.ID
		movement := &entity.Movement{
			ID:        uuid.New().String(),
			BatchID:   &batchID,
			Type:      movementType,
			Quantity:  in.Quantity,
			Reason:    in.Reason,
			UserID:    in.ActorID,
			Notes:     in.Notes,
			CreatedAt: uc.now(),
		}
		if err := s.Movements.Create(ctx, movement); err != nil {
			return err
		}
		if err := s.Batches.UpdateQuantities(ctx, batch.ID, next.Closed, next.InUse); err != nil {
			return err
		}
		result = RecordResult{Movement: movement, Pools: next}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.MovementRecorded(string(movementType))
	uc.log.Info().
		Str("movement_id", result.Movement.ID).
		Str("batch_id", in.BatchID).
		Str("type", string(movementType)).
		Str("quantity", in.Quantity.String()).
		Str("user_id", in.ActorID).
		Msg("movimiento registrado")
	return &result, nil
}

// List devuelve movimientos filtrados, más recientes primero.
func (uc *MovementRecorderUseCase) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.MovementView, error) {
	if filter.Type != "" {
		if !filter.Type.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidType, filter.Type)
		}
	}
	return uc.store.Movements.List(ctx, filter)
}

// ListByBatch devuelve el historial de un lote existente.
func (uc *MovementRecorderUseCase) ListByBatch(ctx context.Context, batchID string) ([]*entity.MovementView, error) {
	if _, err := uc.store.Batches.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return uc.store.Movements.List(ctx, repository.MovementFilter{BatchID: batchID})
}
