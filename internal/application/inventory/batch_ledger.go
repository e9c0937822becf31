package inventory

import (
	"context"
	"fmt"
	"strings"
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

// BatchLedgerUseCase es el único punto de acceso a las bolsas de un lote. Toda mutación bloquea
// la fila del lote (SELECT FOR UPDATE) dentro de una transacción.
type BatchLedgerUseCase struct {
	txRunner repository.TxRunner
	store    repository.Store
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      Clock
}

// NewBatchLedgerUseCase construye el caso de uso. store se usa para lecturas fuera de transacción.
func NewBatchLedgerUseCase(txRunner repository.TxRunner, store repository.Store, log *logger.Logger, m *metrics.Metrics) *BatchLedgerUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &BatchLedgerUseCase{
		txRunner: txRunner,
		store:    store,
		log:      log.Component("batch_ledger"),
		metrics:  m,
		now:      time.Now,
	}
}

// CreateBatchInput datos para dar de alta un lote.
type CreateBatchInput struct {
	ProductID        string
	LotNumber        string
	InitialQuantity  decimal.Decimal
	ExpiresAt        *time.Time
	Manufacturer     string
	StorageCondition string
	Notes            string
}

// Create da de alta un lote con toda la cantidad inicial en la bolsa cerrada.
func (uc *BatchLedgerUseCase) Create(ctx context.Context, in CreateBatchInput) (_ *entity.Batch, err error) {
	ctx, span := startSpan(ctx, "BatchLedger.Create", attribute.String("product.id", in.ProductID))
	defer func() { endSpan(span, err) }()

	lot := strings.TrimSpace(in.LotNumber)
	if in.ProductID == "" || lot == "" {
		return nil, fmt.Errorf("%w: producto y número de lote son obligatorios", domain.ErrInvalidInput)
	}
	if in.InitialQuantity.IsNegative() {
		return nil, fmt.Errorf("%w: la cantidad inicial no puede ser negativa", domain.ErrInvalidInput)
	}
	if err := inventory.CheckQuantity(in.InitialQuantity); err != nil {
		return nil, err
	}
	if in.StorageCondition != "" && !entity.ValidStorageCondition(in.StorageCondition) {
		return nil, fmt.Errorf("%w: condición de almacenamiento %q", domain.ErrInvalidInput, in.StorageCondition)
	}
	if _, err := uc.store.Products.GetByID(ctx, in.ProductID); err != nil {
		return nil, err
	}

	batch := entity.NewBatch(uuid.New().String(), in.ProductID, lot, in.InitialQuantity, in.ExpiresAt, in.Manufacturer, uc.now())
	if in.StorageCondition != "" {
		batch.StorageCondition = in.StorageCondition
	}
	batch.Notes = in.Notes

	if err := uc.store.Batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	uc.log.Info().Str("batch_id", batch.ID).Str("lot", batch.LotNumber).Str("initial", batch.InitialQuantity.String()).Msg("lote creado")
	return batch, nil
}

// Get devuelve el lote con los datos de su producto.
func (uc *BatchLedgerUseCase) Get(ctx context.Context, batchID string) (*entity.BatchView, error) {
	return uc.store.Batches.GetView(ctx, batchID)
}

// List devuelve todos los lotes.
func (uc *BatchLedgerUseCase) List(ctx context.Context) ([]*entity.BatchView, error) {
	return uc.store.Batches.List(ctx)
}

// ListByProduct devuelve los lotes de un producto ordenados por vencimiento.
func (uc *BatchLedgerUseCase) ListByProduct(ctx context.Context, productID string) ([]*entity.BatchView, error) {
	if _, err := uc.store.Products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return uc.store.Batches.ListByProduct(ctx, productID)
}

// GetTotal devuelve cerrado + en uso.
func (uc *BatchLedgerUseCase) GetTotal(ctx context.Context, batchID string) (decimal.Decimal, error) {
	b, err := uc.store.Batches.GetByID(ctx, batchID)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Total(), nil
}

// ApplyQuantities sobrescribe las dos bolsas. El cálculo es responsabilidad del llamador;
// solo se rechazan valores negativos.
func (uc *BatchLedgerUseCase) ApplyQuantities(ctx context.Context, batchID string, closed, inUse decimal.Decimal) (err error) {
	ctx, span := startSpan(ctx, "BatchLedger.ApplyQuantities", attribute.String("batch.id", batchID))
	defer func() { endSpan(span, err) }()

	if closed.IsNegative() || inUse.IsNegative() {
		return fmt.Errorf("%w: las cantidades no pueden ser negativas", domain.ErrInvalidInput)
	}
	if err := inventory.CheckQuantity(closed, inUse); err != nil {
		return err
	}
	return uc.txRunner.Run(ctx, func(s repository.Store) error {
		if _, err := s.Batches.GetForUpdate(ctx, batchID); err != nil {
			return err
		}
		return s.Batches.UpdateQuantities(ctx, batchID, closed, inUse)
	})
}

// Open marca el lote como abierto. Sin justificación solo se permite si ningún otro lote del
// mismo producto está abierto. Una justificación en blanco cuenta como ausente.
func (uc *BatchLedgerUseCase) Open(ctx context.Context, batchID string, justification *string) (_ *entity.Batch, err error) {
	ctx, span := startSpan(ctx, "BatchLedger.Open", attribute.String("batch.id", batchID))
	defer func() { endSpan(span, err) }()

	var just *string
	if justification != nil {
		if j := strings.TrimSpace(*justification); j != "" {
			just = &j
		}
	}

	var opened *entity.Batch
	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		batch, err := s.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Opened {
			return domain.ErrAlreadyOpen
		}
		if just == nil {
			siblings, err := s.Batches.ListOpenByProduct(ctx, batch.ProductID, batch.ID)
			if err != nil {
				return err
			}
			if len(siblings) > 0 {
				return domain.ErrJustificationRequired
			}
		}
		now := uc.now()
		batch.Opened = true
		batch.OpenedAt = &now
		batch.OpeningJustification = just
		batch.UpdatedAt = now
		if err := s.Batches.Update(ctx, batch); err != nil {
			return err
		}
		opened = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("batch_id", batchID).Bool("justified", just != nil).Msg("lote abierto")
	return opened, nil
}

// TransferToInUse pasa quantity de la bolsa cerrada a la bolsa en uso (el total no cambia).
func (uc *BatchLedgerUseCase) TransferToInUse(ctx context.Context, batchID string, quantity decimal.Decimal) (_ inventory.Pools, err error) {
	ctx, span := startSpan(ctx, "BatchLedger.TransferToInUse", attribute.String("batch.id", batchID))
	defer func() { endSpan(span, err) }()

	var next inventory.Pools
	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		batch, err := s.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		next, err = inventory.Transfer(inventory.Pools{Closed: batch.ClosedQuantity, InUse: batch.InUseQuantity}, quantity)
		if err != nil {
			return err
		}
		return s.Batches.UpdateQuantities(ctx, batchID, next.Closed, next.InUse)
	})
	return next, err
}

// ConsumeInUse descuenta quantity solo de la bolsa en uso y registra una SAIDA en la misma transacción.
// Cuando la bolsa en uso llega a cero se fija la fecha de finalización del lote.
func (uc *BatchLedgerUseCase) ConsumeInUse(ctx context.Context, batchID string, quantity decimal.Decimal, actorID, notes string) (_ inventory.Pools, err error) {
	ctx, span := startSpan(ctx, "BatchLedger.ConsumeInUse", attribute.String("batch.id", batchID))
	defer func() { endSpan(span, err) }()

	var next inventory.Pools
	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		batch, err := s.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		next, err = inventory.ConsumeInUse(inventory.Pools{Closed: batch.ClosedQuantity, InUse: batch.InUseQuantity}, quantity)
		if err != nil {
			return err
		}
		now := uc.now()
		id := batch.ID
		if err := s.Movements.Create(ctx, &entity.Movement{
			ID:        uuid.New().String(),
			BatchID:   &id,
			Type:      entity.MovementSaida,
			Quantity:  quantity,
			Reason:    "Consumo de lote em uso",
			UserID:    actorID,
			Notes:     notes,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := s.Batches.UpdateQuantities(ctx, batchID, next.Closed, next.InUse); err != nil {
			return err
		}
		if next.InUse.IsZero() && batch.FinishedAt == nil {
			batch.FinishedAt = &now
			batch.UpdatedAt = now
			return s.Batches.Update(ctx, batch)
		}
		return nil
	})
	if err == nil {
		uc.metrics.MovementRecorded(string(entity.MovementSaida))
	}
	return next, err
}

// BatchDetails son los datos editables de un lote que no afectan a sus bolsas.
type BatchDetails struct {
	ExpiresAt    *time.Time
	Manufacturer string
	// OpenedAt nil conserva la fecha de apertura; solo se acepta en lotes abiertos.
	OpenedAt    *time.Time
	FinishedAt  *time.Time
	RequestedAt *time.Time
	Notes       string
}

// UpdateDetails reemplaza vencimiento, fabricante, fechas y observaciones del lote.
// Las cantidades solo cambian por movimientos, traspasos o ApplyQuantities.
func (uc *BatchLedgerUseCase) UpdateDetails(ctx context.Context, batchID string, in BatchDetails) (_ *entity.Batch, err error) {
	ctx, span := startSpan(ctx, "BatchLedger.UpdateDetails", attribute.String("batch.id", batchID))
	defer func() { endSpan(span, err) }()

	var updated *entity.Batch
	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		batch, err := s.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if in.OpenedAt != nil {
			if !batch.Opened {
				return fmt.Errorf("%w: el lote no está abierto", domain.ErrInvalidInput)
			}
			batch.OpenedAt = in.OpenedAt
		}
		batch.ExpiresAt = in.ExpiresAt
		batch.Manufacturer = strings.TrimSpace(in.Manufacturer)
		batch.FinishedAt = in.FinishedAt
		batch.RequestedAt = in.RequestedAt
		batch.Notes = in.Notes
		batch.UpdatedAt = uc.now()
		if err := s.Batches.Update(ctx, batch); err != nil {
			return err
		}
		updated = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("batch_id", batchID).Msg("lote actualizado")
	return updated, nil
}

// SetStorageCondition cambia la condición de almacenamiento (conjunto cerrado).
func (uc *BatchLedgerUseCase) SetStorageCondition(ctx context.Context, batchID, condition string) error {
	if !entity.ValidStorageCondition(condition) {
		return fmt.Errorf("%w: condición de almacenamiento %q", domain.ErrInvalidInput, condition)
	}
	return uc.updateAttributes(ctx, "BatchLedger.SetStorageCondition", batchID, func(b *entity.Batch) {
		b.StorageCondition = condition
	})
}

// SetToBeTendered marca o desmarca el lote para licitación.
func (uc *BatchLedgerUseCase) SetToBeTendered(ctx context.Context, batchID string, flag bool) error {
	return uc.updateAttributes(ctx, "BatchLedger.SetToBeTendered", batchID, func(b *entity.Batch) {
		b.ToBeTendered = flag
	})
}

func (uc *BatchLedgerUseCase) updateAttributes(ctx context.Context, op, batchID string, mutate func(b *entity.Batch)) (err error) {
	ctx, span := startSpan(ctx, op, attribute.String("batch.id", batchID))
	defer func() { endSpan(span, err) }()

	return uc.txRunner.Run(ctx, func(s repository.Store) error {
		batch, err := s.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		mutate(batch)
		batch.UpdatedAt = uc.now()
		return s.Batches.Update(ctx, batch)
	})
}

// Delete registra un movimiento EXCLUSAO con el total final y elimina el lote, en una transacción.
// Un lote incluido en un inventario abierto no se puede eliminar; los ítems de inventarios ya
// finalizados se conservan sin referencia al lote.
func (uc *BatchLedgerUseCase) Delete(ctx context.Context, batchID, actorID string) (err error) {
	ctx, span := startSpan(ctx, "BatchLedger.Delete", attribute.String("batch.id", batchID))
	defer func() { endSpan(span, err) }()

	var total decimal.Decimal
	err = uc.txRunner.Run(ctx, func(s repository.Store) error {
		batch, err := s.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		inOpen, err := s.Items.ExistsInOpenSession(ctx, batch.ID)
		if err != nil {
			return err
		}
		if inOpen {
			return fmt.Errorf("%w: el lote está incluido en un inventario abierto", domain.ErrInvalidInput)
		}
		total = batch.Total()
		id := batch.ID
		if err := s.Movements.Create(ctx, &entity.Movement{
			ID:        uuid.New().String(),
			BatchID:   &id,
			Type:      entity.MovementExclusao,
			Quantity:  total,
			Reason:    "Lote excluído do sistema",
			UserID:    actorID,
			Notes:     fmt.Sprintf("Lote %s removido", batch.LotNumber),
			CreatedAt: uc.now(),
		}); err != nil {
			return err
		}
		return s.Batches.Delete(ctx, batchID)
	})
	if err != nil {
		return err
	}
	uc.metrics.MovementRecorded(string(entity.MovementExclusao))
	uc.log.Info().Str("batch_id", batchID).Str("final_total", total.String()).Str("user_id", actorID).Msg("lote eliminado")
	return nil
}
