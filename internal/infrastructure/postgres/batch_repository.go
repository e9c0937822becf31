package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

const batchColumns = `b.id, b.product_id, b.lot_number, b.initial_quantity, b.closed_quantity, b.in_use_quantity,
	b.expires_at, b.opened, b.opening_justification, b.opened_at, b.finished_at, b.requested_at,
	b.storage_condition, b.to_be_tendered, b.manufacturer, b.notes, b.created_at, b.updated_at`

const batchViewQuery = `
	SELECT ` + batchColumns + `, p.code, p.description, p.unit_measure
	FROM batches b
	JOIN products p ON p.id = b.product_id`

// BatchRepo implementación de BatchRepository sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

func batchDest(b *entity.Batch) []any {
	return []any{
		&b.ID, &b.ProductID, &b.LotNumber, &b.InitialQuantity, &b.ClosedQuantity, &b.InUseQuantity,
		&b.ExpiresAt, &b.Opened, &b.OpeningJustification, &b.OpenedAt, &b.FinishedAt, &b.RequestedAt,
		&b.StorageCondition, &b.ToBeTendered, &b.Manufacturer, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
	}
}

func batchViewDest(v *entity.BatchView) []any {
	return append(batchDest(&v.Batch), &v.ProductCode, &v.ProductDescription, &v.UnitMeasure)
}

// Create persiste un lote nuevo. (producto, lote) repetido devuelve ErrDuplicate.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO batches (id, product_id, lot_number, initial_quantity, closed_quantity, in_use_quantity,
			expires_at, opened, opening_justification, opened_at, finished_at, requested_at,
			storage_condition, to_be_tendered, manufacturer, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.ProductID, b.LotNumber, b.InitialQuantity, b.ClosedQuantity, b.InUseQuantity,
		b.ExpiresAt, b.Opened, b.OpeningJustification, b.OpenedAt, b.FinishedAt, b.RequestedAt,
		b.StorageCondition, b.ToBeTendered, b.Manufacturer, b.Notes, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrDuplicate
		case isForeignKeyViolation(err):
			return domain.ErrNotFound
		}
		return storageErr("insert batch", err)
	}
	return nil
}

// GetByID obtiene un lote sin bloquearlo.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM batches b WHERE b.id = $1`, id, "get batch")
}

// GetForUpdate obtiene el lote y bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
func (r *BatchRepo) GetForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM batches b WHERE b.id = $1 FOR UPDATE`, id, "get batch for update")
}

func (r *BatchRepo) getOne(ctx context.Context, query, id, op string) (*entity.Batch, error) {
	var b entity.Batch
	if err := r.q.QueryRow(ctx, query, id).Scan(batchDest(&b)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr(op, err)
	}
	return &b, nil
}

// GetView obtiene el lote con los datos de su producto.
func (r *BatchRepo) GetView(ctx context.Context, id string) (*entity.BatchView, error) {
	var v entity.BatchView
	if err := r.q.QueryRow(ctx, batchViewQuery+` WHERE b.id = $1`, id).Scan(batchViewDest(&v)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get batch view", err)
	}
	return &v, nil
}

// List devuelve todos los lotes ordenados por producto, vencimiento y lote.
func (r *BatchRepo) List(ctx context.Context) ([]*entity.BatchView, error) {
	return r.listViews(ctx, batchViewQuery+` ORDER BY p.code, b.expires_at NULLS LAST, b.lot_number`)
}

// ListByProduct devuelve los lotes del producto ordenados por vencimiento y lote.
func (r *BatchRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.BatchView, error) {
	return r.listViews(ctx, batchViewQuery+` WHERE b.product_id = $1 ORDER BY b.expires_at NULLS LAST, b.lot_number`, productID)
}

func (r *BatchRepo) listViews(ctx context.Context, query string, args ...any) ([]*entity.BatchView, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list batches", err)
	}
	defer rows.Close()

	var list []*entity.BatchView
	for rows.Next() {
		var v entity.BatchView
		if err := rows.Scan(batchViewDest(&v)...); err != nil {
			return nil, storageErr("scan batch", err)
		}
		list = append(list, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list batches", err)
	}
	return list, nil
}

// ListForSnapshot lee todos los lotes con FOR SHARE: ningún movimiento puede modificarlos
// hasta que la foto termine de escribirse.
func (r *BatchRepo) ListForSnapshot(ctx context.Context) ([]*entity.Batch, error) {
	return r.listBatches(ctx, `SELECT `+batchColumns+` FROM batches b ORDER BY b.created_at, b.id FOR SHARE`)
}

// ListOpenByProduct devuelve los lotes abiertos del producto excepto exceptID.
func (r *BatchRepo) ListOpenByProduct(ctx context.Context, productID, exceptID string) ([]*entity.Batch, error) {
	return r.listBatches(ctx,
		`SELECT `+batchColumns+` FROM batches b WHERE b.product_id = $1 AND b.opened AND b.id <> $2`,
		productID, exceptID)
}

func (r *BatchRepo) listBatches(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list batches", err)
	}
	defer rows.Close()

	var list []*entity.Batch
	for rows.Next() {
		var b entity.Batch
		if err := rows.Scan(batchDest(&b)...); err != nil {
			return nil, storageErr("scan batch", err)
		}
		list = append(list, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list batches", err)
	}
	return list, nil
}

// UpdateQuantities sobrescribe las dos bolsas. El CHECK de la tabla rechaza valores negativos.
func (r *BatchRepo) UpdateQuantities(ctx context.Context, id string, closed, inUse decimal.Decimal) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE batches SET closed_quantity = $2, in_use_quantity = $3, updated_at = now() WHERE id = $1`,
		id, closed, inUse,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: bolsas negativas", domain.ErrInvalidInput)
		}
		return storageErr("update batch quantities", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Update persiste los atributos no cuantitativos del lote.
func (r *BatchRepo) Update(ctx context.Context, b *entity.Batch) error {
	query := `
		UPDATE batches SET opened = $2, opening_justification = $3, opened_at = $4, finished_at = $5,
			requested_at = $6, storage_condition = $7, to_be_tendered = $8, notes = $9, updated_at = $10,
			expires_at = $11, manufacturer = $12
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		b.ID, b.Opened, b.OpeningJustification, b.OpenedAt, b.FinishedAt,
		b.RequestedAt, b.StorageCondition, b.ToBeTendered, b.Notes, b.UpdatedAt,
		b.ExpiresAt, b.Manufacturer,
	)
	if err != nil {
		return storageErr("update batch", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina el lote. Sus movimientos e ítems de inventario quedan con batch_id NULL.
func (r *BatchRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete batch", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
