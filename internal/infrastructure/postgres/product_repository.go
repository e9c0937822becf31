package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `
		SELECT id, code, description, unit_measure, manufacturer, minimum_stock, created_at, updated_at
		FROM products WHERE id = $1`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Code, &p.Description, &p.UnitMeasure, &p.Manufacturer, &p.MinimumStock, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get product", err)
	}
	return &p, nil
}

// ListStock suma las bolsas de todos los lotes de cada producto (productos sin lotes suman cero).
func (r *ProductRepo) ListStock(ctx context.Context) ([]*entity.ProductStock, error) {
	query := `
		SELECT p.id, p.code, p.description, p.unit_measure, p.manufacturer, p.minimum_stock, p.created_at, p.updated_at,
		       COALESCE(SUM(b.closed_quantity), 0), COALESCE(SUM(b.in_use_quantity), 0), COUNT(b.id)
		FROM products p
		LEFT JOIN batches b ON b.product_id = p.id
		GROUP BY p.id
		ORDER BY p.code`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, storageErr("list product stock", err)
	}
	defer rows.Close()

	var list []*entity.ProductStock
	for rows.Next() {
		var s entity.ProductStock
		if err := rows.Scan(
			&s.ID, &s.Code, &s.Description, &s.UnitMeasure, &s.Manufacturer, &s.MinimumStock, &s.CreatedAt, &s.UpdatedAt,
			&s.ClosedQuantity, &s.InUseQuantity, &s.BatchCount,
		); err != nil {
			return nil, storageErr("scan product stock", err)
		}
		list = append(list, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list product stock", err)
	}
	return list, nil
}

// Upsert inserta o actualiza un producto por código. Solo lo usa la importación del catálogo.
func (r *ProductRepo) Upsert(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (id, code, description, unit_measure, manufacturer, minimum_stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description,
			unit_measure = EXCLUDED.unit_measure,
			manufacturer = EXCLUDED.manufacturer,
			minimum_stock = EXCLUDED.minimum_stock,
			updated_at = now()`
	_, err := r.q.Exec(ctx, query, p.ID, p.Code, p.Description, p.UnitMeasure, p.Manufacturer, p.MinimumStock)
	if err != nil {
		return storageErr("upsert product", err)
	}
	return nil
}
