package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const defaultMovementLimit = 100

// MovementRepo implementación de MovementRepository sobre PostgreSQL. Solo inserta y lee.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste un movimiento.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO movements (id, batch_id, type, quantity, reason, user_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.BatchID, string(m.Type), m.Quantity, m.Reason, m.UserID, m.Notes, m.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return storageErr("insert movement", err)
	}
	return nil
}

// List devuelve los movimientos más recientes primero, filtrados por lote, tipo y rango de fechas.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.MovementView, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.BatchID != "" {
		add("m.batch_id = $%d", f.BatchID)
	}
	if f.Type != "" {
		add("m.type = $%d", string(f.Type))
	}
	if f.From != nil {
		add("m.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("m.created_at < $%d", *f.To)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultMovementLimit
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT m.id, m.batch_id, m.type, m.quantity, m.reason, m.user_id, m.notes, m.created_at,
		       COALESCE(b.lot_number, ''), COALESCE(p.code, ''), COALESCE(p.description, '')
		FROM movements m
		LEFT JOIN batches b ON b.id = m.batch_id
		LEFT JOIN products p ON p.id = b.product_id`)
	if len(where) > 0 {
		sb.WriteString("\n\t\tWHERE " + strings.Join(where, " AND "))
	}
	args = append(args, limit, f.Offset)
	sb.WriteString(fmt.Sprintf("\n\t\tORDER BY m.created_at DESC, m.id LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, storageErr("list movements", err)
	}
	defer rows.Close()

	var list []*entity.MovementView
	for rows.Next() {
		var v entity.MovementView
		var typ string
		if err := rows.Scan(
			&v.ID, &v.BatchID, &typ, &v.Quantity, &v.Reason, &v.UserID, &v.Notes, &v.CreatedAt,
			&v.LotNumber, &v.ProductCode, &v.ProductDescription,
		); err != nil {
			return nil, storageErr("scan movement", err)
		}
		v.Type = entity.MovementType(typ)
		list = append(list, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list movements", err)
	}
	return list, nil
}
