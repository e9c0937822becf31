package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
)

var (
	_ repository.InventorySessionRepository = (*InventorySessionRepo)(nil)
	_ repository.InventoryItemRepository    = (*InventoryItemRepo)(nil)
)

// ─── Sesiones ────────────────────────────────────────────────────────────────

// InventorySessionRepo implementación de InventorySessionRepository sobre PostgreSQL.
type InventorySessionRepo struct {
	q Querier
}

// NewInventorySessionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventorySessionRepository(q Querier) *InventorySessionRepo {
	return &InventorySessionRepo{q: q}
}

const sessionColumns = `s.id, s.user_id, s.notes, s.finalized, s.created_at, s.finalized_at`

func sessionDest(s *entity.InventorySession) []any {
	return []any{&s.ID, &s.UserID, &s.Notes, &s.Finalized, &s.CreatedAt, &s.FinalizedAt}
}

// Create persiste una sesión nueva (finalized = false).
func (r *InventorySessionRepo) Create(ctx context.Context, s *entity.InventorySession) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO inventory_sessions (id, user_id, notes, finalized, created_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, s.Notes, s.Finalized, s.CreatedAt,
	)
	if err != nil {
		return storageErr("insert inventory session", err)
	}
	return nil
}

// GetByID obtiene la sesión sin bloquearla.
func (r *InventorySessionRepo) GetByID(ctx context.Context, id string) (*entity.InventorySession, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM inventory_sessions s WHERE s.id = $1`, id)
}

// GetForUpdate bloquea la sesión en modo exclusivo.
func (r *InventorySessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventorySession, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM inventory_sessions s WHERE s.id = $1 FOR UPDATE`, id)
}

// GetForShare bloquea la sesión en modo compartido: varios conteos conviven, la finalización espera.
func (r *InventorySessionRepo) GetForShare(ctx context.Context, id string) (*entity.InventorySession, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM inventory_sessions s WHERE s.id = $1 FOR SHARE`, id)
}

func (r *InventorySessionRepo) getOne(ctx context.Context, query, id string) (*entity.InventorySession, error) {
	var s entity.InventorySession
	if err := r.q.QueryRow(ctx, query, id).Scan(sessionDest(&s)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get inventory session", err)
	}
	return &s, nil
}

// List devuelve las sesiones más recientes primero con su número de ítems.
func (r *InventorySessionRepo) List(ctx context.Context) ([]*entity.InventorySessionSummary, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+sessionColumns+`, COUNT(i.id)
		FROM inventory_sessions s
		LEFT JOIN inventory_items i ON i.session_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, storageErr("list inventory sessions", err)
	}
	defer rows.Close()

	var list []*entity.InventorySessionSummary
	for rows.Next() {
		var s entity.InventorySessionSummary
		if err := rows.Scan(append(sessionDest(&s.InventorySession), &s.ItemCount)...); err != nil {
			return nil, storageErr("scan inventory session", err)
		}
		list = append(list, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list inventory sessions", err)
	}
	return list, nil
}

// MarkFinalized sella la sesión. Devuelve false si no hay fila sin finalizar con ese id.
func (r *InventorySessionRepo) MarkFinalized(ctx context.Context, id string, at time.Time) (bool, error) {
	cmd, err := r.q.Exec(ctx,
		`UPDATE inventory_sessions SET finalized = TRUE, finalized_at = $2 WHERE id = $1 AND NOT finalized`,
		id, at,
	)
	if err != nil {
		return false, storageErr("finalize inventory session", err)
	}
	return cmd.RowsAffected() > 0, nil
}

// ─── Ítems ───────────────────────────────────────────────────────────────────

// InventoryItemRepo implementación de InventoryItemRepository sobre PostgreSQL.
type InventoryItemRepo struct {
	q Querier
}

// NewInventoryItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryItemRepository(q Querier) *InventoryItemRepo {
	return &InventoryItemRepo{q: q}
}

var itemCopyColumns = []string{"id", "session_id", "batch_id", "system_quantity", "counted_quantity", "difference", "notes"}

// batch_id es NULL cuando el lote se eliminó; se lee como cadena vacía.
const itemColumns = `i.id, i.session_id, COALESCE(i.batch_id, ''), i.system_quantity, i.counted_quantity, i.difference, i.notes`

func itemDest(i *entity.InventoryItem) []any {
	return []any{&i.ID, &i.SessionID, &i.BatchID, &i.SystemQuantity, &i.CountedQuantity, &i.Difference, &i.Notes}
}

// CreateMany inserta la foto completa con COPY.
func (r *InventoryItemRepo) CreateMany(ctx context.Context, items []*entity.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}
	_, err := r.q.CopyFrom(ctx, pgx.Identifier{"inventory_items"}, itemCopyColumns,
		pgx.CopyFromSlice(len(items), func(n int) ([]any, error) {
			it := items[n]
			return []any{it.ID, it.SessionID, nullableID(it.BatchID), it.SystemQuantity, it.CountedQuantity, it.Difference, it.Notes}, nil
		}),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return storageErr("copy inventory items", err)
	}
	return nil
}

// Create inserta un ítem. (sesión, lote) repetido devuelve ErrDuplicate.
func (r *InventoryItemRepo) Create(ctx context.Context, it *entity.InventoryItem) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_items (id, session_id, batch_id, system_quantity, counted_quantity, difference, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		it.ID, it.SessionID, nullableID(it.BatchID), it.SystemQuantity, it.CountedQuantity, it.Difference, it.Notes,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrDuplicate
		case isForeignKeyViolation(err):
			return domain.ErrNotFound
		}
		return storageErr("insert inventory item", err)
	}
	return nil
}

// GetByID obtiene un ítem.
func (r *InventoryItemRepo) GetByID(ctx context.Context, id string) (*entity.InventoryItem, error) {
	var it entity.InventoryItem
	err := r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items i WHERE i.id = $1`, id).Scan(itemDest(&it)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get inventory item", err)
	}
	return &it, nil
}

// ExistsForBatch indica si el lote ya tiene ítem en la sesión.
func (r *InventoryItemRepo) ExistsForBatch(ctx context.Context, sessionID, batchID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM inventory_items WHERE session_id = $1 AND batch_id = $2)`,
		sessionID, batchID,
	).Scan(&exists)
	if err != nil {
		return false, storageErr("exists inventory item", err)
	}
	return exists, nil
}

// ExistsInOpenSession indica si el lote tiene ítem en alguna sesión sin finalizar.
func (r *InventoryItemRepo) ExistsInOpenSession(ctx context.Context, batchID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_items i
			JOIN inventory_sessions s ON s.id = i.session_id
			WHERE i.batch_id = $1 AND NOT s.finalized
		)`, batchID).Scan(&exists)
	if err != nil {
		return false, storageErr("exists open inventory item", err)
	}
	return exists, nil
}

// ListBySession devuelve los ítems con datos de lote y producto, ordenados por producto y lote.
// Los ítems de lotes eliminados salen con lote y producto vacíos.
func (r *InventoryItemRepo) ListBySession(ctx context.Context, sessionID string) ([]*entity.InventoryItemView, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+itemColumns+`, COALESCE(b.lot_number, ''), COALESCE(p.code, ''), COALESCE(p.description, ''), COALESCE(p.unit_measure, '')
		FROM inventory_items i
		LEFT JOIN batches b ON b.id = i.batch_id
		LEFT JOIN products p ON p.id = b.product_id
		WHERE i.session_id = $1
		ORDER BY p.code, b.lot_number`, sessionID)
	if err != nil {
		return nil, storageErr("list inventory items", err)
	}
	defer rows.Close()

	var list []*entity.InventoryItemView
	for rows.Next() {
		var v entity.InventoryItemView
		if err := rows.Scan(append(itemDest(&v.InventoryItem), &v.LotNumber, &v.ProductCode, &v.ProductDescription, &v.UnitMeasure)...); err != nil {
			return nil, storageErr("scan inventory item", err)
		}
		list = append(list, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list inventory items", err)
	}
	return list, nil
}

// ListCounted devuelve los ítems contados cuyo lote sigue existiendo.
func (r *InventoryItemRepo) ListCounted(ctx context.Context, sessionID string) ([]*entity.InventoryItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items i
		WHERE i.session_id = $1 AND i.counted_quantity IS NOT NULL AND i.batch_id IS NOT NULL
		ORDER BY i.id`, sessionID)
	if err != nil {
		return nil, storageErr("list counted items", err)
	}
	defer rows.Close()

	var list []*entity.InventoryItem
	for rows.Next() {
		var it entity.InventoryItem
		if err := rows.Scan(itemDest(&it)...); err != nil {
			return nil, storageErr("scan counted item", err)
		}
		list = append(list, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list counted items", err)
	}
	return list, nil
}

// UpdateCount persiste conteo, diferencia y notas.
func (r *InventoryItemRepo) UpdateCount(ctx context.Context, it *entity.InventoryItem) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE inventory_items SET counted_quantity = $2, difference = $3, notes = $4 WHERE id = $1`,
		it.ID, it.CountedQuantity, it.Difference, it.Notes,
	)
	if err != nil {
		return storageErr("update inventory item", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina el ítem. Devuelve false si no existía.
func (r *InventoryItemRepo) Delete(ctx context.Context, id string) (bool, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return false, storageErr("delete inventory item", err)
	}
	return cmd.RowsAffected() > 0, nil
}
