package repository

import (
	"context"
	"time"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

// InventorySessionRepository define el puerto de persistencia para sesiones de inventario.
type InventorySessionRepository interface {
	Create(ctx context.Context, session *entity.InventorySession) error
	GetByID(ctx context.Context, id string) (*entity.InventorySession, error)
	// GetForUpdate bloquea la sesión; lo usa el finalizador para serializar cierres concurrentes.
	GetForUpdate(ctx context.Context, id string) (*entity.InventorySession, error)
	// GetForShare bloquea la sesión en modo compartido (conteos, altas y bajas de ítems).
	GetForShare(ctx context.Context, id string) (*entity.InventorySession, error)
	List(ctx context.Context) ([]*entity.InventorySessionSummary, error)
	// MarkFinalized sella la sesión. Devuelve false si ninguna fila sin finalizar coincide.
	MarkFinalized(ctx context.Context, id string, at time.Time) (bool, error)
}

// InventoryItemRepository define el puerto de persistencia para ítems de inventario.
type InventoryItemRepository interface {
	// CreateMany inserta todos los ítems de una foto en una sola operación.
	CreateMany(ctx context.Context, items []*entity.InventoryItem) error
	Create(ctx context.Context, item *entity.InventoryItem) error
	GetByID(ctx context.Context, id string) (*entity.InventoryItem, error)
	ExistsForBatch(ctx context.Context, sessionID, batchID string) (bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]*entity.InventoryItemView, error)
	// ExistsInOpenSession indica si el lote tiene ítem en alguna sesión sin finalizar.
	ExistsInOpenSession(ctx context.Context, batchID string) (bool, error)
	// ListCounted devuelve los ítems con conteo cuyo lote sigue existiendo.
	ListCounted(ctx context.Context, sessionID string) ([]*entity.InventoryItem, error)
	UpdateCount(ctx context.Context, item *entity.InventoryItem) error
	Delete(ctx context.Context, id string) (bool, error)
}
