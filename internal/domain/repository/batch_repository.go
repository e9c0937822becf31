package repository

import (
	"context"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BatchRepository define el puerto de persistencia para lotes.
// Los métodos *ForUpdate bloquean la fila hasta el fin de la transacción (SELECT ... FOR UPDATE).
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.Batch) error
	GetByID(ctx context.Context, id string) (*entity.Batch, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Batch, error)
	GetView(ctx context.Context, id string) (*entity.BatchView, error)
	List(ctx context.Context) ([]*entity.BatchView, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.BatchView, error)
	// ListForSnapshot devuelve todos los lotes con bloqueo compartido para congelar sus cantidades.
	ListForSnapshot(ctx context.Context) ([]*entity.Batch, error)
	// ListOpenByProduct devuelve los lotes abiertos del producto, excluyendo exceptID.
	ListOpenByProduct(ctx context.Context, productID, exceptID string) ([]*entity.Batch, error)
	UpdateQuantities(ctx context.Context, id string, closed, inUse decimal.Decimal) error
	// Update persiste los atributos no cuantitativos (apertura, fechas, fabricante, almacenamiento, licitación).
	Update(ctx context.Context, batch *entity.Batch) error
	Delete(ctx context.Context, id string) error
}
