package repository

import (
	"context"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

// ProductRepository define el puerto de lectura de productos (DIP). El alta y edición de
// productos es responsabilidad de otro servicio.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// ListStock agrega cerrado/en uso por producto sobre todos sus lotes.
	ListStock(ctx context.Context) ([]*entity.ProductStock, error)
}
