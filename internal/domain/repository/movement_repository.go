package repository

import (
	"context"
	"time"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

// MovementFilter filtra el listado de movimientos. Campos vacíos no filtran.
type MovementFilter struct {
	BatchID string
	Type    entity.MovementType
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

// MovementRepository define el puerto de persistencia para movimientos (solo inserción).
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	List(ctx context.Context, filter MovementFilter) ([]*entity.MovementView, error)
}
