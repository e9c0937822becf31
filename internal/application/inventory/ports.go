package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

// SessionReport es la información que se imprime en la hoja de conteo de un inventario.
type SessionReport struct {
	Session     entity.InventorySession
	Items       []*entity.InventoryItemView
	GeneratedAt time.Time
}

// ReportRenderer genera la representación del informe (PDF). La implementación vive en infrastructure.
type ReportRenderer interface {
	RenderSession(ctx context.Context, report SessionReport) ([]byte, error)
}

// Clock permite fijar el tiempo en tests.
type Clock func() time.Time
