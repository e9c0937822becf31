package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/labinventario-api/internal/application/dto"
	"github.com/jhoicas/labinventario-api/internal/application/inventory"
)

// StockHandler expone consultas de stock agregado por producto (protegido).
type StockHandler struct {
	uc *inventory.StockUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *inventory.StockUseCase) *StockHandler {
	return &StockHandler{uc: uc}
}

// Consolidated godoc
// @Summary      Stock consolidado por producto
// @Description  Suma cerrado y en uso de todos los lotes. Incluye productos sin lotes.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.StockLineResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/stock [get]
func (h *StockHandler) Consolidated(c *fiber.Ctx) error {
	lines, err := h.uc.Consolidated(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, dto.StockLineResponse{
			ProductID:      l.ProductID,
			Code:           l.Code,
			Description:    l.Description,
			UnitMeasure:    l.UnitMeasure,
			Manufacturer:   l.Manufacturer,
			MinimumStock:   l.MinimumStock,
			ClosedQuantity: l.ClosedQuantity,
			InUseQuantity:  l.InUseQuantity,
			TotalQuantity:  l.Total,
			BatchCount:     l.BatchCount,
			BelowMinimum:   l.BelowMinimum,
		})
	}
	return c.JSON(out)
}

// BelowMinimum godoc
// @Summary      Productos por debajo del stock mínimo
// @Description  Ordenados por déficit relativo; priority 1 es el más urgente.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.StockAlertResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/stock/below-minimum [get]
func (h *StockHandler) BelowMinimum(c *fiber.Ctx) error {
	alerts, err := h.uc.BelowMinimum(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, dto.StockAlertResponse{
			ProductID:      a.ProductID,
			Code:           a.Code,
			Description:    a.Description,
			UnitMeasure:    a.UnitMeasure,
			MinimumStock:   a.MinimumStock,
			ClosedQuantity: a.ClosedQuantity,
			InUseQuantity:  a.InUseQuantity,
			TotalQuantity:  a.Total,
			Deficit:        a.Deficit,
			Priority:       a.Priority,
		})
	}
	return c.JSON(out)
}
