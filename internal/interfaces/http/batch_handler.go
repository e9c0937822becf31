package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/labinventario-api/internal/application/dto"
	"github.com/jhoicas/labinventario-api/internal/application/inventory"
	domaininv "github.com/jhoicas/labinventario-api/internal/domain/inventory"
)

// BatchHandler maneja las peticiones HTTP de lotes (protegido).
type BatchHandler struct {
	uc  *inventory.BatchLedgerUseCase
	now func() time.Time
}

// NewBatchHandler construye el handler.
func NewBatchHandler(uc *inventory.BatchLedgerUseCase) *BatchHandler {
	return &BatchHandler{uc: uc, now: time.Now}
}

// List godoc
// @Summary      Listar lotes
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.BatchResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/batches [get]
func (h *BatchHandler) List(c *fiber.Ctx) error {
	list, err := h.uc.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	now := h.now()
	out := make([]dto.BatchResponse, 0, len(list))
	for _, b := range list {
		out = append(out, dto.NewBatchViewResponse(b, now))
	}
	return c.JSON(out)
}

// ListByProduct godoc
// @Summary      Listar lotes de un producto
// @Description  Ordenados por vencimiento (sin fecha al final).
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {array}   dto.BatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{productId}/batches [get]
func (h *BatchHandler) ListByProduct(c *fiber.Ctx) error {
	list, err := h.uc.ListByProduct(c.UserContext(), c.Params("productId"))
	if err != nil {
		return writeError(c, err)
	}
	now := h.now()
	out := make([]dto.BatchResponse, 0, len(list))
	for _, b := range list {
		out = append(out, dto.NewBatchViewResponse(b, now))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener lote por ID
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.BatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id} [get]
func (h *BatchHandler) GetByID(c *fiber.Ctx) error {
	b, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBatchViewResponse(b, h.now()))
}

// Create godoc
// @Summary      Crear lote
// @Description  Toda la cantidad inicial queda en la bolsa cerrada. No registra movimiento.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateBatchRequest  true  "Datos del lote"
// @Success      201   {object}  dto.BatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/batches [post]
func (h *BatchHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	b, err := h.uc.Create(c.UserContext(), inventory.CreateBatchInput{
		ProductID:        in.ProductID,
		LotNumber:        in.LotNumber,
		InitialQuantity:  in.InitialQuantity,
		ExpiresAt:        in.ExpiresAt,
		Manufacturer:     in.Manufacturer,
		StorageCondition: in.StorageCondition,
		Notes:            in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewBatchResponse(b, h.now()))
}

// Open godoc
// @Summary      Abrir lote
// @Description  Sin justificación solo si ningún otro lote del producto está abierto.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID del lote"
// @Param        body  body  dto.OpenBatchRequest  false  "Justificación"
// @Success      200   {object}  dto.BatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/open [post]
func (h *BatchHandler) Open(c *fiber.Ctx) error {
	var in dto.OpenBatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	b, err := h.uc.Open(c.UserContext(), c.Params("id"), in.Justification)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBatchResponse(b, h.now()))
}

// Update godoc
// @Summary      Editar datos del lote
// @Description  Vencimiento, fabricante, fechas y observaciones. Las cantidades no se modifican.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del lote"
// @Param        body  body  dto.UpdateBatchRequest  true  "Datos del lote"
// @Success      200   {object}  dto.BatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/batches/{id} [put]
func (h *BatchHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	b, err := h.uc.UpdateDetails(c.UserContext(), c.Params("id"), inventory.BatchDetails{
		ExpiresAt:    in.ExpiresAt,
		Manufacturer: in.Manufacturer,
		OpenedAt:     in.OpenedAt,
		FinishedAt:   in.FinishedAt,
		RequestedAt:  in.RequestedAt,
		Notes:        in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBatchResponse(b, h.now()))
}

// ApplyQuantities godoc
// @Summary      Sobrescribir las bolsas del lote
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "ID del lote"
// @Param        body  body  dto.ApplyQuantitiesRequest  true  "Cerrado y en uso"
// @Success      200   {object}  dto.PoolsResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/quantities [put]
func (h *BatchHandler) ApplyQuantities(c *fiber.Ctx) error {
	var in dto.ApplyQuantitiesRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	id := c.Params("id")
	if err := h.uc.ApplyQuantities(c.UserContext(), id, in.ClosedQuantity, in.InUseQuantity); err != nil {
		return writeError(c, err)
	}
	return c.JSON(poolsResponse(id, domaininv.Pools{Closed: in.ClosedQuantity, InUse: in.InUseQuantity}))
}

// GetTotal godoc
// @Summary      Total disponible del lote (cerrado + en uso)
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.BatchTotalResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/total [get]
func (h *BatchHandler) GetTotal(c *fiber.Ctx) error {
	id := c.Params("id")
	total, err := h.uc.GetTotal(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BatchTotalResponse{BatchID: id, TotalQuantity: total})
}

// Transfer godoc
// @Summary      Pasar cantidad de la bolsa cerrada a en uso
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del lote"
// @Param        body  body  dto.QuantityRequest  true  "Cantidad"
// @Success      200   {object}  dto.PoolsResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/transfer [post]
func (h *BatchHandler) Transfer(c *fiber.Ctx) error {
	var in dto.QuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	id := c.Params("id")
	pools, err := h.uc.TransferToInUse(c.UserContext(), id, in.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(poolsResponse(id, pools))
}

// Consume godoc
// @Summary      Consumir de la bolsa en uso
// @Description  Registra una SAIDA. Al vaciar la bolsa en uso fija la fecha de finalización.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del lote"
// @Param        body  body  dto.QuantityRequest  true  "Cantidad y notas"
// @Success      200   {object}  dto.PoolsResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/consume [post]
func (h *BatchHandler) Consume(c *fiber.Ctx) error {
	var in dto.QuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	id := c.Params("id")
	pools, err := h.uc.ConsumeInUse(c.UserContext(), id, in.Quantity, GetUserID(c), in.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(poolsResponse(id, pools))
}

// SetStorage godoc
// @Summary      Cambiar condición de almacenamiento
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID del lote"
// @Param        body  body  dto.StorageConditionRequest  true  "Ambiente | 2°C-8°C | −20°C"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/storage [put]
func (h *BatchHandler) SetStorage(c *fiber.Ctx) error {
	var in dto.StorageConditionRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.uc.SetStorageCondition(c.UserContext(), c.Params("id"), in.StorageCondition); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "condición de almacenamiento actualizada"})
}

// SetTender godoc
// @Summary      Marcar lote para licitación
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID del lote"
// @Param        body  body  dto.TenderRequest  true  "Marca"
// @Success      200   {object}  dto.MessageResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/tender [put]
func (h *BatchHandler) SetTender(c *fiber.Ctx) error {
	var in dto.TenderRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.uc.SetToBeTendered(c.UserContext(), c.Params("id"), in.ToBeTendered); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "licitación actualizada"})
}

// Delete godoc
// @Summary      Eliminar lote
// @Description  Registra un movimiento EXCLUSAO con el total final antes de borrar.
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.MessageResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id} [delete]
func (h *BatchHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), c.Params("id"), GetUserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "lote eliminado"})
}

func poolsResponse(batchID string, p domaininv.Pools) dto.PoolsResponse {
	return dto.PoolsResponse{
		BatchID:        batchID,
		ClosedQuantity: p.Closed,
		InUseQuantity:  p.InUse,
		TotalQuantity:  p.Total(),
	}
}
