package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/labinventario-api/internal/application/dto"
	"github.com/jhoicas/labinventario-api/internal/application/inventory"
)

const (
	msgFinalized        = "Inventario finalizado con éxito. Stock ajustado."
	msgAlreadyFinalized = "El inventario ya estaba finalizado."
)

// InventoryHandler maneja las sesiones de inventario físico (protegido).
type InventoryHandler struct {
	snapshot  *inventory.SnapshotUseCase
	finalizer *inventory.FinalizeUseCase
	reports   *inventory.ReportUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(snapshot *inventory.SnapshotUseCase, finalizer *inventory.FinalizeUseCase, reports *inventory.ReportUseCase) *InventoryHandler {
	return &InventoryHandler{snapshot: snapshot, finalizer: finalizer, reports: reports}
}

// List godoc
// @Summary      Listar sesiones de inventario
// @Tags         inventories
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.InventorySessionResponse
// @Router       /api/inventories [get]
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	list, err := h.snapshot.ListSessions(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.InventorySessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.NewInventorySessionResponse(&s.InventorySession, s.ItemCount))
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear sesión de inventario
// @Description  Toma una foto de todos los lotes con stock (cerrado + en uso > 0).
// @Tags         inventories
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInventoryRequest  false  "Notas"
// @Success      201   {object}  dto.InventorySessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventories [post]
func (h *InventoryHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInventoryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	res, err := h.snapshot.CreateSession(c.UserContext(), GetUserID(c), in.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewInventorySessionResponse(res.Session, res.ItemCount))
}

// Get godoc
// @Summary      Obtener sesión con sus ítems
// @Tags         inventories
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.InventoryDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventories/{id} [get]
func (h *InventoryHandler) Get(c *fiber.Ctx) error {
	detail, err := h.snapshot.GetSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.InventoryItemResponse, 0, len(detail.Items))
	for _, it := range detail.Items {
		items = append(items, dto.NewInventoryItemViewResponse(it))
	}
	return c.JSON(dto.InventoryDetailResponse{
		Session: dto.NewInventorySessionResponse(detail.Session, len(items)),
		Items:   items,
	})
}

// RecordCount godoc
// @Summary      Registrar cantidad contada de un ítem
// @Tags         inventories
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        itemId  path  string                  true  "ID del ítem"
// @Param        body    body  dto.RecordCountRequest  true  "Cantidad contada"
// @Success      200     {object}  dto.InventoryItemResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/inventories/items/{itemId} [put]
func (h *InventoryHandler) RecordCount(c *fiber.Ctx) error {
	var in dto.RecordCountRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if in.CountedQuantity == nil {
		return badRequest(c, "VALIDATION", "counted_quantity es obligatorio")
	}
	item, err := h.snapshot.RecordCount(c.UserContext(), c.Params("itemId"), *in.CountedQuantity, in.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInventoryItemResponse(item))
}

// RemoveItem godoc
// @Summary      Quitar un lote de la sesión
// @Tags         inventories
// @Security     Bearer
// @Produce      json
// @Param        itemId  path  string  true  "ID del ítem"
// @Success      200     {object}  dto.MessageResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/inventories/items/{itemId} [delete]
func (h *InventoryHandler) RemoveItem(c *fiber.Ctx) error {
	if err := h.snapshot.RemoveItem(c.UserContext(), c.Params("itemId")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "ítem eliminado del inventario"})
}

// AddBatch godoc
// @Summary      Agregar un lote a la sesión
// @Description  La cantidad del sistema es el total actual del lote.
// @Tags         inventories
// @Security     Bearer
// @Produce      json
// @Param        id       path  string  true  "ID de la sesión"
// @Param        batchId  path  string  true  "ID del lote"
// @Success      201      {object}  dto.InventoryItemResponse
// @Failure      403      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      409      {object}  dto.ErrorResponse
// @Router       /api/inventories/{id}/batches/{batchId} [post]
func (h *InventoryHandler) AddBatch(c *fiber.Ctx) error {
	item, err := h.snapshot.AddBatchToSession(c.UserContext(), c.Params("id"), c.Params("batchId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewInventoryItemResponse(item))
}

// Finalize godoc
// @Summary      Finalizar inventario
// @Description  Ajusta cada lote contado a su cantidad contada y registra un AJUSTE. Idempotente.
// @Tags         inventories
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.FinalizeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventories/{id}/finalize [put]
func (h *InventoryHandler) Finalize(c *fiber.Ctx) error {
	res, err := h.finalizer.Finalize(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.FinalizeResponse{
		Message:          msgFinalized,
		SessionID:        res.SessionID,
		AlreadyFinalized: res.AlreadyFinalized,
		Adjusted:         res.Adjusted,
		Unchanged:        res.Unchanged,
		Failures:         make([]dto.FinalizeFailureResponse, 0, len(res.Failures)),
	}
	if res.AlreadyFinalized {
		out.Message = msgAlreadyFinalized
	}
	// El detalle de cada fallo queda en el log del finalizador.
	for _, f := range res.Failures {
		_, code, message := publicError(f.Err)
		out.Failures = append(out.Failures, dto.FinalizeFailureResponse{
			ItemID:  f.ItemID,
			BatchID: f.BatchID,
			Code:    code,
			Error:   message,
		})
	}
	return c.JSON(out)
}

// Report godoc
// @Summary      Hoja de conteo en PDF
// @Tags         inventories
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventories/{id}/report [get]
func (h *InventoryHandler) Report(c *fiber.Ctx) error {
	id := c.Params("id")
	pdf, err := h.reports.SessionReport(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="inventario-%s.pdf"`, id))
	return c.Send(pdf)
}
