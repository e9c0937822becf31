package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/labinventario-api/internal/application/dto"
	"github.com/jhoicas/labinventario-api/internal/application/inventory"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
)

// MovementHandler maneja las peticiones HTTP de movimientos (protegido).
type MovementHandler struct {
	uc *inventory.MovementRecorderUseCase
}

// NewMovementHandler construye el handler.
func NewMovementHandler(uc *inventory.MovementRecorderUseCase) *MovementHandler {
	return &MovementHandler{uc: uc}
}

// Record godoc
// @Summary      Registrar movimiento
// @Description  ENTRADA suma a la bolsa cerrada. SAIDA, DOACAO, EMPRESTIMO, VENCIMENTO y AJUSTE consumen primero la bolsa en uso.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "Movimiento"
// @Success      201   {object}  dto.RegisterMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *MovementHandler) Record(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.uc.Record(c.UserContext(), inventory.RecordInput{
		BatchID:  in.BatchID,
		Type:     in.Type,
		Quantity: in.Quantity,
		Reason:   in.Reason,
		ActorID:  GetUserID(c),
		Notes:    in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.RegisterMovementResponse{
		Movement: dto.NewMovementResponse(res.Movement),
		Batch:    poolsResponse(in.BatchID, res.Pools),
	})
}

type movementQuery struct {
	BatchID string `query:"batch_id"`
	Type    string `query:"type"`
	From    string `query:"from"`
	To      string `query:"to"`
}

// List godoc
// @Summary      Listar movimientos
// @Description  Más recientes primero. from/to en RFC3339 o YYYY-MM-DD.
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        batch_id  query  string  false  "ID del lote"
// @Param        type      query  string  false  "Tipo de movimiento"
// @Param        from      query  string  false  "Desde"
// @Param        to        query  string  false  "Hasta"
// @Param        limit     query  int     false  "Límite (máx 500)"
// @Param        offset    query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *MovementHandler) List(c *fiber.Ctx) error {
	var q movementQuery
	var page dto.PageRequest
	if err := c.QueryParser(&q); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros de consulta inválidos")
	}
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros de consulta inválidos")
	}
	page.DefaultPage()

	filter := repository.MovementFilter{
		BatchID: q.BatchID,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
	if q.Type != "" {
		filter.Type = entity.MovementType(q.Type)
		if !filter.Type.Valid() {
			return badRequest(c, "INVALID_TYPE", "tipo de movimiento inválido")
		}
	}
	var err error
	if filter.From, err = parseDate(q.From, false); err != nil {
		return badRequest(c, "INVALID_DATE", "fecha 'from' inválida")
	}
	if filter.To, err = parseDate(q.To, true); err != nil {
		return badRequest(c, "INVALID_DATE", "fecha 'to' inválida")
	}

	list, err := h.uc.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementListResponse{
		Items: movementResponses(list),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// ListByBatch godoc
// @Summary      Historial de movimientos de un lote
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {array}   dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/movements [get]
func (h *MovementHandler) ListByBatch(c *fiber.Ctx) error {
	list, err := h.uc.ListByBatch(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(movementResponses(list))
}

func movementResponses(list []*entity.MovementView) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, dto.NewMovementViewResponse(m))
	}
	return out
}

// parseDate acepta RFC3339 o YYYY-MM-DD. Con endOfDay una fecha sin hora cubre el día completo.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
