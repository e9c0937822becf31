package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/labinventario-api/internal/application/dto"
	"github.com/jhoicas/labinventario-api/internal/domain"
)

// localError guarda el error original para el log de acceso.
const localError = "request_error"

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidType, fiber.StatusBadRequest, "INVALID_TYPE"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInsufficientStock, fiber.StatusBadRequest, "INSUFFICIENT_STOCK"},
	{domain.ErrAlreadyOpen, fiber.StatusBadRequest, "ALREADY_OPEN"},
	{domain.ErrJustificationRequired, fiber.StatusBadRequest, "JUSTIFICATION_REQUIRED"},
	{domain.ErrNoBatches, fiber.StatusBadRequest, "NO_BATCHES"},
	{domain.ErrSessionFinalized, fiber.StatusForbidden, "SESSION_FINALIZED"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
}

const msgInternal = "error interno, intente más tarde"

// publicError devuelve status, código y mensaje que puede ver el cliente.
// Los fallos de almacenamiento y cualquier error no clasificado no exponen el detalle.
func publicError(err error) (int, string, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.code, err.Error()
		}
	}
	return fiber.StatusInternalServerError, "INTERNAL", msgInternal
}

// writeError traduce un error de dominio a status HTTP y cuerpo dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	c.Locals(localError, err)
	status, code, message := publicError(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: message})
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: message})
}

func invalidBody(c *fiber.Ctx) error {
	return badRequest(c, "INVALID_BODY", "cuerpo inválido")
}
