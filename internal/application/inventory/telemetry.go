package inventory

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/labinventario-api/internal/domain"
)

var tracer = otel.Tracer("labinventario/inventory")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan cierra el span. Solo los fallos de almacenamiento (o desconocidos) marcan el span como error;
// una regla de negocio rechazada queda como evento.
func endSpan(span trace.Span, err error) {
	if err != nil {
		if isBusinessError(err) {
			span.AddEvent("rechazado", trace.WithAttributes(attribute.String("error", err.Error())))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func isBusinessError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound, domain.ErrInvalidInput, domain.ErrInvalidType, domain.ErrInsufficientStock,
		domain.ErrAlreadyOpen, domain.ErrJustificationRequired, domain.ErrNoBatches,
		domain.ErrSessionFinalized, domain.ErrDuplicate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// rejectionReason etiqueta métricas de rechazo con un valor acotado.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidType):
		return "invalid_type"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "storage"
	}
}
