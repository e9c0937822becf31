package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/labinventario-api/pkg/logger"
	"github.com/jhoicas/labinventario-api/pkg/metrics"
)

var tracer = otel.Tracer("labinventario/http")

// headerCarrier adapta las cabeceras de fasthttp a propagation.TextMapCarrier.
type headerCarrier struct {
	c *fiber.Ctx
}

func (h headerCarrier) Get(key string) string { return h.c.Get(key) }
func (h headerCarrier) Set(key, value string) { h.c.Set(key, value) }
func (h headerCarrier) Keys() []string {
	var keys []string
	h.c.Request().Header.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

// Tracing abre un span de servidor por petición, continuando la traza del cliente si viene
// en traceparent. Los handlers deben usar c.UserContext() para colgar sus spans de éste.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), headerCarrier{c})
		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Method()),
				attribute.String("url.path", c.Path()),
			),
		)
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()

		status := responseStatus(c, err)
		span.SetName(c.Method() + " " + c.Route().Path)
		span.SetAttributes(
			attribute.String("http.route", c.Route().Path),
			attribute.Int("http.response.status_code", status),
		)
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, strconv.Itoa(status))
		}
		return err
	}
}

// AccessLog escribe un evento por petición (método, ruta, status, latencia) y alimenta las
// métricas HTTP. Los 5xx se registran en nivel error con la causa.
func AccessLog(log *logger.Logger, m *metrics.Metrics) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.HTTPStarted()

		err := c.Next()

		status := responseStatus(c, err)
		latency := time.Since(start)
		route := c.Route().Path
		m.HTTPFinished(c.Method(), route, strconv.Itoa(status), latency)

		event := log.Info()
		if status >= fiber.StatusInternalServerError {
			event = log.Error()
			if cause, ok := c.Locals(localError).(error); ok {
				event = event.Err(cause)
			} else if err != nil {
				event = event.Err(err)
			}
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("route", route).
			Int("status", status).
			Dur("latency", latency).
			Str("user_id", GetUserID(c)).
			Msg("petición HTTP")
		return err
	}
}

// responseStatus devuelve el status final; si el handler devolvió un error todavía no se ha
// escrito la respuesta y el status sale del error.
func responseStatus(c *fiber.Ctx, err error) int {
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe.Code
		}
		return fiber.StatusInternalServerError
	}
	return c.Response().StatusCode()
}
