package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementLen = 512

// queryTracer abre un span por consulta pgx (hijo del span del caso de uso que la origina).
type queryTracer struct {
	tracer trace.Tracer
}

var _ pgx.QueryTracer = (*queryTracer)(nil)

func newQueryTracer() *queryTracer {
	return &queryTracer{tracer: otel.Tracer("labinventario/postgres")}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	stmt := data.SQL
	if len(stmt) > maxStatementLen {
		stmt = stmt[:maxStatementLen]
	}
	ctx, _ = t.tracer.Start(ctx, "postgres.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.statement", stmt),
		),
	)
	return ctx
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	span.End()
}
