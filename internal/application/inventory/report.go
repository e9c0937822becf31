package inventory

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/labinventario-api/internal/domain/repository"
)

// ReportUseCase genera la hoja de conteo de una sesión.
type ReportUseCase struct {
	store    repository.Store
	renderer ReportRenderer
	now      Clock
}

// NewReportUseCase construye el caso de uso de informes.
func NewReportUseCase(store repository.Store, renderer ReportRenderer) *ReportUseCase {
	return &ReportUseCase{store: store, renderer: renderer, now: time.Now}
}

// SessionReport devuelve el PDF de la sesión con sistema, contado y diferencia por ítem.
func (uc *ReportUseCase) SessionReport(ctx context.Context, sessionID string) (_ []byte, err error) {
	ctx, span := startSpan(ctx, "Report.SessionReport", attribute.String("session.id", sessionID))
	defer func() { endSpan(span, err) }()

	session, err := uc.store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items, err := uc.store.Items.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return uc.renderer.RenderSession(ctx, SessionReport{
		Session:     *session,
		Items:       items,
		GeneratedAt: uc.now(),
	})
}
