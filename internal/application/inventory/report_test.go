package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labinventario-api/internal/application/inventory"
	"github.com/jhoicas/labinventario-api/internal/domain"
)

type rendererMock struct {
	mock.Mock
}

func (m *rendererMock) RenderSession(ctx context.Context, report inventory.SessionReport) ([]byte, error) {
	args := m.Called(ctx, report)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSessionReport_PasaSesionEItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.batch(t, "p-1", "L-1", "2", "0")
	sessionID := countSession(t, f, map[string]string{b.ID: "1.5"})

	renderer := &rendererMock{}
	renderer.On("RenderSession", mock.Anything, mock.MatchedBy(func(r inventory.SessionReport) bool {
		return r.Session.ID == sessionID && len(r.Items) == 1 && r.Items[0].Difference.Equal(dec("-0.5")) && !r.GeneratedAt.IsZero()
	})).Return([]byte("%PDF-1.4"), nil)

	uc := inventory.NewReportUseCase(f.db.Store(), renderer)
	out, err := uc.SessionReport(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), out)
	renderer.AssertExpectations(t)
}

func TestSessionReport_SesionInexistente(t *testing.T) {
	f := newFixture(t)
	renderer := &rendererMock{}

	uc := inventory.NewReportUseCase(f.db.Store(), renderer)
	_, err := uc.SessionReport(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	renderer.AssertNotCalled(t, "RenderSession", mock.Anything, mock.Anything)
}
