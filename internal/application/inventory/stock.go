package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labinventario-api/internal/domain/repository"
)

// StockAlert es un producto cuyo stock total quedó por debajo del mínimo.
type StockAlert struct {
	ProductID      string
	Code           string
	Description    string
	UnitMeasure    string
	MinimumStock   decimal.Decimal
	ClosedQuantity decimal.Decimal
	InUseQuantity  decimal.Decimal
	Total          decimal.Decimal
	// Deficit = mínimo - total (siempre positivo).
	Deficit  decimal.Decimal
	Priority int
}

// StockLine es el stock consolidado de un producto sobre todos sus lotes.
type StockLine struct {
	ProductID      string
	Code           string
	Description    string
	UnitMeasure    string
	Manufacturer   string
	MinimumStock   decimal.Decimal
	ClosedQuantity decimal.Decimal
	InUseQuantity  decimal.Decimal
	Total          decimal.Decimal
	BatchCount     int
	BelowMinimum   bool
}

// StockUseCase consulta el stock agregado por producto.
type StockUseCase struct {
	products repository.ProductRepository
}

// NewStockUseCase construye el caso de uso de alertas de stock.
func NewStockUseCase(products repository.ProductRepository) *StockUseCase {
	return &StockUseCase{products: products}
}

// Consolidated devuelve el stock de cada producto del catálogo por código, incluidos los que no
// tienen lotes (todo en cero).
func (uc *StockUseCase) Consolidated(ctx context.Context) ([]StockLine, error) {
	stock, err := uc.products.ListStock(ctx)
	if err != nil {
		return nil, err
	}
	lines := make([]StockLine, 0, len(stock))
	for _, p := range stock {
		lines = append(lines, StockLine{
			ProductID:      p.ID,
			Code:           p.Code,
			Description:    p.Description,
			UnitMeasure:    p.UnitMeasure,
			Manufacturer:   p.Manufacturer,
			MinimumStock:   p.MinimumStock,
			ClosedQuantity: p.ClosedQuantity,
			InUseQuantity:  p.InUseQuantity,
			Total:          p.Total(),
			BatchCount:     p.BatchCount,
			BelowMinimum:   p.BelowMinimum(),
		})
	}
	return lines, nil
}

// BelowMinimum devuelve los productos con stock total estrictamente menor que su mínimo,
// ordenados por déficit relativo (1 = más urgente). Igual al mínimo no es alerta.
func (uc *StockUseCase) BelowMinimum(ctx context.Context) ([]StockAlert, error) {
	stock, err := uc.products.ListStock(ctx)
	if err != nil {
		return nil, err
	}

	alerts := make([]StockAlert, 0)
	for _, p := range stock {
		if !p.BelowMinimum() {
			continue
		}
		total := p.Total()
		alerts = append(alerts, StockAlert{
			ProductID:      p.ID,
			Code:           p.Code,
			Description:    p.Description,
			UnitMeasure:    p.UnitMeasure,
			MinimumStock:   p.MinimumStock,
			ClosedQuantity: p.ClosedQuantity,
			InUseQuantity:  p.InUseQuantity,
			Total:          total,
			Deficit:        p.MinimumStock.Sub(total),
		})
	}

	// Primero el mayor déficit relativo (sin stock = 100%), luego el mayor déficit absoluto, luego código.
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		ra, rb := a.Deficit.Div(a.MinimumStock), b.Deficit.Div(b.MinimumStock)
		if !ra.Equal(rb) {
			return ra.GreaterThan(rb)
		}
		if !a.Deficit.Equal(b.Deficit) {
			return a.Deficit.GreaterThan(b.Deficit)
		}
		return a.Code < b.Code
	})

	for i := range alerts {
		alerts[i].Priority = i + 1
	}
	return alerts, nil
}
