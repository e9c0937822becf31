// Package pdf genera la hoja de conteo de un inventario físico.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + estado     │  N° inventario + Fecha       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESPONSABLE / OBSERVACIONES                                 │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Producto | Lote | Sistema | Contado | Diferencia     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: ítems / contados / con diferencia                  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/jhoicas/labinventario-api/internal/application/inventory"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorAlert   = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// SessionReportRenderer implementa inventory.ReportRenderer usando Maroto v2.
type SessionReportRenderer struct {
	printer *message.Printer
}

// NewSessionReportRenderer construye el renderer. lang fija el formato de las cantidades
// (separador decimal y de miles).
func NewSessionReportRenderer(lang language.Tag) *SessionReportRenderer {
	return &SessionReportRenderer{printer: message.NewPrinter(lang)}
}

// RenderSession genera el PDF y devuelve sus bytes.
func (g *SessionReportRenderer) RenderSession(_ context.Context, report inventory.SessionReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Inventario físico "+report.Session.ID, true).
		WithAuthor("labinventario", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(responsibleRow(report.Session))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(g.tableItemRows(report.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(summaryRow(report.Items))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título + estado (izq) y N° inventario + fecha (der).
func headerRow(report inventory.SessionReport) core.Row {
	status := "EN CONTEO"
	if report.Session.Finalized {
		status = "FINALIZADO"
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New("HOJA DE CONTEO DE INVENTARIO", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Estado: "+status, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("INVENTARIO N°", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(shortID(report.Session.ID), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 6,
			}),
			text.New("Creado: "+report.Session.CreatedAt.Format("02/01/2006 15:04")+
				"   Emitido: "+report.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 7, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

// responsibleRow: usuario que abrió el inventario y observaciones.
func responsibleRow(s entity.InventorySession) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("RESPONSABLE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Usuario: %s   |   Observaciones: %s",
				nonEmpty(s.UserID, "-"),
				nonEmpty(s.Notes, "-"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla con fondo azul.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Producto", 5, align.Left),
		h("Lote", 2, align.Left),
		h("Sistema", 2, align.Right),
		h("Contado", 1, align.Right),
		h("Diferencia", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableItemRows: una fila por ítem. Los no contados quedan con línea para anotar a mano.
func (g *SessionReportRenderer) tableItemRows(items []*entity.InventoryItemView) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		counted, diff := "______", ""
		diffColor := colorGray
		if it.CountedQuantity != nil {
			counted = g.quantity(*it.CountedQuantity)
		}
		if it.Difference != nil {
			diff = g.quantity(*it.Difference)
			if !it.Difference.IsZero() {
				diffColor = colorAlert
			}
		}
		product := strings.TrimSpace(it.ProductCode + " " + it.ProductDescription)
		result = append(result, row.New(7).Add(
			col.New(5).Add(text.New(
				pdfSafe(product),
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				pdfSafe(it.LotNumber),
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				g.quantity(it.SystemQuantity)+" "+it.UnitMeasure,
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				counted,
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(2).Add(text.New(
				diff,
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1, Color: diffColor},
			)),
		))
	}
	return result
}

// summaryRow: totales de la hoja alineados a la derecha.
func summaryRow(items []*entity.InventoryItemView) core.Row {
	counted, withDiff := 0, 0
	for _, it := range items {
		if it.CountedQuantity != nil {
			counted++
		}
		if it.Difference != nil && !it.Difference.IsZero() {
			withDiff++
		}
	}
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(n int) core.Component {
		return text.New(fmt.Sprint(n), props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(18).Add(
		col.New(6),
		col.New(4).Add(
			label("Ítems:"),
			label("Contados:"),
			label("Con diferencia:"),
		),
		col.New(2).Add(
			value(len(items)),
			value(counted),
			value(withDiff),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// quantity formatea con hasta 3 decimales según el idioma del renderer.
func (g *SessionReportRenderer) quantity(d decimal.Decimal) string {
	return g.printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(3)))
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// shortID deja los primeros 8 caracteres de un UUID.
func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

// pdfSafe reemplaza caracteres que la fuente helvetica no puede dibujar.
var pdfSafe = strings.NewReplacer("−", "-", "–", "-", "—", "-", "“", "\"", "”", "\"").Replace
