// Package pdf genera el vale de salida de almacén de una solicitud de material.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: VALE DE SALIDA          │  Folio + Fecha entrega   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  Ticket / Solicitante / Entregó / Estado                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Item | Descripción | Solicitado | Entregado | Dev.   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR del folio + firmas                               │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
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

	"github.com/jhoicas/kardex-api/internal/application/materialrequest"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

var _ materialrequest.DeliveryVoucherGenerator = (*MarotoVoucherGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoVoucherGenerator implementa materialrequest.DeliveryVoucherGenerator usando Maroto v2.
type MarotoVoucherGenerator struct {
	printer *message.Printer
}

// NewMarotoVoucherGenerator construye el generador con formato numérico en español.
func NewMarotoVoucherGenerator() *MarotoVoucherGenerator {
	return &MarotoVoucherGenerator{printer: message.NewPrinter(language.Spanish)}
}

// GenerateDeliveryVoucher genera el PDF y devuelve sus bytes.
func (g *MarotoVoucherGenerator) GenerateDeliveryVoucher(_ context.Context, req *entity.MaterialRequest) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Vale de salida "+req.Folio, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(req))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(infoRow(req))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, it := range req.Items {
		m.AddRows(g.itemRow(it))
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(req))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar vale: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(req *entity.MaterialRequest) core.Row {
	fecha := "—"
	if req.DeliveredAt != nil {
		fecha = req.DeliveredAt.Format("02/01/2006 15:04")
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New("VALE DE SALIDA DE ALMACÉN", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Solicitud de material", props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New(req.Folio, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 2,
			}),
			text.New("Entrega: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 10, Color: colorGray,
			}),
		),
	)
}

func infoRow(req *entity.MaterialRequest) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Ticket: %s   |   Estado: %s", req.TicketID, req.Status), props.Text{
				Style: fontstyle.Bold, Size: 9, Top: 1,
			}),
			text.New(fmt.Sprintf("Solicitó: %s   |   Entregó: %s",
				req.RequestedBy, deref(req.DeliveredBy, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Item", 2, align.Left),
		h("Descripción", 4, align.Left),
		h("Solicitado", 2, align.Right),
		h("Entregado", 2, align.Right),
		h("Devuelto", 2, align.Right),
	)
}

func (g *MarotoVoucherGenerator) itemRow(it *entity.MaterialRequestItem) core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	return row.New(7).Add(
		cell(it.ItemID, 2, align.Left),
		cell(it.ItemDescription, 4, align.Left),
		cell(g.qty(it.QuantityRequested), 2, align.Right),
		cell(g.qty(it.QuantityDelivered), 2, align.Right),
		cell(g.qty(it.QuantityReturned), 2, align.Right),
	)
}

func footerRow(req *entity.MaterialRequest) core.Row {
	return row.New(40).Add(
		col.New(4).Add(code.NewQr(req.Folio, props.Rect{Percent: 90, Center: true})),
		col.New(8).Add(
			text.New("Recibí conforme: ______________________", props.Text{Size: 9, Top: 10, Left: 3}),
			text.New("Entregó: ______________________", props.Text{Size: 9, Top: 24, Left: 3}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// qty formatea con separadores del español: 1234.5 -> "1.234,50".
func (g *MarotoVoucherGenerator) qty(d decimal.Decimal) string {
	return g.printer.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

func deref(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
