// Package pdf implementa la representación gráfica de un DocumentSnapshot
// (factura, cotización o nota de crédito) con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tipo de documento + Estado │  N° + Fechas           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE + Moneda / tasa de cambio                           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | IVA | Dto | Total       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / Descuento / IVA por tasa / TOTAL        │
//	│  PAGOS (solo facturas) + Saldo pendiente                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR de verificación + notas                          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strings"

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

	appbilling "github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var _ appbilling.SnapshotRenderer = (*MarotoRenderer)(nil)

// ── Renderer ──────────────────────────────────────────────────────────────────

// MarotoRenderer implementa billing.SnapshotRenderer generando PDF.
type MarotoRenderer struct {
	issuer string
}

// NewMarotoRenderer construye el renderer. issuer aparece como autor del PDF.
func NewMarotoRenderer(issuer string) *MarotoRenderer {
	return &MarotoRenderer{issuer: issuer}
}

// ContentType implementa SnapshotRenderer.
func (g *MarotoRenderer) ContentType() string { return "application/pdf" }

// Render genera el PDF y devuelve sus bytes. Solo muestra valores del snapshot.
func (g *MarotoRenderer) Render(snap *dto.DocumentSnapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("pdf: snapshot nulo")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(documentTitle(snap.DocumentType)+" "+snap.Number, true).
		WithAuthor(g.issuer, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(snap))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(clientRow(snap))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(snap)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRows(snap)...)

	if len(snap.Payments) > 0 {
		m.AddRows(line.NewRow(3))
		m.AddRows(paymentRows(snap)...)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(snap)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func documentTitle(docType string) string {
	switch entity.DocumentType(docType) {
	case entity.DocumentTypeQuote:
		return "COTIZACIÓN"
	case entity.DocumentTypeCreditNote:
		return "NOTA DE CRÉDITO"
	default:
		return "FACTURA"
	}
}

// headerRow: tipo y estado (izq), número y fechas (der).
func headerRow(snap *dto.DocumentSnapshot) core.Row {
	dates := "Emisión: " + snap.IssueDate.Format("02/01/2006")
	switch {
	case snap.DueDate != nil:
		dates += "   Vence: " + snap.DueDate.Format("02/01/2006")
	case snap.ValidUntil != nil:
		dates += "   Válida hasta: " + snap.ValidUntil.Format("02/01/2006")
	}

	return row.New(18).Add(
		col.New(7).Add(
			text.New(documentTitle(snap.DocumentType), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Estado: "+snap.Status, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(nonEmpty(snap.Number, "(sin número)"), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 3,
			}),
			text.New(dates, props.Text{
				Size: 8, Align: align.Right, Top: 11, Color: colorGray,
			}),
		),
	)
}

// clientRow: cliente, moneda y, si aplica, factura acreditada.
func clientRow(snap *dto.DocumentSnapshot) core.Row {
	info := "Moneda: " + snap.Currency
	if snap.Currency != snap.BaseCurrency {
		info += fmt.Sprintf("   |   Tasa %s→%s: %s", snap.Currency, snap.BaseCurrency, snap.ExchangeRate.String())
	}
	if snap.InvoiceID != "" {
		info += "   |   Factura acreditada: " + snap.InvoiceID
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(snap.ClientID, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(info, props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 4, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("IVA%", 1, align.Center),
		h("Descuento", 2, align.Right),
		h("Total", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableDetailRows: una fila por línea calculada.
func tableDetailRows(snap *dto.DocumentSnapshot) []core.Row {
	result := make([]core.Row, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				l.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(4).Add(text.New(
				l.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				formatMoney(l.UnitPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				l.VATRate.String()+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				formatMoney(l.DiscountAmount),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(2).Add(text.New(
				formatMoney(l.LineTotal),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

func amountRow(label, value string, grand bool) core.Row {
	size, color, style := 9.0, (*props.Color)(nil), fontstyle.Normal
	if grand {
		size, color, style = 10, colorPrimary, fontstyle.Bold
	}
	return row.New(5).Add(
		col.New(6),
		col.New(3).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: size, Align: align.Right, Right: 2, Color: color,
		})),
		col.New(3).Add(text.New(value, props.Text{
			Style: style, Size: size, Align: align.Right, Right: 1, Color: color,
		})),
	)
}

// totalsRows: subtotal, descuento, IVA por tasa, total y equivalente en moneda base.
func totalsRows(snap *dto.DocumentSnapshot) []core.Row {
	cur := " " + snap.Currency
	rows := []core.Row{amountRow("Subtotal:", formatMoney(snap.Subtotal)+cur, false)}
	if snap.DiscountAmount.IsPositive() {
		rows = append(rows,
			amountRow("Descuento:", "-"+formatMoney(snap.DiscountAmount)+cur, false),
			amountRow("Base imponible:", formatMoney(snap.TaxableSubtotal)+cur, false),
		)
	}
	for _, v := range snap.VATBreakdown {
		rows = append(rows, amountRow("IVA "+v.Rate+"%:", formatMoney(v.Amount)+cur, false))
	}
	rows = append(rows, amountRow("TOTAL:", formatMoney(snap.Total)+cur, true))
	if snap.Currency != snap.BaseCurrency {
		rows = append(rows, amountRow("Total "+snap.BaseCurrency+":",
			formatMoney(snap.BaseCurrencyTotal)+" "+snap.BaseCurrency, false))
	}
	return rows
}

// paymentRows: historial de pagos y saldo pendiente.
func paymentRows(snap *dto.DocumentSnapshot) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("PAGOS", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		)),
	}
	for _, p := range snap.Payments {
		rows = append(rows, row.New(5).Add(
			col.New(3).Add(text.New(p.PaymentDate, props.Text{Size: 8, Top: 1})),
			col.New(3).Add(text.New(p.Method, props.Text{Size: 8, Top: 1})),
			col.New(3).Add(text.New(p.ExternalReference, props.Text{Size: 7, Top: 1, Color: colorGray})),
			col.New(3).Add(text.New(formatMoney(p.Amount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	if snap.AmountPaid != nil {
		rows = append(rows, amountRow("Pagado:", formatMoney(*snap.AmountPaid)+" "+snap.Currency, false))
	}
	if snap.BalanceDue != nil {
		rows = append(rows, amountRow("SALDO PENDIENTE:", formatMoney(*snap.BalanceDue)+" "+snap.Currency, true))
	}
	return rows
}

// footerRows: QR con número|total|moneda y notas libres.
func footerRows(snap *dto.DocumentSnapshot) []core.Row {
	var rows []core.Row
	if snap.Number != "" {
		qr := strings.Join([]string{snap.Number, snap.Total.StringFixed(2), snap.Currency}, "|")
		rows = append(rows, row.New(35).Add(
			col.New(3).Add(code.NewQr(qr, props.Rect{Percent: 95, Center: true})),
			col.New(9).Add(
				text.New("Documento "+snap.Number, props.Text{
					Style: fontstyle.Bold, Size: 10, Top: 4, Left: 3, Color: colorPrimary,
				}),
				text.New("El código QR contiene número, total y moneda del documento.", props.Text{
					Size: 8, Top: 12, Left: 3, Color: colorGray,
				}),
			),
		))
	}
	if snap.Notes != "" {
		for _, chunk := range splitEvery(snap.Notes, 120) {
			rows = append(rows, row.New(4).Add(col.New(12).Add(
				text.New(chunk, props.Text{Size: 7, Color: colorGray, Top: 0.5}),
			)))
		}
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney fija dos decimales e inserta puntos de miles con coma decimal.
// Ej: 25000 → "25.000,00", -1234.5 → "-1.234,50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "," + frac
}

// splitEvery divide s en trozos de max n runas.
func splitEvery(s string, n int) []string {
	var parts []string
	r := []rune(s)
	for len(r) > n {
		parts = append(parts, string(r[:n]))
		r = r[n:]
	}
	if len(r) > 0 {
		parts = append(parts, string(r))
	}
	return parts
}
