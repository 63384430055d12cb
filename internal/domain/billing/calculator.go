package billing

import (
	"fmt"
	"sort"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// LineInput datos crudos de una línea.
type LineInput struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	VATRate   decimal.Decimal
}

// Discount descuento global opcional. Type vacío equivale a DiscountNone.
type Discount struct {
	Type  entity.DiscountType
	Value decimal.Decimal
}

// LineResult valores calculados de una línea, en el mismo orden de entrada.
type LineResult struct {
	LineTotal      decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	VATAmount      decimal.Decimal
}

// Totals resultado del cálculo de un documento.
type Totals struct {
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxableSubtotal decimal.Decimal
	VATBreakdown    map[string]decimal.Decimal
	TaxAmount       decimal.Decimal
	Total           decimal.Decimal
	Lines           []LineResult
}

// Calculate calcula subtotal, descuento prorrateado, IVA por tasa y total.
// El redondeo se aplica en cada acumulación; la suma de descuentos por línea es igual
// al descuento total y la suma del IVA por línea es igual a TaxAmount.
func Calculate(lines []LineInput, discount Discount) (Totals, error) {
	if err := validateDiscount(discount); err != nil {
		return Totals{}, err
	}
	res := Totals{
		Subtotal:        decimal.Zero,
		DiscountAmount:  decimal.Zero,
		TaxableSubtotal: decimal.Zero,
		VATBreakdown:    map[string]decimal.Decimal{},
		TaxAmount:       decimal.Zero,
		Total:           decimal.Zero,
		Lines:           make([]LineResult, len(lines)),
	}
	if len(lines) == 0 {
		return res, nil
	}

	for i, l := range lines {
		if err := validateLine(i, l); err != nil {
			return Totals{}, err
		}
		lt := RoundMoney(l.Quantity.Mul(l.UnitPrice))
		res.Lines[i].LineTotal = lt
		res.Subtotal = RoundMoney(res.Subtotal.Add(lt))
	}

	res.DiscountAmount = discountAmount(res.Subtotal, discount)
	allocateDiscount(res.Lines, res.Subtotal, res.DiscountAmount)

	for i, l := range lines {
		lr := &res.Lines[i]
		lr.TaxableAmount = lr.LineTotal.Sub(lr.DiscountAmount)
		lr.VATAmount = RoundMoney(lr.TaxableAmount.Mul(l.VATRate).Div(hundred))
		key := RateKey(l.VATRate)
		res.VATBreakdown[key] = RoundMoney(res.VATBreakdown[key].Add(lr.VATAmount))
		res.TaxAmount = RoundMoney(res.TaxAmount.Add(lr.VATAmount))
	}

	res.TaxableSubtotal = RoundMoney(res.Subtotal.Sub(res.DiscountAmount))
	res.Total = RoundMoney(res.TaxableSubtotal.Add(res.TaxAmount))
	return res, nil
}

func validateDiscount(d Discount) error {
	if d.Type == "" {
		return nil
	}
	if !d.Type.IsValid() {
		return domain.NewValidationError("discount_type", fmt.Sprintf("tipo de descuento no soportado: %q", d.Type))
	}
	if d.Type != entity.DiscountNone && d.Value.IsNegative() {
		return domain.NewValidationError("discount_value", "no puede ser negativo")
	}
	return nil
}

func validateLine(i int, l LineInput) error {
	field := func(name string) string { return fmt.Sprintf("line_items[%d].%s", i, name) }
	switch {
	case l.Quantity.IsNegative():
		return domain.NewValidationError(field("quantity"), "no puede ser negativa")
	case l.UnitPrice.IsNegative():
		return domain.NewValidationError(field("unit_price"), "no puede ser negativo")
	case l.VATRate.IsNegative():
		return domain.NewValidationError(field("vat_rate"), "no puede ser negativa")
	}
	return nil
}

func discountAmount(subtotal decimal.Decimal, d Discount) decimal.Decimal {
	switch d.Type {
	case entity.DiscountPercentage:
		pct := decimal.Min(d.Value, hundred)
		return decimal.Min(RoundMoney(subtotal.Mul(pct).Div(hundred)), subtotal)
	case entity.DiscountFixed:
		return decimal.Min(RoundMoney(d.Value), subtotal)
	}
	return decimal.Zero
}

// allocateDiscount prorratea por la participación de cada línea en el subtotal.
// La última línea con importe absorbe el residuo de redondeo.
func allocateDiscount(lines []LineResult, subtotal, discount decimal.Decimal) {
	for i := range lines {
		lines[i].DiscountAmount = decimal.Zero
	}
	if discount.IsZero() || subtotal.IsZero() {
		return
	}
	last := -1
	for i := range lines {
		if lines[i].LineTotal.IsPositive() {
			last = i
		}
	}
	allocated := decimal.Zero
	for i := range lines {
		if i == last {
			break
		}
		share := RoundMoney(discount.Mul(lines[i].LineTotal).Div(subtotal))
		lines[i].DiscountAmount = share
		allocated = allocated.Add(share)
	}
	lines[last].DiscountAmount = discount.Sub(allocated)
}

// ApplyTotals calcula las líneas del documento y escribe todos los totales de una vez.
// El orden de las líneas sigue SortOrder.
func ApplyTotals(doc *entity.Document, discount Discount) error {
	sort.SliceStable(doc.LineItems, func(i, j int) bool {
		return doc.LineItems[i].SortOrder < doc.LineItems[j].SortOrder
	})
	inputs := make([]LineInput, len(doc.LineItems))
	for i, li := range doc.LineItems {
		inputs[i] = LineInput{Quantity: li.Quantity, UnitPrice: li.UnitPrice, VATRate: li.VATRate}
	}
	t, err := Calculate(inputs, discount)
	if err != nil {
		return err
	}
	for i := range doc.LineItems {
		li := &doc.LineItems[i]
		li.LineTotal = t.Lines[i].LineTotal
		li.DiscountAmount = t.Lines[i].DiscountAmount
		li.TaxableAmount = t.Lines[i].TaxableAmount
		li.VATAmount = t.Lines[i].VATAmount
	}
	if discount.Type == "" {
		discount.Type = entity.DiscountNone
	}
	doc.DiscountType = discount.Type
	doc.DiscountValue = discount.Value
	doc.Subtotal = t.Subtotal
	doc.DiscountAmount = t.DiscountAmount
	doc.TaxAmount = t.TaxAmount
	doc.Total = t.Total
	doc.VATBreakdown = t.VATBreakdown
	return nil
}
