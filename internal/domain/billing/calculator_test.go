package billing_test

import (
	"testing"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func threeLines() []billing.LineInput {
	return []billing.LineInput{
		{Quantity: d("2"), UnitPrice: d("100"), VATRate: d("20")},
		{Quantity: d("1"), UnitPrice: d("50"), VATRate: d("10")},
		{Quantity: d("3"), UnitPrice: d("10"), VATRate: d("0")},
	}
}

// ── Escenarios de referencia ─────────────────────────────────────────────────

func TestCalculate_SinDescuento(t *testing.T) {
	res, err := billing.Calculate(threeLines(), billing.Discount{})
	require.NoError(t, err)

	assert.True(t, d("280").Equal(res.Subtotal), "subtotal = %s", res.Subtotal)
	assert.True(t, res.DiscountAmount.IsZero())
	assert.True(t, d("280").Equal(res.TaxableSubtotal))
	require.Len(t, res.VATBreakdown, 3)
	assert.True(t, d("40").Equal(res.VATBreakdown["20"]))
	assert.True(t, d("5").Equal(res.VATBreakdown["10"]))
	assert.True(t, res.VATBreakdown["0"].IsZero())
	assert.True(t, d("45").Equal(res.TaxAmount))
	assert.True(t, d("325").Equal(res.Total))
}

func TestCalculate_DescuentoProrrateado(t *testing.T) {
	cases := []struct {
		name     string
		discount billing.Discount
	}{
		{"fijo 28", billing.Discount{Type: entity.DiscountFixed, Value: d("28")}},
		{"porcentaje 10", billing.Discount{Type: entity.DiscountPercentage, Value: d("10")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := billing.Calculate(threeLines(), tc.discount)
			require.NoError(t, err)

			assert.True(t, d("28").Equal(res.DiscountAmount))
			assert.True(t, d("252").Equal(res.TaxableSubtotal))
			assert.True(t, d("20").Equal(res.Lines[0].DiscountAmount))
			assert.True(t, d("5").Equal(res.Lines[1].DiscountAmount))
			assert.True(t, d("3").Equal(res.Lines[2].DiscountAmount))
			assert.True(t, d("180").Equal(res.Lines[0].TaxableAmount))
			assert.True(t, d("36").Equal(res.Lines[0].VATAmount))
			assert.True(t, d("4.5").Equal(res.Lines[1].VATAmount))
			assert.True(t, d("40.5").Equal(res.TaxAmount))
			assert.True(t, d("292.5").Equal(res.Total))
		})
	}
}

// ── Propiedades ──────────────────────────────────────────────────────────────

func TestCalculate_SumasExactas(t *testing.T) {
	lines := []billing.LineInput{
		{Quantity: d("3"), UnitPrice: d("33.33"), VATRate: d("20")},
		{Quantity: d("1"), UnitPrice: d("0.07"), VATRate: d("5.5")},
		{Quantity: d("7"), UnitPrice: d("12.99"), VATRate: d("20.00")},
		{Quantity: d("0.5"), UnitPrice: d("19.99"), VATRate: d("10")},
	}
	discounts := []billing.Discount{
		{Type: entity.DiscountPercentage, Value: d("7.5")},
		{Type: entity.DiscountPercentage, Value: d("33.333")},
		{Type: entity.DiscountFixed, Value: d("10.01")},
		{Type: entity.DiscountFixed, Value: d("0.03")},
	}
	for _, disc := range discounts {
		res, err := billing.Calculate(lines, disc)
		require.NoError(t, err)

		alloc, vat := decimal.Zero, decimal.Zero
		for _, l := range res.Lines {
			alloc = alloc.Add(l.DiscountAmount)
			vat = vat.Add(l.VATAmount)
		}
		assert.True(t, alloc.Equal(res.DiscountAmount), "descuento %v: asignado %s != %s", disc, alloc, res.DiscountAmount)
		assert.True(t, vat.Equal(res.TaxAmount), "IVA por línea %s != %s", vat, res.TaxAmount)

		expected := billing.RoundMoney(res.Subtotal.Sub(res.DiscountAmount).Add(res.TaxAmount))
		assert.True(t, expected.Equal(res.Total))
		// "20" y "20.00" comparten clave
		assert.Len(t, res.VATBreakdown, 3)
	}
}

func TestCalculate_DescuentoSeLimitaAlSubtotal(t *testing.T) {
	res, err := billing.Calculate(threeLines(), billing.Discount{Type: entity.DiscountFixed, Value: d("1000")})
	require.NoError(t, err)
	assert.True(t, d("280").Equal(res.DiscountAmount))
	assert.True(t, res.TaxableSubtotal.IsZero())
	assert.True(t, res.Total.IsZero())

	res, err = billing.Calculate(threeLines(), billing.Discount{Type: entity.DiscountPercentage, Value: d("150")})
	require.NoError(t, err)
	assert.True(t, d("280").Equal(res.DiscountAmount))
}

func TestCalculate_SinLineas(t *testing.T) {
	res, err := billing.Calculate(nil, billing.Discount{Type: entity.DiscountFixed, Value: d("10")})
	require.NoError(t, err)
	assert.True(t, res.Subtotal.IsZero())
	assert.True(t, res.DiscountAmount.IsZero())
	assert.True(t, res.Total.IsZero())
	assert.Empty(t, res.VATBreakdown)
}

func TestCalculate_LineaEnCeroNoAbsorbeResiduo(t *testing.T) {
	lines := []billing.LineInput{
		{Quantity: d("1"), UnitPrice: d("10"), VATRate: d("20")},
		{Quantity: d("1"), UnitPrice: d("20"), VATRate: d("20")},
		{Quantity: d("0"), UnitPrice: d("99"), VATRate: d("20")},
	}
	res, err := billing.Calculate(lines, billing.Discount{Type: entity.DiscountFixed, Value: d("10")})
	require.NoError(t, err)
	assert.True(t, res.Lines[2].DiscountAmount.IsZero())
	assert.True(t, d("3.33").Equal(res.Lines[0].DiscountAmount))
	assert.True(t, d("6.67").Equal(res.Lines[1].DiscountAmount))
}

// ── Validación ───────────────────────────────────────────────────────────────

func TestCalculate_Validacion(t *testing.T) {
	cases := []struct {
		name     string
		lines    []billing.LineInput
		discount billing.Discount
		field    string
	}{
		{"cantidad negativa", []billing.LineInput{{Quantity: d("-1"), UnitPrice: d("1"), VATRate: d("0")}}, billing.Discount{}, "line_items[0].quantity"},
		{"precio negativo", []billing.LineInput{{Quantity: d("1"), UnitPrice: d("-1"), VATRate: d("0")}}, billing.Discount{}, "line_items[0].unit_price"},
		{"IVA negativo", []billing.LineInput{{Quantity: d("1"), UnitPrice: d("1"), VATRate: d("-5")}}, billing.Discount{}, "line_items[0].vat_rate"},
		{"tipo desconocido", threeLines(), billing.Discount{Type: "bogus", Value: d("1")}, "discount_type"},
		{"valor negativo", threeLines(), billing.Discount{Type: entity.DiscountFixed, Value: d("-1")}, "discount_value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := billing.Calculate(tc.lines, tc.discount)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestApplyTotals_EscribeLineasYDocumento(t *testing.T) {
	doc := &entity.Document{LineItems: []entity.LineItem{
		{Description: "b", Quantity: d("1"), UnitPrice: d("50"), VATRate: d("10"), SortOrder: 2},
		{Description: "a", Quantity: d("2"), UnitPrice: d("100"), VATRate: d("20"), SortOrder: 1},
	}}
	require.NoError(t, billing.ApplyTotals(doc, billing.Discount{}))

	assert.Equal(t, "a", doc.LineItems[0].Description)
	assert.Equal(t, entity.DiscountNone, doc.DiscountType)
	assert.True(t, d("250").Equal(doc.Subtotal))
	assert.True(t, d("45").Equal(doc.TaxAmount))
	assert.True(t, d("295").Equal(doc.Total))
	assert.True(t, d("200").Equal(doc.LineItems[0].LineTotal))
	assert.True(t, d("5").Equal(doc.LineItems[1].VATAmount))
}
