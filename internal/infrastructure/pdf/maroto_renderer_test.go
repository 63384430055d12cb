package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

func snapshot() *dto.DocumentSnapshot {
	d := decimal.RequireFromString
	due := time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)
	paid, balance := d("50.00"), d("171.00")
	return &dto.DocumentSnapshot{
		DocumentType:      "invoice",
		ID:                "inv-1",
		Number:            "FAC-2025-0001",
		Status:            "partially_paid",
		ClientID:          "cliente-1",
		Currency:          "USD",
		BaseCurrency:      "EUR",
		ExchangeRate:      d("0.9"),
		IssueDate:         time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		DueDate:           &due,
		Subtotal:          d("200.00"),
		DiscountType:      "percentage",
		DiscountValue:     d("10"),
		DiscountAmount:    d("20.00"),
		TaxableSubtotal:   d("180.00"),
		TaxAmount:         d("41.00"),
		Total:             d("221.00"),
		BaseCurrencyTotal: d("198.90"),
		AmountPaid:        &paid,
		BalanceDue:        &balance,
		VATBreakdown:      []dto.VATLine{{Rate: "21", Amount: d("37.80")}, {Rate: "4", Amount: d("3.20")}},
		Lines: []dto.SnapshotLine{
			{Description: "Consultoría", Quantity: d("2"), UnitPrice: d("90"), VATRate: d("21"), LineTotal: d("180.00"), DiscountAmount: d("18.00"), TaxableAmount: d("162.00"), VATAmount: d("34.02")},
			{Description: "Libros", Quantity: d("1"), UnitPrice: d("20"), VATRate: d("4"), LineTotal: d("20.00"), DiscountAmount: d("2.00"), TaxableAmount: d("18.00"), VATAmount: d("0.72")},
		},
		Payments: []dto.PaymentResponse{{ID: "p1", Amount: d("50.00"), PaymentDate: "2025-03-20", Method: "bank_transfer", ExternalReference: "TRX-1"}},
		Notes:    "Gracias por su confianza.",
	}
}

// ── Render ────────────────────────────────────────────────────────────────────

func TestRender_Invoice(t *testing.T) {
	r := NewMarotoRenderer("Facturación")

	out, err := r.Render(snapshot())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, "application/pdf", r.ContentType())
}

func TestRender_DraftQuoteWithoutNumber(t *testing.T) {
	snap := snapshot()
	snap.DocumentType = "quote"
	snap.Number = ""
	snap.Status = "draft"
	snap.DueDate = nil
	vu := time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)
	snap.ValidUntil = &vu
	snap.Payments, snap.AmountPaid, snap.BalanceDue = nil, nil, nil

	out, err := NewMarotoRenderer("x").Render(snap)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRender_Nil(t *testing.T) {
	_, err := NewMarotoRenderer("x").Render(nil)
	assert.Error(t, err)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0,00"},
		{"999.5", "999,50"},
		{"25000", "25.000,00"},
		{"1000000.006", "1.000.000,01"},
		{"-1234.5", "-1.234,50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatMoney(decimal.RequireFromString(tt.in)), tt.in)
	}
}

func TestDocumentTitle(t *testing.T) {
	assert.Equal(t, "FACTURA", documentTitle("invoice"))
	assert.Equal(t, "COTIZACIÓN", documentTitle("quote"))
	assert.Equal(t, "NOTA DE CRÉDITO", documentTitle("credit_note"))
}

func TestSplitEvery(t *testing.T) {
	assert.Equal(t, []string{"ñañ", "aña"}, splitEvery("ñañaña", 3))
	assert.Nil(t, splitEvery("", 3))
}
