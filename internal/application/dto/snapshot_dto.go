package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentSnapshot vista inmutable de un documento calculado. PDF, UBL y notificaciones
// la consumen tal cual; nunca recalculan totales.
type DocumentSnapshot struct {
	DocumentType      string            `json:"document_type"`
	ID                string            `json:"id"`
	Number            string            `json:"number"`
	Status            string            `json:"status"`
	ClientID          string            `json:"client_id"`
	Currency          string            `json:"currency"`
	BaseCurrency      string            `json:"base_currency"`
	ExchangeRate      decimal.Decimal   `json:"exchange_rate"`
	IssueDate         time.Time         `json:"issue_date"`
	DueDate           *time.Time        `json:"due_date,omitempty"`
	ValidUntil        *time.Time        `json:"valid_until,omitempty"`
	InvoiceID         string            `json:"invoice_id,omitempty"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	DiscountType      string            `json:"discount_type"`
	DiscountValue     decimal.Decimal   `json:"discount_value"`
	DiscountAmount    decimal.Decimal   `json:"discount_amount"`
	TaxableSubtotal   decimal.Decimal   `json:"taxable_subtotal"`
	TaxAmount         decimal.Decimal   `json:"tax_amount"`
	Total             decimal.Decimal   `json:"total"`
	BaseCurrencyTotal decimal.Decimal   `json:"base_currency_total"`
	AmountPaid        *decimal.Decimal  `json:"amount_paid,omitempty"`
	BalanceDue        *decimal.Decimal  `json:"balance_due,omitempty"`
	VATBreakdown      []VATLine         `json:"vat_breakdown"`
	Lines             []SnapshotLine    `json:"line_items"`
	Payments          []PaymentResponse `json:"payments,omitempty"`
	Notes             string            `json:"notes,omitempty"`
}

// VATLine IVA acumulado de una tasa.
type VATLine struct {
	Rate   string          `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// SnapshotLine línea con sus valores calculados.
type SnapshotLine struct {
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	VATRate        decimal.Decimal `json:"vat_rate"`
	LineTotal      decimal.Decimal `json:"line_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
}

// ApplyCreditNoteResponse nota aplicada y factura con el saldo resultante.
type ApplyCreditNoteResponse struct {
	CreditNote *DocumentSnapshot `json:"credit_note"`
	Invoice    *DocumentSnapshot `json:"invoice"`
}
