package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItemRequest línea de un documento.
type LineItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	SortOrder   *int            `json:"sort_order,omitempty"`
}

// DocumentRequest campos comunes a factura, cotización y nota de crédito.
// Currency vacía usa la moneda base; IssueDate vacía usa la fecha actual.
type DocumentRequest struct {
	ClientID      string            `json:"client_id" validate:"required,max=64"`
	Currency      string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	IssueDate     string            `json:"issue_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DiscountType  string            `json:"discount_type,omitempty" validate:"omitempty,oneof=none percentage fixed"`
	DiscountValue decimal.Decimal   `json:"discount_value"`
	Notes         string            `json:"notes,omitempty" validate:"max=2000"`
	LineItems     []LineItemRequest `json:"line_items" validate:"dive"`
}

// CreateInvoiceRequest body para POST/PUT /api/invoices.
type CreateInvoiceRequest struct {
	DocumentRequest
	DueDate string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CreateQuoteRequest body para POST/PUT /api/quotes.
type CreateQuoteRequest struct {
	DocumentRequest
	ValidUntil string `json:"valid_until,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CreateCreditNoteRequest body para POST/PUT /api/credit-notes.
type CreateCreditNoteRequest struct {
	DocumentRequest
	InvoiceID string `json:"invoice_id" validate:"required"`
	Reason    string `json:"reason,omitempty" validate:"max=500"`
}

// RecordPaymentRequest body para POST /api/invoices/:id/payments.
type RecordPaymentRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method" validate:"required,oneof=bank_transfer card cash check other"`
	PaymentDate       string          `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ExternalReference string          `json:"external_reference,omitempty" validate:"max=255"`
	Notes             string          `json:"notes,omitempty" validate:"max=500"`
}

// RegisterPaymentIntentRequest body para POST /api/invoices/:id/payment-intents.
type RegisterPaymentIntentRequest struct {
	IntentID string `json:"intent_id" validate:"required,max=255"`
}

// CreateRecurringProfileRequest body para POST /api/recurring-profiles.
type CreateRecurringProfileRequest struct {
	ClientID         string            `json:"client_id" validate:"required,max=64"`
	Currency         string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Frequency        string            `json:"frequency" validate:"required,oneof=weekly biweekly monthly quarterly semiannual annual"`
	StartDate        string            `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string            `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DayOfMonth       *int              `json:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
	MaxOccurrences   *int              `json:"max_occurrences,omitempty" validate:"omitempty,min=1"`
	PaymentTermsDays *int              `json:"payment_terms_days,omitempty" validate:"omitempty,min=0,max=365"`
	DiscountType     string            `json:"discount_type,omitempty" validate:"omitempty,oneof=none percentage fixed"`
	DiscountValue    decimal.Decimal   `json:"discount_value"`
	Notes            string            `json:"notes,omitempty" validate:"max=2000"`
	LineItems        []LineItemRequest `json:"line_items" validate:"required,min=1,dive"`
}

// RecordRateRequest body para POST /api/rates. FetchedAt vacío usa el instante actual.
type RecordRateRequest struct {
	BaseCurrency   string          `json:"base_currency" validate:"required,len=3"`
	TargetCurrency string          `json:"target_currency" validate:"required,len=3"`
	Rate           decimal.Decimal `json:"rate"`
	FetchedAt      *time.Time      `json:"fetched_at,omitempty"`
	Source         string          `json:"source,omitempty" validate:"max=100"`
}

// ConvertResponse respuesta de GET /api/rates/convert.
type ConvertResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"converted"`
	AsOf      time.Time       `json:"as_of"`
}

// PaymentResponse pago en respuestas.
type PaymentResponse struct {
	ID                string          `json:"id"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentDate       string          `json:"payment_date"`
	Method            string          `json:"method"`
	ExternalReference string          `json:"external_reference,omitempty"`
}

// PaymentIntentResponse intento de pago registrado.
type PaymentIntentResponse struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Reason    string          `json:"reason,omitempty"`
}

// RecurringProfileResponse perfil recurrente en respuestas.
type RecurringProfileResponse struct {
	ID                     string  `json:"id"`
	ClientID               string  `json:"client_id"`
	Currency               string  `json:"currency"`
	Frequency              string  `json:"frequency"`
	Status                 string  `json:"status"`
	StartDate              string  `json:"start_date"`
	EndDate                string  `json:"end_date,omitempty"`
	DayOfMonth             *int    `json:"day_of_month,omitempty"`
	NextDueDate            string  `json:"next_due_date"`
	OccurrencesGenerated   int     `json:"occurrences_generated"`
	MaxOccurrences         *int    `json:"max_occurrences,omitempty"`
	PaymentTermsDays       int     `json:"payment_terms_days"`
	LastGeneratedInvoiceID *string `json:"last_generated_invoice_id,omitempty"`
}

// ExchangeRateResponse tasa registrada.
type ExchangeRateResponse struct {
	ID             string          `json:"id"`
	BaseCurrency   string          `json:"base_currency"`
	TargetCurrency string          `json:"target_currency"`
	Rate           decimal.Decimal `json:"rate"`
	FetchedAt      time.Time       `json:"fetched_at"`
	Source         string          `json:"source,omitempty"`
}
