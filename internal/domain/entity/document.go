package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType identifica la familia de documento financiero dueño de las líneas.
type DocumentType string

const (
	DocumentTypeInvoice          DocumentType = "invoice"
	DocumentTypeQuote            DocumentType = "quote"
	DocumentTypeCreditNote       DocumentType = "credit_note"
	DocumentTypeRecurringProfile DocumentType = "recurring_profile" // solo líneas plantilla
)

// Table devuelve la tabla donde se persisten los documentos del tipo (también es el
// componente "table" del alcance de numeración).
func (t DocumentType) Table() string {
	switch t {
	case DocumentTypeInvoice:
		return "invoices"
	case DocumentTypeQuote:
		return "quotes"
	case DocumentTypeCreditNote:
		return "credit_notes"
	case DocumentTypeRecurringProfile:
		return "recurring_profiles"
	}
	return ""
}

// DiscountType tipo de descuento global del documento.
type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// IsValid indica si el tipo de descuento es soportado.
func (d DiscountType) IsValid() bool {
	switch d {
	case DiscountNone, DiscountPercentage, DiscountFixed:
		return true
	}
	return false
}

// Document forma común de Invoice, Quote y CreditNote.
// Invariante: Total == Subtotal - DiscountAmount + TaxAmount (2 decimales), recalculado
// siempre junto con LineItems.
type Document struct {
	ID                string
	OwnerID           string
	ClientID          string
	Number            string
	Currency          string
	BaseCurrency      string
	ExchangeRate      decimal.Decimal // tasa Currency -> BaseCurrency a la fecha de emisión
	Subtotal          decimal.Decimal
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	DiscountAmount    decimal.Decimal
	TaxAmount         decimal.Decimal
	Total             decimal.Decimal
	BaseCurrencyTotal decimal.Decimal
	VATBreakdown      map[string]decimal.Decimal // tasa canónica -> IVA
	IssueDate         time.Time
	Notes             string
	LineItems         []LineItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TaxableSubtotal subtotal después de descuento.
func (d *Document) TaxableSubtotal() decimal.Decimal {
	return d.Subtotal.Sub(d.DiscountAmount)
}
