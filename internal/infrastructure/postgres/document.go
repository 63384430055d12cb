package postgres

import (
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// Columnas de cabecera compartidas por invoices, quotes y credit_notes, en el orden de
// documentArgs y documentDest.
const documentColumns = `id, owner_id, client_id, number, currency, base_currency, exchange_rate,
	subtotal, discount_type, discount_value, discount_amount, tax_amount, total,
	base_currency_total, vat_breakdown, issue_date, notes, created_at, updated_at`

const documentColumnCount = 19

// documentSet asignaciones de UPDATE para un borrador recalculado; $1 es el id.
const documentSet = `client_id = $2, currency = $3, base_currency = $4, exchange_rate = $5,
	subtotal = $6, discount_type = $7, discount_value = $8, discount_amount = $9,
	tax_amount = $10, total = $11, base_currency_total = $12, vat_breakdown = $13,
	issue_date = $14, notes = $15, updated_at = $16`

const documentSetCount = 16

func documentArgs(d *entity.Document) []any {
	return []any{
		d.ID, d.OwnerID, d.ClientID, d.Number, d.Currency, d.BaseCurrency, d.ExchangeRate,
		d.Subtotal, d.DiscountType, d.DiscountValue, d.DiscountAmount, d.TaxAmount, d.Total,
		d.BaseCurrencyTotal, vatJSON(d.VATBreakdown), d.IssueDate, d.Notes, d.CreatedAt, d.UpdatedAt,
	}
}

func documentSetArgs(d *entity.Document) []any {
	return []any{
		d.ID, d.ClientID, d.Currency, d.BaseCurrency, d.ExchangeRate,
		d.Subtotal, d.DiscountType, d.DiscountValue, d.DiscountAmount,
		d.TaxAmount, d.Total, d.BaseCurrencyTotal, vatJSON(d.VATBreakdown),
		d.IssueDate, d.Notes, d.UpdatedAt,
	}
}

func documentDest(d *entity.Document) []any {
	return []any{
		&d.ID, &d.OwnerID, &d.ClientID, &d.Number, &d.Currency, &d.BaseCurrency, &d.ExchangeRate,
		&d.Subtotal, &d.DiscountType, &d.DiscountValue, &d.DiscountAmount, &d.TaxAmount, &d.Total,
		&d.BaseCurrencyTotal, &d.VATBreakdown, &d.IssueDate, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
	}
}
