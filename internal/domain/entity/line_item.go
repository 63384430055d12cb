package entity

import "github.com/shopspring/decimal"

// LineItem línea de un documento. Inmutable una vez que el documento sale de borrador.
// LineTotal, DiscountAmount, TaxableAmount y VATAmount son valores calculados y persistidos
// para que los exportadores no recalculen.
type LineItem struct {
	ID             string
	DocumentType   DocumentType
	DocumentID     string
	Description    string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	VATRate        decimal.Decimal // porcentaje, ej. 20 = 20 %
	SortOrder      int
	LineTotal      decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	VATAmount      decimal.Decimal
}
