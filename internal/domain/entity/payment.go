package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod medio de pago.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodCreditNote   PaymentMethod = "credit_note"
	PaymentMethodProvider     PaymentMethod = "provider" // pasarela externa (payment intent)
	PaymentMethodRefund       PaymentMethod = "refund"   // importe negativo
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid indica si el medio es conocido.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodCash, PaymentMethodCheck,
		PaymentMethodCreditNote, PaymentMethodProvider, PaymentMethodRefund, PaymentMethodOther:
		return true
	}
	return false
}

// Payment pago aplicado a una factura. Solo se insertan (append-only); las correcciones son
// nuevos pagos o reembolsos con importe negativo.
type Payment struct {
	ID                string
	InvoiceID         string
	Amount            decimal.Decimal
	PaymentDate       time.Time
	Method            PaymentMethod
	ExternalReference *string // clave de idempotencia (credit_note:<número>, id de intent, refund:<id>)
	Notes             string
	CreatedAt         time.Time
}
