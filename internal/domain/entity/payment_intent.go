package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentIntentStatus estado local de un intento de pago en la pasarela.
type PaymentIntentStatus string

const (
	PaymentIntentRequiresPayment PaymentIntentStatus = "requires_payment"
	PaymentIntentFailed          PaymentIntentStatus = "failed"
	PaymentIntentSucceeded       PaymentIntentStatus = "succeeded"
	PaymentIntentRefunded        PaymentIntentStatus = "refunded"

	// PaymentIntentSucceededUnapplied cobrado por el proveedor sin pago en el libro: la factura
	// ya no admitía pagos. Queda pendiente de revisión (reembolso o aplicación manual).
	PaymentIntentSucceededUnapplied PaymentIntentStatus = "succeeded_unapplied"
)

// Rank orden de avance; un evento con rango menor al actual llega tarde y se ignora.
func (s PaymentIntentStatus) Rank() int {
	switch s {
	case PaymentIntentFailed:
		return 1
	case PaymentIntentSucceeded, PaymentIntentSucceededUnapplied:
		return 2
	case PaymentIntentRefunded:
		return 3
	}
	return 0
}

// PaymentIntent intento de pago externo (ID = id opaco del proveedor) contra una factura.
type PaymentIntent struct {
	ID             string
	InvoiceID      string
	Amount         decimal.Decimal // importe esperado en la moneda de la factura
	Currency       string
	Status         PaymentIntentStatus
	FailureMessage string // motivo del fallo o de la falta de aplicación
	RefundedAmount decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
