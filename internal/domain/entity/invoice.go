package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus estado del ciclo de vida de una factura.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusViewed        InvoiceStatus = "viewed"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

// CanReceivePayment indica si el estado admite registrar pagos.
func (s InvoiceStatus) CanReceivePayment() bool {
	switch s {
	case InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// Invoice factura. AmountPaid y BalanceDue se derivan siempre del historial de pagos.
type Invoice struct {
	Document
	Status             InvoiceStatus
	DueDate            time.Time
	AmountPaid         decimal.Decimal
	BalanceDue         decimal.Decimal
	SentAt             *time.Time
	ViewedAt           *time.Time
	PaidAt             *time.Time
	CancelledAt        *time.Time
	QuoteID            *string
	RecurringProfileID *string
	Payments           []Payment
}
