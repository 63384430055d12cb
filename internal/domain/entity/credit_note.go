package entity

import "time"

// CreditNoteStatus estado de una nota de crédito.
type CreditNoteStatus string

const (
	CreditNoteStatusDraft   CreditNoteStatus = "draft"
	CreditNoteStatusSent    CreditNoteStatus = "sent"
	CreditNoteStatusApplied CreditNoteStatus = "applied"
)

// CreditNote nota de crédito que compensa el saldo de InvoiceID.
// Invariante: Total <= saldo pendiente de la factura al crear, actualizar y aplicar.
type CreditNote struct {
	Document
	Status    CreditNoteStatus
	InvoiceID string
	Reason    string
	SentAt    *time.Time
	AppliedAt *time.Time
}

// IdempotencyKey referencia externa con la que se registra el pago al aplicarla.
func (cn *CreditNote) IdempotencyKey() string {
	return "credit_note:" + cn.Number
}
