package entity

import "time"

// QuoteStatus estado de una cotización.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// Quote cotización. ConvertedInvoiceID se asigna una sola vez (la conversión es terminal).
type Quote struct {
	Document
	Status             QuoteStatus
	ValidUntil         time.Time
	SentAt             *time.Time
	AcceptedAt         *time.Time
	RejectedAt         *time.Time
	ConvertedInvoiceID *string
}
