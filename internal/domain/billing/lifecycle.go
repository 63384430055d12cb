package billing

import (
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// Lifecycle máquina de estados pura: tabla actual -> destinos permitidos.
type Lifecycle[S ~string] struct {
	document string
	edges    map[S]map[S]struct{}
}

// NewLifecycle construye la tabla de transiciones de un tipo de documento.
func NewLifecycle[S ~string](document string, edges map[S][]S) Lifecycle[S] {
	l := Lifecycle[S]{document: document, edges: make(map[S]map[S]struct{}, len(edges))}
	for from, targets := range edges {
		set := make(map[S]struct{}, len(targets))
		for _, t := range targets {
			set[t] = struct{}{}
		}
		l.edges[from] = set
	}
	return l
}

// CanTransitionTo indica si current -> target es una arista del grafo.
func (l Lifecycle[S]) CanTransitionTo(current, target S) bool {
	_, ok := l.edges[current][target]
	return ok
}

// Transition valida current -> target. Devuelve *domain.InvalidTransitionError si no es legal.
func (l Lifecycle[S]) Transition(current, target S) (S, error) {
	if !l.CanTransitionTo(current, target) {
		return current, &domain.InvalidTransitionError{
			Document: l.document,
			Current:  string(current),
			Target:   string(target),
		}
	}
	return target, nil
}

// IsTerminal indica que el estado no tiene salidas.
func (l Lifecycle[S]) IsTerminal(s S) bool {
	return len(l.edges[s]) == 0
}

// InvoiceLifecycle grafo de la factura. paid -> {sent, partially_paid} solo ocurre al
// recalcular el saldo tras un reembolso.
var InvoiceLifecycle = NewLifecycle("invoice", map[entity.InvoiceStatus][]entity.InvoiceStatus{
	entity.InvoiceStatusDraft: {entity.InvoiceStatusSent},
	entity.InvoiceStatusSent: {
		entity.InvoiceStatusViewed, entity.InvoiceStatusPartiallyPaid, entity.InvoiceStatusPaid,
		entity.InvoiceStatusOverdue, entity.InvoiceStatusCancelled,
	},
	entity.InvoiceStatusViewed: {
		entity.InvoiceStatusPartiallyPaid, entity.InvoiceStatusPaid,
		entity.InvoiceStatusOverdue, entity.InvoiceStatusCancelled,
	},
	entity.InvoiceStatusPartiallyPaid: {
		entity.InvoiceStatusPaid, entity.InvoiceStatusOverdue,
		entity.InvoiceStatusCancelled, entity.InvoiceStatusSent,
	},
	entity.InvoiceStatusOverdue: {
		entity.InvoiceStatusPartiallyPaid, entity.InvoiceStatusPaid, entity.InvoiceStatusCancelled,
	},
	entity.InvoiceStatusPaid: {
		entity.InvoiceStatusSent, entity.InvoiceStatusPartiallyPaid, entity.InvoiceStatusCancelled,
	},
})

// LedgerManaged indica si el estado solo puede alcanzarse a través del libro de pagos.
func LedgerManaged(s entity.InvoiceStatus) bool {
	return s == entity.InvoiceStatusPaid || s == entity.InvoiceStatusPartiallyPaid
}

// TransitionInvoiceManually valida una transición pedida por un usuario (enviar, ver,
// vencer, anular). Los estados de pago y la salida de paid/partially_paid se rechazan.
func TransitionInvoiceManually(current, target entity.InvoiceStatus) (entity.InvoiceStatus, error) {
	if LedgerManaged(target) || (LedgerManaged(current) && target == entity.InvoiceStatusSent) {
		return current, &domain.InvalidTransitionError{Document: "invoice", Current: string(current), Target: string(target)}
	}
	return InvoiceLifecycle.Transition(current, target)
}

// QuoteLifecycle grafo de la cotización. La conversión a factura no cambia el estado:
// accepted guarda el vínculo converted_invoice_id una sola vez.
var QuoteLifecycle = NewLifecycle("quote", map[entity.QuoteStatus][]entity.QuoteStatus{
	entity.QuoteStatusDraft: {entity.QuoteStatusSent},
	entity.QuoteStatusSent:  {entity.QuoteStatusAccepted, entity.QuoteStatusRejected, entity.QuoteStatusExpired},
})

// CreditNoteLifecycle grafo de la nota de crédito; applied es terminal.
var CreditNoteLifecycle = NewLifecycle("credit_note", map[entity.CreditNoteStatus][]entity.CreditNoteStatus{
	entity.CreditNoteStatusDraft: {entity.CreditNoteStatusSent},
	entity.CreditNoteStatusSent:  {entity.CreditNoteStatusApplied},
})

// ProfileLifecycle grafo del perfil recurrente. active -> completed lo decide el programador.
var ProfileLifecycle = NewLifecycle("recurring_profile", map[entity.ProfileStatus][]entity.ProfileStatus{
	entity.ProfileStatusActive: {entity.ProfileStatusPaused, entity.ProfileStatusCancelled, entity.ProfileStatusCompleted},
	entity.ProfileStatusPaused: {entity.ProfileStatusActive, entity.ProfileStatusCancelled},
})
