package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaymentLedger registra pagos y aplicaciones de notas de crédito. Cada operación bloquea la
// fila de la factura y vuelve a derivar saldo y estado desde el historial completo.
type PaymentLedger struct {
	tx    TxRunner
	clock Clock
	log   zerolog.Logger
}

// NewPaymentLedger construye el libro de pagos.
func NewPaymentLedger(tx TxRunner, clock Clock, log zerolog.Logger) *PaymentLedger {
	return &PaymentLedger{tx: tx, clock: clock, log: log}
}

// RecordPayment registra un pago manual. Una referencia externa repetida para la misma
// factura devuelve domain.ErrDuplicateExternalReference.
func (l *PaymentLedger) RecordPayment(ctx context.Context, ownerID, invoiceID string, req dto.RecordPaymentRequest) (*entity.Invoice, error) {
	method := entity.PaymentMethod(req.Method)
	if !method.IsValid() || method == entity.PaymentMethodRefund || method == entity.PaymentMethodCreditNote {
		return nil, domain.NewValidationError("method", fmt.Sprintf("medio de pago no admitido: %q", req.Method))
	}
	date, ok, err := dto.ParseDate(req.PaymentDate)
	if err != nil {
		return nil, domain.NewValidationError("payment_date", "fecha inválida")
	}
	if !ok {
		date = startOfDay(l.clock.Now())
	}
	var ref *string
	if r := strings.TrimSpace(req.ExternalReference); r != "" {
		ref = &r
	}

	var inv *entity.Invoice
	err = l.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		inv, err = loadInvoice(ctx, r, ownerID, invoiceID, true)
		if err != nil {
			return err
		}
		return l.recordPaymentInTx(ctx, r, inv, entity.Payment{
			Amount:            req.Amount,
			PaymentDate:       date,
			Method:            method,
			ExternalReference: ref,
			Notes:             req.Notes,
		})
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// recordPaymentInTx valida y agrega el pago sobre una factura ya bloqueada por el llamador.
func (l *PaymentLedger) recordPaymentInTx(ctx context.Context, r Repos, inv *entity.Invoice, p entity.Payment) error {
	if !inv.Status.CanReceivePayment() {
		return &domain.InvalidTransitionError{Document: "invoice", Current: string(inv.Status), Target: "payment"}
	}
	if !p.Amount.IsPositive() {
		return domain.NewValidationError("amount", "debe ser mayor que cero")
	}
	p.Amount = billing.RoundMoney(p.Amount)
	if p.ExternalReference != nil {
		existing, err := r.Payments.GetByReference(ctx, inv.ID, *p.ExternalReference)
		if err != nil {
			return fmt.Errorf("buscar referencia: %w", err)
		}
		if existing != nil {
			return domain.ErrDuplicateExternalReference
		}
	}
	if p.Amount.GreaterThan(inv.BalanceDue) {
		return domain.ErrPaymentExceedsBalance
	}
	return l.appendAndRecompute(ctx, r, inv, p)
}

// appendAndRecompute inserta el pago (positivo o reembolso) y recalcula la factura.
func (l *PaymentLedger) appendAndRecompute(ctx context.Context, r Repos, inv *entity.Invoice, p entity.Payment) error {
	now := l.clock.Now()
	p.ID = uuid.New().String()
	p.InvoiceID = inv.ID
	p.CreatedAt = now
	if p.PaymentDate.IsZero() {
		p.PaymentDate = startOfDay(now)
	}
	if err := r.Payments.Create(ctx, &p); err != nil {
		if errors.Is(err, domain.ErrDuplicateExternalReference) {
			return err
		}
		return fmt.Errorf("registrar pago: %w", err)
	}
	l.log.Info().Str("invoice_id", inv.ID).Str("payment_id", p.ID).
		Str("amount", p.Amount.StringFixed(2)).Str("method", string(p.Method)).Msg("pago registrado")
	return l.recomputeInTx(ctx, r, inv)
}

// recomputeInTx deriva amount_paid, balance_due y estado desde todos los pagos.
func (l *PaymentLedger) recomputeInTx(ctx context.Context, r Repos, inv *entity.Invoice) error {
	payments, err := r.Payments.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("leer pagos: %w", err)
	}
	prev := inv.Status
	now := l.clock.Now()
	if billing.RecomputeBalance(inv, payments, now) {
		l.log.Info().Str("invoice_id", inv.ID).Str("from", string(prev)).Str("to", string(inv.Status)).
			Msg("estado de factura recalculado")
	}
	inv.Payments = payments
	inv.UpdatedAt = now
	if err := r.Invoices.Update(ctx, inv); err != nil {
		return fmt.Errorf("actualizar factura: %w", err)
	}
	return nil
}

// ApplyCreditNote acredita una nota enviada contra su factura y la marca applied. La
// referencia credit_note:<número> impide aplicarla dos veces.
func (l *PaymentLedger) ApplyCreditNote(ctx context.Context, ownerID, creditNoteID string) (*entity.CreditNote, *entity.Invoice, error) {
	var (
		cn  *entity.CreditNote
		inv *entity.Invoice
	)
	err := l.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		cn, err = loadCreditNote(ctx, r, ownerID, creditNoteID, true)
		if err != nil {
			return err
		}
		if !billing.CreditNoteLifecycle.CanTransitionTo(cn.Status, entity.CreditNoteStatusApplied) {
			return &domain.InvalidTransitionError{Document: "credit_note", Current: string(cn.Status), Target: string(entity.CreditNoteStatusApplied)}
		}
		inv, err = loadInvoice(ctx, r, "", cn.InvoiceID, true)
		if err != nil {
			return err
		}
		if inv.Currency != cn.Currency {
			return domain.NewValidationError("currency", "la nota de crédito y la factura deben tener la misma moneda")
		}
		if cn.Total.GreaterThan(inv.BalanceDue) {
			return domain.ErrCreditNoteExceedsBalance
		}
		ref := cn.IdempotencyKey()
		now := l.clock.Now()
		err = l.recordPaymentInTx(ctx, r, inv, entity.Payment{
			Amount:            cn.Total,
			PaymentDate:       startOfDay(now),
			Method:            entity.PaymentMethodCreditNote,
			ExternalReference: &ref,
			Notes:             "nota de crédito " + cn.Number,
		})
		if err != nil {
			return err
		}
		cn.Status = entity.CreditNoteStatusApplied
		cn.AppliedAt = &now
		cn.UpdatedAt = now
		if err := r.CreditNotes.Update(ctx, cn); err != nil {
			return fmt.Errorf("actualizar nota de crédito: %w", err)
		}
		l.log.Info().Str("credit_note_id", cn.ID).Str("invoice_id", inv.ID).
			Str("amount", cn.Total.StringFixed(2)).Msg("nota de crédito aplicada")
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return cn, inv, nil
}

// RegisterPaymentIntent registra el intento de pago del proveedor por el saldo pendiente.
func (l *PaymentLedger) RegisterPaymentIntent(ctx context.Context, ownerID, invoiceID, intentID string) (*entity.PaymentIntent, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, domain.NewValidationError("intent_id", "es obligatorio")
	}
	var pi *entity.PaymentIntent
	err := l.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		inv, err := loadInvoice(ctx, r, ownerID, invoiceID, true)
		if err != nil {
			return err
		}
		if !inv.Status.CanReceivePayment() || !inv.BalanceDue.IsPositive() {
			return &domain.InvalidTransitionError{Document: "invoice", Current: string(inv.Status), Target: "payment"}
		}
		existing, err := r.PaymentIntents.GetForUpdate(ctx, intentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrConflict
		}
		now := l.clock.Now()
		pi = &entity.PaymentIntent{
			ID:             intentID,
			InvoiceID:      inv.ID,
			Amount:         inv.BalanceDue,
			Currency:       inv.Currency,
			Status:         entity.PaymentIntentRequiresPayment,
			RefundedAmount: decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return r.PaymentIntents.Create(ctx, pi)
	})
	if err != nil {
		return nil, err
	}
	return pi, nil
}

// UnappliedPaymentIntents intentos cobrados por el proveedor que no generaron pago en el libro.
func (l *PaymentLedger) UnappliedPaymentIntents(ctx context.Context) ([]entity.PaymentIntent, error) {
	var out []entity.PaymentIntent
	err := l.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		out, err = r.PaymentIntents.ListByStatus(ctx, entity.PaymentIntentSucceededUnapplied)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listar intentos sin aplicar: %w", err)
	}
	return out, nil
}
