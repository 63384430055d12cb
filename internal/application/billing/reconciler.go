package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaymentEventType tipo de evento del proveedor de pagos.
type PaymentEventType string

const (
	EventPaymentSucceeded PaymentEventType = "payment_intent.succeeded"
	EventPaymentFailed    PaymentEventType = "payment_intent.payment_failed"
	EventChargeRefunded   PaymentEventType = "charge.refunded"
)

// TargetStatus estado local al que lleva el evento.
func (t PaymentEventType) TargetStatus() (entity.PaymentIntentStatus, bool) {
	switch t {
	case EventPaymentSucceeded:
		return entity.PaymentIntentSucceeded, true
	case EventPaymentFailed:
		return entity.PaymentIntentFailed, true
	case EventChargeRefunded:
		return entity.PaymentIntentRefunded, true
	}
	return "", false
}

// PaymentEvent evento externo ya verificado. AmountMinor está en centavos; en charge.refunded
// es el acumulado reembolsado.
type PaymentEvent struct {
	EventID        string
	Type           PaymentEventType
	IntentID       string
	AmountMinor    *int64
	Currency       string
	FailureMessage string
}

// Outcome resultado de procesar un evento.
type Outcome string

const (
	OutcomeProcessed      Outcome = "processed"
	OutcomeAlreadyHandled Outcome = "already_handled"
	OutcomeDuplicateEvent Outcome = "duplicate_event"
	OutcomeIgnored        Outcome = "ignored"

	// OutcomeUnapplied el proveedor cobró pero la factura ya no admitía el pago; el intento
	// queda en succeeded_unapplied con el motivo.
	OutcomeUnapplied Outcome = "unapplied"
)

// errAlreadyApplied corta la transacción cuando la unicidad de la referencia detecta el duplicado.
var errAlreadyApplied = errors.New("pago ya aplicado")

// Reconciler aplica eventos del proveedor al libro de pagos exactamente una vez.
// Capas de idempotencia: id de evento procesado (opcional), estado local del intento y
// unicidad de external_reference por factura.
type Reconciler struct {
	tx       TxRunner
	ledger   *PaymentLedger
	events   ProcessedEventStore
	settings Settings
	log      zerolog.Logger
}

// NewReconciler construye el conciliador. events puede ser nil.
func NewReconciler(tx TxRunner, ledger *PaymentLedger, events ProcessedEventStore, settings Settings, log zerolog.Logger) *Reconciler {
	return &Reconciler{tx: tx, ledger: ledger, events: events, settings: settings, log: log}
}

// Handle procesa un evento. Los eventos de intentos desconocidos o atrasados se ignoran sin
// error para que el proveedor no los reenvíe.
func (c *Reconciler) Handle(ctx context.Context, ev PaymentEvent) (Outcome, error) {
	target, ok := ev.Type.TargetStatus()
	if !ok {
		c.log.Debug().Str("type", string(ev.Type)).Msg("evento de pago no manejado")
		return OutcomeIgnored, nil
	}
	if ev.IntentID == "" {
		return "", domain.NewValidationError("intent_id", "es obligatorio")
	}
	if c.events != nil && ev.EventID != "" {
		done, err := c.events.IsProcessed(ctx, ev.EventID)
		if err != nil {
			return "", fmt.Errorf("consultar evento procesado: %w", err)
		}
		if done {
			return OutcomeDuplicateEvent, nil
		}
	}

	var outcome Outcome
	err := c.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		outcome, err = c.apply(ctx, r, ev, target)
		return err
	})
	if errors.Is(err, errAlreadyApplied) {
		outcome, err = OutcomeAlreadyHandled, nil
	}
	if err != nil {
		return "", err
	}

	if c.events != nil && ev.EventID != "" {
		if _, err := c.events.MarkProcessed(ctx, ev.EventID, c.settings.EventTTL); err != nil {
			c.log.Warn().Err(err).Str("event_id", ev.EventID).Msg("no se pudo marcar el evento como procesado")
		}
	}
	return outcome, nil
}

func (c *Reconciler) apply(ctx context.Context, r Repos, ev PaymentEvent, target entity.PaymentIntentStatus) (Outcome, error) {
	pi, err := r.PaymentIntents.GetForUpdate(ctx, ev.IntentID)
	if err != nil {
		return "", fmt.Errorf("leer payment intent: %w", err)
	}
	if pi == nil {
		c.log.Warn().Str("intent_id", ev.IntentID).Str("type", string(ev.Type)).Msg("payment intent desconocido")
		return OutcomeIgnored, nil
	}

	switch target {
	case entity.PaymentIntentSucceeded:
		return c.applySucceeded(ctx, r, ev, pi)
	case entity.PaymentIntentFailed:
		return c.applyFailed(ctx, r, ev, pi)
	default:
		return c.applyRefunded(ctx, r, ev, pi)
	}
}

// stale indica un evento que llega después de uno más avanzado del mismo intento.
func (c *Reconciler) stale(ev PaymentEvent, pi *entity.PaymentIntent, target entity.PaymentIntentStatus) bool {
	if target.Rank() >= pi.Status.Rank() {
		return false
	}
	c.log.Warn().Str("intent_id", pi.ID).Str("type", string(ev.Type)).Str("current", string(pi.Status)).
		Msg("evento de pago atrasado, se ignora")
	return true
}

func (c *Reconciler) applySucceeded(ctx context.Context, r Repos, ev PaymentEvent, pi *entity.PaymentIntent) (Outcome, error) {
	if pi.Status == entity.PaymentIntentSucceeded || pi.Status == entity.PaymentIntentSucceededUnapplied {
		return OutcomeAlreadyHandled, nil
	}
	if c.stale(ev, pi, entity.PaymentIntentSucceeded) {
		return OutcomeIgnored, nil
	}
	inv, err := r.Invoices.GetForUpdate(ctx, pi.InvoiceID)
	if err != nil {
		return "", fmt.Errorf("leer factura: %w", err)
	}
	if inv == nil {
		c.log.Warn().Str("intent_id", pi.ID).Str("invoice_id", pi.InvoiceID).Msg("factura del payment intent no existe")
		return OutcomeIgnored, nil
	}

	amount := c.settledAmount(ev, pi)
	existing, err := r.Payments.GetByReference(ctx, inv.ID, pi.ID)
	if err != nil {
		return "", fmt.Errorf("buscar referencia: %w", err)
	}
	switch {
	case existing != nil:
		// la capa de estado fue saltada; el pago ya existe
	case !inv.Status.CanReceivePayment():
		return c.markUnapplied(ctx, r, pi, amount, fmt.Sprintf("factura en estado %s no admite pagos", inv.Status))
	case !inv.BalanceDue.IsPositive():
		return c.markUnapplied(ctx, r, pi, amount, "factura sin saldo pendiente")
	default:
		if amount.GreaterThan(inv.BalanceDue) {
			c.log.Warn().Str("intent_id", pi.ID).Str("invoice_id", inv.ID).
				Str("received", amount.StringFixed(2)).Str("balance_due", inv.BalanceDue.StringFixed(2)).
				Msg("pago del proveedor excede el saldo, se limita al saldo")
			amount = inv.BalanceDue
		}
		ref := pi.ID
		err := c.ledger.recordPaymentInTx(ctx, r, inv, entity.Payment{
			Amount:            amount,
			Method:            entity.PaymentMethodProvider,
			ExternalReference: &ref,
			Notes:             string(ev.Type),
		})
		if errors.Is(err, domain.ErrDuplicateExternalReference) {
			return "", errAlreadyApplied
		}
		if err != nil {
			return "", err
		}
	}
	if err := c.ledger.recomputeInTx(ctx, r, inv); err != nil {
		return "", err
	}

	pi.Status = entity.PaymentIntentSucceeded
	pi.FailureMessage = ""
	pi.UpdatedAt = c.ledger.clock.Now()
	if err := r.PaymentIntents.Update(ctx, pi); err != nil {
		return "", fmt.Errorf("actualizar payment intent: %w", err)
	}
	return OutcomeProcessed, nil
}

// markUnapplied deja constancia de un cobro que no entra al libro. No es un error: reintentar
// no cambia nada, pero el intento queda consultable hasta que alguien lo resuelva.
func (c *Reconciler) markUnapplied(ctx context.Context, r Repos, pi *entity.PaymentIntent, amount decimal.Decimal, reason string) (Outcome, error) {
	c.log.Error().Str("intent_id", pi.ID).Str("invoice_id", pi.InvoiceID).
		Str("amount", amount.StringFixed(2)).Str("reason", reason).
		Msg("cobro del proveedor sin aplicar")
	pi.Status = entity.PaymentIntentSucceededUnapplied
	pi.FailureMessage = reason
	pi.UpdatedAt = c.ledger.clock.Now()
	if err := r.PaymentIntents.Update(ctx, pi); err != nil {
		return "", fmt.Errorf("actualizar payment intent: %w", err)
	}
	return OutcomeUnapplied, nil
}

// settledAmount importe a registrar: el recibido si viene en la moneda esperada, si no el
// esperado. Las diferencias solo se registran en el log.
func (c *Reconciler) settledAmount(ev PaymentEvent, pi *entity.PaymentIntent) decimal.Decimal {
	currencyOK := true
	if ev.Currency != "" {
		if cur, err := NormalizeCurrency(ev.Currency); err != nil || cur != pi.Currency {
			currencyOK = false
			c.log.Warn().Str("intent_id", pi.ID).Str("invoice_id", pi.InvoiceID).
				Str("expected", pi.Currency).Str("received", ev.Currency).Msg("moneda del proveedor no coincide")
		}
	}
	if ev.AmountMinor == nil {
		return pi.Amount
	}
	received := billing.FromMinorUnits(*ev.AmountMinor)
	if !received.Equal(pi.Amount) {
		c.log.Warn().Str("intent_id", pi.ID).Str("invoice_id", pi.InvoiceID).
			Str("expected", pi.Amount.StringFixed(2)).Str("received", received.StringFixed(2)).
			Msg("importe del proveedor no coincide con el esperado")
	}
	if !currencyOK || !received.IsPositive() {
		return pi.Amount
	}
	return received
}

func (c *Reconciler) applyFailed(ctx context.Context, r Repos, ev PaymentEvent, pi *entity.PaymentIntent) (Outcome, error) {
	if pi.Status == entity.PaymentIntentFailed {
		return OutcomeAlreadyHandled, nil
	}
	if c.stale(ev, pi, entity.PaymentIntentFailed) {
		return OutcomeIgnored, nil
	}
	pi.Status = entity.PaymentIntentFailed
	pi.FailureMessage = ev.FailureMessage
	pi.UpdatedAt = c.ledger.clock.Now()
	if err := r.PaymentIntents.Update(ctx, pi); err != nil {
		return "", fmt.Errorf("actualizar payment intent: %w", err)
	}
	c.log.Info().Str("intent_id", pi.ID).Str("invoice_id", pi.InvoiceID).Str("reason", ev.FailureMessage).Msg("pago fallido")
	return OutcomeProcessed, nil
}

// applyRefunded agrega un pago negativo por lo reembolsado que aún no estaba registrado. El
// pago original se conserva.
func (c *Reconciler) applyRefunded(ctx context.Context, r Repos, ev PaymentEvent, pi *entity.PaymentIntent) (Outcome, error) {
	refunded := pi.Amount
	if ev.AmountMinor != nil {
		refunded = billing.FromMinorUnits(*ev.AmountMinor)
	}
	if pi.Status == entity.PaymentIntentRefunded && pi.RefundedAmount.GreaterThanOrEqual(refunded) {
		return OutcomeAlreadyHandled, nil
	}

	inv, err := r.Invoices.GetForUpdate(ctx, pi.InvoiceID)
	if err != nil {
		return "", fmt.Errorf("leer factura: %w", err)
	}
	if inv == nil {
		c.log.Warn().Str("intent_id", pi.ID).Str("invoice_id", pi.InvoiceID).Msg("factura del payment intent no existe")
		return OutcomeIgnored, nil
	}

	paidViaIntent := decimal.Zero
	original, err := r.Payments.GetByReference(ctx, inv.ID, pi.ID)
	if err != nil {
		return "", fmt.Errorf("buscar referencia: %w", err)
	}
	if original != nil {
		paidViaIntent = original.Amount
	}
	newTotal := decimal.Min(refunded, paidViaIntent)
	prevTotal := decimal.Min(pi.RefundedAmount, paidViaIntent)
	delta := billing.RoundMoney(newTotal.Sub(prevTotal))

	if delta.IsPositive() {
		ref := fmt.Sprintf("refund:%s:%d", pi.ID, billing.ToMinorUnits(newTotal))
		existing, err := r.Payments.GetByReference(ctx, inv.ID, ref)
		if err != nil {
			return "", fmt.Errorf("buscar referencia: %w", err)
		}
		if existing == nil {
			err := c.ledger.appendAndRecompute(ctx, r, inv, entity.Payment{
				Amount:            delta.Neg(),
				Method:            entity.PaymentMethodRefund,
				ExternalReference: &ref,
				Notes:             string(ev.Type),
			})
			if errors.Is(err, domain.ErrDuplicateExternalReference) {
				return "", errAlreadyApplied
			}
			if err != nil {
				return "", err
			}
		}
	} else if err := c.ledger.recomputeInTx(ctx, r, inv); err != nil {
		return "", err
	}

	pi.Status = entity.PaymentIntentRefunded
	pi.RefundedAmount = refunded
	pi.UpdatedAt = c.ledger.clock.Now()
	if err := r.PaymentIntents.Update(ctx, pi); err != nil {
		return "", fmt.Errorf("actualizar payment intent: %w", err)
	}
	c.log.Info().Str("intent_id", pi.ID).Str("invoice_id", inv.ID).
		Str("refunded", refunded.StringFixed(2)).Str("status", string(inv.Status)).Msg("reembolso conciliado")
	return OutcomeProcessed, nil
}
