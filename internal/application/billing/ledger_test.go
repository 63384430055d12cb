package billing_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payment(amount, ref string) dto.RecordPaymentRequest {
	return dto.RecordPaymentRequest{Amount: d(amount), Method: "bank_transfer", ExternalReference: ref}
}

// ── Pagos manuales ───────────────────────────────────────────────────────────

func TestRecordPayment_ParcialYTotal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sentInvoice(t)

	got, err := e.ledger.RecordPayment(ctx, testOwner, inv.ID, payment("100", "TRF-1"))
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, got.Status)
	assert.True(t, d("100").Equal(got.AmountPaid))
	assert.True(t, d("225").Equal(got.BalanceDue))
	assert.Nil(t, got.PaidAt)

	got, err = e.ledger.RecordPayment(ctx, testOwner, inv.ID, payment("225", "TRF-2"))
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, got.Status)
	assert.True(t, got.BalanceDue.IsZero())
	require.NotNil(t, got.PaidAt)
	assert.Len(t, e.payments(t, inv.ID), 2)
}

func TestRecordPayment_Rechazos(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sentInvoice(t)

	_, err := e.ledger.RecordPayment(ctx, testOwner, inv.ID, payment("325.01", ""))
	assert.ErrorIs(t, err, domain.ErrPaymentExceedsBalance)

	_, err = e.ledger.RecordPayment(ctx, testOwner, inv.ID, payment("0", ""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req := payment("10", "")
	req.Method = "refund"
	_, err = e.ledger.RecordPayment(ctx, testOwner, inv.ID, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "los reembolsos solo llegan por el conciliador")

	_, err = e.ledger.RecordPayment(ctx, testOwner, inv.ID, payment("10", "TRF-9"))
	require.NoError(t, err)
	_, err = e.ledger.RecordPayment(ctx, testOwner, inv.ID, payment("10", "TRF-9"))
	assert.ErrorIs(t, err, domain.ErrDuplicateExternalReference)
	assert.Len(t, e.payments(t, inv.ID), 1)

	draft, err := e.docs.CreateInvoice(ctx, testOwner, invoiceRequest())
	require.NoError(t, err)
	_, err = e.ledger.RecordPayment(ctx, testOwner, draft.ID, payment("10", ""))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = e.ledger.RecordPayment(ctx, "otro", inv.ID, payment("10", ""))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRecordPayment_AbonoAFacturaVencidaLaDejaParcial(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sentInvoice(t)
	sweep := inv.DueDate.AddDate(0, 0, 1)
	_, err := e.docs.MarkOverdue(ctx, sweep)
	require.NoError(t, err)

	got, err := e.ledger.RecordPayment(ctx, testOwner, inv.ID, payment("25", ""))
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, got.Status)
	assert.True(t, got.AmountPaid.Equal(d("25")))

	n, err := e.docs.MarkOverdue(ctx, sweep)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "el siguiente barrido la vuelve a vencer")
	assert.Equal(t, entity.InvoiceStatusOverdue, e.invoice(t, inv.ID).Status)

	got, err = e.ledger.RecordPayment(ctx, testOwner, inv.ID, payment("300", ""))
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, got.Status)
}

func TestRecordPayment_Concurrente(t *testing.T) {
	e := newEnv(t)
	inv := e.sentInvoice(t)

	const workers = 10
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.ledger.RecordPayment(context.Background(), testOwner, inv.ID, payment("50", "")); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrPaymentExceedsBalance)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, ok, "325 admite seis pagos de 50")
	got, err := e.docs.GetInvoice(context.Background(), testOwner, inv.ID)
	require.NoError(t, err)
	assert.True(t, d("300").Equal(got.AmountPaid))
	assert.True(t, d("25").Equal(got.BalanceDue))
	assert.False(t, got.AmountPaid.GreaterThan(got.Total))
}

// ── Notas de crédito ─────────────────────────────────────────────────────────

func TestApplyCreditNote(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sentInvoice(t)

	cn, err := e.docs.CreateCreditNote(ctx, testOwner, creditNoteRequest(inv.ID, "25"))
	require.NoError(t, err)

	_, _, err = e.ledger.ApplyCreditNote(ctx, testOwner, cn.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition, "solo se aplica una nota enviada")

	_, err = e.docs.SendCreditNote(ctx, testOwner, cn.ID)
	require.NoError(t, err)
	applied, got, err := e.ledger.ApplyCreditNote(ctx, testOwner, cn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CreditNoteStatusApplied, applied.Status)
	require.NotNil(t, applied.AppliedAt)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, got.Status)
	assert.True(t, d("300").Equal(got.BalanceDue))

	ps := e.payments(t, inv.ID)
	require.Len(t, ps, 1)
	assert.Equal(t, entity.PaymentMethodCreditNote, ps[0].Method)
	require.NotNil(t, ps[0].ExternalReference)
	assert.Equal(t, "credit_note:AV-2025-0001", *ps[0].ExternalReference)

	_, _, err = e.ledger.ApplyCreditNote(ctx, testOwner, cn.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Len(t, e.payments(t, inv.ID), 1)
}

func TestApplyCreditNote_SaldoReducidoDespuesDeCrear(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sentInvoice(t)

	cn, err := e.docs.CreateCreditNote(ctx, testOwner, creditNoteRequest(inv.ID, "100"))
	require.NoError(t, err)
	_, err = e.docs.SendCreditNote(ctx, testOwner, cn.ID)
	require.NoError(t, err)
	_, err = e.ledger.RecordPayment(ctx, testOwner, inv.ID, payment("300", ""))
	require.NoError(t, err)

	_, _, err = e.ledger.ApplyCreditNote(ctx, testOwner, cn.ID)
	assert.ErrorIs(t, err, domain.ErrCreditNoteExceedsBalance)

	got, err := e.docs.GetCreditNote(ctx, testOwner, cn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CreditNoteStatusSent, got.Status)
}

// ── Payment intents ──────────────────────────────────────────────────────────

func TestRegisterPaymentIntent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sentInvoice(t)

	pi, err := e.ledger.RegisterPaymentIntent(ctx, testOwner, inv.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentIntentRequiresPayment, pi.Status)
	assert.True(t, d("325").Equal(pi.Amount))
	assert.Equal(t, "EUR", pi.Currency)

	_, err = e.ledger.RegisterPaymentIntent(ctx, testOwner, inv.ID, "pi_123")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = e.ledger.RegisterPaymentIntent(ctx, testOwner, inv.ID, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	draft, err := e.docs.CreateInvoice(ctx, testOwner, invoiceRequest())
	require.NoError(t, err)
	_, err = e.ledger.RegisterPaymentIntent(ctx, testOwner, draft.ID, "pi_456")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
