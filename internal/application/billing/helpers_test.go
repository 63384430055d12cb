package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testOwner = "owner-1"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fixedClock { return &fixedClock{t: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []string
	fail error
}

func (r *recordingDispatcher) DispatchSend(_ context.Context, snap *dto.DocumentSnapshot) error {
	if r.fail != nil {
		return r.fail
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, snap.Number)
	return nil
}

// env servicios sobre el store en memoria con reloj fijo.
type env struct {
	store      *memory.Store
	clock      *fixedClock
	settings   billing.Settings
	dispatcher *recordingDispatcher
	docs       *billing.DocumentService
	ledger     *billing.PaymentLedger
	recon      *billing.Reconciler
	events     *memory.ProcessedEvents
	sched      *billing.RecurringScheduler
	rates      *billing.RateService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:      memory.New(),
		clock:      newClock(time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)),
		settings:   billing.DefaultSettings(),
		dispatcher: &recordingDispatcher{},
	}
	log := zerolog.Nop()
	e.events = memory.NewProcessedEvents(e.clock.Now)
	e.docs = billing.NewDocumentService(e.store, e.clock, e.settings, e.dispatcher, log)
	e.ledger = billing.NewPaymentLedger(e.store, e.clock, log)
	e.recon = billing.NewReconciler(e.store, e.ledger, e.events, e.settings, log)
	e.sched = billing.NewRecurringScheduler(e.store, e.docs, e.clock, e.settings, log)
	e.rates = billing.NewRateService(e.store, e.clock)
	return e
}

func threeLines() []dto.LineItemRequest {
	return []dto.LineItemRequest{
		{Description: "Diseño", Quantity: d("2"), UnitPrice: d("100"), VATRate: d("20")},
		{Description: "Hosting", Quantity: d("1"), UnitPrice: d("50"), VATRate: d("10")},
		{Description: "Dominios", Quantity: d("3"), UnitPrice: d("10"), VATRate: d("0")},
	}
}

func invoiceRequest(lines ...dto.LineItemRequest) dto.CreateInvoiceRequest {
	if len(lines) == 0 {
		lines = threeLines()
	}
	return dto.CreateInvoiceRequest{DocumentRequest: dto.DocumentRequest{ClientID: "client-1", LineItems: lines}}
}

// sentInvoice crea y envía una factura de 325.00 EUR.
func (e *env) sentInvoice(t *testing.T) *entity.Invoice {
	t.Helper()
	ctx := context.Background()
	inv, err := e.docs.CreateInvoice(ctx, testOwner, invoiceRequest())
	require.NoError(t, err)
	inv, err = e.docs.SendInvoice(ctx, testOwner, inv.ID)
	require.NoError(t, err)
	return inv
}

func (e *env) payments(t *testing.T, invoiceID string) []entity.Payment {
	t.Helper()
	var out []entity.Payment
	require.NoError(t, e.store.RunInTx(context.Background(), func(ctx context.Context, r billing.Repos) error {
		var err error
		out, err = r.Payments.ListByInvoice(ctx, invoiceID)
		return err
	}))
	return out
}
