package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/memory"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/stripe"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/ubl"
	apphttp "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/Facturacion-api/pkg/jwt"
)

const webhookSecret = "whsec_handlers_test"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newAPI monta el router completo sobre el store en memoria.
func newAPI(t *testing.T) *fiber.App {
	t.Helper()
	clock := fixedClock{t: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)}
	store := memory.New()
	settings := billing.DefaultSettings()
	log := zerolog.Nop()

	docs := billing.NewDocumentService(store, clock, settings, nil, log)
	ledger := billing.NewPaymentLedger(store, clock, log)
	events := memory.NewProcessedEvents(clock.Now)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Docs:       docs,
		Ledger:     ledger,
		Reconciler: billing.NewReconciler(store, ledger, events, settings, log),
		Scheduler:  billing.NewRecurringScheduler(store, docs, clock, settings, log),
		Rates:      billing.NewRateService(store, clock),
		PDF:        pdf.NewMarotoRenderer("Estudio Norte"),
		UBL:        ubl.NewExporter(),
		Webhook:    stripe.NewWebhookVerifier(webhookSecret),
		Clock:      clock,
		Log:        log,
		JWTSecret:  testJWTSecret,
		JWTIssuer:  testIssuer,
	})
	return app
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testOwnerID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func call(t *testing.T, app *fiber.App, method, path, auth string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(fiber.HeaderAuthorization, auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func invoiceBody() map[string]any {
	return map[string]any{
		"client_id": "client-1",
		"line_items": []map[string]any{
			{"description": "Diseño", "quantity": "2", "unit_price": "100", "vat_rate": "20"},
			{"description": "Hosting", "quantity": "1", "unit_price": "50", "vat_rate": "10"},
			{"description": "Dominios", "quantity": "3", "unit_price": "10", "vat_rate": "0"},
		},
	}
}

// sentInvoice crea y envía una factura de 325.00 EUR.
func sentInvoice(t *testing.T, app *fiber.App) dto.DocumentSnapshot {
	t.Helper()
	auth := bearer(t, apphttp.RoleBilling)
	resp := call(t, app, http.MethodPost, "/api/invoices", auth, invoiceBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.DocumentSnapshot](t, resp)

	resp = call(t, app, http.MethodPost, "/api/invoices/"+created.ID+"/send", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[dto.DocumentSnapshot](t, resp)
}

// ── Facturas ─────────────────────────────────────────────────────────────────

func TestInvoices_CrearYConsultar(t *testing.T) {
	app := newAPI(t)
	auth := bearer(t, apphttp.RoleBilling)

	resp := call(t, app, http.MethodPost, "/api/invoices", auth, invoiceBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.DocumentSnapshot](t, resp)
	assert.Equal(t, "FAC-2025-0001", created.Number)
	assert.Equal(t, "draft", created.Status)
	assert.True(t, dec("325").Equal(created.Total), created.Total.String())

	resp = call(t, app, http.MethodGet, "/api/invoices/"+created.ID, bearer(t, apphttp.RoleViewer), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[dto.DocumentSnapshot](t, resp)
	assert.Equal(t, created.ID, got.ID)
	assert.Len(t, got.Lines, 3)
}

func TestInvoices_ValidacionDevuelve400(t *testing.T) {
	app := newAPI(t)
	body := invoiceBody()
	delete(body, "client_id")

	resp := call(t, app, http.MethodPost, "/api/invoices", bearer(t, apphttp.RoleBilling), body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "VALIDATION", out.Code)
	assert.Contains(t, out.Message, "client_id")
}

func TestInvoices_CuerpoInvalido(t *testing.T) {
	app := newAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/invoices", bytes.NewReader([]byte("{no-json")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, bearer(t, apphttp.RoleBilling))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", decode[dto.ErrorResponse](t, resp).Code)
}

func TestInvoices_NoEncontrada(t *testing.T) {
	app := newAPI(t)
	resp := call(t, app, http.MethodGet, "/api/invoices/no-existe", bearer(t, apphttp.RoleViewer), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, resp).Code)
}

func TestInvoices_ViewerNoPuedeCrear(t *testing.T) {
	app := newAPI(t)
	resp := call(t, app, http.MethodPost, "/api/invoices", bearer(t, apphttp.RoleViewer), invoiceBody())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInvoices_SinToken(t *testing.T) {
	app := newAPI(t)
	resp := call(t, app, http.MethodGet, "/api/invoices/x", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInvoices_BorradorSeEditaYSeElimina(t *testing.T) {
	app := newAPI(t)
	auth := bearer(t, apphttp.RoleBilling)
	created := decode[dto.DocumentSnapshot](t, call(t, app, http.MethodPost, "/api/invoices", auth, invoiceBody()))

	body := invoiceBody()
	body["line_items"] = []map[string]any{{"description": "Consultoría", "quantity": "1", "unit_price": "80", "vat_rate": "20"}}
	resp := call(t, app, http.MethodPut, "/api/invoices/"+created.ID, auth, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, dec("96").Equal(decode[dto.DocumentSnapshot](t, resp).Total))

	resp = call(t, app, http.MethodDelete, "/api/invoices/"+created.ID, auth, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/api/invoices/"+created.ID, auth, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvoices_EnviadaNoSeEdita(t *testing.T) {
	app := newAPI(t)
	inv := sentInvoice(t, app)

	resp := call(t, app, http.MethodPut, "/api/invoices/"+inv.ID, bearer(t, apphttp.RoleBilling), invoiceBody())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DOCUMENT_LOCKED", decode[dto.ErrorResponse](t, resp).Code)
}

// ── Pagos ────────────────────────────────────────────────────────────────────

func TestPayments_ParcialYExceso(t *testing.T) {
	app := newAPI(t)
	inv := sentInvoice(t, app)
	auth := bearer(t, apphttp.RoleBilling)
	path := "/api/invoices/" + inv.ID + "/payments"

	resp := call(t, app, http.MethodPost, path, auth, map[string]any{"amount": "100", "method": "bank_transfer"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	got := decode[dto.DocumentSnapshot](t, resp)
	assert.Equal(t, "partially_paid", got.Status)
	require.NotNil(t, got.BalanceDue)
	assert.True(t, dec("225").Equal(*got.BalanceDue))

	resp = call(t, app, http.MethodPost, path, auth, map[string]any{"amount": "300", "method": "card"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "PAYMENT_EXCEEDS_BALANCE", decode[dto.ErrorResponse](t, resp).Code)
}

func TestPayments_MetodoInvalido(t *testing.T) {
	app := newAPI(t)
	inv := sentInvoice(t, app)

	resp := call(t, app, http.MethodPost, "/api/invoices/"+inv.ID+"/payments", bearer(t, apphttp.RoleBilling),
		map[string]any{"amount": "10", "method": "bitcoin"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── Webhook ──────────────────────────────────────────────────────────────────

func stripeEvent(id, typ, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","api_version":%q,"type":%q,"data":{"object":%s}}`,
		id, stripego.APIVersion, typ, object))
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, secret string) *http.Response {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(stripe.SignatureHeader, signed.Header)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestWebhook_PagoConfirmadoYRedelivery(t *testing.T) {
	app := newAPI(t)
	inv := sentInvoice(t, app)
	auth := bearer(t, apphttp.RoleBilling)

	resp := call(t, app, http.MethodPost, "/api/invoices/"+inv.ID+"/payment-intents", auth, map[string]any{"intent_id": "pi_123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pi := decode[dto.PaymentIntentResponse](t, resp)
	assert.True(t, dec("325").Equal(pi.Amount))

	payload := stripeEvent("evt_1", "payment_intent.succeeded",
		`{"id":"pi_123","object":"payment_intent","amount":32500,"amount_received":32500,"currency":"eur"}`)

	resp = postWebhook(t, app, payload, webhookSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processed", decode[apphttp.WebhookResponse](t, resp).Outcome)

	resp = postWebhook(t, app, payload, webhookSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "duplicate_event", decode[apphttp.WebhookResponse](t, resp).Outcome)

	got := decode[dto.DocumentSnapshot](t, call(t, app, http.MethodGet, "/api/invoices/"+inv.ID, auth, nil))
	assert.Equal(t, "paid", got.Status)
	assert.Len(t, got.Payments, 1)
}

func TestWebhook_CobroSobreFacturaPagadaQuedaPendiente(t *testing.T) {
	app := newAPI(t)
	inv := sentInvoice(t, app)
	auth := bearer(t, apphttp.RoleBilling)

	resp := call(t, app, http.MethodPost, "/api/invoices/"+inv.ID+"/payment-intents", auth, map[string]any{"intent_id": "pi_late"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = call(t, app, http.MethodPost, "/api/invoices/"+inv.ID+"/payments", auth, map[string]any{"amount": "325", "method": "bank_transfer"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := stripeEvent("evt_late", "payment_intent.succeeded",
		`{"id":"pi_late","object":"payment_intent","amount":32500,"amount_received":32500,"currency":"eur"}`)
	resp = postWebhook(t, app, payload, webhookSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "unapplied", decode[apphttp.WebhookResponse](t, resp).Outcome)

	resp = call(t, app, http.MethodGet, "/api/payment-intents/unapplied", bearer(t, apphttp.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decode[[]dto.PaymentIntentResponse](t, resp)
	require.Len(t, pending, 1)
	assert.Equal(t, "pi_late", pending[0].ID)
	assert.Equal(t, inv.ID, pending[0].InvoiceID)
	assert.Equal(t, "succeeded_unapplied", pending[0].Status)
	assert.NotEmpty(t, pending[0].Reason)
}

func TestWebhook_FirmaInvalida(t *testing.T) {
	app := newAPI(t)
	payload := stripeEvent("evt_2", "payment_intent.succeeded",
		`{"id":"pi_x","object":"payment_intent","amount":100,"currency":"eur"}`)

	resp := postWebhook(t, app, payload, "whsec_otro")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_SIGNATURE", decode[dto.ErrorResponse](t, resp).Code)
}

func TestWebhook_SinFirma(t *testing.T) {
	app := newAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhook_EventoNoRelevanteSeIgnora(t *testing.T) {
	app := newAPI(t)
	payload := stripeEvent("evt_3", "customer.created", `{"id":"cus_1","object":"customer"}`)

	resp := postWebhook(t, app, payload, webhookSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ignored", decode[apphttp.WebhookResponse](t, resp).Outcome)
}

// ── Cotizaciones ─────────────────────────────────────────────────────────────

func TestQuotes_ConversionUnaSolaVez(t *testing.T) {
	app := newAPI(t)
	auth := bearer(t, apphttp.RoleBilling)

	resp := call(t, app, http.MethodPost, "/api/quotes", auth, invoiceBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	quote := decode[dto.DocumentSnapshot](t, resp)
	assert.Equal(t, "DEV-2025-0001", quote.Number)

	for _, step := range []string{"send", "accept"} {
		resp = call(t, app, http.MethodPost, "/api/quotes/"+quote.ID+"/"+step, auth, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, step)
	}

	resp = call(t, app, http.MethodPost, "/api/quotes/"+quote.ID+"/convert", auth, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	inv := decode[dto.DocumentSnapshot](t, resp)
	assert.Equal(t, "FAC-2025-0001", inv.Number)
	assert.True(t, quote.Total.Equal(inv.Total))

	resp = call(t, app, http.MethodPost, "/api/quotes/"+quote.ID+"/convert", auth, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_CONVERTED", decode[dto.ErrorResponse](t, resp).Code)
}

// ── Renderizado ──────────────────────────────────────────────────────────────

func TestInvoices_PDFyUBL(t *testing.T) {
	app := newAPI(t)
	inv := sentInvoice(t, app)
	auth := bearer(t, apphttp.RoleViewer)

	resp := call(t, app, http.MethodGet, "/api/invoices/"+inv.ID+"/pdf", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp = call(t, app, http.MethodGet, "/api/invoices/"+inv.ID+"/ubl", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "FAC-2025-0001.xml")
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, ubl.Verify(body))
}

// ── Operaciones y tasas ──────────────────────────────────────────────────────

func TestOperator_SoloAdmin(t *testing.T) {
	app := newAPI(t)

	resp := call(t, app, http.MethodPost, "/api/invoices/mark-overdue", bearer(t, apphttp.RoleBilling), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/invoices/mark-overdue", bearer(t, apphttp.RoleAdmin), map[string]any{"as_of": "2025-06-01"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decode[dto.CountResponse](t, resp).Updated)
}

func TestOperator_MarcaVencidas(t *testing.T) {
	app := newAPI(t)
	inv := sentInvoice(t, app)

	resp := call(t, app, http.MethodPost, "/api/invoices/mark-overdue", bearer(t, apphttp.RoleAdmin), map[string]any{"as_of": "2025-06-01"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[dto.CountResponse](t, resp).Updated)

	got := decode[dto.DocumentSnapshot](t, call(t, app, http.MethodGet, "/api/invoices/"+inv.ID, bearer(t, apphttp.RoleViewer), nil))
	assert.Equal(t, "overdue", got.Status)
}

func TestRates_RegistrarYConvertir(t *testing.T) {
	app := newAPI(t)

	resp := call(t, app, http.MethodPost, "/api/rates", bearer(t, apphttp.RoleAdmin), map[string]any{
		"base_currency":   "USD",
		"target_currency": "EUR",
		"rate":            "0.9",
		"fetched_at":      "2025-03-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rate := decode[dto.ExchangeRateResponse](t, resp)
	assert.Equal(t, "api", rate.Source)

	resp = call(t, app, http.MethodGet, "/api/rates/convert?amount=100&from=USD&to=EUR&as_of=2025-03-05", bearer(t, apphttp.RoleViewer), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.ConvertResponse](t, resp)
	assert.True(t, dec("90").Equal(out.Converted), out.Converted.String())

	resp = call(t, app, http.MethodGet, "/api/rates/convert?amount=100&from=USD&to=EUR&as_of=2025-02-01", bearer(t, apphttp.RoleViewer), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "RATE_UNAVAILABLE", decode[dto.ErrorResponse](t, resp).Code)
}
