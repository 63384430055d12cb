package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// startDB levanta PostgreSQL en un contenedor y aplica el esquema embebido.
func startDB(t *testing.T) *postgres.TxRunner {
	t.Helper()
	return postgres.NewTxRunner(startPool(t), 50, zerolog.Nop())
}

func startPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integración con PostgreSQL omitida en -short")
	}
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("billing_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("docker no disponible: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := postgres.NewMigrator(dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, m.Close())

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 20})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func invoiceRequest() dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{DocumentRequest: dto.DocumentRequest{
		ClientID: "client-1",
		LineItems: []dto.LineItemRequest{
			{Description: "Diseño", Quantity: d("2"), UnitPrice: d("100"), VATRate: d("20")},
			{Description: "Hosting", Quantity: d("1"), UnitPrice: d("50"), VATRate: d("10")},
			{Description: "Dominios", Quantity: d("3"), UnitPrice: d("10"), VATRate: d("0")},
		},
	}}
}

func TestPostgres_FlujoCompleto(t *testing.T) {
	tx := startDB(t)
	ctx := context.Background()
	clock := fixedClock{t: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)}
	settings := billing.DefaultSettings()
	docs := billing.NewDocumentService(tx, clock, settings, nil, zerolog.Nop())
	ledger := billing.NewPaymentLedger(tx, clock, zerolog.Nop())

	// ── Numeración y totales ─────────────────────────────────────────────────
	inv, err := docs.CreateInvoice(ctx, "owner-1", invoiceRequest())
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-0001", inv.Number)

	got, err := docs.GetInvoice(ctx, "owner-1", inv.ID)
	require.NoError(t, err)
	assert.True(t, d("325").Equal(got.Total))
	assert.True(t, d("40").Equal(got.VATBreakdown["20"]))
	require.Len(t, got.LineItems, 3)
	assert.Equal(t, "Diseño", got.LineItems[0].Description)
	assert.Equal(t, time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC), got.DueDate.UTC())

	// ── Pagos concurrentes ───────────────────────────────────────────────────
	_, err = docs.SendInvoice(ctx, "owner-1", inv.ID)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		okN  int
		errs []error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RecordPayment(ctx, "owner-1", inv.ID, dto.RecordPaymentRequest{Amount: d("50"), Method: "card"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				okN++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.True(t, errors.Is(err, domain.ErrPaymentExceedsBalance) || errors.Is(err, postgres.ErrTxRetriesExhausted), err)
	}

	got, err = docs.GetInvoice(ctx, "owner-1", inv.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, okN, 6)
	assert.True(t, decimal.NewFromInt(int64(okN*50)).Equal(got.AmountPaid))
	assert.False(t, got.AmountPaid.GreaterThan(got.Total))
	assert.Len(t, got.Payments, okN)

	// ── Referencia externa única ─────────────────────────────────────────────
	if got.BalanceDue.GreaterThanOrEqual(d("2")) {
		req := dto.RecordPaymentRequest{Amount: d("1"), Method: "bank_transfer", ExternalReference: "TRF-1"}
		_, err = ledger.RecordPayment(ctx, "owner-1", inv.ID, req)
		require.NoError(t, err)
		_, err = ledger.RecordPayment(ctx, "owner-1", inv.ID, req)
		assert.ErrorIs(t, err, domain.ErrDuplicateExternalReference)
	}
}

func TestPostgres_SecuenciaConcurrente(t *testing.T) {
	tx := startDB(t)
	ctx := context.Background()
	gen := billing.NewSequenceGenerator(tx, fixedClock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})

	const n = 20
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := gen.Generate(ctx, entity.DocumentTypeInvoice.Table(), "FAC")
			if assert.NoError(t, err) {
				numbers <- num
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "número repetido %s", num)
		seen[num] = true
	}
	require.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("FAC-2025-%04d", i)], "falta FAC-2025-%04d", i)
	}
}

func TestPostgres_MaxExistingSuffixSoloNumerosDelAlcance(t *testing.T) {
	pool := startPool(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	const insert = `
		INSERT INTO invoices (id, owner_id, client_id, number, status, currency, base_currency, exchange_rate,
			subtotal, tax_amount, total, base_currency_total, balance_due, issue_date, due_date, created_at, updated_at)
		VALUES ($1, 'owner-1', 'client-1', $2, 'draft', 'EUR', 'EUR', 1, 0, 0, 0, 0, 0, $3, $3, $4, $4)`
	for _, number := range []string{
		"F_C-2025-0003",
		"F_C-2025-0040",
		"FXC-2025-0999",
		"F_C-2025-0500-bis",
		"F_C-2024-0800",
		"F_C-2025-ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"F_C-2025-12345678901234567890",
	} {
		_, err := pool.Exec(ctx, insert, uuid.NewString(), number, now, now)
		require.NoError(t, err, number)
	}

	seq := postgres.NewSequenceRepository(pool)
	got, err := seq.MaxExistingSuffix(ctx, entity.SequenceScope{Table: "invoices", Prefix: "F_C", Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, int64(40), got)

	got, err = seq.MaxExistingSuffix(ctx, entity.SequenceScope{Table: "invoices", Prefix: "FAC", Year: 2025})
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = seq.MaxExistingSuffix(ctx, entity.SequenceScope{Table: "payments", Prefix: "FAC", Year: 2025})
	assert.Error(t, err)
}

func TestPostgres_TasasYPerfiles(t *testing.T) {
	tx := startDB(t)
	ctx := context.Background()
	clock := fixedClock{t: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)}
	rates := billing.NewRateService(tx, clock)

	_, err := rates.RecordRate(ctx, "USD", "EUR", d("0.9"), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "ecb")
	require.NoError(t, err)
	_, err = rates.RecordRate(ctx, "USD", "EUR", d("0.95"), time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), "ecb")
	require.NoError(t, err)

	rate, err := rates.RateFor(ctx, "USD", "EUR", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, d("0.9").Equal(rate))

	docs := billing.NewDocumentService(tx, clock, billing.DefaultSettings(), nil, zerolog.Nop())
	sched := billing.NewRecurringScheduler(tx, docs, clock, billing.DefaultSettings(), zerolog.Nop())
	maxOcc := 2
	p, err := sched.CreateProfile(ctx, "owner-1", dto.CreateRecurringProfileRequest{
		ClientID:       "client-1",
		Currency:       "USD",
		Frequency:      "monthly",
		StartDate:      "2025-01-15",
		MaxOccurrences: &maxOcc,
		LineItems:      invoiceRequest().LineItems,
	})
	require.NoError(t, err)

	report, err := sched.RunDue(ctx, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Generated)

	got, err := sched.GetProfile(ctx, "owner-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProfileStatusCompleted, got.Status)
	assert.Len(t, got.LineItems, 3)

	inv, err := docs.GetInvoice(ctx, "owner-1", report.InvoiceIDs[1])
	require.NoError(t, err)
	assert.Equal(t, "USD", inv.Currency)
	assert.True(t, d("0.9").Equal(inv.ExchangeRate), "tasa vigente al 2025-02-15")
	assert.True(t, d("292.5").Equal(inv.BaseCurrencyTotal))
}
