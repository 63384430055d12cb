package billing_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator() (*billing.SequenceGenerator, *memory.Store, *fixedClock) {
	store := memory.New()
	clock := newClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	return billing.NewSequenceGenerator(store, clock), store, clock
}

func TestGenerate_Consecutivos(t *testing.T) {
	gen, _, _ := newGenerator()
	ctx := context.Background()

	for _, want := range []string{"FAC-2025-0001", "FAC-2025-0002", "FAC-2025-0003"} {
		got, err := gen.Generate(ctx, "invoices", "FAC")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestGenerate_AlcancesIndependientes(t *testing.T) {
	gen, _, clock := newGenerator()
	ctx := context.Background()

	n, err := gen.Generate(ctx, "invoices", "FAC")
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-0001", n)

	n, err = gen.Generate(ctx, "quotes", "DEV")
	require.NoError(t, err)
	assert.Equal(t, "DEV-2025-0001", n)

	clock.Set(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	n, err = gen.Generate(ctx, "invoices", "FAC")
	require.NoError(t, err)
	assert.Equal(t, "FAC-2026-0001", n, "cada año reinicia la numeración")
}

func TestGenerate_Concurrente(t *testing.T) {
	gen, _, _ := newGenerator()
	ctx := context.Background()
	const n = 50

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := gen.Generate(ctx, "invoices", "FAC")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers = append(numbers, got)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, numbers, n)
	sort.Strings(numbers)
	for i, got := range numbers {
		assert.Equal(t, fmt.Sprintf("FAC-2025-%04d", i+1), got)
	}
}

func TestNextInTx_RespetaNumerosExistentes(t *testing.T) {
	gen, store, _ := newGenerator()
	ctx := context.Background()

	// factura importada a mano con un número mayor que el contador
	require.NoError(t, store.RunInTx(ctx, func(ctx context.Context, r billing.Repos) error {
		inv := &entity.Invoice{Status: entity.InvoiceStatusDraft}
		inv.ID = "legacy"
		inv.Number = "FAC-2025-0041"
		return r.Invoices.Create(ctx, inv)
	}))

	got, err := gen.Generate(ctx, "invoices", "FAC")
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-0042", got)
}

func TestNextInTx_RollbackNoDejaHuecos(t *testing.T) {
	gen, store, _ := newGenerator()
	ctx := context.Background()
	boom := errors.New("fallo después de numerar")

	err := store.RunInTx(ctx, func(ctx context.Context, r billing.Repos) error {
		n, err := gen.NextInTx(ctx, r.Sequences, "invoices", "FAC")
		require.NoError(t, err)
		assert.Equal(t, "FAC-2025-0001", n)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := gen.Generate(ctx, "invoices", "FAC")
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-0001", got)
}
