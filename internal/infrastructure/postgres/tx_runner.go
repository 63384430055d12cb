package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	appbilling "github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/rs/zerolog"
)

var _ appbilling.TxRunner = (*TxRunner)(nil)

// ErrTxRetriesExhausted la transacción siguió en conflicto tras todos los reintentos.
var ErrTxRetriesExhausted = errors.New("transacción abortada por conflictos de serialización")

// TxRunner ejecuta callbacks dentro de una transacción SERIALIZABLE. Ante 40001/40P01
// repite fn completa con backoff.
type TxRunner struct {
	pool       *pgxpool.Pool
	maxRetries int
	baseDelay  time.Duration
	log        zerolog.Logger
}

// NewTxRunner construye el runner con el pool. maxRetries < 0 se toma como 0.
func NewTxRunner(pool *pgxpool.Pool, maxRetries int, log zerolog.Logger) *TxRunner {
	return &TxRunner{
		pool:       pool,
		maxRetries: max(maxRetries, 0),
		baseDelay:  20 * time.Millisecond,
		log:        log,
	}
}

// Repos repositorios atados a q (pool o tx).
func Repos(q Querier) appbilling.Repos {
	return appbilling.Repos{
		Invoices:       NewInvoiceRepository(q),
		Quotes:         NewQuoteRepository(q),
		CreditNotes:    NewCreditNoteRepository(q),
		LineItems:      NewLineItemRepository(q),
		Payments:       NewPaymentRepository(q),
		PaymentIntents: NewPaymentIntentRepository(q),
		Rates:          NewExchangeRateRepository(q),
		Sequences:      NewSequenceRepository(q),
		Profiles:       NewRecurringProfileRepository(q),
	}
}

// RunInTx implementa billing.TxRunner.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, repos appbilling.Repos) error) error {
	for attempt := 0; ; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		if attempt >= r.maxRetries {
			return fmt.Errorf("%w: %w", ErrTxRetriesExhausted, err)
		}
		delay := r.backoff(attempt)
		r.log.Debug().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("conflicto de serialización, reintentando")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context, repos appbilling.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, Repos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// backoff exponencial con jitter: base·2^attempt + [0, base).
func (r *TxRunner) backoff(attempt int) time.Duration {
	d := r.baseDelay << min(attempt, 6)
	return d + rand.N(r.baseDelay)
}
