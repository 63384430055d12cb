package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.ExchangeRateRepository = (*ExchangeRateRepo)(nil)

// ExchangeRateRepo serie temporal de tasas; nunca se actualiza una fila.
type ExchangeRateRepo struct {
	q Querier
}

// NewExchangeRateRepository construye el adaptador. Pasar pool o tx (Querier).
func NewExchangeRateRepository(q Querier) *ExchangeRateRepo {
	return &ExchangeRateRepo{q: q}
}

func (r *ExchangeRateRepo) Create(ctx context.Context, er *entity.ExchangeRate) error {
	const query = `
		INSERT INTO exchange_rates (id, base_currency, target_currency, rate, fetched_at, source)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, er.ID, er.BaseCurrency, er.TargetCurrency, er.Rate, er.FetchedAt, er.Source)
	if err != nil {
		return fmt.Errorf("insert exchange rate: %w", err)
	}
	return nil
}

// FindLatest tasa más reciente del par con fetched_at <= asOf.
func (r *ExchangeRateRepo) FindLatest(ctx context.Context, base, target string, asOf time.Time) (*entity.ExchangeRate, error) {
	const query = `
		SELECT id, base_currency, target_currency, rate, fetched_at, source
		FROM exchange_rates
		WHERE base_currency = $1 AND target_currency = $2 AND fetched_at <= $3
		ORDER BY fetched_at DESC
		LIMIT 1`
	var er entity.ExchangeRate
	err := r.q.QueryRow(ctx, query, base, target, asOf).Scan(
		&er.ID, &er.BaseCurrency, &er.TargetCurrency, &er.Rate, &er.FetchedAt, &er.Source,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find exchange rate: %w", err)
	}
	return &er, nil
}
