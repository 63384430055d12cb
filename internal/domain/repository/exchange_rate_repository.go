package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// ExchangeRateRepository serie temporal append-only de tasas.
type ExchangeRateRepository interface {
	Create(ctx context.Context, r *entity.ExchangeRate) error
	// FindLatest tasa más reciente base->target con fetched_at <= asOf; (nil, nil) si no hay.
	FindLatest(ctx context.Context, base, target string, asOf time.Time) (*entity.ExchangeRate, error)
}
