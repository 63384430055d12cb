package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// NormalizeCurrency valida un código ISO 4217 y lo devuelve en mayúsculas.
func NormalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", domain.NewValidationError("currency", fmt.Sprintf("código de moneda inválido: %q", code))
	}
	return unit.String(), nil
}

// CurrencyConverter resuelve tasas acotadas por fecha. Con la misma fecha de corte el
// resultado es reproducible aunque luego se registren tasas nuevas.
type CurrencyConverter struct {
	rates repository.ExchangeRateRepository
	clock Clock
}

// NewCurrencyConverter construye el conversor sobre el repositorio dado (pool o tx).
func NewCurrencyConverter(rates repository.ExchangeRateRepository, clock Clock) *CurrencyConverter {
	return &CurrencyConverter{rates: rates, clock: clock}
}

// RateFor tasa from->to vigente en asOf: 1 para la misma moneda, luego la tasa directa más
// reciente y por último la inversa redondeada a 6 decimales.
func (c *CurrencyConverter) RateFor(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	from, err := NormalizeCurrency(from)
	if err != nil {
		return decimal.Zero, err
	}
	to, err = NormalizeCurrency(to)
	if err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	direct, err := c.rates.FindLatest(ctx, from, to, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("buscar tasa %s->%s: %w", from, to, err)
	}
	if direct != nil {
		return direct.Rate, nil
	}

	inverse, err := c.rates.FindLatest(ctx, to, from, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("buscar tasa %s->%s: %w", to, from, err)
	}
	if inverse != nil && inverse.Rate.IsPositive() {
		return decimal.NewFromInt(1).DivRound(inverse.Rate, billing.RateDivisionPlaces), nil
	}
	return decimal.Zero, &domain.RateUnavailableError{From: from, To: to}
}

// Convert amount * RateFor redondeado a 2 decimales.
func (c *CurrencyConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (decimal.Decimal, decimal.Decimal, error) {
	rate, err := c.RateFor(ctx, from, to, asOf)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return billing.RoundMoney(amount.Mul(rate)), rate, nil
}

// RecordRate agrega una tasa a la serie histórica. fetchedAt cero usa el reloj.
func (c *CurrencyConverter) RecordRate(ctx context.Context, base, target string, rate decimal.Decimal, fetchedAt time.Time, source string) (*entity.ExchangeRate, error) {
	base, err := NormalizeCurrency(base)
	if err != nil {
		return nil, err
	}
	target, err = NormalizeCurrency(target)
	if err != nil {
		return nil, err
	}
	if base == target {
		return nil, domain.NewValidationError("target_currency", "debe ser distinta de la moneda base")
	}
	if !rate.IsPositive() {
		return nil, domain.NewValidationError("rate", "debe ser mayor que cero")
	}
	if fetchedAt.IsZero() {
		fetchedAt = c.clock.Now()
	}
	r := &entity.ExchangeRate{
		ID:             uuid.New().String(),
		BaseCurrency:   base,
		TargetCurrency: target,
		Rate:           rate,
		FetchedAt:      fetchedAt.UTC(),
		Source:         source,
	}
	if err := c.rates.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// RateService expone el conversor fuera de una transacción de documento (API de tasas, CLI).
type RateService struct {
	tx    TxRunner
	clock Clock
}

// NewRateService construye el servicio.
func NewRateService(tx TxRunner, clock Clock) *RateService {
	return &RateService{tx: tx, clock: clock}
}

// RateFor ver CurrencyConverter.RateFor.
func (s *RateService) RateFor(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		rate, err = NewCurrencyConverter(r.Rates, s.clock).RateFor(ctx, from, to, asOf)
		return err
	})
	return rate, err
}

// Convert devuelve el importe convertido y la tasa usada.
func (s *RateService) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var converted, rate decimal.Decimal
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		converted, rate, err = NewCurrencyConverter(r.Rates, s.clock).Convert(ctx, amount, from, to, asOf)
		return err
	})
	return converted, rate, err
}

// RecordRate agrega una tasa a la serie histórica.
func (s *RateService) RecordRate(ctx context.Context, base, target string, rate decimal.Decimal, fetchedAt time.Time, source string) (*entity.ExchangeRate, error) {
	var out *entity.ExchangeRate
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		out, err = NewCurrencyConverter(r.Rates, s.clock).RecordRate(ctx, base, target, rate, fetchedAt, source)
		return err
	})
	return out, err
}
