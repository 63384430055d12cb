// Package bootstrap arma los servicios de facturación a partir de la configuración.
// Lo comparten la API y billingctl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/memory"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/notify"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/redis"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// Services casos de uso listos para inyectar en handlers o comandos.
type Services struct {
	Settings   billing.Settings
	Clock      billing.Clock
	Docs       *billing.DocumentService
	Ledger     *billing.PaymentLedger
	Reconciler *billing.Reconciler
	Scheduler  *billing.RecurringScheduler
	Rates      *billing.RateService

	closers []func()
}

// Settings traduce la configuración al formato del dominio.
func Settings(cfg *config.Config) billing.Settings {
	return billing.Settings{
		BaseCurrency:        cfg.Billing.BaseCurrency,
		PaymentTermsDays:    cfg.Billing.PaymentTermsDays,
		QuoteValidityDays:   cfg.Billing.QuoteValidityDays,
		InvoicePrefix:       cfg.Billing.InvoicePrefix,
		QuotePrefix:         cfg.Billing.QuotePrefix,
		CreditNotePrefix:    cfg.Billing.CreditNotePrefix,
		RecurringMaxCatchUp: cfg.Billing.RecurringMaxCatchUp,
		EventTTL:            cfg.Redis.EventTTL(),
	}
}

// Build abre el almacén (PostgreSQL o memoria) y el registro de eventos (Redis o memoria)
// y construye los servicios. Close libera lo abierto.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Services, error) {
	s := &Services{Settings: Settings(cfg), Clock: billing.SystemClock{}}

	tx, err := s.openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	events, err := s.openEvents(ctx, cfg, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	dispatcher := notify.NewLogDispatcher(log.Component("notify"))
	s.Docs = billing.NewDocumentService(tx, s.Clock, s.Settings, dispatcher, log.Component("documents"))
	s.Ledger = billing.NewPaymentLedger(tx, s.Clock, log.Component("ledger"))
	s.Reconciler = billing.NewReconciler(tx, s.Ledger, events, s.Settings, log.Component("reconciler"))
	s.Scheduler = billing.NewRecurringScheduler(tx, s.Docs, s.Clock, s.Settings, log.Component("recurring"))
	s.Rates = billing.NewRateService(tx, s.Clock)
	return s, nil
}

func (s *Services) openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (billing.TxRunner, error) {
	if cfg.App.Store == "memory" {
		log.Warn().Msg("APP_STORE=memory: los datos no sobreviven al proceso")
		return memory.New(), nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	s.closers = append(s.closers, pool.Close)
	return postgres.NewTxRunner(pool, cfg.DB.TxRetries, log.Component("postgres")), nil
}

func (s *Services) openEvents(ctx context.Context, cfg *config.Config, log *logger.Logger) (billing.ProcessedEventStore, error) {
	if cfg.Redis.Addr == "" {
		return memory.NewProcessedEvents(s.Clock.Now), nil
	}
	store, err := redis.NewProcessedEventStore(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("conexión a Redis: %w", err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("eventos procesados en Redis")
	s.closers = append(s.closers, func() { _ = store.Close() })
	return store, nil
}

// Close libera conexiones en orden inverso de apertura.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
