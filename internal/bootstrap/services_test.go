package bootstrap_test

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/bootstrap"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

func memoryConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Name: "facturacion-api", Store: "memory"},
		Billing: config.BillingConfig{
			BaseCurrency:        "USD",
			PaymentTermsDays:    15,
			QuoteValidityDays:   10,
			InvoicePrefix:       "INV",
			QuotePrefix:         "QUO",
			CreditNotePrefix:    "CN",
			RecurringMaxCatchUp: 3,
		},
		Redis: config.RedisConfig{EventTTLHours: 24},
	}
}

func TestSettings(t *testing.T) {
	s := bootstrap.Settings(memoryConfig())
	assert.Equal(t, "USD", s.BaseCurrency)
	assert.Equal(t, 15, s.PaymentTermsDays)
	assert.Equal(t, "INV", s.InvoicePrefix)
	assert.Equal(t, 3, s.RecurringMaxCatchUp)
	assert.Equal(t, "24h0m0s", s.EventTTL.String())
}

func TestBuild_Memoria(t *testing.T) {
	log := logger.New(logger.Config{Env: "test", Out: io.Discard})
	svc, err := bootstrap.Build(context.Background(), memoryConfig(), log)
	require.NoError(t, err)
	defer svc.Close()

	inv, err := svc.Docs.CreateInvoice(context.Background(), "owner-1", dto.CreateInvoiceRequest{
		DocumentRequest: dto.DocumentRequest{
			ClientID: "client-1",
			LineItems: []dto.LineItemRequest{
				{Description: "Soporte", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100), VATRate: decimal.Zero},
			},
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^INV-\d{4}-0001$`, inv.Number)
	assert.Equal(t, "USD", inv.Currency)
}
