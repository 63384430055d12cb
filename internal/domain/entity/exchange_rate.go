package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate foto histórica de una tasa (1 BaseCurrency = Rate TargetCurrency).
// Nunca se modifica: una tasa nueva es una fila nueva.
type ExchangeRate struct {
	ID             string
	BaseCurrency   string
	TargetCurrency string
	Rate           decimal.Decimal
	FetchedAt      time.Time
	Source         string
}
