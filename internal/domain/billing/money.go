package billing

import "github.com/shopspring/decimal"

// MoneyPlaces decimales de todo importe monetario.
const MoneyPlaces = 2

// RateDivisionPlaces decimales de una tasa inversa.
const RateDivisionPlaces = 6

var hundred = decimal.NewFromInt(100)

// RoundMoney redondea half-up a 2 decimales.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RateKey representación canónica de una tasa de IVA ("20" y "20.00" coinciden).
func RateKey(rate decimal.Decimal) string {
	return rate.String()
}

// FromMinorUnits convierte centavos a importe decimal.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -MoneyPlaces)
}

// ToMinorUnits convierte un importe a centavos (redondeado).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return RoundMoney(amount).Shift(MoneyPlaces).IntPart()
}
