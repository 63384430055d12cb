package billing

import (
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SumPayments suma el historial completo (los reembolsos son negativos).
func SumPayments(payments []entity.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = RoundMoney(sum.Add(p.Amount))
	}
	return sum
}

// BalanceDue total - pagado, con piso en 0.
func BalanceDue(total, paid decimal.Decimal) decimal.Decimal {
	return decimal.Max(RoundMoney(total.Sub(paid)), decimal.Zero)
}

// RecomputeBalance deriva amount_paid, balance_due, estado y paid_at del historial de pagos.
// Es la única fuente de verdad: nunca se incrementa el saldo de forma aislada.
// Devuelve true si el estado cambió.
func RecomputeBalance(inv *entity.Invoice, payments []entity.Payment, now time.Time) bool {
	paid := SumPayments(payments)
	inv.AmountPaid = paid
	inv.BalanceDue = BalanceDue(inv.Total, paid)

	prev := inv.Status
	if prev == entity.InvoiceStatusCancelled {
		// anulada es terminal: un reembolso posterior solo mueve los importes
		return false
	}
	switch {
	case paid.IsPositive() && paid.GreaterThanOrEqual(inv.Total):
		inv.Status = entity.InvoiceStatusPaid
		if inv.PaidAt == nil {
			t := now
			inv.PaidAt = &t
		}
	case paid.IsPositive():
		// también desde overdue; el barrido de vencimiento la vuelve a marcar
		inv.Status = entity.InvoiceStatusPartiallyPaid
		inv.PaidAt = nil
	case LedgerManaged(inv.Status):
		inv.Status = entity.InvoiceStatusSent
		inv.PaidAt = nil
	}
	return prev != inv.Status
}
