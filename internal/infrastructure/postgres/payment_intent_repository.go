package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.PaymentIntentRepository = (*PaymentIntentRepo)(nil)

// PaymentIntentRepo estado local de los intentos del proveedor.
type PaymentIntentRepo struct {
	q Querier
}

// NewPaymentIntentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentIntentRepository(q Querier) *PaymentIntentRepo {
	return &PaymentIntentRepo{q: q}
}

func (r *PaymentIntentRepo) Create(ctx context.Context, pi *entity.PaymentIntent) error {
	const query = `
		INSERT INTO payment_intents (id, invoice_id, amount, currency, status, failure_message, refunded_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		pi.ID, pi.InvoiceID, pi.Amount, pi.Currency, pi.Status, pi.FailureMessage, pi.RefundedAmount,
		pi.CreatedAt, pi.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert payment intent: %w", err)
	}
	return nil
}

// GetForUpdate lee el intent bloqueando la fila; (nil, nil) si no existe.
func (r *PaymentIntentRepo) GetForUpdate(ctx context.Context, id string) (*entity.PaymentIntent, error) {
	const query = `
		SELECT id, invoice_id, amount, currency, status, failure_message, refunded_amount, created_at, updated_at
		FROM payment_intents WHERE id = $1 FOR UPDATE`
	var pi entity.PaymentIntent
	err := r.q.QueryRow(ctx, query, id).Scan(
		&pi.ID, &pi.InvoiceID, &pi.Amount, &pi.Currency, &pi.Status, &pi.FailureMessage, &pi.RefundedAmount,
		&pi.CreatedAt, &pi.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment intent: %w", err)
	}
	return &pi, nil
}

func (r *PaymentIntentRepo) Update(ctx context.Context, pi *entity.PaymentIntent) error {
	const query = `
		UPDATE payment_intents
		SET status = $2, failure_message = $3, refunded_amount = $4, updated_at = $5
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, pi.ID, pi.Status, pi.FailureMessage, pi.RefundedAmount, pi.UpdatedAt); err != nil {
		return fmt.Errorf("update payment intent: %w", err)
	}
	return nil
}

// ListByStatus intentos en un estado, ordenados por id.
func (r *PaymentIntentRepo) ListByStatus(ctx context.Context, status entity.PaymentIntentStatus) ([]entity.PaymentIntent, error) {
	const query = `
		SELECT id, invoice_id, amount, currency, status, failure_message, refunded_amount, created_at, updated_at
		FROM payment_intents WHERE status = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list payment intents: %w", err)
	}
	defer rows.Close()
	var out []entity.PaymentIntent
	for rows.Next() {
		var pi entity.PaymentIntent
		if err := rows.Scan(
			&pi.ID, &pi.InvoiceID, &pi.Amount, &pi.Currency, &pi.Status, &pi.FailureMessage, &pi.RefundedAmount,
			&pi.CreatedAt, &pi.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment intent: %w", err)
		}
		out = append(out, pi)
	}
	return out, rows.Err()
}
