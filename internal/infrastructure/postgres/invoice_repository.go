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

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = documentColumns + `,
	status, due_date, amount_paid, balance_due, sent_at, viewed_at, paid_at, cancelled_at,
	quote_id, recurring_profile_id`

// Create persiste la cabecera de la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	query := `INSERT INTO invoices (` + invoiceColumns + `) VALUES (` + placeholders(1, documentColumnCount+10) + `)`
	args := append(documentArgs(&inv.Document),
		inv.Status, inv.DueDate, inv.AmountPaid, inv.BalanceDue,
		inv.SentAt, inv.ViewedAt, inv.PaidAt, inv.CancelledAt,
		inv.QuoteID, inv.RecurringProfileID,
	)
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice number already exists: %w", err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera por ID; (nil, nil) si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate igual que GetByID bloqueando la fila (SELECT FOR UPDATE).
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.get(ctx, id, true)
}

func (r *InvoiceRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1` + lockClause(forUpdate)
	var inv entity.Invoice
	dest := append(documentDest(&inv.Document),
		&inv.Status, &inv.DueDate, &inv.AmountPaid, &inv.BalanceDue,
		&inv.SentAt, &inv.ViewedAt, &inv.PaidAt, &inv.CancelledAt,
		&inv.QuoteID, &inv.RecurringProfileID,
	)
	if err := r.q.QueryRow(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

// Update reescribe cabecera, estado y saldos.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	n := documentSetCount
	query := fmt.Sprintf(`
		UPDATE invoices SET %s,
		    status = $%d, due_date = $%d, amount_paid = $%d, balance_due = $%d,
		    sent_at = $%d, viewed_at = $%d, paid_at = $%d, cancelled_at = $%d
		WHERE id = $1`,
		documentSet, n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8)
	args := append(documentSetArgs(&inv.Document),
		inv.Status, inv.DueDate, inv.AmountPaid, inv.BalanceDue,
		inv.SentAt, inv.ViewedAt, inv.PaidAt, inv.CancelledAt,
	)
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

// Delete borra la cabecera. Las líneas se borran con LineItemRepository.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// ListOverdueCandidates ids de facturas con saldo y vencimiento anterior a asOf.
func (r *InvoiceRepo) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]string, error) {
	const query = `
		SELECT id FROM invoices
		WHERE status IN ('sent', 'viewed', 'partially_paid') AND due_date < $1
		ORDER BY id`
	return collectIDs(ctx, r.q, query, asOf)
}

func collectIDs(ctx context.Context, q Querier, query string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan ids: %w", err)
	}
	return ids, nil
}
