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

var _ repository.QuoteRepository = (*QuoteRepo)(nil)

// QuoteRepo implementación de QuoteRepository sobre PostgreSQL.
type QuoteRepo struct {
	q Querier
}

// NewQuoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewQuoteRepository(q Querier) *QuoteRepo {
	return &QuoteRepo{q: q}
}

const quoteColumns = documentColumns + `,
	status, valid_until, sent_at, accepted_at, rejected_at, converted_invoice_id`

func (r *QuoteRepo) Create(ctx context.Context, q *entity.Quote) error {
	query := `INSERT INTO quotes (` + quoteColumns + `) VALUES (` + placeholders(1, documentColumnCount+6) + `)`
	args := append(documentArgs(&q.Document),
		q.Status, q.ValidUntil, q.SentAt, q.AcceptedAt, q.RejectedAt, q.ConvertedInvoiceID,
	)
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("quote number already exists: %w", err)
		}
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (r *QuoteRepo) GetByID(ctx context.Context, id string) (*entity.Quote, error) {
	return r.get(ctx, id, false)
}

func (r *QuoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.Quote, error) {
	return r.get(ctx, id, true)
}

func (r *QuoteRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1` + lockClause(forUpdate)
	var q entity.Quote
	dest := append(documentDest(&q.Document),
		&q.Status, &q.ValidUntil, &q.SentAt, &q.AcceptedAt, &q.RejectedAt, &q.ConvertedInvoiceID,
	)
	if err := r.q.QueryRow(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return &q, nil
}

func (r *QuoteRepo) Update(ctx context.Context, q *entity.Quote) error {
	n := documentSetCount
	query := fmt.Sprintf(`
		UPDATE quotes SET %s,
		    status = $%d, valid_until = $%d, sent_at = $%d, accepted_at = $%d,
		    rejected_at = $%d, converted_invoice_id = $%d
		WHERE id = $1`,
		documentSet, n+1, n+2, n+3, n+4, n+5, n+6)
	args := append(documentSetArgs(&q.Document),
		q.Status, q.ValidUntil, q.SentAt, q.AcceptedAt, q.RejectedAt, q.ConvertedInvoiceID,
	)
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	return nil
}

func (r *QuoteRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	return nil
}

// ListExpirable ids de cotizaciones enviadas cuya validez terminó antes de asOf.
func (r *QuoteRepo) ListExpirable(ctx context.Context, asOf time.Time) ([]string, error) {
	const query = `SELECT id FROM quotes WHERE status = 'sent' AND valid_until < $1 ORDER BY id`
	return collectIDs(ctx, r.q, query, asOf)
}
