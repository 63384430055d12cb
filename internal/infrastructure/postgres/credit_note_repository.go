package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.CreditNoteRepository = (*CreditNoteRepo)(nil)

// CreditNoteRepo implementación de CreditNoteRepository sobre PostgreSQL.
type CreditNoteRepo struct {
	q Querier
}

// NewCreditNoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCreditNoteRepository(q Querier) *CreditNoteRepo {
	return &CreditNoteRepo{q: q}
}

const creditNoteColumns = documentColumns + `,
	status, invoice_id, reason, sent_at, applied_at`

func (r *CreditNoteRepo) Create(ctx context.Context, cn *entity.CreditNote) error {
	query := `INSERT INTO credit_notes (` + creditNoteColumns + `) VALUES (` + placeholders(1, documentColumnCount+5) + `)`
	args := append(documentArgs(&cn.Document), cn.Status, cn.InvoiceID, cn.Reason, cn.SentAt, cn.AppliedAt)
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("credit note number already exists: %w", err)
		}
		return fmt.Errorf("insert credit note: %w", err)
	}
	return nil
}

func (r *CreditNoteRepo) GetByID(ctx context.Context, id string) (*entity.CreditNote, error) {
	return r.get(ctx, id, false)
}

func (r *CreditNoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.CreditNote, error) {
	return r.get(ctx, id, true)
}

func (r *CreditNoteRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.CreditNote, error) {
	query := `SELECT ` + creditNoteColumns + ` FROM credit_notes WHERE id = $1` + lockClause(forUpdate)
	var cn entity.CreditNote
	dest := append(documentDest(&cn.Document), &cn.Status, &cn.InvoiceID, &cn.Reason, &cn.SentAt, &cn.AppliedAt)
	if err := r.q.QueryRow(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credit note: %w", err)
	}
	return &cn, nil
}

func (r *CreditNoteRepo) Update(ctx context.Context, cn *entity.CreditNote) error {
	n := documentSetCount
	query := fmt.Sprintf(`
		UPDATE credit_notes SET %s,
		    status = $%d, invoice_id = $%d, reason = $%d, sent_at = $%d, applied_at = $%d
		WHERE id = $1`,
		documentSet, n+1, n+2, n+3, n+4, n+5)
	args := append(documentSetArgs(&cn.Document), cn.Status, cn.InvoiceID, cn.Reason, cn.SentAt, cn.AppliedAt)
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update credit note: %w", err)
	}
	return nil
}

func (r *CreditNoteRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM credit_notes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete credit note: %w", err)
	}
	return nil
}
