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

var _ repository.RecurringProfileRepository = (*RecurringProfileRepo)(nil)

// RecurringProfileRepo perfiles recurrentes; las líneas plantilla viven en line_items.
type RecurringProfileRepo struct {
	q Querier
}

// NewRecurringProfileRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRecurringProfileRepository(q Querier) *RecurringProfileRepo {
	return &RecurringProfileRepo{q: q}
}

const profileColumns = `id, owner_id, client_id, currency, frequency, start_date, end_date, day_of_month,
	next_due_date, occurrences_generated, max_occurrences, status, payment_terms_days,
	discount_type, discount_value, notes, last_generated_invoice_id, created_at, updated_at`

func (r *RecurringProfileRepo) Create(ctx context.Context, p *entity.RecurringProfile) error {
	query := `INSERT INTO recurring_profiles (` + profileColumns + `) VALUES (` + placeholders(1, 19) + `)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.OwnerID, p.ClientID, p.Currency, p.Frequency, p.StartDate, p.EndDate, p.DayOfMonth,
		p.NextDueDate, p.OccurrencesGenerated, p.MaxOccurrences, p.Status, p.PaymentTermsDays,
		p.DiscountType, p.DiscountValue, p.Notes, p.LastGeneratedInvoiceID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recurring profile: %w", err)
	}
	return nil
}

func (r *RecurringProfileRepo) GetByID(ctx context.Context, id string) (*entity.RecurringProfile, error) {
	return r.get(ctx, id, false)
}

func (r *RecurringProfileRepo) GetForUpdate(ctx context.Context, id string) (*entity.RecurringProfile, error) {
	return r.get(ctx, id, true)
}

func (r *RecurringProfileRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.RecurringProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM recurring_profiles WHERE id = $1` + lockClause(forUpdate)
	var p entity.RecurringProfile
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.ClientID, &p.Currency, &p.Frequency, &p.StartDate, &p.EndDate, &p.DayOfMonth,
		&p.NextDueDate, &p.OccurrencesGenerated, &p.MaxOccurrences, &p.Status, &p.PaymentTermsDays,
		&p.DiscountType, &p.DiscountValue, &p.Notes, &p.LastGeneratedInvoiceID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recurring profile: %w", err)
	}
	return &p, nil
}

// Update persiste el avance del perfil y su estado.
func (r *RecurringProfileRepo) Update(ctx context.Context, p *entity.RecurringProfile) error {
	const query = `
		UPDATE recurring_profiles
		SET next_due_date = $2, occurrences_generated = $3, status = $4,
		    last_generated_invoice_id = $5, end_date = $6, max_occurrences = $7, updated_at = $8
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.NextDueDate, p.OccurrencesGenerated, p.Status,
		p.LastGeneratedInvoiceID, p.EndDate, p.MaxOccurrences, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update recurring profile: %w", err)
	}
	return nil
}

// ListDue ids de perfiles activos con next_due_date <= asOf.
func (r *RecurringProfileRepo) ListDue(ctx context.Context, asOf time.Time) ([]string, error) {
	const query = `
		SELECT id FROM recurring_profiles
		WHERE status = 'active' AND next_due_date <= $1
		ORDER BY next_due_date, id`
	return collectIDs(ctx, r.q, query, asOf)
}
