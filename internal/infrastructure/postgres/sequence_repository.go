package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// numberedTables tablas cuya columna number puede consultarse. El nombre de tabla se
// interpola en SQL, por eso solo se aceptan estas.
var numberedTables = map[string]bool{
	entity.DocumentTypeInvoice.Table():    true,
	entity.DocumentTypeQuote.Table():      true,
	entity.DocumentTypeCreditNote.Table(): true,
}

// SequenceRepo contadores de numeración con bloqueo de fila.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// LockCounter crea el contador si falta y lo bloquea (SELECT FOR UPDATE) hasta el commit.
func (r *SequenceRepo) LockCounter(ctx context.Context, scope entity.SequenceScope) (*entity.SequenceCounter, error) {
	const upsert = `
		INSERT INTO sequence_counters (table_name, prefix, year, last_number)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (table_name, prefix, year) DO NOTHING`
	if _, err := r.q.Exec(ctx, upsert, scope.Table, scope.Prefix, scope.Year); err != nil {
		return nil, fmt.Errorf("init sequence counter: %w", err)
	}
	const query = `
		SELECT last_number, updated_at FROM sequence_counters
		WHERE table_name = $1 AND prefix = $2 AND year = $3
		FOR UPDATE`
	c := &entity.SequenceCounter{Scope: scope}
	if err := r.q.QueryRow(ctx, query, scope.Table, scope.Prefix, scope.Year).Scan(&c.LastNumber, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("lock sequence counter: %w", err)
	}
	return c, nil
}

// MaxExistingSuffix mayor consecutivo ya usado en la tabla para prefix-year. Cubre números
// cargados por fuera del contador (importaciones, datos previos).
func (r *SequenceRepo) MaxExistingSuffix(ctx context.Context, scope entity.SequenceScope) (int64, error) {
	if !numberedTables[scope.Table] {
		return 0, fmt.Errorf("tabla no numerada: %q", scope.Table)
	}
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(substring(number FROM $1::text)::bigint), 0)
		FROM %s
		WHERE number ~ $1::text`, pgx.Identifier{scope.Table}.Sanitize())
	var maxSuffix int64
	if err := r.q.QueryRow(ctx, query, billing.NumberRegexp(scope.Prefix, scope.Year)).Scan(&maxSuffix); err != nil {
		return 0, fmt.Errorf("max existing number: %w", err)
	}
	return maxSuffix, nil
}

// SaveCounter persiste el último número emitido; nunca lo hace retroceder.
func (r *SequenceRepo) SaveCounter(ctx context.Context, c *entity.SequenceCounter) error {
	const query = `
		UPDATE sequence_counters
		SET last_number = GREATEST(last_number, $4), updated_at = $5
		WHERE table_name = $1 AND prefix = $2 AND year = $3`
	_, err := r.q.Exec(ctx, query, c.Scope.Table, c.Scope.Prefix, c.Scope.Year, c.LastNumber, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save sequence counter: %w", err)
	}
	return nil
}
