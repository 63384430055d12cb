package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// SequenceRepository contadores de numeración por alcance.
type SequenceRepository interface {
	// LockCounter crea el contador en 0 si no existe y lo bloquea hasta el fin de la transacción.
	LockCounter(ctx context.Context, scope entity.SequenceScope) (*entity.SequenceCounter, error)
	// MaxExistingSuffix mayor consecutivo numérico ya persistido en scope.Table para prefix-year-N.
	MaxExistingSuffix(ctx context.Context, scope entity.SequenceScope) (int64, error)
	SaveCounter(ctx context.Context, c *entity.SequenceCounter) error
}
