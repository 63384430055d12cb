package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// SequenceGenerator entrega números consecutivos por (tabla, prefijo, año). Llamadores
// concurrentes del mismo alcance se serializan en el bloqueo de fila del contador.
type SequenceGenerator struct {
	tx    TxRunner
	clock Clock
}

// NewSequenceGenerator construye el generador.
func NewSequenceGenerator(tx TxRunner, clock Clock) *SequenceGenerator {
	return &SequenceGenerator{tx: tx, clock: clock}
}

// Scope alcance del año en curso según el reloj.
func (g *SequenceGenerator) Scope(table, prefix string) entity.SequenceScope {
	return entity.SequenceScope{Table: table, Prefix: prefix, Year: g.clock.Now().Year()}
}

// Generate reserva el siguiente número en su propia transacción.
func (g *SequenceGenerator) Generate(ctx context.Context, table, prefix string) (string, error) {
	var number string
	err := g.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		number, err = g.NextInTx(ctx, r.Sequences, table, prefix)
		return err
	})
	return number, err
}

// NextInTx reserva el siguiente número usando la transacción del llamador. Si esa transacción
// hace rollback el contador tampoco avanza, así que no quedan huecos.
func (g *SequenceGenerator) NextInTx(ctx context.Context, seq repository.SequenceRepository, table, prefix string) (string, error) {
	if table == "" || prefix == "" {
		return "", domain.NewValidationError("prefix", "tabla y prefijo son obligatorios")
	}
	scope := g.Scope(table, prefix)

	counter, err := seq.LockCounter(ctx, scope)
	if err != nil {
		return "", fmt.Errorf("bloquear contador %s: %w", scope.Key(), err)
	}
	// números insertados a mano o restaurados desde un respaldo
	existingMax, err := seq.MaxExistingSuffix(ctx, scope)
	if err != nil {
		return "", fmt.Errorf("máximo consecutivo %s: %w", scope.Key(), err)
	}

	next := max(counter.LastNumber, existingMax) + 1
	counter.LastNumber = next
	counter.UpdatedAt = g.clock.Now()
	if err := seq.SaveCounter(ctx, counter); err != nil {
		return "", fmt.Errorf("guardar contador %s: %w", scope.Key(), err)
	}
	return billing.FormatNumber(scope.Prefix, scope.Year, next), nil
}
