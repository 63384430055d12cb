package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// CreditNoteRepository puerto de persistencia de notas de crédito.
type CreditNoteRepository interface {
	Create(ctx context.Context, cn *entity.CreditNote) error
	GetByID(ctx context.Context, id string) (*entity.CreditNote, error)
	GetForUpdate(ctx context.Context, id string) (*entity.CreditNote, error)
	Update(ctx context.Context, cn *entity.CreditNote) error
	Delete(ctx context.Context, id string) error
}
