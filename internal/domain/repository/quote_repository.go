package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// QuoteRepository puerto de persistencia de cotizaciones.
type QuoteRepository interface {
	Create(ctx context.Context, q *entity.Quote) error
	GetByID(ctx context.Context, id string) (*entity.Quote, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Quote, error)
	Update(ctx context.Context, q *entity.Quote) error
	Delete(ctx context.Context, id string) error
	// ListExpirable ids de cotizaciones sent con valid_until < asOf.
	ListExpirable(ctx context.Context, asOf time.Time) ([]string, error)
}
