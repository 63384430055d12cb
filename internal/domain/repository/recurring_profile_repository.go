package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// RecurringProfileRepository perfiles recurrentes. No hay Delete: los perfiles se conservan.
type RecurringProfileRepository interface {
	Create(ctx context.Context, p *entity.RecurringProfile) error
	GetByID(ctx context.Context, id string) (*entity.RecurringProfile, error)
	GetForUpdate(ctx context.Context, id string) (*entity.RecurringProfile, error)
	Update(ctx context.Context, p *entity.RecurringProfile) error
	// ListDue ids de perfiles activos con next_due_date <= asOf.
	ListDue(ctx context.Context, asOf time.Time) ([]string, error)
}
