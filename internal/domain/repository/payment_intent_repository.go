package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// PaymentIntentRepository estado local de los intentos de pago del proveedor.
type PaymentIntentRepository interface {
	Create(ctx context.Context, pi *entity.PaymentIntent) error
	GetForUpdate(ctx context.Context, id string) (*entity.PaymentIntent, error)
	Update(ctx context.Context, pi *entity.PaymentIntent) error
	ListByStatus(ctx context.Context, status entity.PaymentIntentStatus) ([]entity.PaymentIntent, error)
}
