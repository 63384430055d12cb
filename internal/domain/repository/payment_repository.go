package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// PaymentRepository historial append-only de pagos. No hay Update ni Delete.
type PaymentRepository interface {
	// Create inserta el pago. Devuelve domain.ErrDuplicateExternalReference si
	// (invoice_id, external_reference) ya existe.
	Create(ctx context.Context, p *entity.Payment) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]entity.Payment, error)
	GetByReference(ctx context.Context, invoiceID, externalRef string) (*entity.Payment, error)
}
