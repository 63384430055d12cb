package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para la cabecera de Invoice.
// Las líneas se guardan con LineItemRepository y los pagos con PaymentRepository.
// GetByID y GetForUpdate devuelven (nil, nil) si no existe.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// GetForUpdate lee la factura tomando un bloqueo de fila hasta el fin de la transacción.
	// Serializa pagos concurrentes sobre la misma factura.
	GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error)
	Update(ctx context.Context, inv *entity.Invoice) error
	Delete(ctx context.Context, id string) error
	// ListOverdueCandidates ids de facturas sent/viewed/partially_paid con due_date < asOf.
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]string, error)
}
