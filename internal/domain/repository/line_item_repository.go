package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// LineItemRepository líneas polimórficas por (document_type, document_id).
type LineItemRepository interface {
	// Replace borra las líneas actuales del documento e inserta items en orden.
	Replace(ctx context.Context, docType entity.DocumentType, docID string, items []entity.LineItem) error
	// ListByDocument devuelve las líneas ordenadas por sort_order.
	ListByDocument(ctx context.Context, docType entity.DocumentType, docID string) ([]entity.LineItem, error)
	DeleteByDocument(ctx context.Context, docType entity.DocumentType, docID string) error
}
