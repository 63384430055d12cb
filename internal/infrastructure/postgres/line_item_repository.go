package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.LineItemRepository = (*LineItemRepo)(nil)

// LineItemRepo líneas de todos los tipos de documento en una sola tabla.
type LineItemRepo struct {
	q Querier
}

// NewLineItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLineItemRepository(q Querier) *LineItemRepo {
	return &LineItemRepo{q: q}
}

const lineItemColumns = `id, document_type, document_id, description, quantity, unit_price, vat_rate,
	sort_order, line_total, discount_amount, taxable_amount, vat_amount`

// Replace borra e inserta las líneas en un único batch.
func (r *LineItemRepo) Replace(ctx context.Context, docType entity.DocumentType, docID string, items []entity.LineItem) error {
	b := &pgx.Batch{}
	b.Queue(`DELETE FROM line_items WHERE document_type = $1 AND document_id = $2`, docType, docID)
	insert := `INSERT INTO line_items (` + lineItemColumns + `) VALUES (` + placeholders(1, 12) + `)`
	for _, li := range items {
		b.Queue(insert,
			li.ID, docType, docID, li.Description, li.Quantity, li.UnitPrice, li.VATRate,
			li.SortOrder, li.LineTotal, li.DiscountAmount, li.TaxableAmount, li.VATAmount,
		)
	}
	if err := r.q.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("replace line items: %w", err)
	}
	return nil
}

// ListByDocument líneas ordenadas por sort_order.
func (r *LineItemRepo) ListByDocument(ctx context.Context, docType entity.DocumentType, docID string) ([]entity.LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM line_items
		WHERE document_type = $1 AND document_id = $2
		ORDER BY sort_order, id`
	rows, err := r.q.Query(ctx, query, docType, docID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.LineItem, error) {
		var li entity.LineItem
		err := row.Scan(&li.ID, &li.DocumentType, &li.DocumentID, &li.Description, &li.Quantity, &li.UnitPrice,
			&li.VATRate, &li.SortOrder, &li.LineTotal, &li.DiscountAmount, &li.TaxableAmount, &li.VATAmount)
		return li, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan line items: %w", err)
	}
	return items, nil
}

func (r *LineItemRepo) DeleteByDocument(ctx context.Context, docType entity.DocumentType, docID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM line_items WHERE document_type = $1 AND document_id = $2`, docType, docID)
	if err != nil {
		return fmt.Errorf("delete line items: %w", err)
	}
	return nil
}
