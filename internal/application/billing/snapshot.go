package billing

import (
	"context"
	"sort"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

func baseSnapshot(docType entity.DocumentType, status string, d *entity.Document) *dto.DocumentSnapshot {
	snap := &dto.DocumentSnapshot{
		DocumentType:      string(docType),
		ID:                d.ID,
		Number:            d.Number,
		Status:            status,
		ClientID:          d.ClientID,
		Currency:          d.Currency,
		BaseCurrency:      d.BaseCurrency,
		ExchangeRate:      d.ExchangeRate,
		IssueDate:         d.IssueDate,
		Subtotal:          d.Subtotal,
		DiscountType:      string(d.DiscountType),
		DiscountValue:     d.DiscountValue,
		DiscountAmount:    d.DiscountAmount,
		TaxableSubtotal:   d.TaxableSubtotal(),
		TaxAmount:         d.TaxAmount,
		Total:             d.Total,
		BaseCurrencyTotal: d.BaseCurrencyTotal,
		VATBreakdown:      make([]dto.VATLine, 0, len(d.VATBreakdown)),
		Lines:             make([]dto.SnapshotLine, 0, len(d.LineItems)),
		Notes:             d.Notes,
	}
	for rate, amount := range d.VATBreakdown {
		snap.VATBreakdown = append(snap.VATBreakdown, dto.VATLine{Rate: rate, Amount: amount})
	}
	// tasas de mayor a menor; las claves son decimales canónicos
	sort.Slice(snap.VATBreakdown, func(i, j int) bool {
		ri, _ := decimal.NewFromString(snap.VATBreakdown[i].Rate)
		rj, _ := decimal.NewFromString(snap.VATBreakdown[j].Rate)
		return ri.GreaterThan(rj)
	})
	for _, li := range d.LineItems {
		snap.Lines = append(snap.Lines, dto.SnapshotLine{
			Description:    li.Description,
			Quantity:       li.Quantity,
			UnitPrice:      li.UnitPrice,
			VATRate:        li.VATRate,
			LineTotal:      li.LineTotal,
			DiscountAmount: li.DiscountAmount,
			TaxableAmount:  li.TaxableAmount,
			VATAmount:      li.VATAmount,
		})
	}
	return snap
}

// InvoiceSnapshot vista inmutable de una factura con saldo y pagos.
func InvoiceSnapshot(inv *entity.Invoice) *dto.DocumentSnapshot {
	snap := baseSnapshot(entity.DocumentTypeInvoice, string(inv.Status), &inv.Document)
	due := inv.DueDate
	paid := inv.AmountPaid
	balance := inv.BalanceDue
	snap.DueDate = &due
	snap.AmountPaid = &paid
	snap.BalanceDue = &balance
	for _, p := range inv.Payments {
		pr := dto.PaymentResponse{
			ID:          p.ID,
			Amount:      p.Amount,
			PaymentDate: p.PaymentDate.Format(dto.DateLayout),
			Method:      string(p.Method),
		}
		if p.ExternalReference != nil {
			pr.ExternalReference = *p.ExternalReference
		}
		snap.Payments = append(snap.Payments, pr)
	}
	return snap
}

// QuoteSnapshot vista inmutable de una cotización.
func QuoteSnapshot(q *entity.Quote) *dto.DocumentSnapshot {
	snap := baseSnapshot(entity.DocumentTypeQuote, string(q.Status), &q.Document)
	vu := q.ValidUntil
	snap.ValidUntil = &vu
	return snap
}

// CreditNoteSnapshot vista inmutable de una nota de crédito.
func CreditNoteSnapshot(cn *entity.CreditNote) *dto.DocumentSnapshot {
	snap := baseSnapshot(entity.DocumentTypeCreditNote, string(cn.Status), &cn.Document)
	snap.InvoiceID = cn.InvoiceID
	return snap
}

// Snapshot carga el documento y devuelve su vista inmutable para exportadores.
func (s *DocumentService) Snapshot(ctx context.Context, ownerID string, docType entity.DocumentType, id string) (*dto.DocumentSnapshot, error) {
	switch docType {
	case entity.DocumentTypeInvoice:
		inv, err := s.GetInvoice(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		return InvoiceSnapshot(inv), nil
	case entity.DocumentTypeQuote:
		q, err := s.GetQuote(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		return QuoteSnapshot(q), nil
	case entity.DocumentTypeCreditNote:
		cn, err := s.GetCreditNote(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		return CreditNoteSnapshot(cn), nil
	}
	return nil, domain.NewValidationError("document_type", "tipo de documento no soportado")
}
