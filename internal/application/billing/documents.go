package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DocumentService crea, edita y hace avanzar facturas, cotizaciones y notas de crédito.
// Todo cambio de totales se recalcula junto con las líneas en una sola transacción.
type DocumentService struct {
	tx       TxRunner
	seq      *SequenceGenerator
	clock    Clock
	settings Settings
	dispatch SendDispatcher
	log      zerolog.Logger
}

// NewDocumentService construye el servicio. dispatch puede ser nil.
func NewDocumentService(tx TxRunner, clock Clock, settings Settings, dispatch SendDispatcher, log zerolog.Logger) *DocumentService {
	return &DocumentService{
		tx:       tx,
		seq:      NewSequenceGenerator(tx, clock),
		clock:    clock,
		settings: settings,
		dispatch: dispatch,
		log:      log,
	}
}

// draftFields datos ya interpretados de un documento en borrador.
type draftFields struct {
	ownerID   string
	clientID  string
	currency  string
	notes     string
	issueDate time.Time
	discount  billing.Discount
	lines     []entity.LineItem
}

// invoiceDraft ruta común de creación de facturas (API, conversión de cotización, recurrencia).
type invoiceDraft struct {
	draftFields
	dueDate   time.Time
	quoteID   *string
	profileID *string
}

func (s *DocumentService) parseDocumentRequest(ownerID string, req dto.DocumentRequest) (draftFields, error) {
	f := draftFields{
		ownerID:  ownerID,
		clientID: strings.TrimSpace(req.ClientID),
		currency: req.Currency,
		notes:    req.Notes,
		discount: billing.Discount{Type: entity.DiscountType(req.DiscountType), Value: req.DiscountValue},
	}
	if f.clientID == "" {
		return f, domain.NewValidationError("client_id", "es obligatorio")
	}
	if f.currency == "" {
		f.currency = s.settings.BaseCurrency
	}
	issue, ok, err := dto.ParseDate(req.IssueDate)
	if err != nil {
		return f, domain.NewValidationError("issue_date", "fecha inválida")
	}
	if !ok {
		issue = startOfDay(s.clock.Now())
	}
	f.issueDate = issue
	f.lines, err = linesFromRequest(req.LineItems)
	return f, err
}

func linesFromRequest(items []dto.LineItemRequest) ([]entity.LineItem, error) {
	lines := make([]entity.LineItem, 0, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.Description) == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("line_items[%d].description", i), "es obligatoria")
		}
		order := i + 1
		if it.SortOrder != nil {
			order = *it.SortOrder
		}
		lines = append(lines, entity.LineItem{
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			VATRate:     it.VATRate,
			SortOrder:   order,
		})
	}
	return lines, nil
}

// cloneLines copia líneas de otro documento o plantilla sin sus identificadores.
func cloneLines(src []entity.LineItem) []entity.LineItem {
	out := make([]entity.LineItem, len(src))
	for i, li := range src {
		out[i] = entity.LineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			VATRate:     li.VATRate,
			SortOrder:   li.SortOrder,
		}
	}
	return out
}

// buildDocument calcula líneas y totales y convierte el total a la moneda base con la tasa
// vigente al cierre del día de emisión. No escribe nada.
func (s *DocumentService) buildDocument(ctx context.Context, r Repos, docType entity.DocumentType, id string, f draftFields) (entity.Document, error) {
	cur, err := NormalizeCurrency(f.currency)
	if err != nil {
		return entity.Document{}, err
	}
	doc := entity.Document{
		ID:           id,
		OwnerID:      f.ownerID,
		ClientID:     f.clientID,
		Currency:     cur,
		BaseCurrency: s.settings.BaseCurrency,
		IssueDate:    f.issueDate,
		Notes:        f.notes,
		LineItems:    f.lines,
	}
	for i := range doc.LineItems {
		doc.LineItems[i].ID = uuid.New().String()
		doc.LineItems[i].DocumentType = docType
		doc.LineItems[i].DocumentID = id
	}
	if err := billing.ApplyTotals(&doc, f.discount); err != nil {
		return entity.Document{}, err
	}

	conv := NewCurrencyConverter(r.Rates, s.clock)
	baseTotal, rate, err := conv.Convert(ctx, doc.Total, doc.Currency, doc.BaseCurrency, endOfDay(doc.IssueDate))
	if err != nil {
		return entity.Document{}, err
	}
	doc.ExchangeRate = rate
	doc.BaseCurrencyTotal = baseTotal
	return doc, nil
}

// replaceDocument recalcula un borrador existente conservando id, número y fecha de alta.
func (s *DocumentService) replaceDocument(ctx context.Context, r Repos, docType entity.DocumentType, current entity.Document, f draftFields) (entity.Document, error) {
	doc, err := s.buildDocument(ctx, r, docType, current.ID, f)
	if err != nil {
		return entity.Document{}, err
	}
	doc.Number = current.Number
	doc.CreatedAt = current.CreatedAt
	doc.UpdatedAt = s.clock.Now()
	return doc, nil
}

func checkOwner(ownerID, docOwner string) error {
	if ownerID != "" && ownerID != docOwner {
		return domain.ErrForbidden
	}
	return nil
}

// ── Facturas ─────────────────────────────────────────────────────────────────

// CreateInvoice crea una factura en borrador con número asignado.
func (s *DocumentService) CreateInvoice(ctx context.Context, ownerID string, req dto.CreateInvoiceRequest) (*entity.Invoice, error) {
	f, err := s.parseDocumentRequest(ownerID, req.DocumentRequest)
	if err != nil {
		return nil, err
	}
	due, _, err := dto.ParseDate(req.DueDate)
	if err != nil {
		return nil, domain.NewValidationError("due_date", "fecha inválida")
	}

	var inv *entity.Invoice
	err = s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		inv, err = s.createInvoiceInTx(ctx, r, invoiceDraft{draftFields: f, dueDate: due})
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *DocumentService) createInvoiceInTx(ctx context.Context, r Repos, d invoiceDraft) (*entity.Invoice, error) {
	id := uuid.New().String()
	doc, err := s.buildDocument(ctx, r, entity.DocumentTypeInvoice, id, d.draftFields)
	if err != nil {
		return nil, err
	}
	due := d.dueDate
	if due.IsZero() {
		due = doc.IssueDate.AddDate(0, 0, s.settings.PaymentTermsDays)
	}
	if due.Before(doc.IssueDate) {
		return nil, domain.NewValidationError("due_date", "no puede ser anterior a la fecha de emisión")
	}

	doc.Number, err = s.seq.NextInTx(ctx, r.Sequences, entity.DocumentTypeInvoice.Table(), s.settings.InvoicePrefix)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	inv := &entity.Invoice{
		Document:           doc,
		Status:             entity.InvoiceStatusDraft,
		DueDate:            due,
		AmountPaid:         decimal.Zero,
		BalanceDue:         doc.Total,
		QuoteID:            d.quoteID,
		RecurringProfileID: d.profileID,
	}
	if err := r.Invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("crear factura: %w", err)
	}
	if err := r.LineItems.Replace(ctx, entity.DocumentTypeInvoice, inv.ID, inv.LineItems); err != nil {
		return nil, fmt.Errorf("guardar líneas: %w", err)
	}
	s.log.Info().Str("invoice_id", inv.ID).Str("number", inv.Number).
		Str("total", inv.Total.StringFixed(2)).Str("currency", inv.Currency).Msg("factura creada")
	return inv, nil
}

// GetInvoice devuelve la factura con líneas y pagos.
func (s *DocumentService) GetInvoice(ctx context.Context, ownerID, id string) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		inv, err = loadInvoice(ctx, r, ownerID, id, false)
		if err != nil {
			return err
		}
		return hydrateInvoice(ctx, r, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func loadInvoice(ctx context.Context, r Repos, ownerID, id string, forUpdate bool) (*entity.Invoice, error) {
	get := r.Invoices.GetByID
	if forUpdate {
		get = r.Invoices.GetForUpdate
	}
	inv, err := get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("leer factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if err := checkOwner(ownerID, inv.OwnerID); err != nil {
		return nil, err
	}
	return inv, nil
}

func hydrateInvoice(ctx context.Context, r Repos, inv *entity.Invoice) error {
	lines, err := r.LineItems.ListByDocument(ctx, entity.DocumentTypeInvoice, inv.ID)
	if err != nil {
		return fmt.Errorf("leer líneas: %w", err)
	}
	payments, err := r.Payments.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("leer pagos: %w", err)
	}
	inv.LineItems = lines
	inv.Payments = payments
	return nil
}

// UpdateInvoice reemplaza líneas y campos de un borrador.
func (s *DocumentService) UpdateInvoice(ctx context.Context, ownerID, id string, req dto.CreateInvoiceRequest) (*entity.Invoice, error) {
	f, err := s.parseDocumentRequest(ownerID, req.DocumentRequest)
	if err != nil {
		return nil, err
	}
	due, hasDue, err := dto.ParseDate(req.DueDate)
	if err != nil {
		return nil, domain.NewValidationError("due_date", "fecha inválida")
	}

	var inv *entity.Invoice
	err = s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		inv, err = loadInvoice(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		if inv.Status != entity.InvoiceStatusDraft {
			return domain.ErrDocumentLocked
		}
		f.ownerID = inv.OwnerID
		doc, err := s.replaceDocument(ctx, r, entity.DocumentTypeInvoice, inv.Document, f)
		if err != nil {
			return err
		}
		if !hasDue {
			due = doc.IssueDate.AddDate(0, 0, s.settings.PaymentTermsDays)
		}
		if due.Before(doc.IssueDate) {
			return domain.NewValidationError("due_date", "no puede ser anterior a la fecha de emisión")
		}
		inv.Document = doc
		inv.DueDate = due
		inv.AmountPaid = decimal.Zero
		inv.BalanceDue = doc.Total
		if err := r.Invoices.Update(ctx, inv); err != nil {
			return fmt.Errorf("actualizar factura: %w", err)
		}
		return r.LineItems.Replace(ctx, entity.DocumentTypeInvoice, inv.ID, inv.LineItems)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// DeleteInvoice borra un borrador. Su número queda retirado.
func (s *DocumentService) DeleteInvoice(ctx context.Context, ownerID, id string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		inv, err := loadInvoice(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		if inv.Status != entity.InvoiceStatusDraft {
			return domain.ErrDocumentLocked
		}
		if err := r.LineItems.DeleteByDocument(ctx, entity.DocumentTypeInvoice, id); err != nil {
			return err
		}
		if err := r.Invoices.Delete(ctx, id); err != nil {
			return err
		}
		s.log.Info().Str("invoice_id", id).Str("number", inv.Number).Msg("borrador de factura eliminado")
		return nil
	})
}

// SendInvoice draft -> sent y encola el envío.
func (s *DocumentService) SendInvoice(ctx context.Context, ownerID, id string) (*entity.Invoice, error) {
	return s.TransitionInvoice(ctx, ownerID, id, entity.InvoiceStatusSent)
}

// MarkInvoiceViewed sent -> viewed (apertura por el cliente).
func (s *DocumentService) MarkInvoiceViewed(ctx context.Context, ownerID, id string) (*entity.Invoice, error) {
	return s.TransitionInvoice(ctx, ownerID, id, entity.InvoiceStatusViewed)
}

// CancelInvoice anula una factura emitida.
func (s *DocumentService) CancelInvoice(ctx context.Context, ownerID, id string) (*entity.Invoice, error) {
	return s.TransitionInvoice(ctx, ownerID, id, entity.InvoiceStatusCancelled)
}

// TransitionInvoice aplica una transición manual. paid y partially_paid solo los alcanza
// el libro de pagos.
func (s *DocumentService) TransitionInvoice(ctx context.Context, ownerID, id string, target entity.InvoiceStatus) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		inv, err = loadInvoice(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		prev := inv.Status
		if inv.Status, err = billing.TransitionInvoiceManually(inv.Status, target); err != nil {
			return err
		}
		now := s.clock.Now()
		switch target {
		case entity.InvoiceStatusSent:
			inv.SentAt = &now
		case entity.InvoiceStatusViewed:
			inv.ViewedAt = &now
		case entity.InvoiceStatusCancelled:
			inv.CancelledAt = &now
		}
		inv.UpdatedAt = now
		if err := r.Invoices.Update(ctx, inv); err != nil {
			return fmt.Errorf("actualizar factura: %w", err)
		}
		if err := hydrateInvoice(ctx, r, inv); err != nil {
			return err
		}
		if target == entity.InvoiceStatusSent {
			if err := s.dispatchSend(ctx, InvoiceSnapshot(inv)); err != nil {
				return err
			}
		}
		s.log.Info().Str("invoice_id", inv.ID).Str("from", string(prev)).Str("to", string(target)).Msg("estado de factura actualizado")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *DocumentService) dispatchSend(ctx context.Context, snap *dto.DocumentSnapshot) error {
	if s.dispatch == nil {
		return nil
	}
	if err := s.dispatch.DispatchSend(ctx, snap); err != nil {
		return fmt.Errorf("encolar envío de %s: %w", snap.Number, err)
	}
	return nil
}

// MarkOverdue pasa a overdue las facturas pendientes con vencimiento anterior a asOf.
func (s *DocumentService) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	var updated int
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		updated = 0
		ids, err := r.Invoices.ListOverdueCandidates(ctx, asOf)
		if err != nil {
			return fmt.Errorf("listar vencidas: %w", err)
		}
		now := s.clock.Now()
		for _, id := range ids {
			inv, err := r.Invoices.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if inv == nil || !inv.DueDate.Before(asOf) {
				continue
			}
			if !billing.InvoiceLifecycle.CanTransitionTo(inv.Status, entity.InvoiceStatusOverdue) {
				continue
			}
			inv.Status = entity.InvoiceStatusOverdue
			inv.UpdatedAt = now
			if err := r.Invoices.Update(ctx, inv); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("updated", updated).Time("as_of", asOf).Msg("facturas vencidas marcadas")
	return updated, nil
}

// ── Cotizaciones ─────────────────────────────────────────────────────────────

// CreateQuote crea una cotización en borrador.
func (s *DocumentService) CreateQuote(ctx context.Context, ownerID string, req dto.CreateQuoteRequest) (*entity.Quote, error) {
	f, err := s.parseDocumentRequest(ownerID, req.DocumentRequest)
	if err != nil {
		return nil, err
	}
	validUntil, hasValid, err := dto.ParseDate(req.ValidUntil)
	if err != nil {
		return nil, domain.NewValidationError("valid_until", "fecha inválida")
	}

	var q *entity.Quote
	err = s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		id := uuid.New().String()
		doc, err := s.buildDocument(ctx, r, entity.DocumentTypeQuote, id, f)
		if err != nil {
			return err
		}
		vu, err := s.quoteValidity(doc.IssueDate, validUntil, hasValid)
		if err != nil {
			return err
		}
		doc.Number, err = s.seq.NextInTx(ctx, r.Sequences, entity.DocumentTypeQuote.Table(), s.settings.QuotePrefix)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		doc.CreatedAt = now
		doc.UpdatedAt = now
		q = &entity.Quote{Document: doc, Status: entity.QuoteStatusDraft, ValidUntil: vu}
		if err := r.Quotes.Create(ctx, q); err != nil {
			return fmt.Errorf("crear cotización: %w", err)
		}
		if err := r.LineItems.Replace(ctx, entity.DocumentTypeQuote, q.ID, q.LineItems); err != nil {
			return fmt.Errorf("guardar líneas: %w", err)
		}
		s.log.Info().Str("quote_id", q.ID).Str("number", q.Number).Msg("cotización creada")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *DocumentService) quoteValidity(issue, validUntil time.Time, has bool) (time.Time, error) {
	if !has {
		return issue.AddDate(0, 0, s.settings.QuoteValidityDays), nil
	}
	if validUntil.Before(issue) {
		return time.Time{}, domain.NewValidationError("valid_until", "no puede ser anterior a la fecha de emisión")
	}
	return validUntil, nil
}

func loadQuote(ctx context.Context, r Repos, ownerID, id string, forUpdate bool) (*entity.Quote, error) {
	get := r.Quotes.GetByID
	if forUpdate {
		get = r.Quotes.GetForUpdate
	}
	q, err := get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("leer cotización: %w", err)
	}
	if q == nil {
		return nil, domain.ErrNotFound
	}
	if err := checkOwner(ownerID, q.OwnerID); err != nil {
		return nil, err
	}
	q.LineItems, err = r.LineItems.ListByDocument(ctx, entity.DocumentTypeQuote, q.ID)
	if err != nil {
		return nil, fmt.Errorf("leer líneas: %w", err)
	}
	return q, nil
}

// GetQuote devuelve la cotización con sus líneas.
func (s *DocumentService) GetQuote(ctx context.Context, ownerID, id string) (*entity.Quote, error) {
	var q *entity.Quote
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		q, err = loadQuote(ctx, r, ownerID, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// UpdateQuote reemplaza un borrador de cotización.
func (s *DocumentService) UpdateQuote(ctx context.Context, ownerID, id string, req dto.CreateQuoteRequest) (*entity.Quote, error) {
	f, err := s.parseDocumentRequest(ownerID, req.DocumentRequest)
	if err != nil {
		return nil, err
	}
	validUntil, hasValid, err := dto.ParseDate(req.ValidUntil)
	if err != nil {
		return nil, domain.NewValidationError("valid_until", "fecha inválida")
	}

	var q *entity.Quote
	err = s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		q, err = loadQuote(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		if q.Status != entity.QuoteStatusDraft {
			return domain.ErrDocumentLocked
		}
		f.ownerID = q.OwnerID
		doc, err := s.replaceDocument(ctx, r, entity.DocumentTypeQuote, q.Document, f)
		if err != nil {
			return err
		}
		if q.ValidUntil, err = s.quoteValidity(doc.IssueDate, validUntil, hasValid); err != nil {
			return err
		}
		q.Document = doc
		if err := r.Quotes.Update(ctx, q); err != nil {
			return fmt.Errorf("actualizar cotización: %w", err)
		}
		return r.LineItems.Replace(ctx, entity.DocumentTypeQuote, q.ID, q.LineItems)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// DeleteQuote borra un borrador de cotización.
func (s *DocumentService) DeleteQuote(ctx context.Context, ownerID, id string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		q, err := loadQuote(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		if q.Status != entity.QuoteStatusDraft {
			return domain.ErrDocumentLocked
		}
		if err := r.LineItems.DeleteByDocument(ctx, entity.DocumentTypeQuote, id); err != nil {
			return err
		}
		return r.Quotes.Delete(ctx, id)
	})
}

// SendQuote draft -> sent.
func (s *DocumentService) SendQuote(ctx context.Context, ownerID, id string) (*entity.Quote, error) {
	return s.TransitionQuote(ctx, ownerID, id, entity.QuoteStatusSent)
}

// AcceptQuote sent -> accepted.
func (s *DocumentService) AcceptQuote(ctx context.Context, ownerID, id string) (*entity.Quote, error) {
	return s.TransitionQuote(ctx, ownerID, id, entity.QuoteStatusAccepted)
}

// RejectQuote sent -> rejected.
func (s *DocumentService) RejectQuote(ctx context.Context, ownerID, id string) (*entity.Quote, error) {
	return s.TransitionQuote(ctx, ownerID, id, entity.QuoteStatusRejected)
}

// TransitionQuote valida y aplica la transición con sus marcas de tiempo.
func (s *DocumentService) TransitionQuote(ctx context.Context, ownerID, id string, target entity.QuoteStatus) (*entity.Quote, error) {
	var q *entity.Quote
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		q, err = loadQuote(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		prev := q.Status
		if q.Status, err = billing.QuoteLifecycle.Transition(q.Status, target); err != nil {
			return err
		}
		now := s.clock.Now()
		switch target {
		case entity.QuoteStatusSent:
			q.SentAt = &now
		case entity.QuoteStatusAccepted:
			q.AcceptedAt = &now
		case entity.QuoteStatusRejected:
			q.RejectedAt = &now
		}
		q.UpdatedAt = now
		if err := r.Quotes.Update(ctx, q); err != nil {
			return fmt.Errorf("actualizar cotización: %w", err)
		}
		if target == entity.QuoteStatusSent {
			if err := s.dispatchSend(ctx, QuoteSnapshot(q)); err != nil {
				return err
			}
		}
		s.log.Info().Str("quote_id", q.ID).Str("from", string(prev)).Str("to", string(target)).Msg("estado de cotización actualizado")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ConvertQuote crea una factura en borrador a partir de una cotización aceptada. Una
// cotización se convierte una sola vez.
func (s *DocumentService) ConvertQuote(ctx context.Context, ownerID, id string) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		q, err := loadQuote(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		if q.ConvertedInvoiceID != nil {
			return domain.ErrQuoteAlreadyConverted
		}
		if q.Status != entity.QuoteStatusAccepted {
			return &domain.InvalidTransitionError{Document: "quote", Current: string(q.Status), Target: "converted"}
		}
		quoteID := q.ID
		inv, err = s.createInvoiceInTx(ctx, r, invoiceDraft{
			draftFields: draftFields{
				ownerID:   q.OwnerID,
				clientID:  q.ClientID,
				currency:  q.Currency,
				notes:     q.Notes,
				issueDate: startOfDay(s.clock.Now()),
				discount:  billing.Discount{Type: q.DiscountType, Value: q.DiscountValue},
				lines:     cloneLines(q.LineItems),
			},
			quoteID: &quoteID,
		})
		if err != nil {
			return err
		}
		q.ConvertedInvoiceID = &inv.ID
		q.UpdatedAt = s.clock.Now()
		if err := r.Quotes.Update(ctx, q); err != nil {
			return fmt.Errorf("actualizar cotización: %w", err)
		}
		s.log.Info().Str("quote_id", q.ID).Str("invoice_id", inv.ID).Msg("cotización convertida en factura")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ExpireQuotes pasa a expired las cotizaciones enviadas con valid_until anterior a asOf.
func (s *DocumentService) ExpireQuotes(ctx context.Context, asOf time.Time) (int, error) {
	var updated int
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		updated = 0
		ids, err := r.Quotes.ListExpirable(ctx, asOf)
		if err != nil {
			return fmt.Errorf("listar cotizaciones vencidas: %w", err)
		}
		now := s.clock.Now()
		for _, id := range ids {
			q, err := r.Quotes.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if q == nil || !q.ValidUntil.Before(asOf) {
				continue
			}
			if q.Status, err = billing.QuoteLifecycle.Transition(q.Status, entity.QuoteStatusExpired); err != nil {
				continue
			}
			q.UpdatedAt = now
			if err := r.Quotes.Update(ctx, q); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("updated", updated).Time("as_of", asOf).Msg("cotizaciones expiradas")
	return updated, nil
}

// ── Notas de crédito ─────────────────────────────────────────────────────────

// CreateCreditNote crea una nota de crédito en borrador contra una factura emitida.
func (s *DocumentService) CreateCreditNote(ctx context.Context, ownerID string, req dto.CreateCreditNoteRequest) (*entity.CreditNote, error) {
	f, err := s.parseDocumentRequest(ownerID, req.DocumentRequest)
	if err != nil {
		return nil, err
	}
	explicitCurrency := req.Currency != ""

	var cn *entity.CreditNote
	err = s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		inv, err := s.creditableInvoice(ctx, r, ownerID, req.InvoiceID)
		if err != nil {
			return err
		}
		if !explicitCurrency {
			f.currency = inv.Currency
		}
		id := uuid.New().String()
		doc, err := s.buildDocument(ctx, r, entity.DocumentTypeCreditNote, id, f)
		if err != nil {
			return err
		}
		if err := checkCreditAgainst(inv, doc); err != nil {
			return err
		}
		doc.Number, err = s.seq.NextInTx(ctx, r.Sequences, entity.DocumentTypeCreditNote.Table(), s.settings.CreditNotePrefix)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		doc.CreatedAt = now
		doc.UpdatedAt = now
		cn = &entity.CreditNote{Document: doc, Status: entity.CreditNoteStatusDraft, InvoiceID: inv.ID, Reason: req.Reason}
		if err := r.CreditNotes.Create(ctx, cn); err != nil {
			return fmt.Errorf("crear nota de crédito: %w", err)
		}
		if err := r.LineItems.Replace(ctx, entity.DocumentTypeCreditNote, cn.ID, cn.LineItems); err != nil {
			return fmt.Errorf("guardar líneas: %w", err)
		}
		s.log.Info().Str("credit_note_id", cn.ID).Str("number", cn.Number).Str("invoice_id", inv.ID).Msg("nota de crédito creada")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}

func (s *DocumentService) creditableInvoice(ctx context.Context, r Repos, ownerID, invoiceID string) (*entity.Invoice, error) {
	if invoiceID == "" {
		return nil, domain.NewValidationError("invoice_id", "es obligatoria")
	}
	inv, err := loadInvoice(ctx, r, ownerID, invoiceID, true)
	if err != nil {
		return nil, err
	}
	if !inv.Status.CanReceivePayment() {
		return nil, domain.NewValidationError("invoice_id", fmt.Sprintf("la factura en estado %s no admite notas de crédito", inv.Status))
	}
	return inv, nil
}

func checkCreditAgainst(inv *entity.Invoice, doc entity.Document) error {
	if doc.Currency != inv.Currency {
		return domain.NewValidationError("currency", "debe coincidir con la moneda de la factura")
	}
	if doc.Total.GreaterThan(inv.BalanceDue) {
		return domain.ErrCreditNoteExceedsBalance
	}
	return nil
}

func loadCreditNote(ctx context.Context, r Repos, ownerID, id string, forUpdate bool) (*entity.CreditNote, error) {
	get := r.CreditNotes.GetByID
	if forUpdate {
		get = r.CreditNotes.GetForUpdate
	}
	cn, err := get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("leer nota de crédito: %w", err)
	}
	if cn == nil {
		return nil, domain.ErrNotFound
	}
	if err := checkOwner(ownerID, cn.OwnerID); err != nil {
		return nil, err
	}
	cn.LineItems, err = r.LineItems.ListByDocument(ctx, entity.DocumentTypeCreditNote, cn.ID)
	if err != nil {
		return nil, fmt.Errorf("leer líneas: %w", err)
	}
	return cn, nil
}

// GetCreditNote devuelve la nota de crédito con sus líneas.
func (s *DocumentService) GetCreditNote(ctx context.Context, ownerID, id string) (*entity.CreditNote, error) {
	var cn *entity.CreditNote
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		cn, err = loadCreditNote(ctx, r, ownerID, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}

// UpdateCreditNote reemplaza un borrador; vuelve a validar contra el saldo de la factura.
func (s *DocumentService) UpdateCreditNote(ctx context.Context, ownerID, id string, req dto.CreateCreditNoteRequest) (*entity.CreditNote, error) {
	f, err := s.parseDocumentRequest(ownerID, req.DocumentRequest)
	if err != nil {
		return nil, err
	}
	explicitCurrency := req.Currency != ""

	var cn *entity.CreditNote
	err = s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		cn, err = loadCreditNote(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		if cn.Status != entity.CreditNoteStatusDraft {
			return domain.ErrDocumentLocked
		}
		invoiceID := cn.InvoiceID
		if req.InvoiceID != "" {
			invoiceID = req.InvoiceID
		}
		inv, err := s.creditableInvoice(ctx, r, ownerID, invoiceID)
		if err != nil {
			return err
		}
		if !explicitCurrency {
			f.currency = inv.Currency
		}
		f.ownerID = cn.OwnerID
		doc, err := s.replaceDocument(ctx, r, entity.DocumentTypeCreditNote, cn.Document, f)
		if err != nil {
			return err
		}
		if err := checkCreditAgainst(inv, doc); err != nil {
			return err
		}
		cn.Document = doc
		cn.InvoiceID = inv.ID
		cn.Reason = req.Reason
		if err := r.CreditNotes.Update(ctx, cn); err != nil {
			return fmt.Errorf("actualizar nota de crédito: %w", err)
		}
		return r.LineItems.Replace(ctx, entity.DocumentTypeCreditNote, cn.ID, cn.LineItems)
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}

// DeleteCreditNote borra un borrador de nota de crédito.
func (s *DocumentService) DeleteCreditNote(ctx context.Context, ownerID, id string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		cn, err := loadCreditNote(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		if cn.Status != entity.CreditNoteStatusDraft {
			return domain.ErrDocumentLocked
		}
		if err := r.LineItems.DeleteByDocument(ctx, entity.DocumentTypeCreditNote, id); err != nil {
			return err
		}
		return r.CreditNotes.Delete(ctx, id)
	})
}

// SendCreditNote draft -> sent. La aplicación la hace PaymentLedger.ApplyCreditNote.
func (s *DocumentService) SendCreditNote(ctx context.Context, ownerID, id string) (*entity.CreditNote, error) {
	var cn *entity.CreditNote
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		cn, err = loadCreditNote(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		if cn.Status, err = billing.CreditNoteLifecycle.Transition(cn.Status, entity.CreditNoteStatusSent); err != nil {
			return err
		}
		now := s.clock.Now()
		cn.SentAt = &now
		cn.UpdatedAt = now
		if err := r.CreditNotes.Update(ctx, cn); err != nil {
			return fmt.Errorf("actualizar nota de crédito: %w", err)
		}
		if err := s.dispatchSend(ctx, CreditNoteSnapshot(cn)); err != nil {
			return err
		}
		s.log.Info().Str("credit_note_id", cn.ID).Msg("nota de crédito enviada")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}
