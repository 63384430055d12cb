package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// ── Facturas ─────────────────────────────────────────────────────────────────

type invoiceRepo struct{ d *data }

func (r *invoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	if _, ok := r.d.invoices[inv.ID]; ok {
		return domain.ErrConflict
	}
	if numberTaken(r.d, entity.DocumentTypeInvoice, inv.Number, inv.ID) {
		return domain.ErrConflict
	}
	r.d.invoices[inv.ID] = storedInvoice(inv)
	return nil
}

func storedInvoice(inv *entity.Invoice) entity.Invoice {
	c := *inv
	c.Document = detach(inv.Document)
	c.Payments = nil
	return c
}

func (r *invoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	inv, ok := r.d.invoices[id]
	if !ok {
		return nil, nil
	}
	inv.Document = detach(inv.Document)
	return &inv, nil
}

func (r *invoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *invoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	if _, ok := r.d.invoices[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	r.d.invoices[inv.ID] = storedInvoice(inv)
	return nil
}

func (r *invoiceRepo) Delete(_ context.Context, id string) error {
	delete(r.d.invoices, id)
	return nil
}

func (r *invoiceRepo) ListOverdueCandidates(_ context.Context, asOf time.Time) ([]string, error) {
	var ids []string
	for id, inv := range r.d.invoices {
		switch inv.Status {
		case entity.InvoiceStatusSent, entity.InvoiceStatusViewed, entity.InvoiceStatusPartiallyPaid:
			if inv.DueDate.Before(asOf) {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Cotizaciones ─────────────────────────────────────────────────────────────

type quoteRepo struct{ d *data }

func (r *quoteRepo) Create(_ context.Context, q *entity.Quote) error {
	if _, ok := r.d.quotes[q.ID]; ok {
		return domain.ErrConflict
	}
	if numberTaken(r.d, entity.DocumentTypeQuote, q.Number, q.ID) {
		return domain.ErrConflict
	}
	c := *q
	c.Document = detach(q.Document)
	r.d.quotes[q.ID] = c
	return nil
}

func (r *quoteRepo) GetByID(_ context.Context, id string) (*entity.Quote, error) {
	q, ok := r.d.quotes[id]
	if !ok {
		return nil, nil
	}
	q.Document = detach(q.Document)
	return &q, nil
}

func (r *quoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.Quote, error) {
	return r.GetByID(ctx, id)
}

func (r *quoteRepo) Update(_ context.Context, q *entity.Quote) error {
	if _, ok := r.d.quotes[q.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *q
	c.Document = detach(q.Document)
	r.d.quotes[q.ID] = c
	return nil
}

func (r *quoteRepo) Delete(_ context.Context, id string) error {
	delete(r.d.quotes, id)
	return nil
}

func (r *quoteRepo) ListExpirable(_ context.Context, asOf time.Time) ([]string, error) {
	var ids []string
	for id, q := range r.d.quotes {
		if q.Status == entity.QuoteStatusSent && q.ValidUntil.Before(asOf) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Notas de crédito ─────────────────────────────────────────────────────────

type creditNoteRepo struct{ d *data }

func (r *creditNoteRepo) Create(_ context.Context, cn *entity.CreditNote) error {
	if _, ok := r.d.creditNotes[cn.ID]; ok {
		return domain.ErrConflict
	}
	if numberTaken(r.d, entity.DocumentTypeCreditNote, cn.Number, cn.ID) {
		return domain.ErrConflict
	}
	c := *cn
	c.Document = detach(cn.Document)
	r.d.creditNotes[cn.ID] = c
	return nil
}

func (r *creditNoteRepo) GetByID(_ context.Context, id string) (*entity.CreditNote, error) {
	cn, ok := r.d.creditNotes[id]
	if !ok {
		return nil, nil
	}
	cn.Document = detach(cn.Document)
	return &cn, nil
}

func (r *creditNoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.CreditNote, error) {
	return r.GetByID(ctx, id)
}

func (r *creditNoteRepo) Update(_ context.Context, cn *entity.CreditNote) error {
	if _, ok := r.d.creditNotes[cn.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *cn
	c.Document = detach(cn.Document)
	r.d.creditNotes[cn.ID] = c
	return nil
}

func (r *creditNoteRepo) Delete(_ context.Context, id string) error {
	delete(r.d.creditNotes, id)
	return nil
}

// numberTaken emula el índice único de número por tabla.
func numberTaken(d *data, docType entity.DocumentType, number, id string) bool {
	if number == "" {
		return false
	}
	for _, n := range documentNumbers(d, docType.Table(), id) {
		if n == number {
			return true
		}
	}
	return false
}

func documentNumbers(d *data, table, exceptID string) []string {
	var out []string
	switch table {
	case "invoices":
		for id, inv := range d.invoices {
			if id != exceptID {
				out = append(out, inv.Number)
			}
		}
	case "quotes":
		for id, q := range d.quotes {
			if id != exceptID {
				out = append(out, q.Number)
			}
		}
	case "credit_notes":
		for id, cn := range d.creditNotes {
			if id != exceptID {
				out = append(out, cn.Number)
			}
		}
	}
	return out
}

// ── Líneas ───────────────────────────────────────────────────────────────────

type lineItemRepo struct{ d *data }

func lineKey(docType entity.DocumentType, docID string) string {
	return string(docType) + ":" + docID
}

func (r *lineItemRepo) Replace(_ context.Context, docType entity.DocumentType, docID string, items []entity.LineItem) error {
	stored := make([]entity.LineItem, len(items))
	for i, li := range items {
		li.DocumentType = docType
		li.DocumentID = docID
		stored[i] = li
	}
	r.d.lines[lineKey(docType, docID)] = stored
	return nil
}

func (r *lineItemRepo) ListByDocument(_ context.Context, docType entity.DocumentType, docID string) ([]entity.LineItem, error) {
	items := slices.Clone(r.d.lines[lineKey(docType, docID)])
	sort.SliceStable(items, func(i, j int) bool { return items[i].SortOrder < items[j].SortOrder })
	return items, nil
}

func (r *lineItemRepo) DeleteByDocument(_ context.Context, docType entity.DocumentType, docID string) error {
	delete(r.d.lines, lineKey(docType, docID))
	return nil
}

// ── Pagos ────────────────────────────────────────────────────────────────────

type paymentRepo struct{ d *data }

func (r *paymentRepo) Create(_ context.Context, p *entity.Payment) error {
	if p.ExternalReference != nil {
		for _, existing := range r.d.payments[p.InvoiceID] {
			if existing.ExternalReference != nil && *existing.ExternalReference == *p.ExternalReference {
				return domain.ErrDuplicateExternalReference
			}
		}
	}
	r.d.payments[p.InvoiceID] = append(r.d.payments[p.InvoiceID], *p)
	return nil
}

func (r *paymentRepo) ListByInvoice(_ context.Context, invoiceID string) ([]entity.Payment, error) {
	return slices.Clone(r.d.payments[invoiceID]), nil
}

func (r *paymentRepo) GetByReference(_ context.Context, invoiceID, externalRef string) (*entity.Payment, error) {
	for _, p := range r.d.payments[invoiceID] {
		if p.ExternalReference != nil && *p.ExternalReference == externalRef {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

// ── Payment intents ──────────────────────────────────────────────────────────

type intentRepo struct{ d *data }

func (r *intentRepo) Create(_ context.Context, pi *entity.PaymentIntent) error {
	if _, ok := r.d.intents[pi.ID]; ok {
		return domain.ErrConflict
	}
	r.d.intents[pi.ID] = *pi
	return nil
}

func (r *intentRepo) GetForUpdate(_ context.Context, id string) (*entity.PaymentIntent, error) {
	pi, ok := r.d.intents[id]
	if !ok {
		return nil, nil
	}
	return &pi, nil
}

func (r *intentRepo) Update(_ context.Context, pi *entity.PaymentIntent) error {
	if _, ok := r.d.intents[pi.ID]; !ok {
		return domain.ErrNotFound
	}
	r.d.intents[pi.ID] = *pi
	return nil
}

func (r *intentRepo) ListByStatus(_ context.Context, status entity.PaymentIntentStatus) ([]entity.PaymentIntent, error) {
	var out []entity.PaymentIntent
	for _, pi := range r.d.intents {
		if pi.Status == status {
			out = append(out, pi)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ── Tasas ────────────────────────────────────────────────────────────────────

type rateRepo struct{ d *data }

func (r *rateRepo) Create(_ context.Context, rate *entity.ExchangeRate) error {
	r.d.rates = append(r.d.rates, *rate)
	return nil
}

func (r *rateRepo) FindLatest(_ context.Context, base, target string, asOf time.Time) (*entity.ExchangeRate, error) {
	var best *entity.ExchangeRate
	for i := range r.d.rates {
		rate := r.d.rates[i]
		if rate.BaseCurrency != base || rate.TargetCurrency != target || rate.FetchedAt.After(asOf) {
			continue
		}
		if best == nil || !rate.FetchedAt.Before(best.FetchedAt) {
			found := rate
			best = &found
		}
	}
	return best, nil
}

// ── Numeración ───────────────────────────────────────────────────────────────

type sequenceRepo struct{ d *data }

func (r *sequenceRepo) LockCounter(_ context.Context, scope entity.SequenceScope) (*entity.SequenceCounter, error) {
	c, ok := r.d.counters[scope.Key()]
	if !ok {
		c = entity.SequenceCounter{Scope: scope}
		r.d.counters[scope.Key()] = c
	}
	return &c, nil
}

func (r *sequenceRepo) MaxExistingSuffix(_ context.Context, scope entity.SequenceScope) (int64, error) {
	switch scope.Table {
	case "invoices", "quotes", "credit_notes":
	default:
		return 0, fmt.Errorf("tabla de numeración no soportada: %q", scope.Table)
	}
	var maxN int64
	for _, number := range documentNumbers(r.d, scope.Table, "") {
		if n, ok := billing.ParseSuffix(number, scope.Prefix, scope.Year); ok && n > maxN {
			maxN = n
		}
	}
	return maxN, nil
}

func (r *sequenceRepo) SaveCounter(_ context.Context, c *entity.SequenceCounter) error {
	if prev, ok := r.d.counters[c.Scope.Key()]; ok && c.LastNumber < prev.LastNumber {
		return fmt.Errorf("el contador %s no puede retroceder", c.Scope.Key())
	}
	r.d.counters[c.Scope.Key()] = *c
	return nil
}

// ── Perfiles recurrentes ─────────────────────────────────────────────────────

type profileRepo struct{ d *data }

func (r *profileRepo) Create(_ context.Context, p *entity.RecurringProfile) error {
	if _, ok := r.d.profiles[p.ID]; ok {
		return domain.ErrConflict
	}
	c := *p
	c.LineItems = nil
	r.d.profiles[p.ID] = c
	return nil
}

func (r *profileRepo) GetByID(_ context.Context, id string) (*entity.RecurringProfile, error) {
	p, ok := r.d.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *profileRepo) GetForUpdate(ctx context.Context, id string) (*entity.RecurringProfile, error) {
	return r.GetByID(ctx, id)
}

func (r *profileRepo) Update(_ context.Context, p *entity.RecurringProfile) error {
	if _, ok := r.d.profiles[p.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *p
	c.LineItems = nil
	r.d.profiles[p.ID] = c
	return nil
}

func (r *profileRepo) ListDue(_ context.Context, asOf time.Time) ([]string, error) {
	var ids []string
	for id, p := range r.d.profiles {
		if billing.IsDue(&p, asOf) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
