package memory

import (
	"context"
	"maps"
	"sync"

	appbilling "github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var _ appbilling.TxRunner = (*Store)(nil)

// Store almacén en proceso de todos los repositorios de facturación. Cada transacción toma el
// único candado del store y trabaja sobre una copia que se publica solo en el commit; los
// bloqueos de fila quedan cubiertos por ese candado.
type Store struct {
	mu   sync.Mutex
	data *data
}

type data struct {
	invoices    map[string]entity.Invoice
	quotes      map[string]entity.Quote
	creditNotes map[string]entity.CreditNote
	lines       map[string][]entity.LineItem
	payments    map[string][]entity.Payment
	intents     map[string]entity.PaymentIntent
	rates       []entity.ExchangeRate
	counters    map[string]entity.SequenceCounter
	profiles    map[string]entity.RecurringProfile
}

// New crea un store vacío.
func New() *Store {
	return &Store{data: &data{
		invoices:    make(map[string]entity.Invoice),
		quotes:      make(map[string]entity.Quote),
		creditNotes: make(map[string]entity.CreditNote),
		lines:       make(map[string][]entity.LineItem),
		payments:    make(map[string][]entity.Payment),
		intents:     make(map[string]entity.PaymentIntent),
		counters:    make(map[string]entity.SequenceCounter),
		profiles:    make(map[string]entity.RecurringProfile),
	}}
}

// RunInTx implementa billing.TxRunner. Si fn falla no se publica ningún cambio.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, r appbilling.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(ctx, work.repos()); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (d *data) repos() appbilling.Repos {
	return appbilling.Repos{
		Invoices:       &invoiceRepo{d: d},
		Quotes:         &quoteRepo{d: d},
		CreditNotes:    &creditNoteRepo{d: d},
		LineItems:      &lineItemRepo{d: d},
		Payments:       &paymentRepo{d: d},
		PaymentIntents: &intentRepo{d: d},
		Rates:          &rateRepo{d: d},
		Sequences:      &sequenceRepo{d: d},
		Profiles:       &profileRepo{d: d},
	}
}

func (d *data) clone() *data {
	c := &data{
		invoices:    maps.Clone(d.invoices),
		quotes:      maps.Clone(d.quotes),
		creditNotes: maps.Clone(d.creditNotes),
		lines:       make(map[string][]entity.LineItem, len(d.lines)),
		payments:    make(map[string][]entity.Payment, len(d.payments)),
		intents:     maps.Clone(d.intents),
		rates:       append([]entity.ExchangeRate(nil), d.rates...),
		counters:    maps.Clone(d.counters),
		profiles:    maps.Clone(d.profiles),
	}
	for k, v := range d.lines {
		c.lines[k] = append([]entity.LineItem(nil), v...)
	}
	for k, v := range d.payments {
		c.payments[k] = append([]entity.Payment(nil), v...)
	}
	return c
}

// detach copia el documento sin compartir mapas ni slices con el llamador.
func detach(doc entity.Document) entity.Document {
	doc.VATBreakdown = maps.Clone(doc.VATBreakdown)
	if doc.VATBreakdown == nil {
		doc.VATBreakdown = map[string]decimal.Decimal{}
	}
	doc.LineItems = nil
	return doc
}
