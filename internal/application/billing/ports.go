package billing

import (
	"context"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Invoices       repository.InvoiceRepository
	Quotes         repository.QuoteRepository
	CreditNotes    repository.CreditNoteRepository
	LineItems      repository.LineItemRepository
	Payments       repository.PaymentRepository
	PaymentIntents repository.PaymentIntentRepository
	Rates          repository.ExchangeRateRepository
	Sequences      repository.SequenceRepository
	Profiles       repository.RecurringProfileRepository
}

// TxRunner ejecuta fn dentro de una transacción serializable. Si fn devuelve error se hace
// rollback y no queda nada escrito. Las implementaciones pueden reintentar fn completa ante
// conflictos de serialización, por lo que fn no debe tener efectos fuera de los repos.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// Clock fuente de tiempo inyectada (fechas de emisión, año de numeración, paid_at).
type Clock interface {
	Now() time.Time
}

// SystemClock reloj real en UTC.
type SystemClock struct{}

// Now implementa Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// SendDispatcher encola el envío de un documento al cliente (correo, portal).
// Se invoca dentro de la transacción que cambia el estado a sent.
type SendDispatcher interface {
	DispatchSend(ctx context.Context, snap *dto.DocumentSnapshot) error
}

// SnapshotRenderer convierte un snapshot en un formato de salida (PDF, UBL).
type SnapshotRenderer interface {
	Render(snap *dto.DocumentSnapshot) ([]byte, error)
	ContentType() string
}

// ProcessedEventStore registra ids de eventos del proveedor ya procesados.
type ProcessedEventStore interface {
	// MarkProcessed devuelve true si el evento se marcó por primera vez.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	Close() error
}

// Settings parámetros de facturación (ver pkg/config).
type Settings struct {
	BaseCurrency        string
	PaymentTermsDays    int
	QuoteValidityDays   int
	InvoicePrefix       string
	QuotePrefix         string
	CreditNotePrefix    string
	RecurringMaxCatchUp int
	EventTTL            time.Duration
}

// DefaultSettings valores por defecto.
func DefaultSettings() Settings {
	return Settings{
		BaseCurrency:        "EUR",
		PaymentTermsDays:    30,
		QuoteValidityDays:   30,
		InvoicePrefix:       "FAC",
		QuotePrefix:         "DEV",
		CreditNotePrefix:    "AV",
		RecurringMaxCatchUp: 12,
		EventTTL:            72 * time.Hour,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
