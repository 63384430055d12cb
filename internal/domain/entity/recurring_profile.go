package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency periodicidad de un perfil recurrente.
type Frequency string

const (
	FrequencyWeekly     Frequency = "weekly"
	FrequencyBiweekly   Frequency = "biweekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiannual Frequency = "semiannual"
	FrequencyAnnual     Frequency = "annual"
)

// IsValid indica si la frecuencia es soportada.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly,
		FrequencyQuarterly, FrequencySemiannual, FrequencyAnnual:
		return true
	}
	return false
}

// ProfileStatus estado de un perfil recurrente.
type ProfileStatus string

const (
	ProfileStatusActive    ProfileStatus = "active"
	ProfileStatusPaused    ProfileStatus = "paused"
	ProfileStatusCancelled ProfileStatus = "cancelled"
	ProfileStatusCompleted ProfileStatus = "completed"
)

// RecurringProfile perfil de facturación recurrente. Solo lo mutan el programador y las
// acciones explícitas de pausa/reanudación/cancelación; nunca se borra si generó facturas.
type RecurringProfile struct {
	ID                     string
	OwnerID                string
	ClientID               string
	Currency               string
	Frequency              Frequency
	StartDate              time.Time
	EndDate                *time.Time
	DayOfMonth             *int
	NextDueDate            time.Time
	OccurrencesGenerated   int
	MaxOccurrences         *int
	Status                 ProfileStatus
	PaymentTermsDays       int
	DiscountType           DiscountType
	DiscountValue          decimal.Decimal
	Notes                  string
	LineItems              []LineItem // plantillas
	LastGeneratedInvoiceID *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
