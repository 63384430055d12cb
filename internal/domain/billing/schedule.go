package billing

import (
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

var monthsPerPeriod = map[entity.Frequency]int{
	entity.FrequencyMonthly:    1,
	entity.FrequencyQuarterly:  3,
	entity.FrequencySemiannual: 6,
	entity.FrequencyAnnual:     12,
}

// AnchorDay día del mes al que se ancla el perfil: day_of_month o, si no existe, el día
// de start_date.
func AnchorDay(p *entity.RecurringProfile) int {
	if p.DayOfMonth != nil && *p.DayOfMonth > 0 {
		return *p.DayOfMonth
	}
	return p.StartDate.Day()
}

// NextDueDate siguiente ocurrencia después de p.NextDueDate.
func NextDueDate(p *entity.RecurringProfile) time.Time {
	return AdvanceDate(p.Frequency, p.NextDueDate, AnchorDay(p))
}

// AdvanceDate suma un periodo a from. Los periodos mensuales suman meses sin desbordar y
// fijan el día en min(anchor, días del mes destino).
func AdvanceDate(freq entity.Frequency, from time.Time, anchor int) time.Time {
	switch freq {
	case entity.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case entity.FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	}
	months, ok := monthsPerPeriod[freq]
	if !ok {
		return from
	}
	idx := int(from.Month()) - 1 + months
	year := from.Year() + idx/12
	month := time.Month(idx%12 + 1)
	day := min(anchor, DaysIn(year, month))
	h, m, s := from.Clock()
	return time.Date(year, month, day, h, m, s, from.Nanosecond(), from.Location())
}

// DaysIn número de días del mes.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsDue indica si el perfil debe generar una factura en asOf.
func IsDue(p *entity.RecurringProfile, asOf time.Time) bool {
	return p.Status == entity.ProfileStatusActive && !p.NextDueDate.After(asOf)
}

// ShouldComplete indica si el perfil terminó tras avanzar: alcanzó max_occurrences o la
// próxima fecha supera end_date.
func ShouldComplete(p *entity.RecurringProfile) bool {
	if p.MaxOccurrences != nil && p.OccurrencesGenerated >= *p.MaxOccurrences {
		return true
	}
	return p.EndDate != nil && p.NextDueDate.After(*p.EndDate)
}

// FirstDueDate primera ocurrencia en o después de start, anclada a dayOfMonth en los perfiles
// mensuales o más largos. Sin ancla la primera ocurrencia es start.
func FirstDueDate(freq entity.Frequency, start time.Time, dayOfMonth *int) time.Time {
	if _, monthly := monthsPerPeriod[freq]; !monthly || dayOfMonth == nil {
		return start
	}
	day := min(*dayOfMonth, DaysIn(start.Year(), start.Month()))
	candidate := time.Date(start.Year(), start.Month(), day, 0, 0, 0, 0, start.Location())
	if candidate.Before(start) {
		return AdvanceDate(entity.FrequencyMonthly, candidate, *dayOfMonth)
	}
	return candidate
}
