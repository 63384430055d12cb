package billing_test

import (
	"testing"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestNextDueDate(t *testing.T) {
	dom31 := 31
	dom15 := 15
	cases := []struct {
		name    string
		freq    entity.Frequency
		dom     *int
		start   time.Time
		current time.Time
		want    time.Time
	}{
		{"mensual anclado al 31 en febrero", entity.FrequencyMonthly, &dom31, date(2025, 1, 31), date(2025, 1, 31), date(2025, 2, 28)},
		{"mensual recupera el 31 en marzo", entity.FrequencyMonthly, &dom31, date(2025, 1, 31), date(2025, 2, 28), date(2025, 3, 31)},
		{"mensual año bisiesto", entity.FrequencyMonthly, &dom31, date(2024, 1, 31), date(2024, 1, 31), date(2024, 2, 29)},
		{"mensual a abril", entity.FrequencyMonthly, &dom31, date(2025, 3, 31), date(2025, 3, 31), date(2025, 4, 30)},
		{"ancla por fecha de inicio", entity.FrequencyMonthly, nil, date(2025, 1, 30), date(2025, 2, 28), date(2025, 3, 30)},
		{"trimestral cruza de año", entity.FrequencyQuarterly, &dom15, date(2025, 11, 15), date(2025, 11, 15), date(2026, 2, 15)},
		{"semestral", entity.FrequencySemiannual, &dom31, date(2025, 8, 31), date(2025, 8, 31), date(2026, 2, 28)},
		{"anual 29 de febrero", entity.FrequencyAnnual, nil, date(2024, 2, 29), date(2024, 2, 29), date(2025, 2, 28)},
		{"semanal", entity.FrequencyWeekly, nil, date(2025, 12, 29), date(2025, 12, 29), date(2026, 1, 5)},
		{"quincenal", entity.FrequencyBiweekly, nil, date(2025, 2, 20), date(2025, 2, 20), date(2025, 3, 6)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &entity.RecurringProfile{Frequency: tc.freq, DayOfMonth: tc.dom, StartDate: tc.start, NextDueDate: tc.current}
			assert.Equal(t, tc.want, billing.NextDueDate(p))
		})
	}
}

func TestShouldComplete(t *testing.T) {
	maxOcc := 3
	end := date(2025, 6, 30)

	p := &entity.RecurringProfile{MaxOccurrences: &maxOcc, OccurrencesGenerated: 2, NextDueDate: date(2025, 3, 1)}
	assert.False(t, billing.ShouldComplete(p))
	p.OccurrencesGenerated = 3
	assert.True(t, billing.ShouldComplete(p))

	p = &entity.RecurringProfile{EndDate: &end, NextDueDate: date(2025, 6, 30)}
	assert.False(t, billing.ShouldComplete(p), "end_date es inclusiva")
	p.NextDueDate = date(2025, 7, 1)
	assert.True(t, billing.ShouldComplete(p))
}

func TestIsDue(t *testing.T) {
	p := &entity.RecurringProfile{Status: entity.ProfileStatusActive, NextDueDate: date(2025, 3, 1)}
	assert.True(t, billing.IsDue(p, date(2025, 3, 1)))
	assert.False(t, billing.IsDue(p, date(2025, 2, 28)))
	p.Status = entity.ProfileStatusPaused
	assert.False(t, billing.IsDue(p, date(2025, 3, 1)))
}

func TestFirstDueDate(t *testing.T) {
	dom31 := 31
	dom10 := 10
	assert.Equal(t, date(2025, 1, 31), billing.FirstDueDate(entity.FrequencyMonthly, date(2025, 1, 5), &dom31))
	assert.Equal(t, date(2025, 2, 10), billing.FirstDueDate(entity.FrequencyQuarterly, date(2025, 1, 15), &dom10))
	assert.Equal(t, date(2025, 1, 15), billing.FirstDueDate(entity.FrequencyMonthly, date(2025, 1, 15), nil))
	assert.Equal(t, date(2025, 1, 15), billing.FirstDueDate(entity.FrequencyWeekly, date(2025, 1, 15), &dom10))
}
