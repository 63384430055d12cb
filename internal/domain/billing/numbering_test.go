package billing_test

import (
	"regexp"
	"testing"

	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "FAC-2025-0001", billing.FormatNumber("FAC", 2025, 1))
	assert.Equal(t, "DEV-2025-0420", billing.FormatNumber("DEV", 2025, 420))
	assert.Equal(t, "AV-2025-12345", billing.FormatNumber("AV", 2025, 12345))
}

func TestNumberRegexp(t *testing.T) {
	assert.Equal(t, `^FAC-2025-([0-9]{1,18})$`, billing.NumberRegexp("FAC", 2025))

	cases := []struct {
		prefix string
		number string
		suffix string
	}{
		{"FAC", "FAC-2025-0042", "0042"},
		{"FAC", "FAC-2025-0042-bis", ""},
		{"FAC", "XFAC-2025-0001", ""},
		{"F_C", "F_C-2025-0003", "0003"},
		{"F_C", "FXC-2025-0999", ""},
		{"F%", "F%-2025-7", "7"},
		{"F%", "FAC-2025-7", ""},
		{"A.B", "AxB-2025-1", ""},
		{"FAC", "FAC-2025-1234567890123456789", ""},
	}
	for _, tc := range cases {
		m := regexp.MustCompile(billing.NumberRegexp(tc.prefix, 2025)).FindStringSubmatch(tc.number)
		if tc.suffix == "" {
			assert.Nil(t, m, tc.number)
			continue
		}
		if assert.Len(t, m, 2, tc.number) {
			assert.Equal(t, tc.suffix, m[1])
		}
	}
}

func TestParseSuffix(t *testing.T) {
	cases := []struct {
		number string
		want   int64
		ok     bool
	}{
		{"FAC-2025-0007", 7, true},
		{"FAC-2025-10000", 10000, true},
		{"FAC-2024-0007", 0, false},
		{"FACT-2025-0007", 0, false},
		{"FAC-2025-00A7", 0, false},
		{"FAC-2025-", 0, false},
	}
	for _, tc := range cases {
		n, ok := billing.ParseSuffix(tc.number, "FAC", 2025)
		assert.Equal(t, tc.ok, ok, tc.number)
		assert.Equal(t, tc.want, n, tc.number)
	}
}
