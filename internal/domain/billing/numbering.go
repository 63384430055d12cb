package billing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FormatNumber arma el número de documento, ej. FAC-2025-0001.
func FormatNumber(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, n)
}

// NumberRegexp expresión anclada de los números de un alcance; el grupo captura el
// consecutivo. El prefijo va escapado y el sufijo se limita a 18 dígitos para caber en bigint.
// La sintaxis es válida tanto en RE2 como en el operador ~ de PostgreSQL.
func NumberRegexp(prefix string, year int) string {
	return fmt.Sprintf(`^%s-%d-([0-9]{1,18})$`, regexp.QuoteMeta(prefix), year)
}

// ParseSuffix extrae el consecutivo de number si pertenece a (prefix, year).
func ParseSuffix(number, prefix string, year int) (int64, bool) {
	head := fmt.Sprintf("%s-%d-", prefix, year)
	if !strings.HasPrefix(number, head) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(number, head), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
