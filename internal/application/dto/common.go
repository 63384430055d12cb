package dto

import "time"

// DateLayout formato de fechas en los cuerpos JSON.
const DateLayout = "2006-01-02"

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AsOfRequest fecha de corte opcional para barridos (vencimientos, recurrencias).
type AsOfRequest struct {
	AsOf string `json:"as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CountResponse número de documentos afectados por una operación masiva.
type CountResponse struct {
	Updated int `json:"updated"`
}

// ParseDate interpreta s como fecha (UTC). Cadena vacía devuelve (zero, false, nil).
func ParseDate(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
