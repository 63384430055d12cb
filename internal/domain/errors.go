package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Facturación
	ErrPaymentExceedsBalance      = errors.New("el pago excede el saldo pendiente")
	ErrCreditNoteExceedsBalance   = errors.New("la nota de crédito excede el saldo pendiente de la factura")
	ErrDuplicateExternalReference = errors.New("referencia externa ya registrada para la factura")
	ErrDocumentLocked             = errors.New("el documento ya no está en borrador")
	ErrQuoteAlreadyConverted      = errors.New("la cotización ya fue convertida en factura")
	ErrRateUnavailable            = errors.New("tasa de cambio no disponible")
	ErrInvalidTransition          = errors.New("transición de estado no permitida")
)

// ValidationError describe una entrada malformada detectada antes de persistir.
// errors.Is(err, ErrInvalidInput) es verdadero.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError construye un ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validación: " + e.Reason
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// RateUnavailableError indica que no existe tasa directa ni inversa para el par.
type RateUnavailableError struct {
	From string
	To   string
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("tasa de cambio no disponible: %s -> %s", e.From, e.To)
}

func (e *RateUnavailableError) Is(target error) bool { return target == ErrRateUnavailable }

// InvalidTransitionError rechazo de la máquina de estados; no hay mutación.
type InvalidTransitionError struct {
	Document string
	Current  string
	Target   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transición inválida de %s: %s -> %s", e.Document, e.Current, e.Target)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
