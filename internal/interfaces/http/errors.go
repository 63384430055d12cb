package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// errorStatus traduce errores de dominio a (status, code).
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrDocumentLocked):
		return fiber.StatusConflict, "DOCUMENT_LOCKED"
	case errors.Is(err, domain.ErrQuoteAlreadyConverted):
		return fiber.StatusConflict, "ALREADY_CONVERTED"
	case errors.Is(err, domain.ErrDuplicateExternalReference):
		return fiber.StatusConflict, "DUPLICATE_REFERENCE"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrPaymentExceedsBalance):
		return fiber.StatusUnprocessableEntity, "PAYMENT_EXCEEDS_BALANCE"
	case errors.Is(err, domain.ErrCreditNoteExceedsBalance):
		return fiber.StatusUnprocessableEntity, "CREDIT_EXCEEDS_BALANCE"
	case errors.Is(err, domain.ErrRateUnavailable):
		return fiber.StatusUnprocessableEntity, "RATE_UNAVAILABLE"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// writeError responde con dto.ErrorResponse. Los 500 no exponen el detalle interno.
func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
