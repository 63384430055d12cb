package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// QuoteHandler maneja las peticiones HTTP de cotizaciones (protegido).
type QuoteHandler struct {
	docs  *billing.DocumentService
	pdf   billing.SnapshotRenderer
	clock billing.Clock
}

// NewQuoteHandler construye el handler.
func NewQuoteHandler(docs *billing.DocumentService, pdf billing.SnapshotRenderer, clock billing.Clock) *QuoteHandler {
	return &QuoteHandler{docs: docs, pdf: pdf, clock: clock}
}

func (h *QuoteHandler) respond(c *fiber.Ctx, status int, fn func(ownerID string) (*entity.Quote, error)) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	q, err := fn(ownerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(status).JSON(billing.QuoteSnapshot(q))
}

// Create POST /api/quotes
func (h *QuoteHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateQuoteRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	return h.respond(c, fiber.StatusCreated, func(ownerID string) (*entity.Quote, error) {
		return h.docs.CreateQuote(c.UserContext(), ownerID, in)
	})
}

// GetByID GET /api/quotes/:id
func (h *QuoteHandler) GetByID(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.Quote, error) {
		return h.docs.GetQuote(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Update PUT /api/quotes/:id
func (h *QuoteHandler) Update(c *fiber.Ctx) error {
	var in dto.CreateQuoteRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.Quote, error) {
		return h.docs.UpdateQuote(c.UserContext(), ownerID, c.Params("id"), in)
	})
}

// Delete DELETE /api/quotes/:id
func (h *QuoteHandler) Delete(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	if err := h.docs.DeleteQuote(c.UserContext(), ownerID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Send POST /api/quotes/:id/send
func (h *QuoteHandler) Send(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.Quote, error) {
		return h.docs.SendQuote(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Accept POST /api/quotes/:id/accept
func (h *QuoteHandler) Accept(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.Quote, error) {
		return h.docs.AcceptQuote(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Reject POST /api/quotes/:id/reject
func (h *QuoteHandler) Reject(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.Quote, error) {
		return h.docs.RejectQuote(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Convert crea la factura borrador de una cotización aceptada.
// POST /api/quotes/:id/convert
func (h *QuoteHandler) Convert(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	inv, err := h.docs.ConvertQuote(c.UserContext(), ownerID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(billing.InvoiceSnapshot(inv))
}

// PDF GET /api/quotes/:id/pdf
func (h *QuoteHandler) PDF(c *fiber.Ctx) error {
	return renderSnapshot(c, h.docs, entity.DocumentTypeQuote, h.pdf, "pdf")
}

// Expire barre las cotizaciones enviadas cuya validez terminó.
// POST /api/quotes/expire
func (h *QuoteHandler) Expire(c *fiber.Ctx) error {
	asOf, ok, err := asOfFromBody(c, h.clock)
	if !ok {
		return err
	}
	n, err := h.docs.ExpireQuotes(c.UserContext(), asOf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.CountResponse{Updated: n})
}
