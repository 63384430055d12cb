package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// CreditNoteHandler maneja las peticiones HTTP de notas de crédito (protegido).
type CreditNoteHandler struct {
	docs   *billing.DocumentService
	ledger *billing.PaymentLedger
	ubl    billing.SnapshotRenderer
}

// NewCreditNoteHandler construye el handler.
func NewCreditNoteHandler(docs *billing.DocumentService, ledger *billing.PaymentLedger, ubl billing.SnapshotRenderer) *CreditNoteHandler {
	return &CreditNoteHandler{docs: docs, ledger: ledger, ubl: ubl}
}

func (h *CreditNoteHandler) respond(c *fiber.Ctx, status int, fn func(ownerID string) (*entity.CreditNote, error)) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	cn, err := fn(ownerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(status).JSON(billing.CreditNoteSnapshot(cn))
}

// Create POST /api/credit-notes
func (h *CreditNoteHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCreditNoteRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	return h.respond(c, fiber.StatusCreated, func(ownerID string) (*entity.CreditNote, error) {
		return h.docs.CreateCreditNote(c.UserContext(), ownerID, in)
	})
}

// GetByID GET /api/credit-notes/:id
func (h *CreditNoteHandler) GetByID(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.CreditNote, error) {
		return h.docs.GetCreditNote(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Update PUT /api/credit-notes/:id
func (h *CreditNoteHandler) Update(c *fiber.Ctx) error {
	var in dto.CreateCreditNoteRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.CreditNote, error) {
		return h.docs.UpdateCreditNote(c.UserContext(), ownerID, c.Params("id"), in)
	})
}

// Delete DELETE /api/credit-notes/:id
func (h *CreditNoteHandler) Delete(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	if err := h.docs.DeleteCreditNote(c.UserContext(), ownerID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Send POST /api/credit-notes/:id/send
func (h *CreditNoteHandler) Send(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.CreditNote, error) {
		return h.docs.SendCreditNote(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Apply descuenta la nota del saldo de su factura.
// POST /api/credit-notes/:id/apply
func (h *CreditNoteHandler) Apply(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	cn, inv, err := h.ledger.ApplyCreditNote(c.UserContext(), ownerID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ApplyCreditNoteResponse{
		CreditNote: billing.CreditNoteSnapshot(cn),
		Invoice:    billing.InvoiceSnapshot(inv),
	})
}

// UBL GET /api/credit-notes/:id/ubl
func (h *CreditNoteHandler) UBL(c *fiber.Ctx) error {
	return renderSnapshot(c, h.docs, entity.DocumentTypeCreditNote, h.ubl, "xml")
}
