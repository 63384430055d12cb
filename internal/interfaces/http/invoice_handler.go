package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// InvoiceHandler maneja las peticiones HTTP de facturas (protegido).
type InvoiceHandler struct {
	docs   *billing.DocumentService
	ledger *billing.PaymentLedger
	pdf    billing.SnapshotRenderer
	ubl    billing.SnapshotRenderer
	clock  billing.Clock
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(docs *billing.DocumentService, ledger *billing.PaymentLedger, pdf, ubl billing.SnapshotRenderer, clock billing.Clock) *InvoiceHandler {
	return &InvoiceHandler{docs: docs, ledger: ledger, pdf: pdf, ubl: ubl, clock: clock}
}

func requireOwner(c *fiber.Ctx) (string, bool) {
	ownerID := GetOwnerID(c)
	if ownerID == "" {
		_ = c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "owner_id requerido"})
		return "", false
	}
	return ownerID, true
}

// Create crea una factura en borrador con número asignado.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	var in dto.CreateInvoiceRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	inv, err := h.docs.CreateInvoice(c.UserContext(), ownerID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(billing.InvoiceSnapshot(inv))
}

// GetByID devuelve la factura con líneas, pagos y saldo.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	inv, err := h.docs.GetInvoice(c.UserContext(), ownerID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(billing.InvoiceSnapshot(inv))
}

// Update reemplaza un borrador.
// PUT /api/invoices/:id
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	var in dto.CreateInvoiceRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	inv, err := h.docs.UpdateInvoice(c.UserContext(), ownerID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(billing.InvoiceSnapshot(inv))
}

// Delete elimina un borrador.
// DELETE /api/invoices/:id
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	if err := h.docs.DeleteInvoice(c.UserContext(), ownerID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Send POST /api/invoices/:id/send
func (h *InvoiceHandler) Send(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	return h.respond(c, func() (*entity.Invoice, error) {
		return h.docs.SendInvoice(c.UserContext(), ownerID, c.Params("id"))
	})
}

// View POST /api/invoices/:id/view
func (h *InvoiceHandler) View(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	return h.respond(c, func() (*entity.Invoice, error) {
		return h.docs.MarkInvoiceViewed(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Cancel POST /api/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	return h.respond(c, func() (*entity.Invoice, error) {
		return h.docs.CancelInvoice(c.UserContext(), ownerID, c.Params("id"))
	})
}

func (h *InvoiceHandler) respond(c *fiber.Ctx, fn func() (*entity.Invoice, error)) error {
	inv, err := fn()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(billing.InvoiceSnapshot(inv))
}

// RecordPayment registra un pago manual.
// POST /api/invoices/:id/payments
func (h *InvoiceHandler) RecordPayment(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	var in dto.RecordPaymentRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	inv, err := h.ledger.RecordPayment(c.UserContext(), ownerID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(billing.InvoiceSnapshot(inv))
}

// RegisterPaymentIntent asocia un intento del proveedor al saldo pendiente.
// POST /api/invoices/:id/payment-intents
func (h *InvoiceHandler) RegisterPaymentIntent(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	var in dto.RegisterPaymentIntentRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	pi, err := h.ledger.RegisterPaymentIntent(c.UserContext(), ownerID, c.Params("id"), in.IntentID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(billing.PaymentIntentResponse(pi))
}

// UnappliedPaymentIntents cobros del proveedor pendientes de revisión.
// GET /api/payment-intents/unapplied
func (h *InvoiceHandler) UnappliedPaymentIntents(c *fiber.Ctx) error {
	intents, err := h.ledger.UnappliedPaymentIntents(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]*dto.PaymentIntentResponse, 0, len(intents))
	for i := range intents {
		out = append(out, billing.PaymentIntentResponse(&intents[i]))
	}
	return c.JSON(out)
}

// PDF GET /api/invoices/:id/pdf
func (h *InvoiceHandler) PDF(c *fiber.Ctx) error {
	return renderSnapshot(c, h.docs, entity.DocumentTypeInvoice, h.pdf, "pdf")
}

// UBL GET /api/invoices/:id/ubl
func (h *InvoiceHandler) UBL(c *fiber.Ctx) error {
	return renderSnapshot(c, h.docs, entity.DocumentTypeInvoice, h.ubl, "xml")
}

// MarkOverdue barre las facturas vencidas a la fecha indicada (hoy por defecto).
// POST /api/invoices/mark-overdue
func (h *InvoiceHandler) MarkOverdue(c *fiber.Ctx) error {
	asOf, ok, err := asOfFromBody(c, h.clock)
	if !ok {
		return err
	}
	n, err := h.docs.MarkOverdue(c.UserContext(), asOf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.CountResponse{Updated: n})
}

// asOfFromBody lee dto.AsOfRequest; cuerpo vacío usa la fecha del reloj.
func asOfFromBody(c *fiber.Ctx, clock billing.Clock) (time.Time, bool, error) {
	var in dto.AsOfRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return time.Time{}, false, err
		}
	}
	asOf, has, err := dto.ParseDate(in.AsOf)
	if err != nil {
		return time.Time{}, false, badRequest(c, "VALIDATION", "as_of: fecha inválida")
	}
	if !has {
		asOf = clock.Now()
	}
	return asOf, true, nil
}

// renderSnapshot carga el snapshot del documento y lo entrega con el renderer indicado.
func renderSnapshot(c *fiber.Ctx, docs *billing.DocumentService, docType entity.DocumentType, r billing.SnapshotRenderer, ext string) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	snap, err := docs.Snapshot(c.UserContext(), ownerID, docType, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out, err := r.Render(snap)
	if err != nil {
		return writeError(c, err)
	}
	name := snap.Number
	if name == "" {
		name = snap.ID
	}
	c.Set(fiber.HeaderContentType, r.ContentType())
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+name+"."+ext+`"`)
	return c.Send(out)
}
