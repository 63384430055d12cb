package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// RecurringHandler maneja los perfiles de facturación recurrente (protegido).
type RecurringHandler struct {
	sched *billing.RecurringScheduler
	clock billing.Clock
}

// NewRecurringHandler construye el handler.
func NewRecurringHandler(sched *billing.RecurringScheduler, clock billing.Clock) *RecurringHandler {
	return &RecurringHandler{sched: sched, clock: clock}
}

func (h *RecurringHandler) respond(c *fiber.Ctx, status int, fn func(ownerID string) (*entity.RecurringProfile, error)) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	p, err := fn(ownerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(status).JSON(billing.ProfileResponse(p))
}

// Create POST /api/recurring-profiles
func (h *RecurringHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateRecurringProfileRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	return h.respond(c, fiber.StatusCreated, func(ownerID string) (*entity.RecurringProfile, error) {
		return h.sched.CreateProfile(c.UserContext(), ownerID, in)
	})
}

// GetByID GET /api/recurring-profiles/:id
func (h *RecurringHandler) GetByID(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.RecurringProfile, error) {
		return h.sched.GetProfile(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Pause POST /api/recurring-profiles/:id/pause
func (h *RecurringHandler) Pause(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.RecurringProfile, error) {
		return h.sched.Pause(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Resume POST /api/recurring-profiles/:id/resume
func (h *RecurringHandler) Resume(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.RecurringProfile, error) {
		return h.sched.Resume(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Cancel POST /api/recurring-profiles/:id/cancel
func (h *RecurringHandler) Cancel(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, func(ownerID string) (*entity.RecurringProfile, error) {
		return h.sched.Cancel(c.UserContext(), ownerID, c.Params("id"))
	})
}

// Generate emite la próxima ocurrencia sin esperar a la fecha.
// POST /api/recurring-profiles/:id/generate
func (h *RecurringHandler) Generate(c *fiber.Ctx) error {
	ownerID, ok := requireOwner(c)
	if !ok {
		return nil
	}
	inv, err := h.sched.Generate(c.UserContext(), ownerID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(billing.InvoiceSnapshot(inv))
}

// RunDue genera todas las ocurrencias vencidas.
// POST /api/recurring-profiles/run
func (h *RecurringHandler) RunDue(c *fiber.Ctx) error {
	asOf, ok, err := asOfFromBody(c, h.clock)
	if !ok {
		return err
	}
	report, err := h.sched.RunDue(c.UserContext(), asOf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}
