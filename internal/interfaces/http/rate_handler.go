package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

// RateHandler registra tasas de cambio y convierte importes (protegido).
type RateHandler struct {
	rates *billing.RateService
	clock billing.Clock
}

// NewRateHandler construye el handler.
func NewRateHandler(rates *billing.RateService, clock billing.Clock) *RateHandler {
	return &RateHandler{rates: rates, clock: clock}
}

// Record POST /api/rates
func (h *RateHandler) Record(c *fiber.Ctx) error {
	var in dto.RecordRateRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	fetchedAt := h.clock.Now()
	if in.FetchedAt != nil {
		fetchedAt = in.FetchedAt.UTC()
	}
	source := in.Source
	if source == "" {
		source = "api"
	}
	rate, err := h.rates.RecordRate(c.UserContext(), in.BaseCurrency, in.TargetCurrency, in.Rate, fetchedAt, source)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(billing.RateResponse(rate))
}

// Convert GET /api/rates/convert?amount=&from=&to=&as_of=
func (h *RateHandler) Convert(c *fiber.Ctx) error {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		return badRequest(c, "VALIDATION", "amount: número inválido")
	}
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		return badRequest(c, "VALIDATION", "from y to son requeridos")
	}
	asOf, has, err := dto.ParseDate(c.Query("as_of"))
	if err != nil {
		return badRequest(c, "VALIDATION", "as_of: fecha inválida")
	}
	if has {
		// fin del día: cuenta cualquier tasa publicada esa fecha
		asOf = asOf.AddDate(0, 0, 1).Add(-1)
	} else {
		asOf = h.clock.Now()
	}
	converted, rate, err := h.rates.Convert(c.UserContext(), amount, from, to, asOf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ConvertResponse{
		Amount:    amount,
		From:      from,
		To:        to,
		Rate:      rate,
		Converted: converted,
		AsOf:      asOf,
	})
}
