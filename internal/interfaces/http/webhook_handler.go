package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/stripe"
)

const maxWebhookPayloadSize = 64 * 1024

// eventParser verifica y traduce el payload firmado del proveedor.
type eventParser interface {
	Parse(payload []byte, signature string) (billing.PaymentEvent, error)
}

// WebhookResponse cuerpo de respuesta al proveedor.
type WebhookResponse struct {
	Received bool   `json:"received"`
	EventID  string `json:"event_id,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

// WebhookHandler recibe los webhooks de Stripe (público, autenticado por firma).
type WebhookHandler struct {
	parser     eventParser
	reconciler *billing.Reconciler
	log        zerolog.Logger
}

// NewWebhookHandler construye el handler.
func NewWebhookHandler(parser eventParser, reconciler *billing.Reconciler, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{parser: parser, reconciler: reconciler, log: log}
}

// Stripe POST /webhooks/stripe
// 200 para procesado, duplicado, ignorado o sin aplicar (el reintento no lo resolvería,
// queda en GET /api/payment-intents/unapplied); 400 firma o payload inválidos; 500 para que
// el proveedor reintente.
func (h *WebhookHandler) Stripe(c *fiber.Ctx) error {
	payload := c.Body()
	if len(payload) > maxWebhookPayloadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{Code: "PAYLOAD_TOO_LARGE", Message: "payload demasiado grande"})
	}
	signature := c.Get(stripe.SignatureHeader)
	if signature == "" {
		return badRequest(c, "MISSING_SIGNATURE", stripe.SignatureHeader+" requerido")
	}

	ev, err := h.parser.Parse(payload, signature)
	if err != nil {
		h.log.Warn().Err(err).Msg("webhook rechazado")
		if errors.Is(err, stripe.ErrInvalidSignature) {
			return badRequest(c, "INVALID_SIGNATURE", "firma inválida")
		}
		return badRequest(c, "MALFORMED_EVENT", "evento mal formado")
	}

	outcome, err := h.reconciler.Handle(c.UserContext(), ev)
	if err != nil {
		h.log.Error().Err(err).Str("event_id", ev.EventID).Str("type", string(ev.Type)).
			Str("intent_id", ev.IntentID).Msg("fallo al conciliar evento de pago")
		if errors.Is(err, domain.ErrInvalidInput) {
			return badRequest(c, "MALFORMED_EVENT", err.Error())
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "reintentar"})
	}
	return c.JSON(WebhookResponse{Received: true, EventID: ev.EventID, Outcome: string(outcome)})
}
