// Package stripe verifica la firma de los webhooks de Stripe y traduce los eventos de
// pago a billing.PaymentEvent.
package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	appbilling "github.com/jhoicas/Facturacion-api/internal/application/billing"
)

// SignatureHeader cabecera HTTP con la firma.
const SignatureHeader = "Stripe-Signature"

var (
	ErrInvalidSignature = errors.New("stripe: firma de webhook inválida")
	ErrMalformedEvent   = errors.New("stripe: evento mal formado")
)

// WebhookVerifier valida payloads firmados con el secreto del endpoint.
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier crea el verificador.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Parse verifica la firma (tolerancia por defecto de la librería) y mapea el evento.
// Los tipos que el conciliador no maneja se devuelven con solo EventID y Type.
func (v *WebhookVerifier) Parse(payload []byte, signature string) (appbilling.PaymentEvent, error) {
	if v.secret == "" {
		return appbilling.PaymentEvent{}, fmt.Errorf("%w: secreto no configurado", ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return appbilling.PaymentEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return MapEvent(event)
}

// MapEvent traduce un evento ya verificado.
func MapEvent(event stripego.Event) (appbilling.PaymentEvent, error) {
	out := appbilling.PaymentEvent{
		EventID: event.ID,
		Type:    appbilling.PaymentEventType(event.Type),
	}
	if event.Data == nil {
		return out, fmt.Errorf("%w: sin data", ErrMalformedEvent)
	}

	switch out.Type {
	case appbilling.EventPaymentSucceeded, appbilling.EventPaymentFailed:
		var pi stripego.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return out, fmt.Errorf("%w: payment_intent: %v", ErrMalformedEvent, err)
		}
		out.IntentID = pi.ID
		out.Currency = strings.ToUpper(string(pi.Currency))
		if out.Type == appbilling.EventPaymentSucceeded {
			amount := pi.AmountReceived
			if amount == 0 {
				amount = pi.Amount
			}
			out.AmountMinor = &amount
		} else if pi.LastPaymentError != nil {
			out.FailureMessage = pi.LastPaymentError.Msg
		}

	case appbilling.EventChargeRefunded:
		var ch stripego.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return out, fmt.Errorf("%w: charge: %v", ErrMalformedEvent, err)
		}
		if ch.PaymentIntent == nil || ch.PaymentIntent.ID == "" {
			return out, fmt.Errorf("%w: charge sin payment_intent", ErrMalformedEvent)
		}
		out.IntentID = ch.PaymentIntent.ID
		out.Currency = strings.ToUpper(string(ch.Currency))
		refunded := ch.AmountRefunded
		out.AmountMinor = &refunded
	}
	return out, nil
}
