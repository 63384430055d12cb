// Package notify implementa el envío de documentos al cliente.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	appbilling "github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

var _ appbilling.SendDispatcher = (*LogDispatcher)(nil)

// LogDispatcher registra el trabajo de envío en el log estructurado. Un mismo documento
// puede registrarse más de una vez si la transacción se reintenta; el consumidor
// deduplica por document_id + number.
type LogDispatcher struct {
	log zerolog.Logger
}

// NewLogDispatcher crea el dispatcher.
func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

// DispatchSend implementa billing.SendDispatcher.
func (d *LogDispatcher) DispatchSend(ctx context.Context, snap *dto.DocumentSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.log.Info().
		Str("document_type", snap.DocumentType).
		Str("document_id", snap.ID).
		Str("number", snap.Number).
		Str("client_id", snap.ClientID).
		Str("currency", snap.Currency).
		Str("total", snap.Total.StringFixed(2)).
		Msg("envío de documento encolado")
	return nil
}
