package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jhoicas/Facturacion-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "info", Service: "facturacion-api", Out: &buf})

	log := l.Component("ledger")
	log.Info().Str("invoice_id", "inv-1").Msg("pago registrado")
	log.Debug().Msg("no se escribe")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "ledger", entry["component"])
	assert.Equal(t, "facturacion-api", entry["service"])
	assert.Equal(t, "inv-1", entry["invoice_id"])
	assert.Equal(t, "info", entry["level"])
}
