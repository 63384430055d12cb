package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

func TestLogDispatcher_DispatchSend(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDispatcher(zerolog.New(&buf))

	err := d.DispatchSend(context.Background(), &dto.DocumentSnapshot{
		DocumentType: "invoice",
		ID:           "inv-1",
		Number:       "FAC-2025-0001",
		ClientID:     "cliente-1",
		Currency:     "EUR",
		Total:        decimal.RequireFromString("121"),
	})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "FAC-2025-0001", entry["number"])
	assert.Equal(t, "inv-1", entry["document_id"])
	assert.Equal(t, "121.00", entry["total"])
	assert.Equal(t, "info", entry["level"])
}

func TestLogDispatcher_CancelledContext(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDispatcher(zerolog.New(&buf))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.DispatchSend(ctx, &dto.DocumentSnapshot{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}
