// Package redis guarda en Redis los ids de eventos del proveedor de pagos ya procesados,
// compartidos entre todas las instancias de la API.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	appbilling "github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/pkg/config"
)

const defaultKeyPrefix = "billing:webhook-event:"

var _ appbilling.ProcessedEventStore = (*ProcessedEventStore)(nil)

// ProcessedEventStore implementa billing.ProcessedEventStore con SET NX + TTL.
type ProcessedEventStore struct {
	client    *goredis.Client
	keyPrefix string
}

// NewProcessedEventStore conecta y verifica con PING.
func NewProcessedEventStore(ctx context.Context, cfg config.RedisConfig) (*ProcessedEventStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: conectar a %s: %w", cfg.Addr, err)
	}
	return NewProcessedEventStoreWithClient(client, ""), nil
}

// NewProcessedEventStoreWithClient reutiliza un cliente existente. keyPrefix vacío usa el prefijo por defecto.
func NewProcessedEventStoreWithClient(client *goredis.Client, keyPrefix string) *ProcessedEventStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &ProcessedEventStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed devuelve true solo para el primer llamador; SET NX es atómico.
func (s *ProcessedEventStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: marcar evento %s: %w", eventID, err)
	}
	return ok, nil
}

// IsProcessed consulta si el evento sigue marcado (no expirado).
func (s *ProcessedEventStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: consultar evento %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Close cierra el cliente.
func (s *ProcessedEventStore) Close() error {
	return s.client.Close()
}
