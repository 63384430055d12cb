package memory

import (
	"context"
	"sync"
	"time"

	appbilling "github.com/jhoicas/Facturacion-api/internal/application/billing"
)

var _ appbilling.ProcessedEventStore = (*ProcessedEvents)(nil)

// ProcessedEvents ids de eventos procesados con expiración, para un solo proceso.
type ProcessedEvents struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewProcessedEvents crea el store. now nil usa time.Now.
func NewProcessedEvents(now func() time.Time) *ProcessedEvents {
	if now == nil {
		now = time.Now
	}
	return &ProcessedEvents{expires: make(map[string]time.Time), now: now}
}

func (p *ProcessedEvents) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if exp, ok := p.expires[eventID]; ok && now.Before(exp) {
		return false, nil
	}
	p.expires[eventID] = now.Add(ttl)
	return true, nil
}

func (p *ProcessedEvents) IsProcessed(_ context.Context, eventID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	exp, ok := p.expires[eventID]
	if !ok {
		return false, nil
	}
	if !p.now().Before(exp) {
		delete(p.expires, eventID)
		return false, nil
	}
	return true, nil
}

func (p *ProcessedEvents) Close() error { return nil }
