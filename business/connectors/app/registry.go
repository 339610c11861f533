package app

import (
	"context"
	"sync"

	"github.com/fd1az/arbitrage-bot/business/connectors/domain"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
)

// Registry holds every live Connector, keyed by venue id. It is the lookup
// surface health checks and the TUI's venue matrix read from.
type Registry struct {
	mu         sync.RWMutex
	connectors map[mdomain.VenueID]Connector
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[mdomain.VenueID]Connector)}
}

// Add registers a Connector under its own venue id.
func (r *Registry) Add(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Venue()] = c
}

// All returns every registered Connector.
func (r *Registry) All() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connector, 0, len(r.connectors))
	for _, c := range r.connectors {
		out = append(out, c)
	}
	return out
}

// Get returns the Connector for venue, if any.
func (r *Registry) Get(venue mdomain.VenueID) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[venue]
	return c, ok
}

// Statuses returns every Connector's current Status, for health checks and
// the TUI's venue matrix.
func (r *Registry) Statuses() []domain.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Status, 0, len(r.connectors))
	for _, c := range r.connectors {
		out = append(out, c.Status())
	}
	return out
}

// ShutdownAll shuts down every Connector, collecting the first error.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	r.mu.RLock()
	connectors := make([]Connector, 0, len(r.connectors))
	for _, c := range r.connectors {
		connectors = append(connectors, c)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, c := range connectors {
		if err := c.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
