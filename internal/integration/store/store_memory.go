// Package store persists integrations and their connections.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
)

// InMemory stores integrations and connections for tests and local runs.
type InMemory struct {
	mu           sync.RWMutex
	integrations map[id.IntegrationID]*models.Integration
	connections  map[id.IntegrationID][]*models.Connection
}

func NewInMemory() *InMemory {
	return &InMemory{
		integrations: make(map[id.IntegrationID]*models.Integration),
		connections:  make(map[id.IntegrationID][]*models.Connection),
	}
}

func (s *InMemory) FindByID(_ context.Context, integrationID id.IntegrationID) (*models.Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.integrations[integrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *in
	return &c, nil
}

// FindUsableByProvider returns the first enabled, non-archived integration
// of the provider ordered by name.
func (s *InMemory) FindUsableByProvider(ctx context.Context, provider models.Provider) (*models.Integration, error) {
	usable, err := s.ListUsable(ctx)
	if err != nil {
		return nil, err
	}
	for _, in := range usable {
		if in.Provider == provider {
			return in, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListUsable returns enabled, non-archived integrations ordered by name.
func (s *InMemory) ListUsable(_ context.Context) ([]*models.Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Integration, 0, len(s.integrations))
	for _, in := range s.integrations {
		if in.IsUsable() {
			c := *in
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemory) Save(_ context.Context, in *models.Integration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *in
	s.integrations[in.ID] = &c
	return nil
}

// FindActive returns the integration's active connection.
func (s *InMemory) FindActive(_ context.Context, integrationID id.IntegrationID) (*models.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conn := range s.connections[integrationID] {
		if conn.Active {
			c := *conn
			return &c, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// SaveConnection stores conn. An active connection deactivates the others.
func (s *InMemory) SaveConnection(_ context.Context, conn *models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.connections[conn.IntegrationID]
	kept := list[:0]
	for _, existing := range list {
		if existing.ID == conn.ID {
			continue
		}
		if conn.Active {
			existing.Active = false
		}
		kept = append(kept, existing)
	}
	c := *conn
	s.connections[conn.IntegrationID] = append(kept, &c)
	return nil
}
