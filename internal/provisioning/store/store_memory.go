// Package store persists provisioning rules.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
)

type InMemory struct {
	mu    sync.RWMutex
	rules map[id.RuleID]*models.Rule
}

func NewInMemory() *InMemory {
	return &InMemory{rules: make(map[id.RuleID]*models.Rule)}
}

// ListActive returns the integration's active rules, highest priority first.
func (s *InMemory) ListActive(_ context.Context, integrationID id.IntegrationID) ([]*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Rule
	for _, r := range s.rules {
		if r.IntegrationID == integrationID && r.Active {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemory) Save(_ context.Context, r *models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *r
	s.rules[r.ID] = &c
	return nil
}
