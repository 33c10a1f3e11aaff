// Package store persists app accounts keyed by employee and integration.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
)

type key struct {
	employee    id.EmployeeID
	integration id.IntegrationID
}

type InMemory struct {
	mu       sync.RWMutex
	accounts map[key]*models.AppAccount
}

func NewInMemory() *InMemory {
	return &InMemory{accounts: make(map[key]*models.AppAccount)}
}

func (s *InMemory) Find(_ context.Context, employeeID id.EmployeeID, integrationID id.IntegrationID) (*models.AppAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[key{employeeID, integrationID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// Upsert writes the account for its (employee, integration) pair. The stored
// ID of an existing row wins.
func (s *InMemory) Upsert(_ context.Context, a *models.AppAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{a.EmployeeID, a.IntegrationID}
	if existing, ok := s.accounts[k]; ok {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	}
	s.accounts[k] = clone(a)
	return nil
}

// ListByEmployee returns the employee's accounts ordered by creation.
func (s *InMemory) ListByEmployee(_ context.Context, employeeID id.EmployeeID) ([]*models.AppAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AppAccount
	for k, a := range s.accounts {
		if k.employee == employeeID {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func clone(a *models.AppAccount) *models.AppAccount {
	c := *a
	if a.ProvisionedResources != nil {
		r := *a.ProvisionedResources
		r.Groups = append([]string(nil), r.Groups...)
		r.Applied = append([]string(nil), r.Applied...)
		c.ProvisionedResources = &r
	}
	return &c
}
