// Package store persists employees.
package store

import (
	"context"
	"sync"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
)

// InMemory keeps employees in a map. Reads return copies.
type InMemory struct {
	mu        sync.RWMutex
	employees map[id.EmployeeID]*models.Employee
}

func NewInMemory() *InMemory {
	return &InMemory{employees: make(map[id.EmployeeID]*models.Employee)}
}

func (s *InMemory) FindByID(_ context.Context, employeeID id.EmployeeID) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[employeeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

func (s *InMemory) Save(_ context.Context, e *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = clone(e)
	return nil
}

func clone(e *models.Employee) *models.Employee {
	c := *e
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	if e.ExitDate != nil {
		d := *e.ExitDate
		c.ExitDate = &d
	}
	return &c
}
