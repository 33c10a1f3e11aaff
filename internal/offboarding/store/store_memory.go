package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
)

// InMemory keeps workflows and tasks in maps. It enforces the same
// one-open-workflow and compare-and-set rules as the Postgres store.
type InMemory struct {
	mu        sync.RWMutex
	workflows map[id.WorkflowID]*models.Workflow
	tasks     map[id.TaskID]*models.Task
}

func NewInMemory() *InMemory {
	return &InMemory{
		workflows: make(map[id.WorkflowID]*models.Workflow),
		tasks:     make(map[id.TaskID]*models.Task),
	}
}

func (s *InMemory) Create(_ context.Context, wf *models.Workflow, tasks []*models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.workflows {
		if existing.EmployeeID == wf.EmployeeID && existing.Status.IsOpen() {
			return fmt.Errorf("employee %s already has workflow %s: %w", wf.EmployeeID, existing.ID, sentinel.ErrConflict)
		}
	}
	c := *wf
	s.workflows[wf.ID] = &c
	for _, t := range tasks {
		s.tasks[t.ID] = cloneTask(t)
	}
	return nil
}

func (s *InMemory) FindWorkflow(_ context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[workflowID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *wf
	return &c, nil
}

func (s *InMemory) FindOpenByEmployee(_ context.Context, employeeID id.EmployeeID) (*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, wf := range s.workflows {
		if wf.EmployeeID == employeeID && wf.Status.IsOpen() {
			c := *wf
			return &c, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// UpdateWorkflow writes wf only if the stored status still equals expect.
func (s *InMemory) UpdateWorkflow(_ context.Context, wf *models.Workflow, expect models.WorkflowStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.workflows[wf.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if cur.Status != expect {
		return fmt.Errorf("workflow %s is %s, expected %s: %w", wf.ID, cur.Status, expect, sentinel.ErrInvalidState)
	}
	c := *wf
	s.workflows[wf.ID] = &c
	return nil
}

func (s *InMemory) CompleteIfOpen(_ context.Context, workflowID id.WorkflowID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[workflowID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if !wf.Status.IsOpen() {
		return false, nil
	}
	wf.ApplyComplete(now)
	return true, nil
}

func (s *InMemory) ListDue(_ context.Context, now time.Time) ([]*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Workflow
	for _, wf := range s.workflows {
		if wf.IsDue(now) {
			c := *wf
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (s *InMemory) CountOpen(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, wf := range s.workflows {
		if wf.Status.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) FindTask(_ context.Context, taskID id.TaskID) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneTask(t), nil
}

func (s *InMemory) ListTasks(_ context.Context, workflowID id.WorkflowID) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Task
	for _, t := range s.tasks {
		if t.WorkflowID == workflowID {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// UpdateTask writes t only if the stored status still equals expect.
func (s *InMemory) UpdateTask(_ context.Context, t *models.Task, expect models.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[t.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if cur.Status != expect {
		return fmt.Errorf("task %s is %s, expected %s: %w", t.ID, cur.Status, expect, sentinel.ErrInvalidState)
	}
	s.tasks[t.ID] = cloneTask(t)
	return nil
}

func cloneTask(t *models.Task) *models.Task {
	c := *t
	if t.IntegrationID != nil {
		v := *t.IntegrationID
		c.IntegrationID = &v
	}
	if t.LastAttemptAt != nil {
		v := *t.LastAttemptAt
		c.LastAttemptAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}

// InMemoryTemplates holds offboarding task templates.
type InMemoryTemplates struct {
	mu        sync.RWMutex
	templates map[id.TemplateID]*models.Template
}

func NewInMemoryTemplates() *InMemoryTemplates {
	return &InMemoryTemplates{templates: make(map[id.TemplateID]*models.Template)}
}

func (s *InMemoryTemplates) ListActive(_ context.Context) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Template
	for _, t := range s.templates {
		if t.Active {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemoryTemplates) Save(_ context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *t
	s.templates[t.ID] = &c
	return nil
}
