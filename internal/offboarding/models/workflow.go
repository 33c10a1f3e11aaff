package models

import (
	"time"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
)

// WorkflowStatus is the lifecycle state of an offboarding workflow.
type WorkflowStatus string

const (
	WorkflowPending    WorkflowStatus = "PENDING"
	WorkflowInProgress WorkflowStatus = "IN_PROGRESS"
	WorkflowCompleted  WorkflowStatus = "COMPLETED"
	WorkflowCancelled  WorkflowStatus = "CANCELLED"
)

// IsOpen reports whether the workflow still counts as the employee's active one.
func (s WorkflowStatus) IsOpen() bool {
	return s == WorkflowPending || s == WorkflowInProgress
}

// Workflow revokes one employee's access through an ordered task list.
//
// Invariants:
//   - at most one open (PENDING/IN_PROGRESS) workflow per employee
//   - COMPLETED only once no task is PENDING or IN_PROGRESS
//   - COMPLETED and CANCELLED are final
type Workflow struct {
	ID           id.WorkflowID              `json:"id"`
	EmployeeID   id.EmployeeID              `json:"employeeId"`
	Status       WorkflowStatus             `json:"status"`
	ScheduledFor time.Time                  `json:"scheduledFor"`
	Immediate    bool                       `json:"immediate"`
	Options      account.DeprovisionOptions `json:"options"`
	Reason       string                     `json:"reason,omitempty"`
	CreatedBy    string                     `json:"createdBy,omitempty"`
	CreatedAt    time.Time                  `json:"createdAt"`
	UpdatedAt    time.Time                  `json:"updatedAt"`
	CompletedAt  *time.Time                 `json:"completedAt,omitempty"`
	CancelledAt  *time.Time                 `json:"cancelledAt,omitempty"`
}

// NewWorkflow builds a PENDING workflow. Immediate workflows are scheduled for now.
func NewWorkflow(workflowID id.WorkflowID, employeeID id.EmployeeID, scheduledFor time.Time, immediate bool, opts account.DeprovisionOptions, createdBy string, now time.Time) (*Workflow, error) {
	if employeeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "workflow must belong to an employee")
	}
	if immediate || scheduledFor.IsZero() {
		scheduledFor = now
	}
	return &Workflow{
		ID:           workflowID,
		EmployeeID:   employeeID,
		Status:       WorkflowPending,
		ScheduledFor: scheduledFor,
		Immediate:    immediate,
		Options:      opts,
		Reason:       opts.Reason,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsDue reports whether a scheduled workflow should start running tasks.
func (w *Workflow) IsDue(now time.Time) bool {
	return w.Status == WorkflowPending && !w.ScheduledFor.After(now)
}

// CanRunTasks rejects task execution on final workflows.
func (w *Workflow) CanRunTasks() error {
	if !w.Status.IsOpen() {
		return dErrors.Newf(dErrors.CodeInvalidState, "workflow is %s", w.Status)
	}
	return nil
}

// MarkInProgress moves PENDING to IN_PROGRESS; other states are untouched.
func (w *Workflow) MarkInProgress(now time.Time) bool {
	if w.Status != WorkflowPending {
		return false
	}
	w.Status = WorkflowInProgress
	w.UpdatedAt = now
	return true
}

// CanCancel rejects cancellation of final workflows.
func (w *Workflow) CanCancel() error {
	switch w.Status {
	case WorkflowCompleted:
		return dErrors.New(dErrors.CodeInvalidState, "completed workflow cannot be cancelled")
	case WorkflowCancelled:
		return dErrors.New(dErrors.CodeInvalidState, "workflow is already cancelled")
	}
	return nil
}

func (w *Workflow) ApplyCancel(now time.Time) {
	w.Status = WorkflowCancelled
	w.CancelledAt = &now
	w.UpdatedAt = now
}

func (w *Workflow) ApplyComplete(now time.Time) {
	w.Status = WorkflowCompleted
	w.CompletedAt = &now
	w.UpdatedAt = now
}

// AllResolved reports whether no task is PENDING or IN_PROGRESS.
func AllResolved(tasks []*Task) bool {
	for _, t := range tasks {
		if t.Status.IsOpen() {
			return false
		}
	}
	return true
}

// WorkflowDetails is a workflow with its tasks in sort order.
type WorkflowDetails struct {
	*Workflow
	Tasks []*Task `json:"tasks"`
}
