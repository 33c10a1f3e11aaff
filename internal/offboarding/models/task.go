package models

import (
	"strings"
	"time"

	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
)

// TaskType distinguishes human checklist items from automated revocations.
type TaskType string

const (
	TaskManual    TaskType = "MANUAL"
	TaskAutomated TaskType = "AUTOMATED"
)

// AutomationKind is the action an AUTOMATED task performs.
type AutomationKind string

const (
	// KindDeprovisionIntegration revokes the employee's account in one integration.
	KindDeprovisionIntegration AutomationKind = "DEPROVISION_INTEGRATION"
	// KindRemoveFromStandup removes the employee from the standup tool.
	KindRemoveFromStandup AutomationKind = "REMOVE_FROM_STANDUP"
)

// TaskStatus is the state of one offboarding task.
//
//	PENDING -> IN_PROGRESS -> SUCCESS | FAILED
//	PENDING | FAILED -> SKIPPED
//	FAILED -> IN_PROGRESS (retry)
//	PENDING -> SUCCESS (manual completion)
//
// SUCCESS and SKIPPED are terminal; FAILED is retryable.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskSuccess    TaskStatus = "SUCCESS"
	TaskFailed     TaskStatus = "FAILED"
	TaskSkipped    TaskStatus = "SKIPPED"
)

// IsOpen reports whether the task blocks workflow completion.
func (s TaskStatus) IsOpen() bool {
	return s == TaskPending || s == TaskInProgress
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskSuccess || s == TaskSkipped
}

// Task is one step of an offboarding workflow.
type Task struct {
	ID             id.TaskID         `json:"id"`
	WorkflowID     id.WorkflowID     `json:"workflowId"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Type           TaskType          `json:"type"`
	AutomationKind AutomationKind    `json:"automationKind,omitempty"`
	IntegrationID  *id.IntegrationID `json:"integrationId,omitempty"`
	Status         TaskStatus        `json:"status"`
	SortOrder      int               `json:"sortOrder"`
	Attempts       int               `json:"attempts"`
	LastAttemptAt  *time.Time        `json:"lastAttemptAt,omitempty"`
	StatusMessage  string            `json:"statusMessage,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	CompletedBy    string            `json:"completedBy,omitempty"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
}

func (t *Task) IsAutomated() bool {
	return t.Type == TaskAutomated
}

// CanStart checks that an automated run is allowed.
func (t *Task) CanStart() error {
	if !t.IsAutomated() {
		return dErrors.New(dErrors.CodeInvalidState, "manual tasks cannot be run automatically")
	}
	switch t.Status {
	case TaskInProgress:
		return dErrors.New(dErrors.CodeInvalidState, "task is already running")
	case TaskSuccess, TaskSkipped:
		return dErrors.Newf(dErrors.CodeInvalidState, "task is already %s", t.Status)
	}
	return nil
}

// ApplyStart marks an attempt as running.
func (t *Task) ApplyStart(now time.Time) {
	t.Status = TaskInProgress
	t.Attempts++
	t.LastAttemptAt = &now
}

// IsStale reports whether an IN_PROGRESS attempt started more than after ago.
func (t *Task) IsStale(now time.Time, after time.Duration) bool {
	if t.Status != TaskInProgress || t.LastAttemptAt == nil {
		return false
	}
	return now.Sub(*t.LastAttemptAt) > after
}

// Succeed records a successful automated attempt.
func (t *Task) Succeed(message string, now time.Time) {
	t.Status = TaskSuccess
	t.StatusMessage = message
	t.CompletedAt = &now
}

// Fail records a failed automated attempt. The task may be retried.
func (t *Task) Fail(message string) {
	t.Status = TaskFailed
	t.StatusMessage = message
}

// CanComplete checks that a human may mark the task done.
func (t *Task) CanComplete() error {
	if t.IsAutomated() {
		return dErrors.New(dErrors.CodeInvalidState, "automated tasks complete by running them")
	}
	switch t.Status {
	case TaskSuccess, TaskSkipped:
		return dErrors.Newf(dErrors.CodeInvalidState, "task is already %s", t.Status)
	case TaskInProgress:
		return dErrors.New(dErrors.CodeInvalidState, "task is in progress")
	}
	return nil
}

// ApplyComplete marks a manual task done.
func (t *Task) ApplyComplete(notes, by string, now time.Time) {
	t.Status = TaskSuccess
	t.Notes = strings.TrimSpace(notes)
	t.CompletedBy = by
	t.CompletedAt = &now
}

// CanSkip requires a reason and a non-terminal, non-running task.
func (t *Task) CanSkip(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "a reason is required to skip a task")
	}
	if t.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "task is already %s", t.Status)
	}
	if t.Status == TaskInProgress {
		return dErrors.New(dErrors.CodeInvalidState, "task is in progress")
	}
	return nil
}

func (t *Task) ApplySkip(reason, by string, now time.Time) {
	t.Status = TaskSkipped
	t.Notes = strings.TrimSpace(reason)
	t.CompletedBy = by
	t.CompletedAt = &now
}

// Template is an org-level blueprint materialized into a Task for every new workflow.
// AUTOMATED templates name their integration directly or by provider.
type Template struct {
	ID             id.TemplateID     `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Type           TaskType          `json:"type"`
	AutomationKind AutomationKind    `json:"automationKind,omitempty"`
	IntegrationID  *id.IntegrationID `json:"integrationId,omitempty"`
	Provider       string            `json:"provider,omitempty"`
	SortOrder      int               `json:"sortOrder"`
	Active         bool              `json:"active"`
}

func NewTemplate(templateID id.TemplateID, name string, taskType TaskType, kind AutomationKind, sortOrder int) (*Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "template name cannot be empty")
	}
	switch taskType {
	case TaskManual:
		kind = ""
	case TaskAutomated:
		if kind == "" {
			kind = KindDeprovisionIntegration
		}
	default:
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown task type %q", taskType)
	}
	return &Template{
		ID:             templateID,
		Name:           name,
		Type:           taskType,
		AutomationKind: kind,
		SortOrder:      sortOrder,
		Active:         true,
	}, nil
}
