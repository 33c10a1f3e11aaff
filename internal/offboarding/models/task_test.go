package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
)

var now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func automatedTask() *Task {
	return &Task{ID: id.TaskID(uuid.New()), Type: TaskAutomated, AutomationKind: KindDeprovisionIntegration, Status: TaskPending}
}

func manualTask() *Task {
	return &Task{ID: id.TaskID(uuid.New()), Type: TaskManual, Status: TaskPending}
}

func TestTask_AutomatedLifecycle(t *testing.T) {
	task := automatedTask()
	require.NoError(t, task.CanStart())

	task.ApplyStart(now)
	assert.Equal(t, TaskInProgress, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.Equal(t, now, *task.LastAttemptAt)
	assert.True(t, dErrors.HasCode(task.CanStart(), dErrors.CodeInvalidState), "running task cannot start twice")

	task.Fail("provider timeout")
	assert.Equal(t, TaskFailed, task.Status)
	require.NoError(t, task.CanStart(), "failed tasks are retryable")

	later := now.Add(time.Minute)
	task.ApplyStart(later)
	assert.Equal(t, 2, task.Attempts)
	task.Succeed("deprovisioned", later)
	assert.Equal(t, TaskSuccess, task.Status)
	assert.True(t, dErrors.HasCode(task.CanStart(), dErrors.CodeInvalidState))
}

func TestTask_IsStale(t *testing.T) {
	task := automatedTask()
	assert.False(t, task.IsStale(now, time.Minute), "pending task has no attempt")

	task.ApplyStart(now)
	assert.False(t, task.IsStale(now.Add(30*time.Second), time.Minute))
	assert.True(t, task.IsStale(now.Add(2*time.Minute), time.Minute))

	task.Fail("timeout")
	assert.False(t, task.IsStale(now.Add(time.Hour), time.Minute), "only running tasks go stale")
}

func TestTask_ManualRules(t *testing.T) {
	t.Run("manual task cannot be run", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(manualTask().CanStart(), dErrors.CodeInvalidState))
	})

	t.Run("automated task cannot be completed by hand", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(automatedTask().CanComplete(), dErrors.CodeInvalidState))
	})

	t.Run("complete records notes and actor", func(t *testing.T) {
		task := manualTask()
		require.NoError(t, task.CanComplete())
		task.ApplyComplete("  laptop returned ", "hr@example.com", now)
		assert.Equal(t, TaskSuccess, task.Status)
		assert.Equal(t, "laptop returned", task.Notes)
		assert.Equal(t, "hr@example.com", task.CompletedBy)
		assert.True(t, dErrors.HasCode(task.CanComplete(), dErrors.CodeInvalidState))
	})

	t.Run("skip requires reason", func(t *testing.T) {
		task := manualTask()
		assert.True(t, dErrors.HasCode(task.CanSkip("  "), dErrors.CodeValidation))
		require.NoError(t, task.CanSkip("not applicable"))
		task.ApplySkip("not applicable", "hr@example.com", now)
		assert.Equal(t, TaskSkipped, task.Status)
		assert.True(t, dErrors.HasCode(task.CanSkip("again"), dErrors.CodeInvalidState))
	})

	t.Run("failed automated task can be skipped", func(t *testing.T) {
		task := automatedTask()
		task.ApplyStart(now)
		task.Fail("no connection")
		require.NoError(t, task.CanSkip("handled manually"))
	})
}

func TestWorkflow_Transitions(t *testing.T) {
	employeeID := id.EmployeeID(uuid.New())

	t.Run("immediate workflow is scheduled now", func(t *testing.T) {
		wf, err := NewWorkflow(id.WorkflowID(uuid.New()), employeeID, now.Add(48*time.Hour), true, account.DeprovisionOptions{}, "ops", now)
		require.NoError(t, err)
		assert.Equal(t, now, wf.ScheduledFor)
		assert.True(t, wf.IsDue(now))
	})

	t.Run("scheduled workflow is not due early", func(t *testing.T) {
		wf, err := NewWorkflow(id.WorkflowID(uuid.New()), employeeID, now.Add(time.Hour), false, account.DeprovisionOptions{}, "ops", now)
		require.NoError(t, err)
		assert.False(t, wf.IsDue(now))
		assert.True(t, wf.IsDue(now.Add(time.Hour)))
	})

	t.Run("nil employee is rejected", func(t *testing.T) {
		_, err := NewWorkflow(id.WorkflowID(uuid.New()), id.EmployeeID{}, now, true, account.DeprovisionOptions{}, "ops", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("cancel rules", func(t *testing.T) {
		wf, _ := NewWorkflow(id.WorkflowID(uuid.New()), employeeID, now, false, account.DeprovisionOptions{}, "ops", now)
		require.NoError(t, wf.CanCancel())
		wf.ApplyCancel(now)
		assert.True(t, dErrors.HasCode(wf.CanCancel(), dErrors.CodeInvalidState))
		assert.Error(t, wf.CanRunTasks())

		done, _ := NewWorkflow(id.WorkflowID(uuid.New()), employeeID, now, false, account.DeprovisionOptions{}, "ops", now)
		done.ApplyComplete(now)
		assert.True(t, dErrors.HasCode(done.CanCancel(), dErrors.CodeInvalidState))
	})

	t.Run("all resolved ignores failed tasks", func(t *testing.T) {
		failed := automatedTask()
		failed.Status = TaskFailed
		skipped := manualTask()
		skipped.Status = TaskSkipped
		assert.True(t, AllResolved([]*Task{failed, skipped}))
		assert.False(t, AllResolved([]*Task{failed, manualTask()}))
		assert.True(t, AllResolved(nil))
	})
}
