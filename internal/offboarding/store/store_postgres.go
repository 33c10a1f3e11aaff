package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PgStore is the pgx-backed workflow and task store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const workflowColumns = `id, employee_id, status, scheduled_for, immediate, options, reason,
	created_by, created_at, updated_at, completed_at, cancelled_at`

const taskColumns = `id, workflow_id, name, description, type, automation_kind, integration_id,
	status, sort_order, attempts, last_attempt_at, status_message, notes, completed_by, completed_at`

// Create inserts the workflow and its tasks in one transaction. The partial
// unique index on open workflows turns a second open workflow into ErrConflict.
func (s *PgStore) Create(ctx context.Context, wf *models.Workflow, tasks []*models.Task) error {
	options, err := json.Marshal(wf.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO offboarding_workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(wf.ID), uuid.UUID(wf.EmployeeID), wf.Status, wf.ScheduledFor, wf.Immediate, options,
		wf.Reason, wf.CreatedBy, wf.CreatedAt, wf.UpdatedAt, wf.CompletedAt, wf.CancelledAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("employee %s already has an open workflow: %w", wf.EmployeeID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}

	batch := &pgx.Batch{}
	for _, t := range tasks {
		batch.Queue(`
			INSERT INTO offboarding_tasks (`+taskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			taskArgs(t)...)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert tasks: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func taskArgs(t *models.Task) []any {
	var integrationID *uuid.UUID
	if t.IntegrationID != nil {
		v := uuid.UUID(*t.IntegrationID)
		integrationID = &v
	}
	return []any{
		uuid.UUID(t.ID), uuid.UUID(t.WorkflowID), t.Name, t.Description, t.Type, t.AutomationKind,
		integrationID, t.Status, t.SortOrder, t.Attempts, t.LastAttemptAt, t.StatusMessage,
		t.Notes, t.CompletedBy, t.CompletedAt,
	}
}

func (s *PgStore) FindWorkflow(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+workflowColumns+` FROM offboarding_workflows WHERE id = $1`,
		uuid.UUID(workflowID))
	return scanWorkflow(row)
}

func (s *PgStore) FindOpenByEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.Workflow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+workflowColumns+` FROM offboarding_workflows
		WHERE employee_id = $1 AND status IN ('PENDING', 'IN_PROGRESS')`,
		uuid.UUID(employeeID))
	return scanWorkflow(row)
}

// UpdateWorkflow writes wf only if the stored status still equals expect.
func (s *PgStore) UpdateWorkflow(ctx context.Context, wf *models.Workflow, expect models.WorkflowStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE offboarding_workflows SET
			status = $2,
			updated_at = $3,
			completed_at = $4,
			cancelled_at = $5
		WHERE id = $1 AND status = $6`,
		uuid.UUID(wf.ID), wf.Status, wf.UpdatedAt, wf.CompletedAt, wf.CancelledAt, expect,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflow %s is no longer %s: %w", wf.ID, expect, sentinel.ErrInvalidState)
	}
	return nil
}

// CompleteIfOpen reports whether this call moved the workflow to COMPLETED.
func (s *PgStore) CompleteIfOpen(ctx context.Context, workflowID id.WorkflowID, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE offboarding_workflows
		SET status = 'COMPLETED', completed_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('PENDING', 'IN_PROGRESS')`,
		uuid.UUID(workflowID), now,
	)
	if err != nil {
		return false, fmt.Errorf("complete workflow: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) ListDue(ctx context.Context, now time.Time) ([]*models.Workflow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+workflowColumns+` FROM offboarding_workflows
		WHERE status = 'PENDING' AND scheduled_for <= $1
		ORDER BY scheduled_for`, now)
	if err != nil {
		return nil, fmt.Errorf("query due workflows: %w", err)
	}
	defer rows.Close()

	var out []*models.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

func (s *PgStore) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM offboarding_workflows WHERE status IN ('PENDING', 'IN_PROGRESS')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open workflows: %w", err)
	}
	return n, nil
}

func (s *PgStore) FindTask(ctx context.Context, taskID id.TaskID) (*models.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM offboarding_tasks WHERE id = $1`, uuid.UUID(taskID))
	return scanTask(row)
}

func (s *PgStore) ListTasks(ctx context.Context, workflowID id.WorkflowID) ([]*models.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM offboarding_tasks
		WHERE workflow_id = $1
		ORDER BY sort_order`, uuid.UUID(workflowID))
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTask writes t only if the stored status still equals expect.
func (s *PgStore) UpdateTask(ctx context.Context, t *models.Task, expect models.TaskStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE offboarding_tasks SET
			status = $2,
			attempts = $3,
			last_attempt_at = $4,
			status_message = $5,
			notes = $6,
			completed_by = $7,
			completed_at = $8
		WHERE id = $1 AND status = $9`,
		uuid.UUID(t.ID), t.Status, t.Attempts, t.LastAttemptAt, t.StatusMessage,
		t.Notes, t.CompletedBy, t.CompletedAt, expect,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s is no longer %s: %w", t.ID, expect, sentinel.ErrInvalidState)
	}
	return nil
}

func scanWorkflow(row pgx.Row) (*models.Workflow, error) {
	var (
		wf              models.Workflow
		rawID, rawEmpID uuid.UUID
		options         []byte
	)
	err := row.Scan(&rawID, &rawEmpID, &wf.Status, &wf.ScheduledFor, &wf.Immediate, &options,
		&wf.Reason, &wf.CreatedBy, &wf.CreatedAt, &wf.UpdatedAt, &wf.CompletedAt, &wf.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}
	wf.ID = id.WorkflowID(rawID)
	wf.EmployeeID = id.EmployeeID(rawEmpID)
	if len(options) > 0 {
		if err := json.Unmarshal(options, &wf.Options); err != nil {
			return nil, fmt.Errorf("unmarshal workflow %s options: %w", wf.ID, err)
		}
	}
	return &wf, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var (
		t              models.Task
		rawID, rawWfID uuid.UUID
		integrationID  *uuid.UUID
	)
	err := row.Scan(&rawID, &rawWfID, &t.Name, &t.Description, &t.Type, &t.AutomationKind,
		&integrationID, &t.Status, &t.SortOrder, &t.Attempts, &t.LastAttemptAt, &t.StatusMessage,
		&t.Notes, &t.CompletedBy, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.ID = id.TaskID(rawID)
	t.WorkflowID = id.WorkflowID(rawWfID)
	if integrationID != nil {
		v := id.IntegrationID(*integrationID)
		t.IntegrationID = &v
	}
	return &t, nil
}
