// Package service runs offboarding workflows: it expands task templates for
// an employee, executes automated revocations and completes the workflow once
// every task is resolved.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	accountservice "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/service"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/metrics"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/tracing"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/attrs"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
	audit "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/audit"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/requestcontext"
)

const (
	DefaultParallelism = 4
	// DefaultStaleAfter is how long an IN_PROGRESS task may go without an
	// outcome before it is treated as an interrupted attempt.
	DefaultStaleAfter = 15 * time.Minute
)

type WorkflowStore interface {
	Create(ctx context.Context, wf *models.Workflow, tasks []*models.Task) error
	FindWorkflow(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error)
	FindOpenByEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.Workflow, error)
	UpdateWorkflow(ctx context.Context, wf *models.Workflow, expect models.WorkflowStatus) error
	CompleteIfOpen(ctx context.Context, workflowID id.WorkflowID, now time.Time) (bool, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Workflow, error)
	CountOpen(ctx context.Context) (int, error)
	FindTask(ctx context.Context, taskID id.TaskID) (*models.Task, error)
	ListTasks(ctx context.Context, workflowID id.WorkflowID) ([]*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task, expect models.TaskStatus) error
}

type TemplateStore interface {
	ListActive(ctx context.Context) ([]*models.Template, error)
}

type EmployeeStore interface {
	FindByID(ctx context.Context, employeeID id.EmployeeID) (*employee.Employee, error)
	Save(ctx context.Context, e *employee.Employee) error
}

type IntegrationStore interface {
	FindByID(ctx context.Context, integrationID id.IntegrationID) (*integration.Integration, error)
	FindUsableByProvider(ctx context.Context, provider integration.Provider) (*integration.Integration, error)
}

type AccountStore interface {
	Find(ctx context.Context, employeeID id.EmployeeID, integrationID id.IntegrationID) (*account.AppAccount, error)
	ListByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*account.AppAccount, error)
}

// Deprovisioner revokes one integration through the account lifecycle.
type Deprovisioner interface {
	Deprovision(ctx context.Context, employeeID id.EmployeeID, integrationID id.IntegrationID, opts account.DeprovisionOptions) (*accountservice.DeprovisionResult, error)
}

type ConnectorResolver interface {
	Resolve(ctx context.Context, in *integration.Integration) (connector.Connector, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	workflows    WorkflowStore
	templates    TemplateStore
	employees    EmployeeStore
	integrations IntegrationStore
	accounts     AccountStore
	deprovision  Deprovisioner
	resolver     ConnectorResolver

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	parallelism    int
	timeout        time.Duration
	staleAfter     time.Duration
	now            func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithParallelism caps concurrent automated tasks of one workflow.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithTimeout bounds direct connector calls made by REMOVE_FROM_STANDUP tasks.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithStaleAfter sets how long an IN_PROGRESS task may sit before it can be
// re-run or skipped.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Dependencies groups the stores and collaborators the engine needs.
type Dependencies struct {
	Workflows     WorkflowStore
	Templates     TemplateStore
	Employees     EmployeeStore
	Integrations  IntegrationStore
	Accounts      AccountStore
	Deprovisioner Deprovisioner
	Resolver      ConnectorResolver
}

func New(deps Dependencies, opts ...Option) (*Service, error) {
	switch {
	case deps.Workflows == nil:
		return nil, errors.New("workflow store is required")
	case deps.Templates == nil:
		return nil, errors.New("template store is required")
	case deps.Employees == nil:
		return nil, errors.New("employee store is required")
	case deps.Integrations == nil:
		return nil, errors.New("integration store is required")
	case deps.Accounts == nil:
		return nil, errors.New("account store is required")
	case deps.Deprovisioner == nil:
		return nil, errors.New("deprovisioner is required")
	case deps.Resolver == nil:
		return nil, errors.New("connector resolver is required")
	}
	s := &Service{
		workflows:    deps.Workflows,
		templates:    deps.Templates,
		employees:    deps.Employees,
		integrations: deps.Integrations,
		accounts:     deps.Accounts,
		deprovision:  deps.Deprovisioner,
		resolver:     deps.Resolver,
		logger:       slog.Default(),
		parallelism:  DefaultParallelism,
		timeout:      connector.DefaultTimeout,
		staleAfter:   DefaultStaleAfter,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StartRequest opens an offboarding workflow.
type StartRequest struct {
	EmployeeID   id.EmployeeID              `json:"employeeId"`
	ScheduledFor time.Time                  `json:"scheduledFor"`
	Immediate    bool                       `json:"immediate"`
	Options      account.DeprovisionOptions `json:"options"`
	Reason       string                     `json:"reason"`
}

// TaskRunResult is the outcome of one automated task attempt.
type TaskRunResult struct {
	TaskID            id.TaskID         `json:"taskId"`
	Status            models.TaskStatus `json:"status"`
	Success           bool              `json:"success"`
	Message           string            `json:"message,omitempty"`
	Attempts          int               `json:"attempts"`
	WorkflowCompleted bool              `json:"workflowCompleted"`
}

func (s *Service) findEmployee(ctx context.Context, employeeID id.EmployeeID) (*employee.Employee, error) {
	emp, err := s.employees.FindByID(ctx, employeeID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "employee not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load employee")
	}
	return emp, nil
}

func (s *Service) findWorkflow(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	wf, err := s.workflows.FindWorkflow(ctx, workflowID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "workflow not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load workflow")
	}
	return wf, nil
}

func (s *Service) findTask(ctx context.Context, taskID id.TaskID) (*models.Task, error) {
	t, err := s.workflows.FindTask(ctx, taskID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "task not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load task")
	}
	return t, nil
}

// updateTask maps a lost compare-and-set to CodeInvalidState.
func (s *Service) updateTask(ctx context.Context, t *models.Task, expect models.TaskStatus) error {
	err := s.workflows.UpdateTask(ctx, t, expect)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.New(dErrors.CodeInvalidState, "task was changed concurrently")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save task")
	}
	return nil
}

// BuildTasks expands the active templates for emp and adds a revocation task
// for every active account no template covers.
func (s *Service) BuildTasks(ctx context.Context, emp *employee.Employee, workflowID id.WorkflowID) ([]*models.Task, error) {
	templates, err := s.templates.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load task templates")
	}

	covered := make(map[id.IntegrationID]bool)
	tasks := make([]*models.Task, 0, len(templates))
	for _, tmpl := range templates {
		t := &models.Task{
			ID:             id.TaskID(uuid.New()),
			WorkflowID:     workflowID,
			Name:           tmpl.Name,
			Description:    tmpl.Description,
			Type:           tmpl.Type,
			AutomationKind: tmpl.AutomationKind,
			Status:         models.TaskPending,
		}
		if tmpl.Type == models.TaskAutomated {
			in, err := s.templateIntegration(ctx, tmpl)
			if err != nil {
				return nil, err
			}
			if in != nil {
				integrationID := in.ID
				t.IntegrationID = &integrationID
				covered[in.ID] = true
			}
		}
		tasks = append(tasks, t)
	}

	accounts, err := s.accounts.ListByEmployee(ctx, emp.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts")
	}
	for _, acct := range accounts {
		if acct.Status != account.StatusActive || covered[acct.IntegrationID] {
			continue
		}
		name := "Revoke integration " + acct.IntegrationID.String()
		if in, err := s.integrations.FindByID(ctx, acct.IntegrationID); err == nil {
			name = "Revoke " + in.Name
		}
		integrationID := acct.IntegrationID
		tasks = append(tasks, &models.Task{
			ID:             id.TaskID(uuid.New()),
			WorkflowID:     workflowID,
			Name:           name,
			Type:           models.TaskAutomated,
			AutomationKind: models.KindDeprovisionIntegration,
			IntegrationID:  &integrationID,
			Status:         models.TaskPending,
		})
		covered[acct.IntegrationID] = true
	}

	for i, t := range tasks {
		t.SortOrder = i + 1
	}
	return tasks, nil
}

// templateIntegration resolves an AUTOMATED template's integration. A nil
// result leaves the task unbound; running it fails with a configuration error.
func (s *Service) templateIntegration(ctx context.Context, tmpl *models.Template) (*integration.Integration, error) {
	if tmpl.IntegrationID != nil {
		in, err := s.integrations.FindByID(ctx, *tmpl.IntegrationID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load integration")
		}
		return in, nil
	}
	providerName := tmpl.Provider
	if providerName == "" && tmpl.AutomationKind == models.KindRemoveFromStandup {
		providerName = string(integration.ProviderStandup)
	}
	if providerName == "" {
		return nil, nil
	}
	provider, err := integration.ParseProvider(providerName)
	if err != nil {
		s.logger.WarnContext(ctx, "template names an unknown provider",
			"template_id", tmpl.ID.String(), "provider", providerName)
		return nil, nil
	}
	in, err := s.integrations.FindUsableByProvider(ctx, provider)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load integration")
	}
	return in, nil
}

// Start opens a workflow for the employee. Immediate workflows run their
// automated tasks before returning.
func (s *Service) Start(ctx context.Context, req StartRequest) (*models.WorkflowDetails, error) {
	emp, err := s.findEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp.IsExited() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "employee has already exited")
	}
	if _, err := s.workflows.FindOpenByEmployee(ctx, emp.ID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "employee already has an open offboarding workflow")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check open workflows")
	}

	now := s.now()
	opts := req.Options
	if req.Reason != "" {
		opts.Reason = req.Reason
	}
	wf, err := models.NewWorkflow(id.WorkflowID(uuid.New()), emp.ID, req.ScheduledFor, req.Immediate, opts,
		requestcontext.ActorID(ctx), now)
	if err != nil {
		return nil, err
	}
	tasks, err := s.BuildTasks(ctx, emp, wf.ID)
	if err != nil {
		return nil, err
	}
	if err := emp.StartOffboarding(wf.ScheduledFor, now); err != nil {
		return nil, err
	}

	err = s.workflows.Create(ctx, wf, tasks)
	if errors.Is(err, sentinel.ErrConflict) {
		return nil, dErrors.New(dErrors.CodeConflict, "employee already has an open offboarding workflow")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create workflow")
	}

	if err := s.employees.Save(ctx, emp); err != nil {
		s.abandon(ctx, wf)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save employee")
	}
	s.logAudit(ctx, string(audit.EventOffboardingStarted),
		"workflow_id", wf.ID.String(),
		"employee_id", emp.ID.String(),
		"reason", wf.Reason,
		"tasks", fmt.Sprint(len(tasks)),
	)
	s.refreshOpenGauge(ctx)

	if wf.Immediate {
		s.markInProgress(ctx, wf)
		s.runAutomated(ctx, wf, emp, tasks)
		if len(tasks) == 0 {
			if _, err := s.checkCompletion(ctx, wf.ID); err != nil {
				return nil, err
			}
		}
	}
	return s.Get(ctx, wf.ID)
}

// abandon cancels a workflow whose employee could not be moved to
// OFFBOARDING so it does not block the next Start. The workflow and employee
// stores do not share a transaction.
func (s *Service) abandon(ctx context.Context, wf *models.Workflow) {
	prev := wf.Status
	wf.ApplyCancel(s.now())
	err := s.workflows.UpdateWorkflow(context.WithoutCancel(ctx), wf, prev)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to abandon workflow",
			"workflow_id", wf.ID.String(), "error", err)
	}
}

// runAutomated runs the PENDING and FAILED automated tasks with bounded
// parallelism. Each task records its own outcome; one failure never cancels
// its siblings.
func (s *Service) runAutomated(ctx context.Context, wf *models.Workflow, emp *employee.Employee, tasks []*models.Task) {
	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for _, t := range tasks {
		if !t.IsAutomated() || t.CanStart() != nil {
			continue
		}
		g.Go(func() error {
			res, err := s.runTask(ctx, *wf, emp, t)
			switch {
			case err != nil:
				s.logger.ErrorContext(ctx, "offboarding task errored",
					"workflow_id", wf.ID.String(), "task_id", t.ID.String(), "error", err)
			case !res.Success:
				s.logger.WarnContext(ctx, "offboarding task failed",
					"workflow_id", wf.ID.String(), "task_id", t.ID.String(), "message", res.Message)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// RunAutomatedTask runs or re-runs one AUTOMATED task.
func (s *Service) RunAutomatedTask(ctx context.Context, taskID id.TaskID) (*TaskRunResult, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.releaseStale(ctx, task); err != nil {
		return nil, err
	}
	if err := task.CanStart(); err != nil {
		return nil, err
	}
	wf, err := s.findWorkflow(ctx, task.WorkflowID)
	if err != nil {
		return nil, err
	}
	if err := wf.CanRunTasks(); err != nil {
		return nil, err
	}
	emp, err := s.findEmployee(ctx, wf.EmployeeID)
	if err != nil {
		return nil, err
	}
	s.markInProgress(ctx, wf)
	return s.runTask(ctx, *wf, emp, task)
}

func (s *Service) runTask(ctx context.Context, wf models.Workflow, emp *employee.Employee, task *models.Task) (*TaskRunResult, error) {
	ctx, span := tracing.StartSpan(ctx, "offboarding.run_task",
		tracing.AttrWorkflowID.String(wf.ID.String()),
		tracing.AttrTaskID.String(task.ID.String()),
		tracing.AttrEmployeeID.String(emp.ID.String()),
	)

	prev := task.Status
	task.ApplyStart(s.now())
	if err := s.updateTask(ctx, task, prev); err != nil {
		tracing.EndSpan(span, false, err)
		return nil, err
	}

	ok, message := s.dispatch(ctx, wf, emp, task)
	event, outcome := audit.EventTaskSucceeded, metrics.OutcomeSuccess
	if ok {
		task.Succeed(message, s.now())
	} else {
		task.Fail(message)
		event, outcome = audit.EventTaskFailed, metrics.OutcomeFailure
	}
	// The external side effect already happened; record it even when the
	// caller has gone away.
	ctx = context.WithoutCancel(ctx)
	if err := s.updateTask(ctx, task, models.TaskInProgress); err != nil {
		tracing.EndSpan(span, false, err)
		return nil, err
	}
	tracing.EndSpan(span, ok, nil)

	if s.metrics != nil {
		s.metrics.IncTask(string(task.AutomationKind), outcome)
	}
	s.logAudit(ctx, string(event),
		"workflow_id", wf.ID.String(),
		"task_id", task.ID.String(),
		"employee_id", emp.ID.String(),
		"kind", string(task.AutomationKind),
		"reason", message,
	)

	completed, err := s.checkCompletion(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	return &TaskRunResult{
		TaskID:            task.ID,
		Status:            task.Status,
		Success:           ok,
		Message:           message,
		Attempts:          task.Attempts,
		WorkflowCompleted: completed,
	}, nil
}

// dispatch performs the task's action and reports success with a message.
func (s *Service) dispatch(ctx context.Context, wf models.Workflow, emp *employee.Employee, task *models.Task) (bool, string) {
	if task.IntegrationID == nil {
		return false, "no integration is configured for this task"
	}
	switch task.AutomationKind {
	case models.KindDeprovisionIntegration, "":
		res, err := s.deprovision.Deprovision(ctx, emp.ID, *task.IntegrationID, wf.Options)
		if err != nil {
			return false, err.Error()
		}
		return res.Success, res.Message
	case models.KindRemoveFromStandup:
		return s.removeFromStandup(ctx, wf, emp, *task.IntegrationID)
	default:
		return false, fmt.Sprintf("unknown automation kind %q", task.AutomationKind)
	}
}

func (s *Service) removeFromStandup(ctx context.Context, wf models.Workflow, emp *employee.Employee, integrationID id.IntegrationID) (bool, string) {
	in, err := s.integrations.FindByID(ctx, integrationID)
	if err != nil {
		return false, "standup integration could not be loaded: " + err.Error()
	}
	conn, err := s.resolver.Resolve(ctx, in)
	if err != nil {
		return false, err.Error()
	}
	if conn == nil {
		return false, "standup integration is not configured"
	}
	acct, err := s.accounts.Find(ctx, emp.ID, in.ID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return false, err.Error()
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res := conn.Deprovision(callCtx, connector.DeprovisionRequest{
		Employee:    emp,
		Integration: in,
		Account:     acct,
		Options:     wf.Options,
	})
	return res.Success && res.Err == nil, res.Message()
}

// CompleteManualTask marks a MANUAL task done.
func (s *Service) CompleteManualTask(ctx context.Context, taskID id.TaskID, notes, actor string) (*models.Task, error) {
	task, wf, err := s.loadOpenTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := task.CanComplete(); err != nil {
		return nil, err
	}
	prev := task.Status
	task.ApplyComplete(notes, s.actor(ctx, actor), s.now())
	if err := s.updateTask(ctx, task, prev); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncTask(string(task.AutomationKind), metrics.OutcomeCompleted)
	}
	s.logAudit(ctx, string(audit.EventTaskCompleted),
		"workflow_id", wf.ID.String(),
		"task_id", task.ID.String(),
		"employee_id", wf.EmployeeID.String(),
		"reason", task.Notes,
	)
	if _, err := s.checkCompletion(ctx, wf.ID); err != nil {
		return nil, err
	}
	return task, nil
}

// SkipTask resolves any non-terminal task without running it.
func (s *Service) SkipTask(ctx context.Context, taskID id.TaskID, reason, actor string) (*models.Task, error) {
	task, wf, err := s.loadOpenTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.releaseStale(ctx, task); err != nil {
		return nil, err
	}
	if err := task.CanSkip(reason); err != nil {
		return nil, err
	}
	prev := task.Status
	task.ApplySkip(reason, s.actor(ctx, actor), s.now())
	if err := s.updateTask(ctx, task, prev); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncTask(string(task.AutomationKind), metrics.OutcomeSkipped)
	}
	s.logAudit(ctx, string(audit.EventTaskSkipped),
		"workflow_id", wf.ID.String(),
		"task_id", task.ID.String(),
		"employee_id", wf.EmployeeID.String(),
		"reason", task.Notes,
	)
	if _, err := s.checkCompletion(ctx, wf.ID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) loadOpenTask(ctx context.Context, taskID id.TaskID) (*models.Task, *models.Workflow, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	wf, err := s.findWorkflow(ctx, task.WorkflowID)
	if err != nil {
		return nil, nil, err
	}
	if err := wf.CanRunTasks(); err != nil {
		return nil, nil, err
	}
	return task, wf, nil
}

// releaseStale fails an IN_PROGRESS task whose attempt started more than
// staleAfter ago, so it can be re-run or skipped.
func (s *Service) releaseStale(ctx context.Context, task *models.Task) error {
	if !task.IsStale(s.now(), s.staleAfter) {
		return nil
	}
	task.Fail("previous attempt did not record an outcome")
	if err := s.updateTask(ctx, task, models.TaskInProgress); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "released stale offboarding task",
		"workflow_id", task.WorkflowID.String(), "task_id", task.ID.String(), "attempts", task.Attempts)
	return nil
}

func (s *Service) actor(ctx context.Context, actor string) string {
	if actor != "" {
		return actor
	}
	return requestcontext.ActorID(ctx)
}

// RetryFailed re-runs every FAILED automated task of the workflow in sort
// order, including stale IN_PROGRESS tasks.
func (s *Service) RetryFailed(ctx context.Context, workflowID id.WorkflowID) ([]*TaskRunResult, error) {
	wf, err := s.findWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if err := wf.CanRunTasks(); err != nil {
		return nil, err
	}
	emp, err := s.findEmployee(ctx, wf.EmployeeID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.workflows.ListTasks(ctx, wf.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tasks")
	}
	s.markInProgress(ctx, wf)

	var results []*TaskRunResult
	for _, t := range tasks {
		if !t.IsAutomated() {
			continue
		}
		if err := s.releaseStale(ctx, t); err != nil {
			return results, err
		}
		if t.Status != models.TaskFailed {
			continue
		}
		res, err := s.runTask(ctx, *wf, emp, t)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Cancel stops an open workflow and returns the employee to ACTIVE. Tasks
// keep their current status.
func (s *Service) Cancel(ctx context.Context, workflowID id.WorkflowID, actor string) (*models.Workflow, error) {
	wf, err := s.findWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if err := wf.CanCancel(); err != nil {
		return nil, err
	}
	prev := wf.Status
	now := s.now()
	wf.ApplyCancel(now)
	err = s.workflows.UpdateWorkflow(ctx, wf, prev)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "workflow was changed concurrently")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel workflow")
	}

	emp, err := s.findEmployee(ctx, wf.EmployeeID)
	if err != nil {
		return nil, err
	}
	emp.CancelOffboarding(now)
	if err := s.employees.Save(ctx, emp); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save employee")
	}
	s.logAudit(ctx, string(audit.EventOffboardingCancelled),
		"workflow_id", wf.ID.String(),
		"employee_id", emp.ID.String(),
		"actor", s.actor(ctx, actor),
	)
	s.refreshOpenGauge(ctx)
	return wf, nil
}

// ProcessScheduled starts every PENDING workflow whose date has arrived and
// returns how many were processed.
func (s *Service) ProcessScheduled(ctx context.Context, now time.Time) (int, error) {
	due, err := s.workflows.ListDue(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list due workflows")
	}
	processed := 0
	for _, wf := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		emp, err := s.findEmployee(ctx, wf.EmployeeID)
		if err != nil {
			s.logger.ErrorContext(ctx, "scheduled workflow has no employee",
				"workflow_id", wf.ID.String(), "error", err)
			continue
		}
		tasks, err := s.workflows.ListTasks(ctx, wf.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to list scheduled workflow tasks",
				"workflow_id", wf.ID.String(), "error", err)
			continue
		}
		s.markInProgress(ctx, wf)

		var pending []*models.Task
		for _, t := range tasks {
			if t.IsAutomated() && t.Status == models.TaskPending {
				pending = append(pending, t)
			}
		}
		if len(pending) > 0 {
			s.runAutomated(ctx, wf, emp, pending)
		} else if _, err := s.checkCompletion(ctx, wf.ID); err != nil {
			s.logger.ErrorContext(ctx, "completion check failed",
				"workflow_id", wf.ID.String(), "error", err)
		}
		processed++
	}
	return processed, nil
}

// Get returns the workflow with its tasks in sort order.
func (s *Service) Get(ctx context.Context, workflowID id.WorkflowID) (*models.WorkflowDetails, error) {
	wf, err := s.findWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.workflows.ListTasks(ctx, wf.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tasks")
	}
	return &models.WorkflowDetails{Workflow: wf, Tasks: tasks}, nil
}

// markInProgress moves a PENDING workflow to IN_PROGRESS. Losing the race to
// another writer is fine.
func (s *Service) markInProgress(ctx context.Context, wf *models.Workflow) {
	if !wf.MarkInProgress(s.now()) {
		return
	}
	err := s.workflows.UpdateWorkflow(ctx, wf, models.WorkflowPending)
	if err != nil && !errors.Is(err, sentinel.ErrInvalidState) {
		s.logger.ErrorContext(ctx, "failed to mark workflow in progress",
			"workflow_id", wf.ID.String(), "error", err)
	}
}

// checkCompletion completes the workflow once no task is open. Only the
// caller that wins the compare-and-set exits the employee and emits the
// completion event.
func (s *Service) checkCompletion(ctx context.Context, workflowID id.WorkflowID) (bool, error) {
	tasks, err := s.workflows.ListTasks(ctx, workflowID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tasks")
	}
	if !models.AllResolved(tasks) {
		return false, nil
	}
	now := s.now()
	won, err := s.workflows.CompleteIfOpen(ctx, workflowID, now)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete workflow")
	}
	if !won {
		return false, nil
	}

	wf, err := s.findWorkflow(ctx, workflowID)
	if err != nil {
		return true, err
	}
	emp, err := s.findEmployee(ctx, wf.EmployeeID)
	if err != nil {
		return true, err
	}
	emp.MarkExited(now)
	if err := s.employees.Save(ctx, emp); err != nil {
		return true, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save employee")
	}
	if s.metrics != nil {
		s.metrics.IncCompleted()
	}
	s.logAudit(ctx, string(audit.EventOffboardingCompleted),
		"workflow_id", wf.ID.String(),
		"employee_id", emp.ID.String(),
	)
	s.refreshOpenGauge(ctx)
	return true, nil
}

func (s *Service) refreshOpenGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	n, err := s.workflows.CountOpen(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to count open workflows", "error", err)
		return
	}
	s.metrics.SetOpen(n)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	decision := audit.DecisionSuccess
	if audit.AuditEvent(event) == audit.EventTaskFailed {
		decision = audit.DecisionFailure
	}
	resourceType, resourceID := audit.ResourceWorkflow, attrs.ExtractString(attributes, "workflow_id")
	if taskID := attrs.ExtractString(attributes, "task_id"); taskID != "" {
		resourceType, resourceID = audit.ResourceTask, taskID
	}
	metadata := attrs.Pick(attributes, "workflow_id", "kind", "tasks")
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:       event,
		ActorID:      attrs.ExtractString(attributes, "actor"),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		EmployeeID:   attrs.ExtractString(attributes, "employee_id"),
		Decision:     decision,
		Reason:       attrs.ExtractString(attributes, "reason"),
		Metadata:     metadata,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event", "event", event, "error", err)
	}
}
