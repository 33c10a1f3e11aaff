package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/service"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/httputil"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/requestcontext"
)

// Service defines the offboarding workflow operations exposed over HTTP.
type Service interface {
	Start(ctx context.Context, req service.StartRequest) (*models.WorkflowDetails, error)
	Get(ctx context.Context, workflowID id.WorkflowID) (*models.WorkflowDetails, error)
	Cancel(ctx context.Context, workflowID id.WorkflowID, actor string) (*models.Workflow, error)
	RetryFailed(ctx context.Context, workflowID id.WorkflowID) ([]*service.TaskRunResult, error)
	RunAutomatedTask(ctx context.Context, taskID id.TaskID) (*service.TaskRunResult, error)
	CompleteManualTask(ctx context.Context, taskID id.TaskID, notes, actor string) (*models.Task, error)
	SkipTask(ctx context.Context, taskID id.TaskID, reason, actor string) (*models.Task, error)
}

// Handler serves the offboarding admin endpoints.
type Handler struct {
	logger    *slog.Logger
	workflows Service
}

// New creates a new offboarding Handler.
func New(workflows Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, workflows: workflows}
}

// Register mounts the offboarding routes on r. Authentication is applied by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/employees/{id}/offboarding", h.handleStart)
	r.Route("/admin/offboarding", func(r chi.Router) {
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/cancel", h.handleCancel)
		r.Post("/{id}/retry", h.handleRetry)
		r.Post("/tasks/{id}/run", h.handleRunTask)
		r.Post("/tasks/{id}/complete", h.handleCompleteTask)
		r.Post("/tasks/{id}/skip", h.handleSkipTask)
	})
}

// StartOffboardingRequest is the body of POST /admin/employees/{id}/offboarding.
// A missing scheduledFor means now.
type StartOffboardingRequest struct {
	ScheduledFor *time.Time                 `json:"scheduledFor,omitempty"`
	Immediate    bool                       `json:"immediate"`
	Options      account.DeprovisionOptions `json:"options"`
	Reason       string                     `json:"reason,omitempty"`
}

// CompleteTaskRequest is the body of a manual task completion.
type CompleteTaskRequest struct {
	Notes string `json:"notes,omitempty"`
}

// SkipTaskRequest is the body of a task skip.
type SkipTaskRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, err := id.ParseEmployeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req StartOffboardingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	scheduledFor := requestcontext.Now(ctx)
	if req.ScheduledFor != nil {
		scheduledFor = *req.ScheduledFor
	}
	details, err := h.workflows.Start(ctx, service.StartRequest{
		EmployeeID:   employeeID,
		ScheduledFor: scheduledFor,
		Immediate:    req.Immediate,
		Options:      req.Options,
		Reason:       req.Reason,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "start", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, details)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	details, err := h.workflows.Get(ctx, workflowID)
	if err != nil {
		h.writeServiceError(ctx, w, "get", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	wf, err := h.workflows.Cancel(ctx, workflowID, requestcontext.ActorID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "cancel", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, wf)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	results, err := h.workflows.RetryFailed(ctx, workflowID)
	if err != nil {
		h.writeServiceError(ctx, w, "retry", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleRunTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, err := id.ParseTaskID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.workflows.RunAutomatedTask(ctx, taskID)
	if err != nil {
		h.writeServiceError(ctx, w, "run task", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, err := id.ParseTaskID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req CompleteTaskRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := h.workflows.CompleteManualTask(ctx, taskID, req.Notes, requestcontext.ActorID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "complete task", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) handleSkipTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, err := id.ParseTaskID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req SkipTaskRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := h.workflows.SkipTask(ctx, taskID, req.Reason, requestcontext.ActorID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "skip task", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "offboarding "+op+" failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.WarnContext(ctx, "offboarding "+op+" rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
