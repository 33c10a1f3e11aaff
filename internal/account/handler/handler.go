package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/service"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/httputil"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/requestcontext"
)

// Service defines the account lifecycle operations exposed over HTTP.
type Service interface {
	ResolveIntegration(ctx context.Context, ref string) (*integration.Integration, error)
	Provision(ctx context.Context, employeeID id.EmployeeID, integrationRef string) (*service.ProvisionResult, error)
	ProvisionAll(ctx context.Context, employeeID id.EmployeeID) ([]*service.ProvisionResult, error)
	Deprovision(ctx context.Context, employeeID id.EmployeeID, integrationID id.IntegrationID, opts models.DeprovisionOptions) (*service.DeprovisionResult, error)
	DeprovisionAll(ctx context.Context, employeeID id.EmployeeID, opts models.DeprovisionOptions) ([]*service.DeprovisionResult, error)
	TestConnection(ctx context.Context, integrationID id.IntegrationID) (connector.TestResult, error)
}

// Handler serves the account admin endpoints.
type Handler struct {
	logger   *slog.Logger
	accounts Service
}

// New creates a new account Handler.
func New(accounts Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, accounts: accounts}
}

// Register mounts the account routes on r. Authentication is applied by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/employees/{id}/provision", h.handleProvisionAll)
	r.Post("/admin/employees/{id}/provision/{integration}", h.handleProvision)
	r.Post("/admin/employees/{id}/deprovision", h.handleDeprovisionAll)
	r.Post("/admin/employees/{id}/deprovision/{integration}", h.handleDeprovision)
	r.Post("/admin/integrations/{id}/test", h.handleTestConnection)
}

// TestConnectionResponse is the body of a connection test.
type TestConnectionResponse struct {
	Success   bool               `json:"success"`
	Message   string             `json:"message"`
	Category  connector.Category `json:"category,omitempty"`
	Retryable bool               `json:"retryable,omitempty"`
}

func (h *Handler) handleProvision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, err := id.ParseEmployeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.accounts.Provision(ctx, employeeID, chi.URLParam(r, "integration"))
	if err != nil {
		h.writeServiceError(ctx, w, "provision", err)
		return
	}
	httputil.WriteJSON(w, provisionStatus(res), res)
}

func (h *Handler) handleProvisionAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, err := id.ParseEmployeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	results, err := h.accounts.ProvisionAll(ctx, employeeID)
	if err != nil {
		h.writeServiceError(ctx, w, "provision all", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleDeprovision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, err := id.ParseEmployeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var opts models.DeprovisionOptions
	if err := httputil.DecodeJSON(r, &opts); err != nil {
		httputil.WriteError(w, err)
		return
	}

	integ, err := h.accounts.ResolveIntegration(ctx, chi.URLParam(r, "integration"))
	if err != nil {
		h.writeServiceError(ctx, w, "resolve integration", err)
		return
	}
	res, err := h.accounts.Deprovision(ctx, employeeID, integ.ID, opts)
	if err != nil {
		h.writeServiceError(ctx, w, "deprovision", err)
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	httputil.WriteJSON(w, status, res)
}

func (h *Handler) handleDeprovisionAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, err := id.ParseEmployeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var opts models.DeprovisionOptions
	if err := httputil.DecodeJSON(r, &opts); err != nil {
		httputil.WriteError(w, err)
		return
	}

	results, err := h.accounts.DeprovisionAll(ctx, employeeID, opts)
	if err != nil {
		h.writeServiceError(ctx, w, "deprovision all", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	integrationID, err := id.ParseIntegrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.accounts.TestConnection(ctx, integrationID)
	if err != nil {
		h.writeServiceError(ctx, w, "test connection", err)
		return
	}
	resp := TestConnectionResponse{Success: res.Success, Message: res.Message}
	if res.Err != nil {
		resp.Category = res.Err.Category
		resp.Retryable = res.Err.Retryable
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// provisionStatus is 200 for an active account, 202 while an invitation is
// outstanding and 502 when the provider rejected the call.
func provisionStatus(res *service.ProvisionResult) int {
	switch {
	case res.Pending:
		return http.StatusAccepted
	case res.Success:
		return http.StatusOK
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "account "+op+" failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
