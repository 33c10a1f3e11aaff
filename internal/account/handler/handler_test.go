package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/handler/mocks"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/service"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type AccountHandlerSuite struct {
	suite.Suite
	service    *mocks.MockService
	router     chi.Router
	employeeID id.EmployeeID
	integ      *integration.Integration
}

func TestAccountHandlerSuite(t *testing.T) {
	suite.Run(t, new(AccountHandlerSuite))
}

func (s *AccountHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)

	s.employeeID = id.EmployeeID(uuid.New())
	integ, err := integration.NewIntegration(id.IntegrationID(uuid.New()), integration.ProviderSlack, "")
	s.Require().NoError(err)
	s.integ = integ
}

func (s *AccountHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AccountHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// =============================================================================
// Provision
// =============================================================================

func (s *AccountHandlerSuite) TestProvision() {
	path := "/admin/employees/" + s.employeeID.String() + "/provision/slack"

	s.Run("active account returns 200", func() {
		s.service.EXPECT().Provision(gomock.Any(), s.employeeID, "slack").Return(&service.ProvisionResult{
			IntegrationID: s.integ.ID,
			Provider:      s.integ.Provider,
			Success:       true,
		}, nil)

		w := s.do(http.MethodPost, path, "")
		s.Equal(http.StatusOK, w.Code)
		s.Equal(true, s.decode(w)["success"])
	})

	s.Run("pending invitation returns 202", func() {
		s.service.EXPECT().Provision(gomock.Any(), s.employeeID, "slack").Return(&service.ProvisionResult{
			Success: true,
			Pending: true,
		}, nil)

		w := s.do(http.MethodPost, path, "")
		s.Equal(http.StatusAccepted, w.Code)
	})

	s.Run("provider failure returns 502 with category", func() {
		s.service.EXPECT().Provision(gomock.Any(), s.employeeID, "slack").Return(&service.ProvisionResult{
			Success:   false,
			Message:   "user not found",
			Category:  connector.CategoryNotFound,
			Retryable: false,
		}, nil)

		w := s.do(http.MethodPost, path, "")
		s.Equal(http.StatusBadGateway, w.Code)
		s.Equal(string(connector.CategoryNotFound), s.decode(w)["category"])
	})

	s.Run("unknown integration maps to 400", func() {
		s.service.EXPECT().Provision(gomock.Any(), s.employeeID, "slack").
			Return(nil, dErrors.New(dErrors.CodeBadRequest, "unknown integration slack"))

		w := s.do(http.MethodPost, path, "")
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("bad_request", s.decode(w)["error"])
	})

	s.Run("malformed employee id", func() {
		w := s.do(http.MethodPost, "/admin/employees/not-a-uuid/provision/slack", "")
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("invalid_input", s.decode(w)["error"])
	})

	s.Run("provision all", func() {
		s.service.EXPECT().ProvisionAll(gomock.Any(), s.employeeID).Return([]*service.ProvisionResult{
			{Provider: integration.ProviderSlack, Success: true},
		}, nil)

		w := s.do(http.MethodPost, "/admin/employees/"+s.employeeID.String()+"/provision", "")
		s.Equal(http.StatusOK, w.Code)
		s.Len(s.decode(w)["results"], 1)
	})
}

// =============================================================================
// Deprovision
// =============================================================================

func (s *AccountHandlerSuite) TestDeprovision() {
	path := "/admin/employees/" + s.employeeID.String() + "/deprovision/" + s.integ.ID.String()

	s.Run("passes options through", func() {
		s.service.EXPECT().ResolveIntegration(gomock.Any(), s.integ.ID.String()).Return(s.integ, nil)
		s.service.EXPECT().Deprovision(gomock.Any(), s.employeeID, s.integ.ID, models.DeprovisionOptions{
			SuspendInsteadOfDelete: true,
			DataTransferTo:         "manager@example.com",
		}).Return(&service.DeprovisionResult{Success: true, Status: models.StatusDisabled}, nil)

		w := s.do(http.MethodPost, path, `{"suspendInsteadOfDelete":true,"dataTransferTo":"manager@example.com"}`)
		s.Equal(http.StatusOK, w.Code)
		s.Equal(string(models.StatusDisabled), s.decode(w)["status"])
	})

	s.Run("unknown body field is rejected", func() {
		w := s.do(http.MethodPost, path, `{"purge":true}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("missing integration", func() {
		s.service.EXPECT().ResolveIntegration(gomock.Any(), "github").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "no enabled integration for github"))

		w := s.do(http.MethodPost, "/admin/employees/"+s.employeeID.String()+"/deprovision/github", "")
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("deprovision all", func() {
		s.service.EXPECT().DeprovisionAll(gomock.Any(), s.employeeID, models.DeprovisionOptions{}).
			Return([]*service.DeprovisionResult{{Success: true}, {Success: false, Retryable: true}}, nil)

		w := s.do(http.MethodPost, "/admin/employees/"+s.employeeID.String()+"/deprovision", "")
		s.Equal(http.StatusOK, w.Code)
		s.Len(s.decode(w)["results"], 2)
	})
}

// =============================================================================
// Connection test
// =============================================================================

func (s *AccountHandlerSuite) TestTestConnection() {
	path := "/admin/integrations/" + s.integ.ID.String() + "/test"

	s.Run("healthy", func() {
		s.service.EXPECT().TestConnection(gomock.Any(), s.integ.ID).Return(connector.TestOK("connected as bot"), nil)

		w := s.do(http.MethodPost, path, "")
		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal(true, body["success"])
		s.Equal("connected as bot", body["message"])
	})

	s.Run("unhealthy reports category", func() {
		s.service.EXPECT().TestConnection(gomock.Any(), s.integ.ID).Return(
			connector.TestFailed(connector.NewError(integration.ProviderSlack, connector.CategoryAuthentication, "invalid_auth")), nil)

		w := s.do(http.MethodPost, path, "")
		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal(false, body["success"])
		s.Equal(string(connector.CategoryAuthentication), body["category"])
	})

	s.Run("internal error hides detail", func() {
		s.service.EXPECT().TestConnection(gomock.Any(), s.integ.ID).
			Return(connector.TestResult{}, dErrors.New(dErrors.CodeInternal, "db down"))

		w := s.do(http.MethodPost, path, "")
		s.Equal(http.StatusInternalServerError, w.Code)
		s.NotContains(w.Body.String(), "db down")
	})
}
