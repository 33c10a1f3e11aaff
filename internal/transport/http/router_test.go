package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "github.com/CuracelDev/curacel-peoplev2-sub001/internal/jwt_token"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/middleware/auth"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/requestcontext"
)

type whoami struct{}

func (whoami) Register(r chi.Router) {
	r.Get("/admin/whoami", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(requestcontext.ActorID(r.Context())))
	})
}

func newTestRouter(t *testing.T, health ...HealthCheck) (http.Handler, *jwttoken.JWTService) {
	t.Helper()
	jwts := jwttoken.NewJWTService("router-test-key", "people", "people-admin")
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "people_router_test_total"}))

	return NewRouter(Config{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Validator: jwttoken.NewJWTServiceAdapter(jwts),
		Gatherer:  reg,
		Health:    health,
		Handlers:  []Registrar{whoami{}},
	}), jwts
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	router, jwts := newTestRouter(t)

	t.Run("no token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/whoami", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("token without admin role", func(t *testing.T) {
		token, err := jwts.GenerateAccessToken("viewer@example.com", []string{"viewer"}, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin token", func(t *testing.T) {
		token, err := jwts.GenerateAccessToken("ops@example.com", []string{auth.RoleAdmin}, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ops@example.com", w.Body.String())
	})
}

func TestRouter_PublicEndpoints(t *testing.T) {
	t.Run("metrics", func(t *testing.T) {
		router, _ := newTestRouter(t)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "people_router_test_total")
	})

	t.Run("healthy", func(t *testing.T) {
		router, _ := newTestRouter(t, HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","postgres":"ok"}`, w.Body.String())
	})

	t.Run("degraded", func(t *testing.T) {
		router, _ := newTestRouter(t, HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}
