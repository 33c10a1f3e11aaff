// Package httptransport assembles the admin HTTP surface: middleware chain,
// feature handlers, health and metrics endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/httputil"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/middleware/auth"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/middleware/metadata"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/middleware/request"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/middleware/requesttime"
)

// Registrar is a feature handler that mounts its routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports a dependency failure. Name is used as the JSON key.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config collects what the router needs from main.
type Config struct {
	Logger      *slog.Logger
	Validator   auth.JWTValidator
	Revocations auth.TokenRevocationChecker
	Gatherer    prometheus.Gatherer
	Health      []HealthCheck
	Timeout     time.Duration
	Handlers    []Registrar
}

// NewRouter wires the public endpoints and the authenticated admin routes.
func NewRouter(cfg Config) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.Logger(cfg.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", healthHandler(cfg.Health))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.Timeout))
		r.Use(auth.RequireAuth(cfg.Validator, cfg.Revocations, cfg.Logger))
		r.Use(auth.RequireRole(auth.RoleAdmin, cfg.Logger))
		for _, h := range cfg.Handlers {
			h.Register(r)
		}
	})
	return r
}

func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[c.Name] = err.Error()
				continue
			}
			body[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
