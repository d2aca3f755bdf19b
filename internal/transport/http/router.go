// Package httptransport assembles the HTTP surface: global middleware,
// health and metrics endpoints, and the versioned API routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"prms/pkg/platform/httputil"
	"prms/pkg/platform/middleware/observe"
	"prms/pkg/platform/middleware/request"
)

const healthCheckTimeout = 2 * time.Second

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Config controls router-wide behaviour.
type Config struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	Recorder       observe.Recorder
	// HealthChecks are run by GET /healthz, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// NewRouter wires all public endpoints. API routes live under /api/v1.
func NewRouter(cfg Config, modules ...Registrar) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.Metadata)
	r.Use(observe.Requests(logger, cfg.Recorder))
	r.Use(observe.Recover(logger, cfg.Recorder))

	r.Get("/healthz", healthHandler(cfg.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		for _, m := range modules {
			m.Register(api)
		}
	})

	if len(cfg.AllowedOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", request.HeaderRequestID, request.HeaderActorID},
		ExposedHeaders: []string{request.HeaderRequestID},
		MaxAge:         600,
	})
	return c.Handler(r)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
