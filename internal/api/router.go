package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/scale-registry/internal/auth"
)

// healthCheckTimeout bounds each dependency check in GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route(s.cfg.BasePath, func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Public export for pull (no auth required)
		if s.cfg.PublicExport {
			r.Get("/export/{identity}", s.handleExport)
		}

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.requirePermission(auth.PermDeviceList)).Get("/", s.handleListDevices)
			if s.audit != nil {
				r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAudit)
			}
			r.With(s.requirePermission(auth.PermDeviceCreate)).Post("/{model}", s.handleCreateDevice)

			r.With(s.requirePermission(auth.PermConfigRead)).Get("/{model}/{serial}", s.handleGetConfig)
			r.With(s.requirePermission(auth.PermConfigWrite)).Put("/{model}/{serial}", s.handlePutConfig)

			r.With(s.requirePermission(auth.PermAddressRead)).Get("/address/{model}/{serial}", s.handleGetAddress)
			r.With(s.requirePermission(auth.PermAddressWrite)).Put("/address/{model}/{serial}", s.handlePutAddress)
		})
	})

	return r
}

// handleHealth returns the server health status. Each registered check runs
// with its own timeout; any failure turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	components := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check.HealthCheck(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":     overall,
		"version":    s.version,
		"components": components,
	})
}
