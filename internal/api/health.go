package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/plate-labs/internal/research"
	"github.com/ashureev/plate-labs/internal/store"
	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo     store.Repository
	registry *research.Registry
}

// NewHealthHandler creates a new health handler. repo may be nil when the
// archive is disabled.
func NewHealthHandler(repo store.Repository, registry *research.Registry) *HealthHandler {
	return &HealthHandler{repo: repo, registry: registry}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	if h.registry != nil {
		status["active_researches"] = h.registry.Len()
	}
	statusCode := http.StatusOK

	if h.repo == nil {
		checks["database"] = "disabled"
	} else if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
