package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthCheck is one named dependency checked by GET /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	checks []HealthCheck
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status": "ok",
	}
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			slog.Warn("health check failed", "dependency", c.Name, "error", err)
			status[c.Name] = "error"
			status["status"] = "degraded"
		} else {
			status[c.Name] = "ok"
		}
	}

	code := http.StatusOK
	if status["status"] == "degraded" {
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, status)
}
