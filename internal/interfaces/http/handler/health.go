package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency whose liveness the health check reports
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports service and dependency health
type HealthHandler struct {
	service string
	checks  map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(service string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{service: service, checks: checks}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.PingContext(ctx); err != nil {
			deps[name] = "unhealthy: " + err.Error()
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "healthy"
	}

	c.JSON(code, gin.H{
		"status":       status,
		"service":      h.service,
		"dependencies": deps,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
