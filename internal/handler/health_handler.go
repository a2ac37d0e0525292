package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is the slice of the database pool the readiness probe needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes. Readiness reports
// which configured model backend the instance will route analysis to, so an
// operator can tell at a glance what a pod is wired against.
type HealthHandler struct {
	db      Pinger
	backend string
}

// NewHealthHandler creates a HealthHandler over the database pool and the
// active backend identity.
func NewHealthHandler(db Pinger, backend string) *HealthHandler {
	return &HealthHandler{db: db, backend: backend}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. The instance is ready once the inspections
// database answers a ping; model backends are probed lazily on first use, so
// only their identity is reported here.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"checks": gin.H{"database": "unreachable"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"backend": h.backend,
		"checks":  gin.H{"database": "ok"},
	})
}
