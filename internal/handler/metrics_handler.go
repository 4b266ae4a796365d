package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/session-archiver/internal/service"
	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
	"github.com/noah-isme/session-archiver/pkg/response"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// MetricsHandler exposes the daemon's observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      pinger
	timeout time.Duration
}

// NewMetricsHandler constructs a metrics handler. db may be nil when readiness should not
// depend on the database.
func NewMetricsHandler(metrics *service.MetricsService, db pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, timeout: 2 * time.Second}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health is a liveness probe.
func (h *MetricsHandler) Health(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// Ready checks the database and reports the lifecycle run counters.
func (h *MetricsHandler) Ready(c *gin.Context) {
	snapshot := h.metrics.Snapshot()
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			response.Error(c, http.StatusServiceUnavailable, appErrors.Wrap(err, appErrors.ErrStorage.Code, "database unreachable"), snapshot)
			return
		}
	}
	response.JSON(c, http.StatusOK, snapshot, map[string]interface{}{"status": "ready"})
}
