package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/session-archiver/internal/middleware"
	"github.com/noah-isme/session-archiver/pkg/logger"
	reqidmiddleware "github.com/noah-isme/session-archiver/pkg/middleware/requestid"
)

// NewRouter wires the operations endpoints served in daemon mode.
func NewRouter(h *MetricsHandler, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(h.metrics))

	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
	return r
}
