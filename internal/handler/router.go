package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Reports   *ReportHandler
	Exports   *ExportHandler
	Schedules *ScheduleHandler
	Metrics   *MetricsHandler
}

// Register mounts every route under prefix, plus the root liveness and
// Prometheus endpoints.
func Register(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/health", h.Metrics.Health)

	api.GET("/reports", h.Reports.List)
	api.POST("/reports", h.Reports.Create)

	api.POST("/export/:format", h.Exports.Export)
	api.GET("/exports/:token", h.Exports.Download)

	api.POST("/schedule-report", h.Schedules.Schedule)
	api.POST("/schedule", h.Schedules.Schedule)
	api.GET("/schedules", h.Schedules.List)
}
