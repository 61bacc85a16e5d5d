package dto

import (
	"time"

	"github.com/noah-isme/sales-report-api/internal/models"
)

// ScheduleReportRequest captures POST /schedule-report and POST /schedule.
// A request carrying ReportData is delivered immediately; otherwise Frequency
// or Cron registers a recurring delivery driven by ReportConfig.
type ScheduleReportRequest struct {
	Email        string              `json:"email" validate:"required,email"`
	ReportData   []models.Report     `json:"reportData,omitempty"`
	Format       models.ReportFormat `json:"format,omitempty"`
	Frequency    string              `json:"frequency,omitempty"`
	Cron         string              `json:"cron,omitempty"`
	ReportConfig *ReportConfig       `json:"reportConfig,omitempty"`
}

// Recurring reports whether the request asks for a standing schedule.
func (r ScheduleReportRequest) Recurring() bool {
	return r.Frequency != "" || r.Cron != ""
}

// ReportConfig snapshots the criteria replayed on every firing.
type ReportConfig struct {
	Filters models.ReportFilter `json:"filters"`
	Format  models.ReportFormat `json:"format,omitempty"`
}

// ScheduleResponse is returned after a delivery is sent or registered.
type ScheduleResponse struct {
	Message        string     `json:"message"`
	ID             string     `json:"id,omitempty"`
	CronExpression string     `json:"cronExpression,omitempty"`
	NextRun        *time.Time `json:"nextRun,omitempty"`
}

// ScheduleSummary describes a registered schedule.
type ScheduleSummary struct {
	models.ScheduledReport
	Registered bool `json:"registered"`
}
