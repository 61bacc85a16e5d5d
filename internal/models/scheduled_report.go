package models

import "time"

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatPDF   ReportFormat = "pdf"
	ReportFormatExcel ReportFormat = "excel"
	ReportFormatCSV   ReportFormat = "csv"
)

// Valid reports whether the format is supported.
func (f ReportFormat) Valid() bool {
	switch f {
	case ReportFormatPDF, ReportFormatExcel, ReportFormatCSV:
		return true
	default:
		return false
	}
}

// RunStatus records the outcome of the latest scheduled firing.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusSkipped   RunStatus = "SKIPPED"
)

// ScheduledReport is the persisted log of a recurring delivery registration.
type ScheduledReport struct {
	ID             string       `db:"id" json:"id"`
	Email          string       `db:"email" json:"email"`
	CronExpression string       `db:"cron_expression" json:"cronExpression"`
	Filters        ReportFilter `db:"filters" json:"filters"`
	Format         ReportFormat `db:"format" json:"format"`
	NextRunAt      *time.Time   `db:"next_run_at" json:"nextRun,omitempty"`
	LastRunAt      *time.Time   `db:"last_run_at" json:"lastRun,omitempty"`
	LastStatus     *RunStatus   `db:"last_status" json:"lastStatus,omitempty"`
	LastError      *string      `db:"last_error" json:"lastError,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
}
