package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sales-report-api/internal/models"
)

// ScheduleRepository persists the scheduled report log.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a schedule row with generated defaults.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.ScheduledReport) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Format == "" {
		schedule.Format = models.ReportFormatPDF
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO scheduled_reports (id, email, cron_expression, filters, format, next_run_at, created_at)
VALUES (:id, :email, :cron_expression, :filters, :format, :next_run_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create scheduled report: %w", err)
	}
	return nil
}

// List returns every persisted schedule, oldest first.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.ScheduledReport, error) {
	const query = `SELECT id, email, cron_expression, filters, format, next_run_at, last_run_at, last_status, last_error, created_at
FROM scheduled_reports ORDER BY created_at ASC`
	schedules := make([]models.ScheduledReport, 0)
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list scheduled reports: %w", err)
	}
	return schedules, nil
}

// RunUpdate captures the bookkeeping written after each firing.
type RunUpdate struct {
	Status    models.RunStatus
	Error     *string
	RanAt     time.Time
	NextRunAt *time.Time
}

// UpdateRun records the outcome of a firing.
func (r *ScheduleRepository) UpdateRun(ctx context.Context, id string, update RunUpdate) error {
	const query = `UPDATE scheduled_reports SET last_run_at = $1, last_status = $2, last_error = $3, next_run_at = $4 WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, update.RanAt, update.Status, update.Error, update.NextRunAt, id); err != nil {
		return fmt.Errorf("update scheduled report run: %w", err)
	}
	return nil
}

// UpdateNextRun refreshes the computed next fire time (used after restore).
func (r *ScheduleRepository) UpdateNextRun(ctx context.Context, id string, next time.Time) error {
	const query = `UPDATE scheduled_reports SET next_run_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, next, id); err != nil {
		return fmt.Errorf("update scheduled report next run: %w", err)
	}
	return nil
}
