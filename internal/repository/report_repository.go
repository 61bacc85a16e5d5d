package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sales-report-api/internal/models"
)

// ReportRepository reads and inserts report rows.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// List returns every report ordered by identifier.
func (r *ReportRepository) List(ctx context.Context) ([]models.Report, error) {
	const query = `SELECT id, date, category, amount, "user", region, created_at FROM reports ORDER BY id ASC`
	reports := make([]models.Report, 0)
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Create inserts a report and populates the store-assigned id and created_at.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	const query = `INSERT INTO reports (date, category, amount, "user", region)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query, report.Date, report.Category, report.Amount, report.User, report.Region)
	if err := row.Scan(&report.ID, &report.CreatedAt); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}
