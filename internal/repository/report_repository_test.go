package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-report-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO reports (date, category, amount, "user", region) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`)).
		WithArgs("2025-06-01", "Sales", "1000", "Alice", "North").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	report := &models.Report{
		Date:     models.NewDate(2025, time.June, 1),
		Category: models.CategorySales,
		Amount:   decimal.RequireFromString("1000.00"),
		User:     "Alice",
		Region:   "North",
	}
	require.NoError(t, repo.Create(context.Background(), report))
	assert.Equal(t, int64(42), report.ID)
	require.NotNil(t, report.CreatedAt)
	assert.True(t, created.Equal(*report.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"id", "date", "category", "amount", "user", "region", "created_at"}).
		AddRow(int64(1), time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "Sales", "1000.00", "Alice", "North", time.Now()).
		AddRow(int64(2), "2025-06-02", "HR", "250.50", "Bob", "South", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, date, category, amount, "user", region, created_at FROM reports ORDER BY id ASC`)).
		WillReturnRows(rows)

	reports, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "2025-06-01", reports[0].Date.String())
	assert.Equal(t, "250.50", reports[1].FormattedAmount())
	assert.Equal(t, "Bob", reports[1].User)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery("SELECT id, date").
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "category", "amount", "user", "region", "created_at"}))

	reports, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}

func TestReportRepositoryListError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery("SELECT id, date").WillReturnError(errors.New("connection refused"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list reports")
}
