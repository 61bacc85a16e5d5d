package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateAcceptsTimestamps(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", d.String())

	d, err = ParseDate("2025-06-01T18:30:00Z")
	require.NoError(t, err)
	assert.True(t, d.Equal(NewDate(2025, time.June, 1)))

	_, err = ParseDate("06/01/2025")
	assert.Error(t, err)
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-06-01", d.String())

	require.NoError(t, d.Scan([]byte("2024-02-29")))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

func TestReportJSONShape(t *testing.T) {
	report := Report{
		ID:       7,
		Date:     NewDate(2025, time.June, 1),
		Category: CategorySales,
		Amount:   decimal.RequireFromString("1000.5"),
		User:     "Alice",
		Region:   "North",
	}
	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"date":"2025-06-01","category":"Sales","amount":1000.5,"user":"Alice","region":"North"}`, string(raw))
	assert.Equal(t, "1000.50", report.FormattedAmount())

	var decoded Report
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-06-02","category":"HR","amount":"12.3","user":"Bob","region":"South"}`), &decoded))
	assert.Equal(t, "2025-06-02", decoded.Date.String())
	assert.Equal(t, "12.30", decoded.FormattedAmount())
}

func TestReportFilterScanAndEmpty(t *testing.T) {
	assert.True(t, ReportFilter{}.IsEmpty())
	assert.True(t, ReportFilter{Date: &Date{}}.IsEmpty())

	var f ReportFilter
	require.NoError(t, f.Scan([]byte(`{"region":"nor","startDate":"2025-01-01"}`)))
	assert.Equal(t, "nor", f.Region)
	assert.True(t, f.HasStart())
	assert.False(t, f.HasEnd())
	assert.False(t, f.IsEmpty())

	value, err := f.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"region":"nor","startDate":"2025-01-01"}`, string(value.([]byte)))
}

func TestReportFormatValid(t *testing.T) {
	assert.True(t, ReportFormatExcel.Valid())
	assert.False(t, ReportFormat("docx").Valid())
}
