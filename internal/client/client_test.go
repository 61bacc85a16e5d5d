package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-report-api/internal/dto"
	"github.com/noah-isme/sales-report-api/internal/models"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestListReportsEncodesFilter(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reports", r.URL.Path)
		query = r.URL.RawQuery
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": 1, "date": "2025-06-01", "category": "Sales", "amount": 12.5, "user": "Alice", "region": "North"},
			},
		})
	}))
	defer srv.Close()

	start := models.NewDate(2025, 6, 1)
	records, err := NewAPIClient(srv.URL+"/api/").ListReports(context.Background(), models.ReportFilter{StartDate: &start, Region: "nor"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "12.50", records[0].FormattedAmount())
	assert.Equal(t, "region=nor&startDate=2025-06-01", query)
}

func TestCreateReportDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]interface{}{"code": "VALIDATION_ERROR", "message": "region is required"},
		})
	}))
	defer srv.Close()

	amount := decimal.NewFromInt(10)
	_, err := NewAPIClient(srv.URL).CreateReport(context.Background(), dto.CreateReportRequest{Date: "2025-06-01", Category: "Sales", Amount: &amount, User: "a"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, "region is required", apiErr.Message)
}

func TestExportReturnsAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/export/csv", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"data":null,"filters":{"category":"HR"}}`, string(raw))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="sales_report_20250601_093000.csv"`)
		_, _ = w.Write([]byte("ID,DATE\n"))
	}))
	defer srv.Close()

	dl, err := NewAPIClient(srv.URL).Export(context.Background(), "csv", dto.ExportRequest{Filters: &models.ReportFilter{Category: "HR"}})
	require.NoError(t, err)
	assert.Equal(t, "sales_report_20250601_093000.csv", dl.Filename)
	assert.Equal(t, "text/csv", dl.ContentType)
	assert.Equal(t, "ID,DATE\n", string(dl.Data))
}

func TestExportPlainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL).Export(context.Background(), "pdf", dto.ExportRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestScheduleAndList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/schedule":
			var req dto.ScheduleReportRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "weekly", req.Frequency)
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"data": map[string]interface{}{"message": "Report scheduled for ops@example.com", "id": "abc", "nextRun": "2025-06-02T09:00:00Z"},
			})
		case "/schedules":
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"data": []map[string]interface{}{{"id": "abc", "email": "ops@example.com", "cronExpression": "0 9 * * 1", "registered": true}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	resp, err := c.Schedule(context.Background(), dto.ScheduleReportRequest{Email: "ops@example.com", Frequency: "weekly"})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.ID)
	require.NotNil(t, resp.NextRun)

	schedules, err := c.ListSchedules(context.Background())
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "abc", schedules[0].ID)
	assert.True(t, schedules[0].Registered)
}
