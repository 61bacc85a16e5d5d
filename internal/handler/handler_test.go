package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-report-api/internal/middleware"
	"github.com/noah-isme/sales-report-api/internal/models"
	"github.com/noah-isme/sales-report-api/internal/repository"
	"github.com/noah-isme/sales-report-api/internal/service"
	"github.com/noah-isme/sales-report-api/pkg/mail"
	"github.com/noah-isme/sales-report-api/pkg/storage"
)

type memReportStore struct {
	mu      sync.Mutex
	records []models.Report
}

func (m *memReportStore) List(ctx context.Context) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Report{}, m.records...), nil
}

func (m *memReportStore) Create(ctx context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *report)
	return nil
}

type memScheduleStore struct {
	mu   sync.Mutex
	rows []models.ScheduledReport
}

func (m *memScheduleStore) Create(ctx context.Context, s *models.ScheduledReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, *s)
	return nil
}

func (m *memScheduleStore) List(ctx context.Context) ([]models.ScheduledReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ScheduledReport{}, m.rows...), nil
}

func (m *memScheduleStore) UpdateRun(ctx context.Context, id string, update repository.RunUpdate) error {
	return nil
}

func (m *memScheduleStore) UpdateNextRun(ctx context.Context, id string, next time.Time) error {
	return nil
}

type captureSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *captureSender) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type testServer struct {
	engine  *gin.Engine
	store   *memReportStore
	sender  *captureSender
	exports *service.ExportService
}

type serverOptions struct {
	noScheduler bool
	checks      map[string]HealthCheck
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &memReportStore{}
	sender := &captureSender{}
	metrics := service.NewMetricsService()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exports := service.NewExportService(files, storage.NewSignedURLSigner("secret", time.Hour), metrics, service.ExportConfig{BaseURL: "http://localhost/api"}, nil)
	delivery := service.NewDeliveryService(sender, metrics, service.DeliveryConfig{}, nil)
	reports := service.NewReportService(store, nil, exports, delivery, metrics, nil, service.ReportServiceConfig{}, nil)

	var scheduler reportScheduler
	if !opts.noScheduler {
		scheduler = service.NewScheduleService(&memScheduleStore{}, reports, exports, delivery, metrics, nil, service.ScheduleConfig{}, nil)
	}

	r := gin.New()
	r.Use(middleware.WithResponseMeta(), middleware.Metrics(metrics))
	Register(r, "/api", Handlers{
		Reports:   NewReportHandler(reports),
		Exports:   NewExportHandler(exports, reports),
		Schedules: NewScheduleHandler(scheduler, reports),
		Metrics:   NewMetricsHandler(metrics, ServiceInfo{Name: "sales-report-api", Version: "test", Env: "test"}, opts.checks),
	})
	return &testServer{engine: r, store: store, sender: sender, exports: exports}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func seedRecord() map[string]interface{} {
	return map[string]interface{}{"date": "2025-06-01", "category": "Sales", "amount": 1000.00, "user": "Alice", "region": "North"}
}

func TestInsertThenList(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	w := srv.do(http.MethodPost, "/api/reports", seedRecord())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Report
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.NotZero(t, created.ID)

	w = srv.do(http.MethodGet, "/api/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	var records []models.Report
	require.NoError(t, json.Unmarshal(env.Data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, created.ID, records[0].ID)
	assert.Equal(t, "2025-06-01", records[0].Date.String())
	assert.Equal(t, "Sales", records[0].Category)
	assert.Equal(t, "1000.00", records[0].FormattedAmount())
	assert.Equal(t, "Alice", records[0].User)
	assert.Equal(t, "North", records[0].Region)
	assert.Equal(t, false, env.Meta["cache_hit"])
	assert.EqualValues(t, 1, env.Meta["count"])
}

func TestListRegionFilter(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/reports", seedRecord()).Code)

	var records []models.Report
	require.NoError(t, json.Unmarshal(decode(t, srv.do(http.MethodGet, "/api/reports?region=nor", nil)).Data, &records))
	assert.Len(t, records, 1)

	w := srv.do(http.MethodGet, "/api/reports?region=south", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(decode(t, w).Data))
}

func TestListRejectsMalformedDate(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	w := srv.do(http.MethodGet, "/api/reports?startDate=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	body := seedRecord()
	delete(body, "region")

	w := srv.do(http.MethodPost, "/api/reports", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "region is required", env.Error.Message)
	assert.Empty(t, srv.store.records)
}

func TestExportExcel(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	body := map[string]interface{}{"data": []map[string]interface{}{seedRecord()}}

	w := srv.do(http.MethodPost, "/api/export/excel", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service.ContentTypeExcel, w.Header().Get("Content-Type"))
	disposition := w.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, `attachment; filename="sales_report_`), disposition)
	assert.True(t, strings.HasSuffix(disposition, `.xlsx"`), disposition)
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestExportPDFWithFilters(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/reports", seedRecord()).Code)

	w := srv.do(http.MethodPost, "/api/export/pdf", map[string]interface{}{"filters": map[string]string{"region": "nor"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service.ContentTypePDF, w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = srv.do(http.MethodPost, "/api/export/pdf", map[string]interface{}{"filters": map[string]string{"region": "south"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportRejectsEmptyData(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	for _, body := range []interface{}{nil, map[string]interface{}{"data": []interface{}{}}} {
		w := srv.do(http.MethodPost, "/api/export/pdf", body)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "NOTHING_TO_EXPORT", decode(t, w).Error.Code)
	}

	w := srv.do(http.MethodPost, "/api/export/docx", map[string]interface{}{"data": []map[string]interface{}{seedRecord()}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadArchivedExport(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	ctx := context.Background()
	artifact, err := srv.exports.Render(ctx, models.ReportFormatCSV, []models.Report{{ID: 1, Category: "Sales", User: "a", Region: "b"}})
	require.NoError(t, err)
	archived, err := srv.exports.Archive(artifact, "manual")
	require.NoError(t, err)

	w := srv.do(http.MethodGet, "/api/exports/"+archived.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, artifact.Data, w.Body.Bytes())

	w = srv.do(http.MethodGet, "/api/exports/forged", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleReportSendsNow(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	body := map[string]interface{}{"email": "ops@example.com", "reportData": []map[string]interface{}{seedRecord()}}

	w := srv.do(http.MethodPost, "/api/schedule-report", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(decode(t, w).Data), "Report sent to ops@example.com")
	assert.Len(t, srv.sender.sent, 1)
}

func TestScheduleReportDeliveryFailure(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	srv.sender.err = errors.New("535 authentication failed")
	body := map[string]interface{}{"email": "ops@example.com", "reportData": []map[string]interface{}{seedRecord()}}

	w := srv.do(http.MethodPost, "/api/schedule-report", body)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "DELIVERY_ERROR", decode(t, w).Error.Code)
}

func TestScheduleRecurring(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	before := time.Now()
	body := map[string]interface{}{
		"email":        "ops@example.com",
		"cron":         "0 9 * * *",
		"reportConfig": map[string]interface{}{"filters": map[string]string{"region": "nor"}, "format": "excel"},
	}

	w := srv.do(http.MethodPost, "/api/schedule", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		ID      string    `json:"id"`
		NextRun time.Time `json:"nextRun"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.NotEmpty(t, resp.ID)
	assert.True(t, resp.NextRun.After(before))

	w = srv.do(http.MethodGet, "/api/schedules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w).Meta["count"])
}

func TestScheduleValidation(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	w := srv.do(http.MethodPost, "/api/schedule", map[string]interface{}{"email": "not-an-email", "frequency": "daily"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)

	w = srv.do(http.MethodPost, "/api/schedule", map[string]interface{}{"email": "ops@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodGet, "/api/schedules", nil)
	assert.JSONEq(t, "[]", string(decode(t, w).Data))
}

func TestScheduleDisabled(t *testing.T) {
	srv := newTestServer(t, serverOptions{noScheduler: true})
	w := srv.do(http.MethodPost, "/api/schedule", map[string]interface{}{"email": "ops@example.com", "frequency": "daily"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, serverOptions{checks: map[string]HealthCheck{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("down") },
	}})

	for _, path := range []string{"/", "/api/health"} {
		w := srv.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
		assert.Equal(t, "sales-report-api", body["service"])
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, map[string]interface{}{"database": "up", "redis": "down"}, body["dependencies"])
		assert.Contains(t, body, "metrics")
	}

	w := srv.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
