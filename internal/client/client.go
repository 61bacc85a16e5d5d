package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/sales-report-api/internal/dto"
	"github.com/noah-isme/sales-report-api/internal/models"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx reply decoded from the response envelope.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (%d %s): %s", e.Status, e.Code, e.Message)
}

// Download is a binary export returned by the API.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *APIError              `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

// APIClient talks to the sales report HTTP API.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient builds a client rooted at baseURL, e.g. http://localhost:8080/api.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// ListReports fetches records matching filter.
func (c *APIClient) ListReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	var records []models.Report
	if err := c.getJSON(ctx, "/reports?"+filterQuery(filter).Encode(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CreateReport inserts one record.
func (c *APIClient) CreateReport(ctx context.Context, req dto.CreateReportRequest) (*models.Report, error) {
	var report models.Report
	if err := c.doJSON(ctx, http.MethodPost, "/reports", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Export renders records server-side and returns the artifact.
func (c *APIClient) Export(ctx context.Context, format string, req dto.ExportRequest) (*Download, error) {
	resp, err := c.do(ctx, http.MethodPost, "/export/"+url.PathEscape(format), req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp.StatusCode, data)
	}

	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return &Download{Filename: filename, ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

// Schedule sends a report now or registers a recurring delivery.
func (c *APIClient) Schedule(ctx context.Context, req dto.ScheduleReportRequest) (*dto.ScheduleResponse, error) {
	var out dto.ScheduleResponse
	if err := c.doJSON(ctx, http.MethodPost, "/schedule", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSchedules returns the registered recurring deliveries.
func (c *APIClient) ListSchedules(ctx context.Context) ([]dto.ScheduleSummary, error) {
	var out []dto.ScheduleSummary
	if err := c.getJSON(ctx, "/schedules", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health returns the server health payload.
func (c *APIClient) Health(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) getJSON(ctx context.Context, path string, dest interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, dest)
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, body, dest interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if dest == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

func decodeError(status int, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		env.Error.Status = status
		return env.Error
	}
	return &APIError{Status: status, Message: strings.TrimSpace(string(raw))}
}

func filterQuery(f models.ReportFilter) url.Values {
	q := url.Values{}
	if f.HasDate() {
		q.Set("date", f.Date.String())
	}
	if f.HasStart() {
		q.Set("startDate", f.StartDate.String())
	}
	if f.HasEnd() {
		q.Set("endDate", f.EndDate.String())
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.User != "" {
		q.Set("user", f.User)
	}
	if f.Region != "" {
		q.Set("region", f.Region)
	}
	return q
}
