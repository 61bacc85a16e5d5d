package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sales-report-api/internal/models"
	appErrors "github.com/noah-isme/sales-report-api/pkg/errors"
	"github.com/noah-isme/sales-report-api/pkg/export"
	"github.com/noah-isme/sales-report-api/pkg/storage"
)

// Content types served for each export format.
const (
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF   = "application/pdf"
	ContentTypeCSV   = "text/csv; charset=utf-8"
)

const reportTitle = "Sales Report"

var exportHeaders = []string{"id", "date", "category", "amount", "user", "region"}

type artifactStorage interface {
	Save(relPath string, data []byte) (string, error)
	Read(relPath string) ([]byte, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Sign(artifactID, relPath string) (string, storage.Grant, error)
	Verify(token string) (storage.Grant, error)
}

type tableRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// Artifact is a rendered report held in memory.
type Artifact struct {
	Filename    string
	ContentType string
	Format      models.ReportFormat
	Data        []byte
	Records     int
}

// ArchivedArtifact points at a stored artifact and its signed download link.
type ArchivedArtifact struct {
	Path      string
	Token     string
	URL       string
	ExpiresAt time.Time
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	// BaseURL prefixes download links in emails, e.g. https://reports.example.com/api.
	BaseURL         string
	RetainFor       time.Duration
	CleanupInterval time.Duration
}

// ExportService renders report records and archives the results.
type ExportService struct {
	storage artifactStorage
	signer  downloadSigner
	excel   tableRenderer
	csv     tableRenderer
	pdf     documentRenderer
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService. Storage and signer may be nil,
// in which case archiving is unavailable.
func NewExportService(store artifactStorage, signer downloadSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetainFor <= 0 {
		cfg.RetainFor = 7 * 24 * time.Hour
	}
	return &ExportService{
		storage: store,
		signer:  signer,
		excel:   export.NewExcelExporter(),
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// ParseReportFormat maps user input to a supported format.
func ParseReportFormat(raw string) (models.ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pdf":
		return models.ReportFormatPDF, nil
	case "excel", "xlsx":
		return models.ReportFormatExcel, nil
	case "csv":
		return models.ReportFormatCSV, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", raw))
	}
}

// Render converts records into an artifact of the requested format.
func (s *ExportService) Render(ctx context.Context, format models.ReportFormat, records []models.Report) (*Artifact, error) {
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNothingToExport, "")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		data        []byte
		err         error
		contentType string
		ext         string
	)
	switch format {
	case models.ReportFormatExcel:
		data, err = s.excel.Render(buildDataset(records))
		contentType, ext = ContentTypeExcel, "xlsx"
	case models.ReportFormatCSV:
		data, err = s.csv.Render(buildDataset(records))
		contentType, ext = ContentTypeCSV, "csv"
	case models.ReportFormatPDF:
		data, err = s.pdf.Render(s.buildDocument(records))
		contentType, ext = ContentTypePDF, "pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		if errors.Is(err, export.ErrEmptyDataset) {
			return nil, appErrors.WrapAs(appErrors.ErrNothingToExport, err, "")
		}
		return nil, appErrors.WrapAs(appErrors.ErrRender, err, "")
	}

	s.metrics.RecordExport(format, len(data))
	return &Artifact{
		Filename:    fmt.Sprintf("sales_report_%s.%s", s.now().UTC().Format("20060102_150405"), ext),
		ContentType: contentType,
		Format:      format,
		Data:        data,
		Records:     len(records),
	}, nil
}

// Archive stores the artifact under key and signs a download link for it.
func (s *ExportService) Archive(artifact *Artifact, key string) (*ArchivedArtifact, error) {
	if s.storage == nil || s.signer == nil {
		return nil, errors.New("artifact archive not configured")
	}
	if artifact == nil || key == "" {
		return nil, errors.New("artifact and key required")
	}
	relPath := fmt.Sprintf("%s/%s", sanitizeKey(key), artifact.Filename)
	relPath, err := s.storage.Save(relPath, artifact.Data)
	if err != nil {
		return nil, fmt.Errorf("archive artifact: %w", err)
	}
	token, grant, err := s.signer.Sign(sanitizeKey(key), relPath)
	if err != nil {
		return nil, fmt.Errorf("sign artifact: %w", err)
	}
	return &ArchivedArtifact{
		Path:      relPath,
		Token:     token,
		URL:       s.downloadURL(token),
		ExpiresAt: grant.ExpiresAt,
	}, nil
}

// ResolveDownload verifies a token and loads the archived artifact.
func (s *ExportService) ResolveDownload(token string) (*Artifact, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download not available")
	}
	grant, err := s.signer.Verify(token)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return nil, appErrors.Clone(appErrors.ErrLinkExpired, "")
	case err != nil:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download not found")
	}
	data, err := s.storage.Read(grant.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "download not found")
		}
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to read download")
	}
	filename := grant.Path
	if idx := strings.LastIndex(filename, "/"); idx >= 0 {
		filename = filename[idx+1:]
	}
	format, contentType := formatFromFilename(filename)
	return &Artifact{Filename: filename, ContentType: contentType, Format: format, Data: data}, nil
}

// Cleanup deletes archived artifacts older than the retention window.
func (s *ExportService) Cleanup() ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	return s.storage.CleanupOlderThan(s.cfg.RetainFor)
}

// StartCleanup purges expired archives periodically until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.storage == nil || s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.Cleanup()
				if err != nil {
					s.logger.Sugar().Warnw("export cleanup failed", "error", err)
					continue
				}
				if len(deleted) > 0 {
					s.logger.Sugar().Infow("export cleanup", "deleted", len(deleted))
				}
			}
		}
	}()
}

func (s *ExportService) downloadURL(token string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/exports/" + token
}

func (s *ExportService) buildDocument(records []models.Report) export.Document {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = fmt.Sprintf("%d. %s | %s | $%s | %s | %s", rowNumber(r, i), r.Date, r.Category, r.FormattedAmount(), r.User, r.Region)
	}
	return export.Document{
		Title:    reportTitle,
		Subtitle: fmt.Sprintf("Generated %s UTC, %d records", s.now().UTC().Format("2006-01-02 15:04"), len(records)),
		Lines:    lines,
	}
}

func buildDataset(records []models.Report) export.Dataset {
	rows := make([]map[string]string, len(records))
	for i, r := range records {
		rows[i] = map[string]string{
			"id":       strconv.FormatInt(rowNumber(r, i), 10),
			"date":     r.Date.String(),
			"category": r.Category,
			"amount":   r.FormattedAmount(),
			"user":     r.User,
			"region":   r.Region,
		}
	}
	return export.Dataset{
		Headers: exportHeaders,
		Rows:    rows,
		Numeric: map[string]int{"id": 0, "amount": 2},
	}
}

// rowNumber is the record id, or its 1-based position for unsaved records.
func rowNumber(r models.Report, i int) int64 {
	if r.ID == 0 {
		return int64(i + 1)
	}
	return r.ID
}

func formatFromFilename(name string) (models.ReportFormat, string) {
	switch {
	case strings.HasSuffix(name, ".xlsx"):
		return models.ReportFormatExcel, ContentTypeExcel
	case strings.HasSuffix(name, ".csv"):
		return models.ReportFormatCSV, ContentTypeCSV
	default:
		return models.ReportFormatPDF, ContentTypePDF
	}
}

func sanitizeKey(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", ".", "-")
	result := replacer.Replace(raw)
	if len(result) > 64 {
		return result[:64]
	}
	return result
}
