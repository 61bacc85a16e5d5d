package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sales-report-api/internal/dto"
	"github.com/noah-isme/sales-report-api/internal/models"
	appErrors "github.com/noah-isme/sales-report-api/pkg/errors"
)

const (
	reportsCacheKey     = "reports:all"
	reportsCachePattern = "reports:*"
)

type reportStore interface {
	List(ctx context.Context) ([]models.Report, error)
	Create(ctx context.Context, report *models.Report) error
}

type reportRenderer interface {
	Render(ctx context.Context, format models.ReportFormat, records []models.Report) (*Artifact, error)
}

type reportDispatcher interface {
	Dispatch(ctx context.Context, req DeliveryRequest) error
}

// ReportService serves report listings, inserts and one-off deliveries.
type ReportService struct {
	repo      reportStore
	cache     *CacheService
	renderer  reportRenderer
	delivery  reportDispatcher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// ReportServiceConfig tunes listing cache behaviour.
type ReportServiceConfig struct {
	CacheTTL time.Duration
}

// NewReportService constructs the report service.
func NewReportService(repo reportStore, cache *CacheService, renderer reportRenderer, delivery reportDispatcher, metrics *MetricsService, validate *validator.Validate, cfg ReportServiceConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ReportService{
		repo:      repo,
		cache:     cache,
		renderer:  renderer,
		delivery:  delivery,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  cfg.CacheTTL,
	}
}

// List returns filtered records and whether the listing came from cache.
func (s *ReportService) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, bool, error) {
	var records []models.Report
	hit, err := s.cache.Get(ctx, reportsCacheKey, &records)
	if err != nil {
		hit = false
	}
	if !hit {
		records, err = s.load(ctx)
		if err != nil {
			return nil, false, err
		}
		_ = s.cache.Set(ctx, reportsCacheKey, records, s.cacheTTL)
	}
	if records == nil {
		records = []models.Report{}
	}
	return ApplyFilter(records, filter), hit, nil
}

// Fetch reads live records from the store, bypassing the cache.
func (s *ReportService) Fetch(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyFilter(records, filter), nil
}

// Create validates and inserts a record.
func (s *ReportService) Create(ctx context.Context, req dto.CreateReportRequest) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.Amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be a date formatted as 2006-01-02")
	}

	report := &models.Report{
		Date:     date,
		Category: req.Category,
		Amount:   req.Amount.Round(2),
		User:     req.User,
		Region:   req.Region,
	}
	start := time.Now()
	err = s.repo.Create(ctx, report)
	s.metrics.ObserveDBQuery("reports.create", time.Since(start))
	if err != nil {
		s.logger.Sugar().Errorw("insert report failed", "error", err)
		return nil, appErrors.WrapAs(appErrors.ErrStore, err, "")
	}
	_ = s.cache.Invalidate(ctx, reportsCachePattern)
	s.logger.Sugar().Infow("report created", "id", report.ID, "category", report.Category)
	return report, nil
}

// Send emails the supplied records immediately, attaching a rendered artifact
// when a format is requested.
func (s *ReportService) Send(ctx context.Context, req dto.ScheduleReportRequest) (*dto.ScheduleResponse, error) {
	if err := s.validator.Var(req.Email, "required,email"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email must be a valid email address")
	}
	if len(req.ReportData) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reportData is required")
	}

	delivery := DeliveryRequest{To: req.Email, Records: req.ReportData}
	if req.Format != "" {
		format, err := ParseReportFormat(string(req.Format))
		if err != nil {
			return nil, err
		}
		artifact, err := s.renderer.Render(ctx, format, req.ReportData)
		if err != nil {
			return nil, err
		}
		delivery.Artifact = artifact
	}
	if err := s.delivery.Dispatch(ctx, delivery); err != nil {
		return nil, err
	}
	return &dto.ScheduleResponse{Message: "Report sent to " + req.Email}, nil
}

func (s *ReportService) load(ctx context.Context) ([]models.Report, error) {
	start := time.Now()
	records, err := s.repo.List(ctx)
	s.metrics.ObserveDBQuery("reports.list", time.Since(start))
	if err != nil {
		s.logger.Sugar().Errorw("list reports failed", "error", err)
		return nil, appErrors.WrapAs(appErrors.ErrStore, err, "")
	}
	return records, nil
}
