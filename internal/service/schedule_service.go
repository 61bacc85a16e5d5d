package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/sales-report-api/internal/dto"
	"github.com/noah-isme/sales-report-api/internal/models"
	"github.com/noah-isme/sales-report-api/internal/repository"
	appErrors "github.com/noah-isme/sales-report-api/pkg/errors"
	"github.com/noah-isme/sales-report-api/pkg/jobs"
)

const (
	jobTypeRender   = "render"
	jobTypeDispatch = "dispatch"
)

// Frequency presets accepted in place of a cron expression.
var frequencyPresets = map[string]string{
	"hourly":  "0 * * * *",
	"daily":   "0 9 * * *",
	"weekly":  "0 9 * * 1",
	"monthly": "0 9 1 * *",
}

type scheduleStore interface {
	Create(ctx context.Context, schedule *models.ScheduledReport) error
	List(ctx context.Context) ([]models.ScheduledReport, error)
	UpdateRun(ctx context.Context, id string, update repository.RunUpdate) error
	UpdateNextRun(ctx context.Context, id string, next time.Time) error
}

type reportFetcher interface {
	Fetch(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
}

type artifactExporter interface {
	Render(ctx context.Context, format models.ReportFormat, records []models.Report) (*Artifact, error)
	Archive(artifact *Artifact, key string) (*ArchivedArtifact, error)
}

// ScheduleConfig tunes the scheduler runtime.
type ScheduleConfig struct {
	Location *time.Location
	Workers  int
}

type registration struct {
	entryID  cron.EntryID
	schedule cron.Schedule
	report   models.ScheduledReport
}

type renderPayload struct {
	ScheduleID string
	FiredAt    time.Time
}

type dispatchPayload struct {
	ScheduleID string
	FiredAt    time.Time
	Records    []models.Report
	Artifact   *Artifact
	Archive    *ArchivedArtifact
}

// ScheduleService registers recurring report deliveries. Each firing fetches
// live data, renders it and emails the result through two job queues.
// Firing failures are logged and recorded on the schedule row; they never
// deregister the entry.
type ScheduleService struct {
	store     scheduleStore
	reports   reportFetcher
	exports   artifactExporter
	delivery  reportDispatcher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	location      *time.Location
	parser        cron.Parser
	cron          *cron.Cron
	renderQueue   *jobs.Queue
	dispatchQueue *jobs.Queue
	now           func() time.Time

	mu      sync.RWMutex
	entries map[string]*registration
	running bool
}

// NewScheduleService constructs the scheduler. It does not fire until Start.
func NewScheduleService(store scheduleStore, reports reportFetcher, exports artifactExporter, delivery reportDispatcher, metrics *MetricsService, validate *validator.Validate, cfg ScheduleConfig, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &ScheduleService{
		store:     store,
		reports:   reports,
		exports:   exports,
		delivery:  delivery,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		location:  cfg.Location,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		now:       time.Now,
		entries:   make(map[string]*registration),
	}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithParser(s.parser),
		cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))),
	)
	queueCfg := jobs.QueueConfig{Workers: cfg.Workers, MaxRetries: -1, Logger: logger}
	s.renderQueue = jobs.NewQueue("report-render", s.handleRender, queueCfg)
	s.dispatchQueue = jobs.NewQueue("report-dispatch", s.handleDispatch, queueCfg)
	return s
}

// Schedule validates the request, arms the cron entry and persists the
// schedule log row. Validation or store failures leave nothing registered.
func (s *ScheduleService) Schedule(ctx context.Context, req dto.ScheduleReportRequest) (*dto.ScheduleResponse, error) {
	if err := s.validator.Var(req.Email, "required,email"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email must be a valid email address")
	}
	expression, sched, err := s.resolveExpression(req.Frequency, req.Cron)
	if err != nil {
		return nil, err
	}

	var filters models.ReportFilter
	rawFormat := string(req.Format)
	if req.ReportConfig != nil {
		filters = req.ReportConfig.Filters
		if req.ReportConfig.Format != "" {
			rawFormat = string(req.ReportConfig.Format)
		}
	}
	format, err := ParseReportFormat(rawFormat)
	if err != nil {
		return nil, err
	}

	next := sched.Next(s.now().In(s.location))
	report := models.ScheduledReport{
		ID:             uuid.NewString(),
		Email:          req.Email,
		CronExpression: expression,
		Filters:        filters,
		Format:         format,
		NextRunAt:      &next,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.register(report, sched); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to register schedule")
	}
	if err := s.store.Create(ctx, &report); err != nil {
		s.unregister(report.ID)
		s.logger.Sugar().Errorw("persist schedule failed", "email", req.Email, "error", err)
		return nil, appErrors.WrapAs(appErrors.ErrStore, err, "")
	}

	s.logger.Sugar().Infow("report scheduled", "schedule_id", report.ID, "email", report.Email, "cron", expression, "next_run", next)
	return &dto.ScheduleResponse{
		Message:        fmt.Sprintf("Report scheduled for %s", req.Email),
		ID:             report.ID,
		CronExpression: expression,
		NextRun:        &next,
	}, nil
}

// Restore re-registers persisted schedules and returns how many were armed.
// Rows with unparsable expressions are skipped.
func (s *ScheduleService) Restore(ctx context.Context) (int, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return 0, appErrors.WrapAs(appErrors.ErrStore, err, "failed to load schedules")
	}
	restored := 0
	for _, row := range rows {
		sched, err := s.parser.Parse(row.CronExpression)
		if err != nil {
			s.logger.Sugar().Warnw("skip schedule with invalid expression", "schedule_id", row.ID, "cron", row.CronExpression, "error", err)
			continue
		}
		if !row.Format.Valid() {
			row.Format = models.ReportFormatPDF
		}
		if err := s.register(row, sched); err != nil {
			s.logger.Sugar().Warnw("restore schedule failed", "schedule_id", row.ID, "error", err)
			continue
		}
		next := sched.Next(s.now().In(s.location))
		if err := s.store.UpdateNextRun(ctx, row.ID, next); err != nil {
			s.logger.Sugar().Warnw("refresh next run failed", "schedule_id", row.ID, "error", err)
		}
		restored++
	}
	s.logger.Sugar().Infow("schedules restored", "count", restored, "persisted", len(rows))
	return restored, nil
}

// List returns registered schedules ordered by creation time.
func (s *ScheduleService) List() []dto.ScheduleSummary {
	now := s.now().In(s.location)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dto.ScheduleSummary, 0, len(s.entries))
	for _, reg := range s.entries {
		report := reg.report
		next := reg.schedule.Next(now)
		if s.running {
			if entry := s.cron.Entry(reg.entryID); entry.Valid() && !entry.Next.IsZero() {
				next = entry.Next
			}
		}
		report.NextRunAt = &next
		out = append(out, dto.ScheduleSummary{ScheduledReport: report, Registered: true})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Start launches the job queues and the cron runner.
func (s *ScheduleService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.renderQueue.Start(ctx)
	s.dispatchQueue.Start(ctx)
	s.cron.Start()
	s.running = true
	s.logger.Sugar().Infow("scheduler started", "entries", len(s.entries), "location", s.location.String())
}

// Stop halts the cron runner and drains the workers.
func (s *ScheduleService) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.renderQueue.Stop()
	s.dispatchQueue.Stop()
	s.logger.Sugar().Infow("scheduler stopped")
}

func (s *ScheduleService) resolveExpression(frequency, expression string) (string, cron.Schedule, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		freq := strings.ToLower(strings.TrimSpace(frequency))
		if freq == "" {
			return "", nil, appErrors.Clone(appErrors.ErrValidation, "frequency or cron is required")
		}
		preset, ok := frequencyPresets[freq]
		if ok {
			expression = preset
		} else {
			expression = strings.TrimSpace(frequency)
		}
	}
	sched, err := s.parser.Parse(expression)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid cron expression %q", expression))
	}
	return expression, sched, nil
}

func (s *ScheduleService) register(report models.ScheduledReport, sched cron.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[report.ID]; exists {
		return fmt.Errorf("schedule %s already registered", report.ID)
	}
	id := report.ID
	entryID := s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(id) }))
	s.entries[id] = &registration{entryID: entryID, schedule: sched, report: report}
	return nil
}

func (s *ScheduleService) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.entries[id]; ok {
		s.cron.Remove(reg.entryID)
		delete(s.entries, id)
	}
}

func (s *ScheduleService) lookup(id string) (models.ScheduledReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.entries[id]
	if !ok {
		return models.ScheduledReport{}, false
	}
	return reg.report, true
}

// fire runs on the cron goroutine and only hands off to the render queue.
func (s *ScheduleService) fire(id string) {
	firedAt := s.now().UTC()
	job := jobs.Job{ID: uuid.NewString(), Type: jobTypeRender, Payload: renderPayload{ScheduleID: id, FiredAt: firedAt}}
	if err := s.renderQueue.Enqueue(job); err != nil {
		s.finish(context.Background(), id, firedAt, models.RunStatusFailed, fmt.Errorf("enqueue render: %w", err))
	}
}

func (s *ScheduleService) handleRender(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(renderPayload)
	if !ok {
		s.logger.Sugar().Errorw("unexpected render payload", "job_id", job.ID)
		return nil
	}
	report, ok := s.lookup(payload.ScheduleID)
	if !ok {
		return nil
	}

	records, err := s.reports.Fetch(ctx, report.Filters)
	if err != nil {
		s.finish(ctx, report.ID, payload.FiredAt, models.RunStatusFailed, fmt.Errorf("fetch reports: %w", err))
		return nil
	}
	if len(records) == 0 {
		s.finish(ctx, report.ID, payload.FiredAt, models.RunStatusSkipped, nil)
		return nil
	}
	artifact, err := s.exports.Render(ctx, report.Format, records)
	if err != nil {
		s.finish(ctx, report.ID, payload.FiredAt, models.RunStatusFailed, fmt.Errorf("render report: %w", err))
		return nil
	}
	archived, err := s.exports.Archive(artifact, report.ID)
	if err != nil {
		s.logger.Sugar().Warnw("archive scheduled report failed", "schedule_id", report.ID, "error", err)
	}

	next := jobs.Job{
		ID:   job.ID,
		Type: jobTypeDispatch,
		Payload: dispatchPayload{
			ScheduleID: report.ID,
			FiredAt:    payload.FiredAt,
			Records:    records,
			Artifact:   artifact,
			Archive:    archived,
		},
	}
	if err := s.dispatchQueue.Enqueue(next); err != nil {
		s.finish(ctx, report.ID, payload.FiredAt, models.RunStatusFailed, fmt.Errorf("enqueue dispatch: %w", err))
	}
	return nil
}

func (s *ScheduleService) handleDispatch(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(dispatchPayload)
	if !ok {
		s.logger.Sugar().Errorw("unexpected dispatch payload", "job_id", job.ID)
		return nil
	}
	report, ok := s.lookup(payload.ScheduleID)
	if !ok {
		return nil
	}

	req := DeliveryRequest{To: report.Email, Records: payload.Records, Artifact: payload.Artifact}
	if payload.Archive != nil {
		req.DownloadURL = payload.Archive.URL
		req.LinkExpires = payload.Archive.ExpiresAt
	}
	if err := s.delivery.Dispatch(ctx, req); err != nil {
		s.finish(ctx, report.ID, payload.FiredAt, models.RunStatusFailed, err)
		return nil
	}
	s.finish(ctx, report.ID, payload.FiredAt, models.RunStatusSucceeded, nil)
	return nil
}

// finish records the outcome of a firing in memory and on the schedule row.
func (s *ScheduleService) finish(ctx context.Context, id string, firedAt time.Time, status models.RunStatus, runErr error) {
	s.metrics.RecordFiring(runErr)

	var errMsg *string
	if runErr != nil {
		msg := runErr.Error()
		errMsg = &msg
		s.logger.Sugar().Errorw("scheduled report firing failed", "schedule_id", id, "error", runErr)
	} else {
		s.logger.Sugar().Infow("scheduled report firing finished", "schedule_id", id, "status", status)
	}

	var next *time.Time
	s.mu.Lock()
	if reg, ok := s.entries[id]; ok {
		n := reg.schedule.Next(s.now().In(s.location))
		next = &n
		ranAt := firedAt
		st := status
		reg.report.LastRunAt = &ranAt
		reg.report.LastStatus = &st
		reg.report.LastError = errMsg
		reg.report.NextRunAt = next
	}
	s.mu.Unlock()

	if err := s.store.UpdateRun(ctx, id, repository.RunUpdate{Status: status, Error: errMsg, RanAt: firedAt, NextRunAt: next}); err != nil {
		s.logger.Sugar().Warnw("record schedule run failed", "schedule_id", id, "error", err)
	}
}
