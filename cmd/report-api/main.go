package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sales-report-api/api/swagger"
	"github.com/noah-isme/sales-report-api/internal/handler"
	"github.com/noah-isme/sales-report-api/internal/middleware"
	"github.com/noah-isme/sales-report-api/internal/repository"
	"github.com/noah-isme/sales-report-api/internal/service"
	"github.com/noah-isme/sales-report-api/pkg/cache"
	"github.com/noah-isme/sales-report-api/pkg/config"
	"github.com/noah-isme/sales-report-api/pkg/database"
	"github.com/noah-isme/sales-report-api/pkg/logger"
	"github.com/noah-isme/sales-report-api/pkg/mail"
	corsmiddleware "github.com/noah-isme/sales-report-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sales-report-api/pkg/middleware/requestid"
	"github.com/noah-isme/sales-report-api/pkg/storage"
)

// @title Sales Report API
// @version 1.0.0
// @description Sales report records, exports and scheduled email delivery
// @BasePath /api
// @schemes http

const (
	serviceName     = "sales-report-api"
	shutdownTimeout = 15 * time.Second
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "addr", cache.Addr(cfg.Redis), "error", err)
			redisClient = nil
		}
	}

	metricsSvc := service.NewMetricsService()
	validate := service.NewValidator()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient, serviceName, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, redisClient != nil)

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return fmt.Errorf("init report storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(files, signer, metricsSvc, service.ExportConfig{
		BaseURL:         cfg.Reports.PublicURL,
		RetainFor:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	}, logr)
	exportSvc.StartCleanup(ctx)

	deliverySvc := service.NewDeliveryService(mail.NewSMTPSender(cfg.Mail), metricsSvc, service.DeliveryConfig{Subject: cfg.Mail.Subject}, logr)

	reportRepo := repository.NewReportRepository(db)
	reportSvc := service.NewReportService(reportRepo, cacheSvc, exportSvc, deliverySvc, metricsSvc, validate,
		service.ReportServiceConfig{CacheTTL: cfg.Cache.TTL}, logr)

	var scheduler *service.ScheduleService
	if cfg.Scheduler.Enabled {
		scheduler, err = newScheduler(ctx, cfg, db, reportSvc, exportSvc, deliverySvc, metricsSvc, logr)
		if err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			scheduler.Stop(stopCtx)
		}()
	}

	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, redisClient) }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	handlers := handler.Handlers{
		Reports:   handler.NewReportHandler(reportSvc),
		Exports:   handler.NewExportHandler(exportSvc, reportSvc),
		Schedules: handler.NewScheduleHandler(nil, reportSvc),
		Metrics:   handler.NewMetricsHandler(metricsSvc, handler.ServiceInfo{Name: serviceName, Version: version, Env: cfg.Env}, checks),
	}
	if scheduler != nil {
		handlers.Schedules = handler.NewScheduleHandler(scheduler, reportSvc)
	}
	handler.Register(r, cfg.APIPrefix, handlers)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "scheduler", scheduler != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newScheduler(ctx context.Context, cfg *config.Config, db *sqlx.DB, reports *service.ReportService, exports *service.ExportService, delivery *service.DeliveryService, metrics *service.MetricsService, logr *zap.Logger) (*service.ScheduleService, error) {
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
	}
	scheduler := service.NewScheduleService(repository.NewScheduleRepository(db), reports, exports, delivery, metrics, nil,
		service.ScheduleConfig{Location: loc, Workers: cfg.Scheduler.Workers}, logr)
	if cfg.Scheduler.Restore {
		restored, err := scheduler.Restore(ctx)
		if err != nil {
			logr.Sugar().Warnw("schedule restore failed", "error", err)
		} else {
			logr.Sugar().Infow("schedules restored", "count", restored)
		}
	}
	scheduler.Start(ctx)
	return scheduler, nil
}
