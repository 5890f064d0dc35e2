package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-monitoring-api/internal/handler"
	"github.com/noah-isme/sma-monitoring-api/internal/repository"
	"github.com/noah-isme/sma-monitoring-api/internal/service"
	"github.com/noah-isme/sma-monitoring-api/pkg/cache"
	"github.com/noah-isme/sma-monitoring-api/pkg/config"
	"github.com/noah-isme/sma-monitoring-api/pkg/database"
	"github.com/noah-isme/sma-monitoring-api/pkg/logger"
)

// @title Lesson Operations Monitoring API
// @version 1.0.0
// @description Operational metrics and threshold alerts for the lesson transcription and analysis pipeline
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// The summary cache degrades to misses; a Redis-backed queue reports unavailable.
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	queue := newQueueCounter(cfg.Monitoring, redisClient)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Monitoring.CacheTTL, logr, cfg.Monitoring.CacheEnabled && cacheRepo != nil)

	transcriptions := service.NewTranscriptionMetricsService(
		repository.NewTranscriptionMetricsRepository(db), metrics, logr,
		service.TranscriptionMetricsConfig{PrimaryProvider: cfg.Monitoring.PrimaryTranscriptionProvider},
	)
	analyses := service.NewAnalysisMetricsService(repository.NewAnalysisMetricsRepository(db), queue, metrics, logr)
	costs := service.NewCostMetricsService(repository.NewCostMetricsRepository(db), cacheSvc, metrics, validate, logr,
		service.CostMetricsConfig{Location: cfg.Monitoring.Location(), CacheTTL: cfg.Monitoring.CacheTTL})

	var exports *service.CostExportService
	if cfg.Reports.Enabled {
		exports = service.NewCostExportService(costs, validate)
	}

	if cfg.Alerts.Enabled {
		scheduler := service.NewAlertScheduler(transcriptions, analyses, costs, metrics, logr, service.AlertSchedulerConfig{
			STTSchedule:   cfg.Alerts.STTSchedule,
			QueueSchedule: cfg.Alerts.QueueSchedule,
			CostSchedule:  cfg.Alerts.CostSchedule,
			Location:      cfg.Monitoring.Location(),
		})
		if err := scheduler.Start(ctx); err != nil {
			logr.Fatal("failed to start alert scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	checks := map[string]handler.Pinger{"postgres": pingDB(db)}
	if redisClient != nil {
		checks["redis"] = pingRedis(redisClient)
	}

	router := newRouter(routerDeps{
		cfg:        cfg,
		logger:     logr,
		metrics:    metrics,
		monitoring: handler.NewMonitoringHandler(transcriptions, analyses, costs, exportsOrNil(exports)),
		probes:     handler.NewMetricsHandler(metrics, checks),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logr.Error("server failed", zap.Error(err))
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("could not stop server gracefully", zap.Error(err))
		_ = server.Close()
	}
}

// newQueueCounter reads the analysis queue the pipeline workers share through Redis.
// Without Redis there is nothing to count and queue metrics report unavailable.
func newQueueCounter(cfg config.MonitoringConfig, client *redis.Client) service.QueueCounter {
	if client == nil {
		return nil
	}
	return repository.NewQueueRepository(client, cfg.QueueKeyPrefix, cfg.QueueName)
}

func exportsOrNil(exports *service.CostExportService) handler.CostExporter {
	if exports == nil {
		return nil
	}
	return exports
}

func pingDB(db *sqlx.DB) handler.Pinger {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

func pingRedis(client *redis.Client) handler.Pinger {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
