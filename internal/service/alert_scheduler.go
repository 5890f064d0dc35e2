package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-monitoring-api/internal/models"
)

// Alert thresholds. Each check fires only when the observed value is strictly greater.
const (
	STTErrorRateThreshold  = 5.0
	QueueWaitingThreshold  = 50
	SchoolCostThresholdUSD = 50.0
)

const (
	checkSTTErrorRate = "stt_error_rate"
	checkQueueBacklog = "analysis_queue_backlog"
	checkSchoolCosts  = "school_costs"
)

type transcriptionErrorRateSource interface {
	RecentErrorRate(ctx context.Context) (*models.TranscriptionErrorRate, error)
}

type queueWaitingSource interface {
	QueueWaitingCount(ctx context.Context) (int64, error)
}

type schoolCostSource interface {
	Summary(ctx context.Context, month string) (*models.CostSummary, error)
}

// AlertSchedulerConfig holds cron specs for the three checks. Empty specs disable the check.
type AlertSchedulerConfig struct {
	STTSchedule   string
	QueueSchedule string
	CostSchedule  string
	Location      *time.Location
}

// AlertScheduler periodically compares operational metrics against fixed thresholds and
// writes a structured warning for every breach.
type AlertScheduler struct {
	transcriptions transcriptionErrorRateSource
	queue          queueWaitingSource
	costs          schoolCostSource
	metrics        *MetricsService
	logger         *zap.Logger
	cfg            AlertSchedulerConfig
	now            func() time.Time
	newID          func() string

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewAlertScheduler constructs the scheduler; Start registers the cron entries.
func NewAlertScheduler(transcriptions transcriptionErrorRateSource, queue queueWaitingSource, costs schoolCostSource, metrics *MetricsService, logger *zap.Logger, cfg AlertSchedulerConfig) *AlertScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &AlertScheduler{
		transcriptions: transcriptions,
		queue:          queue,
		costs:          costs,
		metrics:        metrics,
		logger:         logger,
		cfg:            cfg,
		now:            time.Now,
		newID:          func() string { return uuid.NewString() },
	}
}

// Start registers the checks and begins the cron loop. Calling Start twice is a no-op.
func (s *AlertScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	cronLogger := cronZapLogger{logger: s.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	s.ctx, s.cancel = context.WithCancel(ctx)
	entries := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{checkSTTErrorRate, s.cfg.STTSchedule, s.CheckTranscriptionErrorRate},
		{checkQueueBacklog, s.cfg.QueueSchedule, s.CheckQueueBacklog},
		{checkSchoolCosts, s.cfg.CostSchedule, s.CheckSchoolCosts},
	}
	for _, entry := range entries {
		if entry.spec == "" {
			s.logger.Info("alert check disabled", zap.String("check", entry.name))
			continue
		}
		run := entry.run
		if _, err := c.AddFunc(entry.spec, func() { run(s.ctx) }); err != nil {
			s.cancel()
			return fmt.Errorf("schedule %s check %q: %w", entry.name, entry.spec, err)
		}
	}

	c.Start()
	s.cron = c
	s.started = true
	s.logger.Info("alert scheduler started",
		zap.String("stt_schedule", s.cfg.STTSchedule),
		zap.String("queue_schedule", s.cfg.QueueSchedule),
		zap.String("cost_schedule", s.cfg.CostSchedule))
	return nil
}

// Stop halts the cron loop and waits for running checks to return.
func (s *AlertScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	c := s.cron
	s.cancel()
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info("alert scheduler stopped")
}

// CheckTranscriptionErrorRate warns when more than 5% of transcriptions failed in the last hour.
func (s *AlertScheduler) CheckTranscriptionErrorRate(ctx context.Context) {
	s.runCheck(ctx, checkSTTErrorRate, func(ctx context.Context) error {
		rate, err := s.transcriptions.RecentErrorRate(ctx)
		if err != nil {
			return err
		}
		s.metrics.SetSTTErrorRate(rate.ErrorRate)
		if rate.ErrorRate <= STTErrorRateThreshold {
			return nil
		}
		s.emit(models.AlertKindSTTErrorRate, "transcription error rate above threshold", map[string]interface{}{
			"error_rate": rate.ErrorRate,
			"errors":     rate.Errors,
			"total":      rate.Total,
			"threshold":  STTErrorRateThreshold,
		})
		return nil
	})
}

// CheckQueueBacklog warns when more than 50 analysis jobs are waiting.
func (s *AlertScheduler) CheckQueueBacklog(ctx context.Context) {
	s.runCheck(ctx, checkQueueBacklog, func(ctx context.Context) error {
		waiting, err := s.queue.QueueWaitingCount(ctx)
		if err != nil {
			return err
		}
		s.metrics.SetQueueWaiting(waiting)
		if waiting <= QueueWaitingThreshold {
			return nil
		}
		s.emit(models.AlertKindQueueBacklog, "analysis queue backlog above threshold", map[string]interface{}{
			"waiting":   waiting,
			"threshold": QueueWaitingThreshold,
		})
		return nil
	})
}

// CheckSchoolCosts warns once, listing every school whose current-month cost exceeds 50 USD.
func (s *AlertScheduler) CheckSchoolCosts(ctx context.Context) {
	s.runCheck(ctx, checkSchoolCosts, func(ctx context.Context) error {
		summary, err := s.costs.Summary(ctx, s.now().In(s.cfg.Location).Format(monthLayout))
		if err != nil {
			return err
		}
		offenders := make([]models.SchoolCostOffender, 0)
		for _, school := range summary.Schools {
			if school.TotalCostUSD > SchoolCostThresholdUSD {
				offenders = append(offenders, models.SchoolCostOffender{Name: school.SchoolName, Cost: school.TotalCostUSD})
			}
		}
		if len(offenders) == 0 {
			return nil
		}
		s.emit(models.AlertKindSchoolCost, "school monthly cost above threshold", map[string]interface{}{
			"month":     summary.Month,
			"schools":   offenders,
			"threshold": SchoolCostThresholdUSD,
		})
		return nil
	})
}

// runCheck isolates one check: an error or panic is logged once and never reaches the caller.
// Deadlines are left to the Postgres and Redis clients.
func (s *AlertScheduler) runCheck(ctx context.Context, name string, fn func(context.Context) error) {
	if ctx == nil {
		ctx = context.Background()
	}

	defer func() {
		if r := recover(); r != nil {
			s.metrics.RecordCheckFailure(name)
			s.logger.Error("alert check panicked",
				zap.String("check", name),
				zap.Error(fmt.Errorf("panic: %v", r)))
		}
	}()

	if err := fn(ctx); err != nil {
		s.metrics.RecordCheckFailure(name)
		s.logger.Error("alert check failed", zap.String("check", name), zap.Error(err))
	}
}

func (s *AlertScheduler) emit(kind models.AlertKind, msg string, payload map[string]interface{}) models.AlertEvent {
	event := models.AlertEvent{
		ID:        s.newID(),
		Kind:      kind,
		Severity:  models.AlertSeverityWarning,
		Payload:   payload,
		EmittedAt: s.now().UTC(),
	}
	s.metrics.RecordAlert(kind)
	s.logger.Warn(msg,
		zap.String("alert_id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("severity", event.Severity),
		zap.Any("payload", event.Payload),
		zap.Time("emitted_at", event.EmittedAt))
	return event
}

// cronZapLogger adapts a sugared zap logger to cron.Logger.
type cronZapLogger struct {
	logger *zap.SugaredLogger
}

func (l cronZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronZapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
