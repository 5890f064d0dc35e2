package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-monitoring-api/internal/models"
	appErrors "github.com/noah-isme/sma-monitoring-api/pkg/errors"
)

type transcriptionMetricsRepository interface {
	CountSuccesses(ctx context.Context, since time.Time) (int, error)
	CountFailures(ctx context.Context, since time.Time) (int, error)
	CountFallbacks(ctx context.Context, since time.Time, primaryProvider string) (int, error)
	Aggregate(ctx context.Context, since time.Time) (models.TranscriptionAggregate, error)
	ByProvider(ctx context.Context, since time.Time) ([]models.ProviderBreakdown, error)
	ErrorTimeline(ctx context.Context, since time.Time) ([]models.ErrorTimelinePoint, error)
	RecentErrors(ctx context.Context, since time.Time, limit int) ([]models.RecentTranscriptionError, error)
}

// TranscriptionMetricsConfig tunes the transcription metrics service.
type TranscriptionMetricsConfig struct {
	// PrimaryProvider is the configured default speech-to-text provider; any other provider counts as fallback.
	PrimaryProvider  string
	RecentErrorLimit int
}

// TranscriptionMetricsService derives speech-to-text quality metrics from stored transcriptions.
type TranscriptionMetricsService struct {
	repo    transcriptionMetricsRepository
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     TranscriptionMetricsConfig
}

// NewTranscriptionMetricsService constructs the service.
func NewTranscriptionMetricsService(repo transcriptionMetricsRepository, metrics *MetricsService, logger *zap.Logger, cfg TranscriptionMetricsConfig) *TranscriptionMetricsService {
	if cfg.RecentErrorLimit <= 0 {
		cfg.RecentErrorLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptionMetricsService{repo: repo, metrics: metrics, logger: logger, now: time.Now, cfg: cfg}
}

// Snapshot aggregates transcription outcomes for the period. All sub-queries run concurrently and
// any single failure fails the whole snapshot.
func (s *TranscriptionMetricsService) Snapshot(ctx context.Context, period string) (*models.TranscriptionSnapshot, error) {
	since := ResolveWindowStart(period, s.now())

	var (
		successes    int
		failures     int
		fallbacks    int
		aggregate    models.TranscriptionAggregate
		byProvider   []models.ProviderBreakdown
		timeline     []models.ErrorTimelinePoint
		recentErrors []models.RecentTranscriptionError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.timed("stt_successes", func() (err error) {
		successes, err = s.repo.CountSuccesses(gctx, since)
		return err
	}))
	g.Go(s.timed("stt_failures", func() (err error) {
		failures, err = s.repo.CountFailures(gctx, since)
		return err
	}))
	g.Go(s.timed("stt_fallbacks", func() (err error) {
		fallbacks, err = s.repo.CountFallbacks(gctx, since, s.cfg.PrimaryProvider)
		return err
	}))
	g.Go(s.timed("stt_aggregate", func() (err error) {
		aggregate, err = s.repo.Aggregate(gctx, since)
		return err
	}))
	g.Go(s.timed("stt_by_provider", func() (err error) {
		byProvider, err = s.repo.ByProvider(gctx, since)
		return err
	}))
	g.Go(s.timed("stt_error_timeline", func() (err error) {
		timeline, err = s.repo.ErrorTimeline(gctx, since)
		return err
	}))
	g.Go(s.timed("stt_recent_errors", func() (err error) {
		recentErrors, err = s.repo.RecentErrors(gctx, since, s.cfg.RecentErrorLimit)
		return err
	}))
	if err := g.Wait(); err != nil {
		return nil, appErrors.ErrInternal.Wrap(err, "failed to load transcription metrics")
	}

	base := successes + failures
	s.logger.Debug("transcription snapshot computed",
		zap.String("period", string(NormalizePeriod(period))),
		zap.Int("successes", successes),
		zap.Int("failures", failures))
	snapshot := &models.TranscriptionSnapshot{
		Period:        NormalizePeriod(period),
		Since:         since.UTC(),
		TotalSuccess:  successes,
		TotalErrors:   failures,
		SuccessRate:   ratePercent(successes, base),
		ErrorRate:     ratePercent(failures, base),
		FallbackCount: fallbacks,
		AvgLatencyMs:  roundTo(valueOrZero(aggregate.AvgLatencyMs), 2),
		AvgConfidence: roundTo(valueOrZero(aggregate.AvgConfidence), 4),
		TotalCostUSD:  roundTo(valueOrZero(aggregate.TotalCostUSD), 4),
		ByProvider:    byProvider,
		ErrorTimeline: timeline,
		RecentErrors:  recentErrors,
	}
	if snapshot.ByProvider == nil {
		snapshot.ByProvider = []models.ProviderBreakdown{}
	}
	if snapshot.ErrorTimeline == nil {
		snapshot.ErrorTimeline = []models.ErrorTimelinePoint{}
	}
	if snapshot.RecentErrors == nil {
		snapshot.RecentErrors = []models.RecentTranscriptionError{}
	}
	return snapshot, nil
}

// RecentErrorRate computes the error ratio over the trailing hour using the same base as Snapshot.
func (s *TranscriptionMetricsService) RecentErrorRate(ctx context.Context) (*models.TranscriptionErrorRate, error) {
	since := ResolveWindowStart(string(models.PeriodLastHour), s.now())

	var successes, failures int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.timed("stt_successes", func() (err error) {
		successes, err = s.repo.CountSuccesses(gctx, since)
		return err
	}))
	g.Go(s.timed("stt_failures", func() (err error) {
		failures, err = s.repo.CountFailures(gctx, since)
		return err
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := successes + failures
	return &models.TranscriptionErrorRate{
		ErrorRate: ratePercent(failures, total),
		Errors:    failures,
		Total:     total,
	}, nil
}

func (s *TranscriptionMetricsService) timed(label string, fn func() error) func() error {
	return observeQuery(s.metrics, label, fn)
}

func observeQuery(metrics *MetricsService, label string, fn func() error) func() error {
	return func() error {
		start := time.Now()
		err := fn()
		metrics.ObserveDBQuery(label, time.Since(start))
		return err
	}
}
