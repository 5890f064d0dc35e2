package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-monitoring-api/internal/models"
	appErrors "github.com/noah-isme/sma-monitoring-api/pkg/errors"
)

type analysisMetricsRepository interface {
	Aggregate(ctx context.Context, since time.Time) (models.AnalysisAggregate, error)
	AvgReviewTime(ctx context.Context, since time.Time) (*float64, error)
	StatusHistogram(ctx context.Context, since time.Time) ([]models.AnalysisStatusCount, error)
}

// QueueCounter reports live job counts for the analysis queue.
type QueueCounter interface {
	WaitingCount(ctx context.Context) (int64, error)
	ActiveCount(ctx context.Context) (int64, error)
	CompletedCount(ctx context.Context) (int64, error)
	FailedCount(ctx context.Context) (int64, error)
	DelayedCount(ctx context.Context) (int64, error)
}

// AnalysisMetricsService derives analysis pipeline KPIs and queue depth.
type AnalysisMetricsService struct {
	repo    analysisMetricsRepository
	queue   QueueCounter
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAnalysisMetricsService constructs the service.
func NewAnalysisMetricsService(repo analysisMetricsRepository, queue QueueCounter, metrics *MetricsService, logger *zap.Logger) *AnalysisMetricsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisMetricsService{repo: repo, queue: queue, metrics: metrics, logger: logger, now: time.Now}
}

// Snapshot aggregates analyses for the period together with live queue depth.
func (s *AnalysisMetricsService) Snapshot(ctx context.Context, period string) (*models.AnalysisSnapshot, error) {
	if s.queue == nil {
		return nil, appErrors.ErrQueueUnavailable
	}
	since := ResolveWindowStart(period, s.now())

	var (
		aggregate  models.AnalysisAggregate
		reviewTime *float64
		histogram  []models.AnalysisStatusCount
		depth      models.QueueDepth
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(observeQuery(s.metrics, "analysis_aggregate", func() (err error) {
		aggregate, err = s.repo.Aggregate(gctx, since)
		return err
	}))
	g.Go(observeQuery(s.metrics, "analysis_review_time", func() (err error) {
		reviewTime, err = s.repo.AvgReviewTime(gctx, since)
		return err
	}))
	g.Go(observeQuery(s.metrics, "analysis_status_histogram", func() (err error) {
		histogram, err = s.repo.StatusHistogram(gctx, since)
		return err
	}))
	g.Go(func() (err error) {
		depth.Waiting, err = s.queue.WaitingCount(gctx)
		return err
	})
	g.Go(func() (err error) {
		depth.Active, err = s.queue.ActiveCount(gctx)
		return err
	})
	g.Go(func() (err error) {
		depth.Completed, err = s.queue.CompletedCount(gctx)
		return err
	})
	g.Go(func() (err error) {
		depth.Failed, err = s.queue.FailedCount(gctx)
		return err
	})
	g.Go(func() (err error) {
		depth.Delayed, err = s.queue.DelayedCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.ErrInternal.Wrap(err, "failed to load analysis metrics")
	}

	snapshot := &models.AnalysisSnapshot{
		Period:         NormalizePeriod(period),
		Since:          since.UTC(),
		Total:          aggregate.Total,
		AvgReviewTimeS: roundTo(valueOrZero(reviewTime), 2),
		ByStatus:       histogram,
		Queue:          depth,
	}
	// An empty window yields NULL averages; report 0 instead.
	if aggregate.Total > 0 {
		snapshot.AvgProcessingTimeS = roundTo(valueOrZero(aggregate.AvgProcessingTimeS), 2)
		snapshot.AvgCostUSD = roundTo(valueOrZero(aggregate.AvgCostUSD), 4)
	}
	if snapshot.ByStatus == nil {
		snapshot.ByStatus = []models.AnalysisStatusCount{}
	}
	return snapshot, nil
}

// QueueWaitingCount returns only the waiting count; the alert scheduler polls this.
func (s *AnalysisMetricsService) QueueWaitingCount(ctx context.Context) (int64, error) {
	if s.queue == nil {
		return 0, appErrors.ErrQueueUnavailable
	}
	return s.queue.WaitingCount(ctx)
}
