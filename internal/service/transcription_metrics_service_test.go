package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-monitoring-api/internal/models"
	appErrors "github.com/noah-isme/sma-monitoring-api/pkg/errors"
)

type fakeTranscriptionRepo struct {
	mu sync.Mutex

	successes    int
	failures     int
	fallbacks    int
	aggregate    models.TranscriptionAggregate
	byProvider   []models.ProviderBreakdown
	timeline     []models.ErrorTimelinePoint
	recentErrors []models.RecentTranscriptionError

	failuresErr error
	timelineErr error

	sinces          []time.Time
	primaryProvider string
	recentLimit     int
}

func (f *fakeTranscriptionRepo) record(since time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinces = append(f.sinces, since)
}

func (f *fakeTranscriptionRepo) CountSuccesses(_ context.Context, since time.Time) (int, error) {
	f.record(since)
	return f.successes, nil
}

func (f *fakeTranscriptionRepo) CountFailures(_ context.Context, since time.Time) (int, error) {
	f.record(since)
	return f.failures, f.failuresErr
}

func (f *fakeTranscriptionRepo) CountFallbacks(_ context.Context, since time.Time, primary string) (int, error) {
	f.record(since)
	f.mu.Lock()
	f.primaryProvider = primary
	f.mu.Unlock()
	return f.fallbacks, nil
}

func (f *fakeTranscriptionRepo) Aggregate(_ context.Context, since time.Time) (models.TranscriptionAggregate, error) {
	f.record(since)
	return f.aggregate, nil
}

func (f *fakeTranscriptionRepo) ByProvider(_ context.Context, since time.Time) ([]models.ProviderBreakdown, error) {
	f.record(since)
	return f.byProvider, nil
}

func (f *fakeTranscriptionRepo) ErrorTimeline(_ context.Context, since time.Time) ([]models.ErrorTimelinePoint, error) {
	f.record(since)
	return f.timeline, f.timelineErr
}

func (f *fakeTranscriptionRepo) RecentErrors(_ context.Context, since time.Time, limit int) ([]models.RecentTranscriptionError, error) {
	f.record(since)
	f.mu.Lock()
	f.recentLimit = limit
	f.mu.Unlock()
	return f.recentErrors, nil
}

func floatPtr(v float64) *float64 { return &v }

func newTranscriptionService(repo *fakeTranscriptionRepo, now time.Time) *TranscriptionMetricsService {
	svc := NewTranscriptionMetricsService(repo, nil, nil, TranscriptionMetricsConfig{PrimaryProvider: "whisper"})
	svc.now = func() time.Time { return now }
	return svc
}

func TestTranscriptionSnapshotAggregates(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := &fakeTranscriptionRepo{
		successes: 95,
		failures:  5,
		fallbacks: 12,
		aggregate: models.TranscriptionAggregate{
			AvgLatencyMs:  floatPtr(1234.5678),
			AvgConfidence: floatPtr(0.912345),
			TotalCostUSD:  floatPtr(3.123456),
		},
		byProvider: []models.ProviderBreakdown{{Provider: "whisper", Count: 83}, {Provider: "deepgram", Count: 12}},
	}
	svc := newTranscriptionService(repo, now)

	snapshot, err := svc.Snapshot(context.Background(), "7d")
	require.NoError(t, err)

	assert.Equal(t, models.PeriodLast7Days, snapshot.Period)
	assert.Equal(t, now.Add(-7*24*time.Hour), snapshot.Since)
	assert.Equal(t, 95, snapshot.TotalSuccess)
	assert.Equal(t, 5, snapshot.TotalErrors)
	assert.Equal(t, 95.0, snapshot.SuccessRate)
	assert.Equal(t, 5.0, snapshot.ErrorRate)
	assert.Equal(t, 12, snapshot.FallbackCount)
	assert.Equal(t, 1234.57, snapshot.AvgLatencyMs)
	assert.Equal(t, 0.9123, snapshot.AvgConfidence)
	assert.Equal(t, 3.1235, snapshot.TotalCostUSD)
	assert.Len(t, snapshot.ByProvider, 2)
	assert.NotNil(t, snapshot.ErrorTimeline)
	assert.NotNil(t, snapshot.RecentErrors)

	assert.Equal(t, "whisper", repo.primaryProvider)
	assert.Equal(t, 10, repo.recentLimit)
	require.Len(t, repo.sinces, 7)
	for _, since := range repo.sinces {
		assert.Equal(t, now.Add(-7*24*time.Hour), since)
	}
}

func TestTranscriptionSnapshotEmptyWindow(t *testing.T) {
	svc := newTranscriptionService(&fakeTranscriptionRepo{}, time.Now())

	snapshot, err := svc.Snapshot(context.Background(), "bogus")
	require.NoError(t, err)

	assert.Equal(t, models.PeriodLast24Hours, snapshot.Period)
	assert.Zero(t, snapshot.SuccessRate)
	assert.Zero(t, snapshot.ErrorRate)
	assert.Zero(t, snapshot.AvgLatencyMs)
	assert.Zero(t, snapshot.AvgConfidence)
	assert.Zero(t, snapshot.TotalCostUSD)
	assert.Empty(t, snapshot.ByProvider)
}

func TestTranscriptionSnapshotFailsTogether(t *testing.T) {
	repo := &fakeTranscriptionRepo{successes: 10, timelineErr: errors.New("connection reset")}
	svc := newTranscriptionService(repo, time.Now())

	snapshot, err := svc.Snapshot(context.Background(), "24h")
	require.Error(t, err)
	assert.Nil(t, snapshot)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.ErrorContains(t, err, "connection reset")
}

func TestRecentErrorRateUsesTrailingHour(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := &fakeTranscriptionRepo{successes: 3, failures: 1}
	svc := newTranscriptionService(repo, now)

	rate, err := svc.RecentErrorRate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 25.0, rate.ErrorRate)
	assert.Equal(t, 1, rate.Errors)
	assert.Equal(t, 4, rate.Total)
	for _, since := range repo.sinces {
		assert.Equal(t, now.Add(-time.Hour), since)
	}
}

func TestRecentErrorRatePropagatesFailure(t *testing.T) {
	svc := newTranscriptionService(&fakeTranscriptionRepo{failuresErr: errors.New("db down")}, time.Now())

	rate, err := svc.RecentErrorRate(context.Background())
	assert.Error(t, err)
	assert.Nil(t, rate)
}
