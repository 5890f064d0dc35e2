package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-monitoring-api/internal/models"
	appErrors "github.com/noah-isme/sma-monitoring-api/pkg/errors"
)

type fakeCostRepo struct {
	rows  []models.SchoolCostRow
	err   error
	calls int
	from  time.Time
	to    time.Time
}

func (f *fakeCostRepo) SchoolCosts(_ context.Context, from, to time.Time) ([]models.SchoolCostRow, error) {
	f.calls++
	f.from, f.to = from, to
	return f.rows, f.err
}

type memoryCacheRepo struct {
	store map[string][]byte
	sets  []string
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = payload
	m.sets = append(m.sets, key)
	return nil
}

func newCostService(repo *fakeCostRepo, cacheRepo CacheRepository, now time.Time) *CostMetricsService {
	cache := NewCacheService(cacheRepo, nil, time.Hour, nil, cacheRepo != nil)
	svc := NewCostMetricsService(repo, cache, nil, nil, nil, CostMetricsConfig{})
	svc.now = func() time.Time { return now }
	return svc
}

func TestBuildCostSummaryPastMonthProjectsActualTotal(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	rows := []models.SchoolCostRow{
		{SchoolID: "a", SchoolName: "A", TotalCostUSD: 20, LessonCount: 4},
		{SchoolID: "b", SchoolName: "B", TotalCostUSD: 30, LessonCount: 6},
	}

	summary := BuildCostSummary("2026-03", rows, now)

	assert.Equal(t, 50.0, summary.Totals.TotalCostUSD)
	assert.Equal(t, 50.0, summary.Totals.MonthlyProjection)
	assert.Equal(t, 10, summary.Totals.TotalLessons)
	assert.Equal(t, 2, summary.Totals.SchoolCount)
}

func TestBuildCostSummaryCurrentMonthExtrapolates(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	rows := []models.SchoolCostRow{{SchoolID: "a", SchoolName: "A", TotalCostUSD: 100, LessonCount: 10}}

	summary := BuildCostSummary("2026-04", rows, now)

	expected := math.Round(100.0/10*30*100) / 100
	assert.Equal(t, expected, summary.Totals.MonthlyProjection)
	assert.Equal(t, 300.0, summary.Totals.MonthlyProjection)
}

func TestBuildCostSummaryOrderingAndRounding(t *testing.T) {
	rows := []models.SchoolCostRow{
		{SchoolID: "low", SchoolName: "Low", STTCostUSD: 0.123456, LLMCostUSD: 1, TotalCostUSD: 1.123456, LessonCount: 3},
		{SchoolID: "idle", SchoolName: "Idle", TotalCostUSD: 0, LessonCount: 0},
		{SchoolID: "high", SchoolName: "High", TotalCostUSD: 75.5, LessonCount: 10},
	}

	summary := BuildCostSummary("2026-01", rows, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	require.Len(t, summary.Schools, 3)
	assert.Equal(t, "high", summary.Schools[0].SchoolID)
	assert.Equal(t, "low", summary.Schools[1].SchoolID)
	assert.Equal(t, "idle", summary.Schools[2].SchoolID)
	for i := 1; i < len(summary.Schools); i++ {
		assert.GreaterOrEqual(t, summary.Schools[i-1].TotalCostUSD, summary.Schools[i].TotalCostUSD)
	}
	assert.Equal(t, 0.1235, summary.Schools[1].STTCostUSD)
	assert.Equal(t, 1.1235, summary.Schools[1].TotalCostUSD)
	assert.Equal(t, 0.3745, summary.Schools[1].CostPerLesson)
	assert.Equal(t, 7.55, summary.Schools[0].CostPerLesson)
	assert.Zero(t, summary.Schools[2].CostPerLesson)
	assert.Equal(t, "low", rows[0].SchoolID, "input rows are not reordered")
}

func TestProjectMonthlyCost(t *testing.T) {
	assert.Equal(t, 310.0, projectMonthlyCost(10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28.0, projectMonthlyCost(28, time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0.0, projectMonthlyCost(0, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)))
}

func TestCostSummaryDefaultsToCurrentMonth(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeCostRepo{}
	svc := newCostService(repo, nil, now)

	summary, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "2026-04", summary.Month)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), repo.from)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), repo.to)
	assert.NotNil(t, summary.Schools)
	assert.Zero(t, summary.Totals.MonthlyProjection)
	assert.Equal(t, "2026-04", svc.CurrentMonth())
}

func TestCostSummaryRejectsMalformedMonth(t *testing.T) {
	repo := &fakeCostRepo{}
	svc := newCostService(repo, nil, time.Now())

	for _, month := range []string{"2026-13", "04-2026", "2026/04", "abc"} {
		_, err := svc.Summary(context.Background(), month)
		require.Error(t, err, month)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, month)
	}
	assert.Zero(t, repo.calls)
}

func TestCostSummaryCachesClosedMonthsOnly(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeCostRepo{rows: []models.SchoolCostRow{{SchoolID: "a", SchoolName: "A", TotalCostUSD: 12, LessonCount: 2}}}
	cacheRepo := &memoryCacheRepo{}
	svc := newCostService(repo, cacheRepo, now)

	first, hit, err := svc.Report(context.Background(), "2026-03")
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Report(context.Background(), "2026-03")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, []string{"monitoring:costs:2026-03"}, cacheRepo.sets)

	_, hit, err = svc.Report(context.Background(), "2026-04")
	require.NoError(t, err)
	assert.False(t, hit)
	_, _, err = svc.Report(context.Background(), "2026-04")
	require.NoError(t, err)
	assert.Equal(t, 3, repo.calls)
	assert.Len(t, cacheRepo.sets, 1)
}

func TestCostSummaryRepositoryFailure(t *testing.T) {
	svc := newCostService(&fakeCostRepo{err: errors.New("relation does not exist")}, nil, time.Now())

	summary, err := svc.Summary(context.Background(), "")
	assert.Nil(t, summary)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
