package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-monitoring-api/internal/dto"
	"github.com/noah-isme/sma-monitoring-api/internal/models"
	appErrors "github.com/noah-isme/sma-monitoring-api/pkg/errors"
)

const monthLayout = "2006-01"

type costMetricsRepository interface {
	SchoolCosts(ctx context.Context, from, to time.Time) ([]models.SchoolCostRow, error)
}

// CostMetricsConfig tunes the cost metrics service.
type CostMetricsConfig struct {
	// Location decides which calendar month is "current".
	Location *time.Location
	CacheTTL time.Duration
}

// CostMetricsService aggregates per-school speech-to-text and language-model spend.
type CostMetricsService struct {
	repo      costMetricsRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       CostMetricsConfig
}

// NewCostMetricsService constructs the service.
func NewCostMetricsService(repo costMetricsRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg CostMetricsConfig) *CostMetricsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &CostMetricsService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// CurrentMonth formats the current calendar month as YYYY-MM.
func (s *CostMetricsService) CurrentMonth() string {
	return s.now().In(s.cfg.Location).Format(monthLayout)
}

// Summary returns per-school costs for the month (default: current month) ranked by total cost.
func (s *CostMetricsService) Summary(ctx context.Context, month string) (*models.CostSummary, error) {
	summary, _, err := s.Report(ctx, month)
	return summary, err
}

// Report behaves like Summary and also reports whether the summary came from cache.
func (s *CostMetricsService) Report(ctx context.Context, month string) (*models.CostSummary, bool, error) {
	req := dto.CostSummaryRequest{Month: strings.TrimSpace(month)}
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.ErrInvalidMonth.Wrap(err, "")
	}

	now := s.now().In(s.cfg.Location)
	if req.Month == "" {
		req.Month = now.Format(monthLayout)
	}
	from, err := time.ParseInLocation(monthLayout, req.Month, s.cfg.Location)
	if err != nil {
		return nil, false, appErrors.ErrInvalidMonth.Wrap(err, "")
	}
	to := from.AddDate(0, 1, 0)

	currentMonthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.cfg.Location)
	closed := from.Before(currentMonthStart)
	cacheKey := fmt.Sprintf("monitoring:costs:%s", req.Month)
	if closed {
		var cached models.CostSummary
		if s.cache.Get(ctx, cacheKey, &cached) {
			return &cached, true, nil
		}
	}

	start := time.Now()
	rows, err := s.repo.SchoolCosts(ctx, from, to)
	s.metrics.ObserveDBQuery("school_costs", time.Since(start))
	if err != nil {
		return nil, false, appErrors.ErrInternal.Wrap(err, "failed to load school costs")
	}

	summary := BuildCostSummary(req.Month, rows, now)
	if closed {
		s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL)
	}
	return summary, false, nil
}

// BuildCostSummary rounds per-school rows, totals them and projects the month.
// Only the month containing now is extrapolated; any other month projects to its actual total.
func BuildCostSummary(month string, rows []models.SchoolCostRow, now time.Time) *models.CostSummary {
	schools := make([]models.SchoolCostRow, len(rows))
	copy(schools, rows)
	sort.SliceStable(schools, func(i, j int) bool {
		return schools[i].TotalCostUSD > schools[j].TotalCostUSD
	})

	var accumulated float64
	var lessons int
	for i := range schools {
		row := &schools[i]
		row.STTCostUSD = roundTo(row.STTCostUSD, 4)
		row.LLMCostUSD = roundTo(row.LLMCostUSD, 4)
		row.TotalCostUSD = roundTo(row.TotalCostUSD, 4)
		row.CostPerLesson = 0
		if row.LessonCount > 0 {
			row.CostPerLesson = roundTo(row.TotalCostUSD/float64(row.LessonCount), 4)
		}
		accumulated += row.TotalCostUSD
		lessons += row.LessonCount
	}

	total := roundTo(accumulated, 2)
	projection := total
	if month == now.Format(monthLayout) {
		projection = projectMonthlyCost(accumulated, now)
	}

	return &models.CostSummary{
		Schools: schools,
		Totals: models.CostTotals{
			TotalCostUSD:      total,
			TotalLessons:      lessons,
			SchoolCount:       len(schools),
			MonthlyProjection: projection,
		},
		Month: month,
	}
}

// projectMonthlyCost extrapolates the daily average spend so far across the whole month.
func projectMonthlyCost(accumulated float64, now time.Time) float64 {
	daysElapsed := now.Day()
	if daysElapsed <= 0 {
		return 0
	}
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	return roundTo(accumulated/float64(daysElapsed)*float64(daysInMonth), 2)
}
