package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-monitoring-api/internal/models"
)

// AnalysisMetricsRepository exposes aggregates over the analyses table.
type AnalysisMetricsRepository struct {
	db *sqlx.DB
}

// NewAnalysisMetricsRepository instantiates the repository.
func NewAnalysisMetricsRepository(db *sqlx.DB) *AnalysisMetricsRepository {
	return &AnalysisMetricsRepository{db: db}
}

// Aggregate counts analyses since the given instant along with nullable processing and cost averages.
func (r *AnalysisMetricsRepository) Aggregate(ctx context.Context, since time.Time) (models.AnalysisAggregate, error) {
	var agg models.AnalysisAggregate
	query := `SELECT COUNT(*) AS total,
        AVG(processing_time_s) AS avg_processing_time_s,
        AVG(cost_usd) AS avg_cost_usd
        FROM analyses
        WHERE created_at >= $1`
	if err := r.db.GetContext(ctx, &agg, query, since); err != nil {
		return agg, fmt.Errorf("aggregate analyses: %w", err)
	}
	return agg, nil
}

// AvgReviewTime averages review time over analyses that were actually reviewed.
func (r *AnalysisMetricsRepository) AvgReviewTime(ctx context.Context, since time.Time) (*float64, error) {
	var avg *float64
	query := `SELECT AVG(review_time_s) FROM analyses WHERE created_at >= $1 AND review_time_s IS NOT NULL`
	if err := r.db.GetContext(ctx, &avg, query, since); err != nil {
		return nil, fmt.Errorf("average analysis review time: %w", err)
	}
	return avg, nil
}

// StatusHistogram counts analyses per status.
func (r *AnalysisMetricsRepository) StatusHistogram(ctx context.Context, since time.Time) ([]models.AnalysisStatusCount, error) {
	query := `SELECT status, COUNT(*) AS count
        FROM analyses
        WHERE created_at >= $1
        GROUP BY status
        ORDER BY status ASC`
	var rows []models.AnalysisStatusCount
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("query analysis status histogram: %w", err)
	}
	return rows, nil
}
