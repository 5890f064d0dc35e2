package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-monitoring-api/internal/models"
)

// TranscriptionMetricsRepository runs read-only aggregates over transcriptions and lessons.
type TranscriptionMetricsRepository struct {
	db *sqlx.DB
}

// NewTranscriptionMetricsRepository instantiates the repository.
func NewTranscriptionMetricsRepository(db *sqlx.DB) *TranscriptionMetricsRepository {
	return &TranscriptionMetricsRepository{db: db}
}

// sttFailureFilter matches lessons that failed without ever producing a transcription.
const sttFailureFilter = `l.status = $1 AND l.updated_at >= $2
        AND NOT EXISTS (SELECT 1 FROM transcriptions t WHERE t.lesson_id = l.id)`

// CountSuccesses counts transcriptions produced since the given instant.
func (r *TranscriptionMetricsRepository) CountSuccesses(ctx context.Context, since time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM transcriptions WHERE created_at >= $1`, since); err != nil {
		return 0, fmt.Errorf("count transcription successes: %w", err)
	}
	return count, nil
}

// CountFailures counts lessons marked failed with no transcription since the given instant.
func (r *TranscriptionMetricsRepository) CountFailures(ctx context.Context, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM lessons l WHERE ` + sttFailureFilter
	var count int
	if err := r.db.GetContext(ctx, &count, query, string(models.LessonStatusFailed), since); err != nil {
		return 0, fmt.Errorf("count transcription failures: %w", err)
	}
	return count, nil
}

// CountFallbacks counts transcriptions served by any provider other than the primary one.
func (r *TranscriptionMetricsRepository) CountFallbacks(ctx context.Context, since time.Time, primaryProvider string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM transcriptions WHERE created_at >= $1 AND provider <> $2`
	if err := r.db.GetContext(ctx, &count, query, since, primaryProvider); err != nil {
		return 0, fmt.Errorf("count fallback transcriptions: %w", err)
	}
	return count, nil
}

// Aggregate returns latency/confidence averages and the cost sum. Fields are nil when no rows matched.
func (r *TranscriptionMetricsRepository) Aggregate(ctx context.Context, since time.Time) (models.TranscriptionAggregate, error) {
	var agg models.TranscriptionAggregate
	query := `SELECT AVG(processing_time_ms) AS avg_latency_ms,
        AVG(confidence) AS avg_confidence,
        SUM(cost_usd) AS total_cost_usd
        FROM transcriptions
        WHERE created_at >= $1`
	if err := r.db.GetContext(ctx, &agg, query, since); err != nil {
		return agg, fmt.Errorf("aggregate transcriptions: %w", err)
	}
	return agg, nil
}

// ByProvider groups transcription counts and averages per provider, busiest first.
func (r *TranscriptionMetricsRepository) ByProvider(ctx context.Context, since time.Time) ([]models.ProviderBreakdown, error) {
	query := `SELECT provider,
        COUNT(*) AS count,
        COALESCE(AVG(processing_time_ms), 0) AS avg_latency_ms,
        COALESCE(AVG(confidence), 0) AS avg_confidence,
        COALESCE(AVG(cost_usd), 0) AS avg_cost_usd
        FROM transcriptions
        WHERE created_at >= $1
        GROUP BY provider
        ORDER BY count DESC`
	var rows []models.ProviderBreakdown
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("query transcriptions by provider: %w", err)
	}
	return rows, nil
}

// ErrorTimeline buckets post-transcription lesson outcomes per hour. Lessons still waiting for
// transcription are excluded so in-flight work counts as neither success nor failure.
func (r *TranscriptionMetricsRepository) ErrorTimeline(ctx context.Context, since time.Time) ([]models.ErrorTimelinePoint, error) {
	statuses := make([]string, 0, len(models.PostTranscriptionStatuses))
	for _, status := range models.PostTranscriptionStatuses {
		statuses = append(statuses, string(status))
	}
	query := `SELECT date_trunc('hour', l.updated_at) AS hour_bucket,
        COUNT(*) FILTER (WHERE l.status = $1) AS errors,
        COUNT(*) FILTER (WHERE l.status <> $1) AS successes
        FROM lessons l
        WHERE l.updated_at >= $2 AND l.status = ANY($3)
        GROUP BY hour_bucket
        ORDER BY hour_bucket ASC`
	var points []models.ErrorTimelinePoint
	if err := r.db.SelectContext(ctx, &points, query, string(models.LessonStatusFailed), since, pq.Array(statuses)); err != nil {
		return nil, fmt.Errorf("query transcription error timeline: %w", err)
	}
	return points, nil
}

// RecentErrors lists the most recently updated transcription failures.
func (r *TranscriptionMetricsRepository) RecentErrors(ctx context.Context, since time.Time, limit int) ([]models.RecentTranscriptionError, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT l.id AS lesson_id, l.school_id, l.date, l.updated_at, l.file_size_bytes, l.input_type
        FROM lessons l
        WHERE ` + sttFailureFilter + `
        ORDER BY l.updated_at DESC
        LIMIT $3`
	var rows []models.RecentTranscriptionError
	if err := r.db.SelectContext(ctx, &rows, query, string(models.LessonStatusFailed), since, limit); err != nil {
		return nil, fmt.Errorf("query recent transcription errors: %w", err)
	}
	return rows, nil
}
