package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-monitoring-api/internal/models"
)

// CostMetricsRepository aggregates transcription and analysis spend per school.
type CostMetricsRepository struct {
	db *sqlx.DB
}

// NewCostMetricsRepository instantiates the repository.
func NewCostMetricsRepository(db *sqlx.DB) *CostMetricsRepository {
	return &CostMetricsRepository{db: db}
}

// Transcription and analysis spend are rolled up per lesson before joining, so a lesson with several
// transcriptions or analysis attempts contributes each cost exactly once.
const (
	lessonTranscriptionCosts = `SELECT lesson_id, SUM(cost_usd) AS cost_usd FROM transcriptions GROUP BY lesson_id`
	lessonAnalysisCosts      = `SELECT lesson_id, SUM(cost_usd) AS cost_usd FROM analyses GROUP BY lesson_id`
)

// SchoolCosts returns one row per school with lessons dated in [from, to), most expensive first.
func (r *CostMetricsRepository) SchoolCosts(ctx context.Context, from, to time.Time) ([]models.SchoolCostRow, error) {
	query := `SELECT s.id AS school_id, s.name AS school_name,
        COALESCE(SUM(t.cost_usd), 0) AS stt_cost_usd,
        COALESCE(SUM(a.cost_usd), 0) AS llm_cost_usd,
        COALESCE(SUM(t.cost_usd), 0) + COALESCE(SUM(a.cost_usd), 0) AS total_cost_usd,
        COUNT(l.id) AS lesson_count,
        COUNT(DISTINCT l.teacher_id) AS active_teacher_count
        FROM schools s
        JOIN lessons l ON l.school_id = s.id
        LEFT JOIN (` + lessonTranscriptionCosts + `) t ON t.lesson_id = l.id
        LEFT JOIN (` + lessonAnalysisCosts + `) a ON a.lesson_id = l.id
        WHERE l.date >= $1 AND l.date < $2
        GROUP BY s.id, s.name
        ORDER BY total_cost_usd DESC`
	var rows []models.SchoolCostRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("query school costs: %w", err)
	}
	return rows, nil
}
