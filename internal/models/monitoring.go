package models

import "time"

// MonitoringPeriod is the window token accepted by the metric endpoints.
type MonitoringPeriod string

const (
	PeriodLastHour    MonitoringPeriod = "1h"
	PeriodLast24Hours MonitoringPeriod = "24h"
	PeriodLast7Days   MonitoringPeriod = "7d"
	PeriodLast30Days  MonitoringPeriod = "30d"
)

// LessonStatus mirrors the processing lifecycle stored on lessons.status.
type LessonStatus string

const (
	LessonStatusDraft                 LessonStatus = "DRAFT"
	LessonStatusAwaitingUpload        LessonStatus = "AWAITING_UPLOAD"
	LessonStatusAwaitingTranscription LessonStatus = "AWAITING_TRANSCRIPTION"
	LessonStatusTranscribed           LessonStatus = "TRANSCRIBED"
	LessonStatusAnalyzing             LessonStatus = "ANALYZING"
	LessonStatusAnalyzed              LessonStatus = "ANALYZED"
	LessonStatusApproved              LessonStatus = "APPROVED"
	LessonStatusFailed                LessonStatus = "FAILED"
)

// PostTranscriptionStatuses lists the states a lesson can only reach once transcription finished or failed.
var PostTranscriptionStatuses = []LessonStatus{
	LessonStatusTranscribed,
	LessonStatusAnalyzing,
	LessonStatusAnalyzed,
	LessonStatusApproved,
	LessonStatusFailed,
}

// TranscriptionAggregate carries the window-wide averages and sums over transcriptions.
type TranscriptionAggregate struct {
	AvgLatencyMs  *float64 `db:"avg_latency_ms"`
	AvgConfidence *float64 `db:"avg_confidence"`
	TotalCostUSD  *float64 `db:"total_cost_usd"`
}

// ProviderBreakdown groups transcription volume and quality by provider.
type ProviderBreakdown struct {
	Provider      string  `db:"provider" json:"provider"`
	Count         int     `db:"count" json:"count"`
	AvgLatencyMs  float64 `db:"avg_latency_ms" json:"avg_latency_ms"`
	AvgConfidence float64 `db:"avg_confidence" json:"avg_confidence"`
	AvgCostUSD    float64 `db:"avg_cost_usd" json:"avg_cost_usd"`
}

// ErrorTimelinePoint is one hourly bucket of transcription outcomes.
type ErrorTimelinePoint struct {
	HourBucket time.Time `db:"hour_bucket" json:"hour_bucket"`
	Errors     int       `db:"errors" json:"errors"`
	Successes  int       `db:"successes" json:"successes"`
}

// RecentTranscriptionError describes a lesson that failed before producing a transcription.
type RecentTranscriptionError struct {
	LessonID      string    `db:"lesson_id" json:"lesson_id"`
	SchoolID      string    `db:"school_id" json:"school_id"`
	Date          time.Time `db:"date" json:"date"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
	FileSizeBytes *int64    `db:"file_size_bytes" json:"file_size_bytes,omitempty"`
	InputType     string    `db:"input_type" json:"input_type"`
}

// TranscriptionSnapshot aggregates speech-to-text quality for a window.
type TranscriptionSnapshot struct {
	Period        MonitoringPeriod           `json:"period"`
	Since         time.Time                  `json:"since"`
	TotalSuccess  int                        `json:"total_success"`
	TotalErrors   int                        `json:"total_errors"`
	SuccessRate   float64                    `json:"success_rate"`
	ErrorRate     float64                    `json:"error_rate"`
	FallbackCount int                        `json:"fallback_count"`
	AvgLatencyMs  float64                    `json:"avg_latency_ms"`
	AvgConfidence float64                    `json:"avg_confidence"`
	TotalCostUSD  float64                    `json:"total_cost_usd"`
	ByProvider    []ProviderBreakdown        `json:"by_provider"`
	ErrorTimeline []ErrorTimelinePoint       `json:"error_timeline"`
	RecentErrors  []RecentTranscriptionError `json:"recent_errors"`
}

// TranscriptionErrorRate is the trailing-hour ratio consumed by the alert scheduler.
type TranscriptionErrorRate struct {
	ErrorRate float64 `json:"error_rate"`
	Errors    int     `json:"errors"`
	Total     int     `json:"total"`
}

// AnalysisAggregate carries count and nullable averages over analyses in a window.
type AnalysisAggregate struct {
	Total              int      `db:"total"`
	AvgProcessingTimeS *float64 `db:"avg_processing_time_s"`
	AvgCostUSD         *float64 `db:"avg_cost_usd"`
}

// AnalysisStatusCount is one bar of the analysis status histogram.
type AnalysisStatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// QueueDepth captures live job counts for a named queue.
type QueueDepth struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

// AnalysisSnapshot aggregates analysis pipeline KPIs for a window.
type AnalysisSnapshot struct {
	Period             MonitoringPeriod      `json:"period"`
	Since              time.Time             `json:"since"`
	Total              int                   `json:"total"`
	AvgProcessingTimeS float64               `json:"avg_processing_time_s"`
	AvgCostUSD         float64               `json:"avg_cost_usd"`
	AvgReviewTimeS     float64               `json:"avg_review_time_s"`
	ByStatus           []AnalysisStatusCount `json:"by_status"`
	Queue              QueueDepth            `json:"queue"`
}

// SchoolCostRow is the per-school cost line for a month.
type SchoolCostRow struct {
	SchoolID           string  `db:"school_id" json:"school_id"`
	SchoolName         string  `db:"school_name" json:"school_name"`
	STTCostUSD         float64 `db:"stt_cost_usd" json:"stt_cost_usd"`
	LLMCostUSD         float64 `db:"llm_cost_usd" json:"llm_cost_usd"`
	TotalCostUSD       float64 `db:"total_cost_usd" json:"total_cost_usd"`
	LessonCount        int     `db:"lesson_count" json:"lesson_count"`
	ActiveTeacherCount int     `db:"active_teacher_count" json:"active_teacher_count"`
	CostPerLesson      float64 `db:"-" json:"cost_per_lesson"`
}

// CostTotals sums the per-school rows.
type CostTotals struct {
	TotalCostUSD      float64 `json:"total_cost_usd"`
	TotalLessons      int     `json:"total_lessons"`
	SchoolCount       int     `json:"school_count"`
	MonthlyProjection float64 `json:"monthly_projection"`
}

// CostSummary is the fleet-wide cost view for a calendar month.
type CostSummary struct {
	Schools []SchoolCostRow `json:"schools"`
	Totals  CostTotals      `json:"totals"`
	Month   string          `json:"month"`
}

// AlertKind identifies which threshold check raised an alert.
type AlertKind string

const (
	AlertKindSTTErrorRate AlertKind = "stt_error_rate"
	AlertKindQueueBacklog AlertKind = "analysis_queue_backlog"
	AlertKindSchoolCost   AlertKind = "school_cost"
	AlertSeverityWarning            = "warning"
)

// AlertEvent is emitted to the log sink and never persisted.
type AlertEvent struct {
	ID        string                 `json:"id"`
	Kind      AlertKind              `json:"kind"`
	Severity  string                 `json:"severity"`
	Payload   map[string]interface{} `json:"payload"`
	EmittedAt time.Time              `json:"emitted_at"`
}

// SchoolCostOffender is one entry of the school cost alert payload.
type SchoolCostOffender struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

// SystemMetrics reports process-level instrumentation counters.
type SystemMetrics struct {
	CacheHitRatio float64   `json:"cache_hit_ratio"`
	CacheHits     uint64    `json:"cache_hits"`
	CacheMisses   uint64    `json:"cache_misses"`
	RequestsTotal uint64    `json:"requests_total"`
	DBQueryCount  uint64    `json:"db_query_count"`
	Goroutines    int       `json:"goroutines"`
	GeneratedAt   time.Time `json:"generated_at"`
}
