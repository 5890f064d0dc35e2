package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-monitoring-api/internal/dto"
	"github.com/noah-isme/sma-monitoring-api/internal/models"
	appErrors "github.com/noah-isme/sma-monitoring-api/pkg/errors"
)

type fakeTranscriptionMetrics struct {
	snapshot *models.TranscriptionSnapshot
	err      error
	period   string
}

func (f *fakeTranscriptionMetrics) Snapshot(_ context.Context, period string) (*models.TranscriptionSnapshot, error) {
	f.period = period
	return f.snapshot, f.err
}

type fakeAnalysisMetrics struct {
	snapshot *models.AnalysisSnapshot
	err      error
}

func (f *fakeAnalysisMetrics) Snapshot(context.Context, string) (*models.AnalysisSnapshot, error) {
	return f.snapshot, f.err
}

type fakeCostMetrics struct {
	summary *models.CostSummary
	hit     bool
	err     error
	month   string
}

func (f *fakeCostMetrics) Report(_ context.Context, month string) (*models.CostSummary, bool, error) {
	f.month = month
	return f.summary, f.hit, f.err
}

type fakeCostExporter struct {
	file *dto.CostExportFile
	err  error
	req  dto.CostExportRequest
}

func (f *fakeCostExporter) Export(_ context.Context, req dto.CostExportRequest) (*dto.CostExportFile, error) {
	f.req = req
	return f.file, f.err
}

type monitoringEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func serveMonitoring(t *testing.T, fn gin.HandlerFunc, target string) (*httptest.ResponseRecorder, monitoringEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)

	fn(c)

	var envelope monitoringEnvelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec, envelope
}

func TestMonitoringHandlerTranscriptions(t *testing.T) {
	svc := &fakeTranscriptionMetrics{snapshot: &models.TranscriptionSnapshot{Period: models.PeriodLast7Days, TotalSuccess: 9, TotalErrors: 1, ErrorRate: 10}}
	h := NewMonitoringHandler(svc, nil, nil, nil)

	rec, envelope := serveMonitoring(t, h.Transcriptions, "/monitoring/transcriptions?period=7d")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7d", svc.period)
	assert.Equal(t, "7d", envelope.Data["period"])
	assert.Equal(t, 10.0, envelope.Data["error_rate"])
	assert.Equal(t, false, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestMonitoringHandlerTranscriptionsFailure(t *testing.T) {
	svc := &fakeTranscriptionMetrics{err: appErrors.ErrInternal.Wrap(errors.New("boom"), "failed to load transcription metrics")}
	h := NewMonitoringHandler(svc, nil, nil, nil)

	rec, envelope := serveMonitoring(t, h.Transcriptions, "/monitoring/transcriptions")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInternal.Code, envelope.Error.Code)
}

func TestMonitoringHandlerAnalyses(t *testing.T) {
	svc := &fakeAnalysisMetrics{snapshot: &models.AnalysisSnapshot{Total: 3, Queue: models.QueueDepth{Waiting: 4}}}
	h := NewMonitoringHandler(nil, svc, nil, nil)

	rec, envelope := serveMonitoring(t, h.Analyses, "/monitoring/analyses")

	assert.Equal(t, http.StatusOK, rec.Code)
	queue, ok := envelope.Data["queue"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 4.0, queue["waiting"])
}

func TestMonitoringHandlerAnalysesQueueUnavailable(t *testing.T) {
	svc := &fakeAnalysisMetrics{err: appErrors.ErrQueueUnavailable}
	h := NewMonitoringHandler(nil, svc, nil, nil)

	rec, _ := serveMonitoring(t, h.Analyses, "/monitoring/analyses")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMonitoringHandlerCosts(t *testing.T) {
	svc := &fakeCostMetrics{summary: &models.CostSummary{Month: "2026-03", Schools: []models.SchoolCostRow{}}, hit: true}
	h := NewMonitoringHandler(nil, nil, svc, nil)

	rec, envelope := serveMonitoring(t, h.Costs, "/monitoring/costs?month=2026-03")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-03", svc.month)
	assert.Equal(t, "2026-03", envelope.Data["month"])
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}

func TestMonitoringHandlerCostsInvalidMonth(t *testing.T) {
	svc := &fakeCostMetrics{err: appErrors.ErrInvalidMonth}
	h := NewMonitoringHandler(nil, nil, svc, nil)

	rec, envelope := serveMonitoring(t, h.Costs, "/monitoring/costs?month=2026-13")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestMonitoringHandlerCostsExport(t *testing.T) {
	exporter := &fakeCostExporter{file: &dto.CostExportFile{Filename: "school-costs-2026-03.csv", ContentType: "text/csv", Body: []byte("School\n")}}
	h := NewMonitoringHandler(nil, nil, nil, exporter)

	rec, _ := serveMonitoring(t, h.CostsExport, "/monitoring/costs/export?month=2026-03&format=CSV")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.CostExportRequest{Month: "2026-03", Format: "csv"}, exporter.req)
	assert.Equal(t, `attachment; filename="school-costs-2026-03.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "School\n", rec.Body.String())
}

func TestMonitoringHandlerCostsExportDefaultsToCSV(t *testing.T) {
	exporter := &fakeCostExporter{file: &dto.CostExportFile{Filename: "f.csv", ContentType: "text/csv"}}
	h := NewMonitoringHandler(nil, nil, nil, exporter)

	serveMonitoring(t, h.CostsExport, "/monitoring/costs/export")
	assert.Equal(t, "csv", exporter.req.Format)
}

func TestMonitoringHandlerCostsExportDisabled(t *testing.T) {
	h := NewMonitoringHandler(nil, nil, nil, nil)

	rec, _ := serveMonitoring(t, h.CostsExport, "/monitoring/costs/export")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
