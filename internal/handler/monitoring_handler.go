package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-monitoring-api/internal/dto"
	"github.com/noah-isme/sma-monitoring-api/internal/middleware"
	"github.com/noah-isme/sma-monitoring-api/internal/models"
	appErrors "github.com/noah-isme/sma-monitoring-api/pkg/errors"
	"github.com/noah-isme/sma-monitoring-api/pkg/response"
)

type transcriptionMetricsService interface {
	Snapshot(ctx context.Context, period string) (*models.TranscriptionSnapshot, error)
}

type analysisMetricsService interface {
	Snapshot(ctx context.Context, period string) (*models.AnalysisSnapshot, error)
}

type costMetricsService interface {
	Report(ctx context.Context, month string) (*models.CostSummary, bool, error)
}

// CostExporter renders downloadable cost reports.
type CostExporter interface {
	Export(ctx context.Context, req dto.CostExportRequest) (*dto.CostExportFile, error)
}

// MonitoringHandler serves the operational monitoring endpoints.
type MonitoringHandler struct {
	transcriptions transcriptionMetricsService
	analyses       analysisMetricsService
	costs          costMetricsService
	exports        CostExporter
}

// NewMonitoringHandler constructs the handler. A nil exports service disables the export route.
func NewMonitoringHandler(transcriptions transcriptionMetricsService, analyses analysisMetricsService, costs costMetricsService, exports CostExporter) *MonitoringHandler {
	return &MonitoringHandler{transcriptions: transcriptions, analyses: analyses, costs: costs, exports: exports}
}

// Transcriptions godoc
// @Summary Speech-to-text quality metrics
// @Tags Monitoring
// @Produce json
// @Param period query string false "1h, 24h, 7d or 30d (default 24h)"
// @Success 200 {object} response.Envelope
// @Router /monitoring/transcriptions [get]
func (h *MonitoringHandler) Transcriptions(c *gin.Context) {
	if h.transcriptions == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	snapshot, err := h.transcriptions.Snapshot(c.Request.Context(), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, h.meta(c, start, false))
}

// Analyses godoc
// @Summary Analysis pipeline metrics and queue depth
// @Tags Monitoring
// @Produce json
// @Param period query string false "1h, 24h, 7d or 30d (default 24h)"
// @Success 200 {object} response.Envelope
// @Router /monitoring/analyses [get]
func (h *MonitoringHandler) Analyses(c *gin.Context) {
	if h.analyses == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	snapshot, err := h.analyses.Snapshot(c.Request.Context(), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, h.meta(c, start, false))
}

// Costs godoc
// @Summary Per-school monthly cost ranking
// @Tags Monitoring
// @Produce json
// @Param month query string false "YYYY-MM (default current month)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /monitoring/costs [get]
func (h *MonitoringHandler) Costs(c *gin.Context) {
	if h.costs == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.costs.Report(c.Request.Context(), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, h.meta(c, start, cacheHit))
}

// CostsExport godoc
// @Summary Download the monthly cost ranking
// @Tags Monitoring
// @Produce text/csv
// @Produce application/pdf
// @Param month query string false "YYYY-MM (default current month)"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /monitoring/costs/export [get]
func (h *MonitoringHandler) CostsExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrReportsDisabled)
		return
	}
	req := dto.CostExportRequest{
		Month:  strings.TrimSpace(c.Query("month")),
		Format: strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv"))),
	}
	file, err := h.exports.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

func (h *MonitoringHandler) meta(c *gin.Context, start time.Time, cacheHit bool) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}
