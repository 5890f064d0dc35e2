package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-monitoring-api/internal/dto"
	"github.com/noah-isme/sma-monitoring-api/internal/models"
	appErrors "github.com/noah-isme/sma-monitoring-api/pkg/errors"
	"github.com/noah-isme/sma-monitoring-api/pkg/export"
)

type costSummaryProvider interface {
	Summary(ctx context.Context, month string) (*models.CostSummary, error)
}

// CostExportService renders the monthly school cost ranking as CSV or PDF.
type CostExportService struct {
	costs     costSummaryProvider
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
}

// NewCostExportService constructs the export service.
func NewCostExportService(costs costSummaryProvider, validate *validator.Validate) *CostExportService {
	if validate == nil {
		validate = validator.New()
	}
	return &CostExportService{
		costs:     costs,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
	}
}

// Export renders the cost summary for req.Month in req.Format.
func (s *CostExportService) Export(ctx context.Context, req dto.CostExportRequest) (*dto.CostExportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrInvalidExport.Wrap(err, "")
	}
	summary, err := s.costs.Summary(ctx, req.Month)
	if err != nil {
		return nil, err
	}

	table := costTable(summary)
	var (
		body        []byte
		contentType string
	)
	switch req.Format {
	case "pdf":
		body, err = s.pdf.Render(table)
		contentType = "application/pdf"
	default:
		body, err = s.csv.Render(table)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.ErrInternal.Wrap(err, "failed to render cost report")
	}
	return &dto.CostExportFile{
		Filename:    fmt.Sprintf("school-costs-%s.%s", summary.Month, req.Format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func costTable(summary *models.CostSummary) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("School costs %s", summary.Month),
		Headers: []string{"School", "STT (USD)", "LLM (USD)", "Total (USD)", "Lessons", "Active teachers", "Cost/lesson (USD)"},
		Rows:    make([][]string, 0, len(summary.Schools)),
	}
	for _, row := range summary.Schools {
		table.Rows = append(table.Rows, []string{
			row.SchoolName,
			formatUSD(row.STTCostUSD, 4),
			formatUSD(row.LLMCostUSD, 4),
			formatUSD(row.TotalCostUSD, 4),
			strconv.Itoa(row.LessonCount),
			strconv.Itoa(row.ActiveTeacherCount),
			formatUSD(row.CostPerLesson, 4),
		})
	}
	table.Footer = []string{
		"Total",
		"",
		"",
		formatUSD(summary.Totals.TotalCostUSD, 2),
		strconv.Itoa(summary.Totals.TotalLessons),
		"",
		"Projection " + formatUSD(summary.Totals.MonthlyProjection, 2),
	}
	return table
}

func formatUSD(value float64, places int) string {
	return strconv.FormatFloat(value, 'f', places, 64)
}
