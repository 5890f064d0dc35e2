package dto

// CostSummaryRequest selects the calendar month for the cost summary. Empty means the current month.
type CostSummaryRequest struct {
	Month string `form:"month" json:"month" validate:"omitempty,datetime=2006-01"`
}

// CostExportRequest selects the month and file format of a cost report download.
type CostExportRequest struct {
	Month  string `form:"month" json:"month" validate:"omitempty,datetime=2006-01"`
	Format string `form:"format" json:"format" validate:"required,oneof=csv pdf"`
}

// CostExportFile is a rendered cost report ready for download.
type CostExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
