package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/halcyon-health/clinic-emr-api/internal/dto"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
	"github.com/halcyon-health/clinic-emr-api/pkg/export"
)

// ExportFormat enumerates supported report formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered report bytes plus transport metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders availability reports for download.
type ExportService struct {
	availability AvailabilityComputer
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	logger       *zap.Logger
	enabled      bool
}

// NewExportService constructs the export service.
func NewExportService(availability AvailabilityComputer, logger *zap.Logger, enabled bool) *ExportService {
	return &ExportService{
		availability: availability,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
		enabled:      enabled,
	}
}

var availabilityExportHeaders = []string{"Date", "Day", "Start", "End", "Minutes"}

// ExportAvailability computes availability for the request and renders it
// in the requested format.
func (s *ExportService) ExportAvailability(ctx context.Context, req dto.AvailabilityRequest, format ExportFormat) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	availability, err := s.availability.ComputeAvailability(ctx, req)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: availabilityExportHeaders}
	for _, block := range availability.AvailableBlocks {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":    block.Date,
			"Day":     time.Weekday(block.DayOfWeek).String(),
			"Start":   block.StartTime.Format("15:04"),
			"End":     block.EndTime.Format("15:04"),
			"Minutes": strconv.Itoa(block.DurationMinutes()),
		})
	}

	base := fmt.Sprintf("availability_%s_%s_%s", availability.ProviderID, availability.StartDate, availability.EndDate)
	switch format {
	case ExportFormatCSV:
		content, renderErr := s.csv.Render(dataset)
		if renderErr != nil {
			return nil, appErrors.Wrap(renderErr, "EXPORT_RENDER_FAILED", http.StatusInternalServerError, "failed to render CSV report")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: base + ".csv"}, nil
	case ExportFormatPDF:
		title := fmt.Sprintf("Provider availability %s to %s", availability.StartDate, availability.EndDate)
		content, renderErr := s.pdf.Render(dataset, title)
		if renderErr != nil {
			return nil, appErrors.Wrap(renderErr, "EXPORT_RENDER_FAILED", http.StatusInternalServerError, "failed to render PDF report")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: base + ".pdf"}, nil
	default:
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
