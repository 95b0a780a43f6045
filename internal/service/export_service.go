package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/classtrack/attendance-api/internal/models"
	appErrors "github.com/classtrack/attendance-api/pkg/errors"
	"github.com/classtrack/attendance-api/pkg/export"
)

// ExportFormat names a supported export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult bundles rendered bytes with response metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

type attendanceExportRepository interface {
	ListAll(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error)
}

// ExportService renders attendance data into downloadable documents.
type ExportService struct {
	repo   attendanceExportRepository
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(repo attendanceExportRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// Attendance exports attendance rows matching the filter in the given format.
func (s *ExportService) Attendance(ctx context.Context, filter models.AttendanceFilter, format ExportFormat) (*ExportResult, error) {
	format = ExportFormat(strings.ToLower(string(format)))
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	rows, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance for export")
	}

	dataset := buildAttendanceDataset(rows)

	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			FileName:    "attendance.csv",
			ContentType: "text/csv",
			Data:        data,
		}, nil
	default:
		data, err := s.pdf.Render(dataset, "Attendance Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			FileName:    "attendance.pdf",
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	}
}

func buildAttendanceDataset(rows []models.AttendanceDetail) export.Dataset {
	headers := []string{"Student ID", "Name", "Class", "Date", "Status"}
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]string{
			"Student ID": strconv.FormatInt(row.StudentID, 10),
			"Name":       row.StudentName,
			"Class":      row.StudentClass,
			"Date":       row.Date.String(),
			"Status":     string(row.Status),
		})
	}
	return export.Dataset{Headers: headers, Rows: out}
}
