package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/export"
)

// Export formats supported by the report endpoints.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportFile carries a rendered report ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var classReportHeaders = []string{"Subject", "Roll No", "Name", "Present", "Total", "Percent", "At Risk", "Today"}

// ExportClass renders the class report as a downloadable CSV or PDF table.
func (s *ReportService) ExportClass(ctx context.Context, classID, month, format, schoolName string) (*ExportFile, error) {
	report, err := s.ClassReport(ctx, classID, month)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:    "Attendance Report",
		Subtitle: schoolName,
		Headers:  classReportHeaders,
	}
	if month != "" {
		dataset.Subtitle = strings.TrimSpace(schoolName + " - " + month)
	}
	for _, subject := range report.Subjects {
		for _, row := range subject.Rows {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Subject": subject.Subject,
				"Roll No": row.RollNo,
				"Name":    row.Name,
				"Present": strconv.Itoa(row.PresentCount),
				"Total":   strconv.Itoa(row.TotalCount),
				"Percent": strconv.Itoa(row.Percent) + "%",
				"At Risk": yesNo(row.AtRisk),
				"Today":   row.Today,
			})
		}
	}

	base := fmt.Sprintf("attendance_%s", classID)
	if month != "" {
		base += "_" + month
	}

	switch format {
	case ExportFormatCSV:
		body, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render csv")
		}
		return &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
	case ExportFormatPDF:
		body, err := export.NewPDFExporter().Render(dataset)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render pdf")
		}
		return &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
