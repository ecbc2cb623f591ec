// Package export renders submission reports as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheetName = "Submissions"

var header = []interface{}{
	"Submitted At",
	"Job Title",
	"Company",
	"Status",
	"Job URL",
	"Feedback Received",
	"Feedback Date",
	"Feedback Notes",
	"Notes",
}

// Filename returns a download name such as "submissions-2026-10-17.xlsx".
func Filename(now time.Time) string {
	return fmt.Sprintf("submissions-%s.xlsx", now.Format(time.DateOnly))
}

// WriteSubmissions writes subs as an xlsx workbook. Times are rendered in loc.
func WriteSubmissions(w io.Writer, subs []domain.Submission, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, s := range subs {
		feedbackReceived := "no"
		if s.FeedbackReceived {
			feedbackReceived = "yes"
		}
		row := []interface{}{
			s.SubmittedAt.In(loc).Format("2006-01-02 15:04"),
			s.JobTitle,
			s.CompanyName,
			string(s.Status),
			deref(s.JobURL),
			feedbackReceived,
			formatDate(s.FeedbackDate),
			deref(s.FeedbackNotes),
			deref(s.Notes),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "I", 22); err != nil {
		return fmt.Errorf("set widths: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
