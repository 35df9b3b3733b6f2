// Package export writes attendee lists as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Attendees"

var headers = []any{"Name", "Email", "Status", "Checked In", "Checked In At", "RSVP Date"}

// WriteAttendees writes one row per RSVP to an XLSX workbook. Times are rendered in loc.
func WriteAttendees(w io.Writer, rsvps []model.RSVPDetail, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, r := range rsvps {
		checkedIn := "No"
		checkedInAt := ""
		if r.CheckedIn {
			checkedIn = "Yes"
			if r.CheckedInAt != nil {
				checkedInAt = r.CheckedInAt.In(loc).Format("2006-01-02 15:04")
			}
		}
		row := []any{
			r.User.Name,
			r.User.Email,
			string(r.Status),
			checkedIn,
			checkedInAt,
			r.CreatedAt.In(loc).Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "F", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
