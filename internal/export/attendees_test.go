package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/xuri/excelize/v2"
)

func TestWriteAttendees(t *testing.T) {
	at := time.Date(2026, 5, 1, 18, 5, 0, 0, time.UTC)
	rsvps := []model.RSVPDetail{
		{
			RSVP: model.RSVP{Status: model.StatusGoing, CheckedIn: true, CheckedInAt: &at, CreatedAt: at.Add(-48 * time.Hour)},
			User: model.UserSummary{Name: "Alice", Email: "alice@example.com"},
		},
		{
			RSVP: model.RSVP{Status: model.StatusInterested, CreatedAt: at.Add(-24 * time.Hour)},
			User: model.UserSummary{Name: "Bob", Email: "bob@example.com"},
		},
	}

	var buf bytes.Buffer
	if err := WriteAttendees(&buf, rsvps, time.UTC); err != nil {
		t.Fatalf("write attendees: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "Name" || rows[0][5] != "RSVP Date" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "Alice" || rows[1][3] != "Yes" || rows[1][4] != "2026-05-01 18:05" {
		t.Errorf("alice row = %v", rows[1])
	}
	if rows[2][2] != "interested" || rows[2][3] != "No" {
		t.Errorf("bob row = %v", rows[2])
	}
}

func TestWriteAttendeesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAttendees(&buf, nil, nil); err != nil {
		t.Fatalf("write attendees: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a workbook even with no attendees")
	}
}
