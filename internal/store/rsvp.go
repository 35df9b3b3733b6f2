package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/google/uuid"
)

type RSVPStore struct {
	db *sql.DB
}

func NewRSVPStore(db *sql.DB) *RSVPStore {
	return &RSVPStore{db: db}
}

func scanRSVP(scanner interface{ Scan(...any) error }) (*model.RSVP, error) {
	var r model.RSVP
	var checkedIn int
	var checkedInAt, reminderSentAt sql.NullTime
	err := scanner.Scan(&r.ID, &r.EventID, &r.UserID, &r.Status, &checkedIn, &checkedInAt, &reminderSentAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.CheckedIn = checkedIn != 0
	if checkedInAt.Valid {
		r.CheckedInAt = &checkedInAt.Time
	}
	if reminderSentAt.Valid {
		r.ReminderSentAt = &reminderSentAt.Time
	}
	return &r, nil
}

const rsvpCols = `id, event_id, user_id, status, checked_in, checked_in_at, reminder_sent_at, created_at, updated_at`

const rsvpDetailQuery = `SELECT r.id, r.event_id, r.user_id, r.status, r.checked_in, r.checked_in_at, r.reminder_sent_at, r.created_at, r.updated_at,
	e.id, e.title, e.date, e.location, e.category, e.organizer_id,
	u.id, u.name, u.email
	FROM rsvps r
	JOIN events e ON e.id = r.event_id
	JOIN users u ON u.id = r.user_id`

func scanRSVPDetail(scanner interface{ Scan(...any) error }) (*model.RSVPDetail, error) {
	var d model.RSVPDetail
	var checkedIn int
	var checkedInAt, reminderSentAt sql.NullTime
	err := scanner.Scan(
		&d.ID, &d.EventID, &d.UserID, &d.Status, &checkedIn, &checkedInAt, &reminderSentAt, &d.CreatedAt, &d.UpdatedAt,
		&d.Event.ID, &d.Event.Title, &d.Event.Date, &d.Event.Location, &d.Event.Category, &d.Event.OrganizerID,
		&d.User.ID, &d.User.Name, &d.User.Email,
	)
	if err != nil {
		return nil, err
	}
	d.CheckedIn = checkedIn != 0
	if checkedInAt.Valid {
		d.CheckedInAt = &checkedInAt.Time
	}
	if reminderSentAt.Valid {
		d.ReminderSentAt = &reminderSentAt.Time
	}
	return &d, nil
}

// Create inserts an RSVP. The UNIQUE (event_id, user_id) index is the only
// guard against duplicates; a violation returns ErrDuplicate.
func (s *RSVPStore) Create(eventID, userID string, status model.RSVPStatus) (*model.RSVP, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO rsvps (id, event_id, user_id, status) VALUES (?, ?, ?, ?)`,
		id, eventID, userID, status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert rsvp: %w", err)
	}
	return s.GetByID(id)
}

func (s *RSVPStore) GetByID(id string) (*model.RSVP, error) {
	row := s.db.QueryRow(`SELECT `+rsvpCols+` FROM rsvps WHERE id = ?`, id)
	r, err := scanRSVP(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rsvp: %w", err)
	}
	return r, nil
}

// GetDetail returns the RSVP joined with its event and user.
func (s *RSVPStore) GetDetail(id string) (*model.RSVPDetail, error) {
	row := s.db.QueryRow(rsvpDetailQuery+` WHERE r.id = ?`, id)
	d, err := scanRSVPDetail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rsvp detail: %w", err)
	}
	return d, nil
}

func (s *RSVPStore) GetForEvent(id, eventID string) (*model.RSVP, error) {
	row := s.db.QueryRow(`SELECT `+rsvpCols+` FROM rsvps WHERE id = ? AND event_id = ?`, id, eventID)
	r, err := scanRSVP(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rsvp for event: %w", err)
	}
	return r, nil
}

func (s *RSVPStore) GetByEventAndUser(eventID, userID string) (*model.RSVP, error) {
	row := s.db.QueryRow(`SELECT `+rsvpCols+` FROM rsvps WHERE event_id = ? AND user_id = ?`, eventID, userID)
	r, err := scanRSVP(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rsvp by event and user: %w", err)
	}
	return r, nil
}

// DeleteByEventAndUser reports whether a record was removed.
func (s *RSVPStore) DeleteByEventAndUser(eventID, userID string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM rsvps WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("delete rsvp: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CheckIn marks a going, not yet checked-in RSVP as checked in. The
// conditions live in the UPDATE itself so two concurrent scans of the same
// code cannot both succeed. It reports whether this call made the change.
func (s *RSVPStore) CheckIn(id, eventID string, at time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE rsvps SET checked_in = 1, checked_in_at = ?
		 WHERE id = ? AND event_id = ? AND status = ? AND checked_in = 0`,
		at.UTC(), id, eventID, model.StatusGoing,
	)
	if err != nil {
		return false, fmt.Errorf("check in rsvp: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *RSVPStore) ListByEvent(eventID string) ([]model.RSVPDetail, error) {
	return s.queryDetails(rsvpDetailQuery+` WHERE r.event_id = ? ORDER BY r.created_at DESC, r.rowid DESC`, eventID)
}

func (s *RSVPStore) ListByOrganizer(organizerID string) ([]model.RSVPDetail, error) {
	return s.queryDetails(rsvpDetailQuery+` WHERE e.organizer_id = ? ORDER BY r.created_at DESC, r.rowid DESC`, organizerID)
}

func (s *RSVPStore) ListByUser(userID string) ([]model.RSVPDetail, error) {
	return s.queryDetails(rsvpDetailQuery+` WHERE r.user_id = ? ORDER BY r.created_at DESC, r.rowid DESC`, userID)
}

func (s *RSVPStore) ListAll() ([]model.RSVPDetail, error) {
	return s.queryDetails(rsvpDetailQuery + ` ORDER BY r.created_at DESC, r.rowid DESC`)
}

// ListDueReminders returns going RSVPs without a reminder for events dated within [from, to].
func (s *RSVPStore) ListDueReminders(from, to time.Time) ([]model.RSVPDetail, error) {
	return s.queryDetails(
		rsvpDetailQuery+` WHERE r.status = ? AND r.checked_in = 0 AND r.reminder_sent_at IS NULL
		 AND e.date >= ? AND e.date <= ?
		 ORDER BY e.date ASC`,
		model.StatusGoing, from.UTC(), to.UTC(),
	)
}

func (s *RSVPStore) MarkReminderSent(id string, at time.Time) error {
	if _, err := s.db.Exec(`UPDATE rsvps SET reminder_sent_at = ? WHERE id = ?`, at.UTC(), id); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

func (s *RSVPStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM rsvps`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rsvps: %w", err)
	}
	return n, nil
}

func (s *RSVPStore) queryDetails(query string, args ...any) ([]model.RSVPDetail, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rsvps: %w", err)
	}
	defer rows.Close()

	var out []model.RSVPDetail
	for rows.Next() {
		d, err := scanRSVPDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rsvp: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
