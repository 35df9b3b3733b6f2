package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/google/uuid"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// EventFields holds the columns an organizer controls.
type EventFields struct {
	Title       string
	Description string
	Category    string
	Date        time.Time
	Location    string
	Image       string
	IsPublic    bool
}

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var isPublic int
	err := scanner.Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.Date, &e.Location, &e.Image, &e.OrganizerID, &isPublic, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.IsPublic = isPublic != 0
	return &e, nil
}

const eventCols = `id, title, description, category, date, location, image, organizer_id, is_public, created_at, updated_at`

func (s *EventStore) Create(organizerID string, f EventFields) (*model.Event, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO events (id, title, description, category, date, location, image, organizer_id, is_public)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, f.Title, f.Description, f.Category, f.Date.UTC(), f.Location, f.Image, organizerID, boolToInt(f.IsPublic),
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id string) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns events newest first. Private events are included only when includePrivate is set.
func (s *EventStore) List(includePrivate bool) ([]model.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events`
	if !includePrivate {
		query += ` WHERE is_public = 1`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	return s.query(query)
}

func (s *EventStore) ListByOrganizer(organizerID string) ([]model.Event, error) {
	return s.query(`SELECT `+eventCols+` FROM events WHERE organizer_id = ? ORDER BY date ASC`, organizerID)
}

func (s *EventStore) query(query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (s *EventStore) Update(id string, f EventFields) (*model.Event, error) {
	_, err := s.db.Exec(
		`UPDATE events
		 SET title = ?, description = ?, category = ?, date = ?, location = ?, image = ?, is_public = ?
		 WHERE id = ?`,
		f.Title, f.Description, f.Category, f.Date.UTC(), f.Location, f.Image, boolToInt(f.IsPublic), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) SetImage(id, image string) (*model.Event, error) {
	if _, err := s.db.Exec(`UPDATE events SET image = ? WHERE id = ?`, image, id); err != nil {
		return nil, fmt.Errorf("set event image: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the event and its RSVPs and feedback in one transaction.
func (s *EventStore) Delete(id string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM feedback WHERE event_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete event feedback: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM rsvps WHERE event_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete event rsvps: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}
