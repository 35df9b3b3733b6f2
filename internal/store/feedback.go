package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/google/uuid"
)

type FeedbackStore struct {
	db *sql.DB
}

func NewFeedbackStore(db *sql.DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

const feedbackQuery = `SELECT f.id, f.event_id, f.user_id, f.rating, f.comment, f.created_at, u.id, u.name, u.email
	FROM feedback f JOIN users u ON u.id = f.user_id`

func scanFeedback(scanner interface{ Scan(...any) error }) (*model.Feedback, error) {
	var f model.Feedback
	err := scanner.Scan(&f.ID, &f.EventID, &f.UserID, &f.Rating, &f.Comment, &f.CreatedAt, &f.User.ID, &f.User.Name, &f.User.Email)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create returns ErrDuplicate if the user already left feedback for the event.
func (s *FeedbackStore) Create(eventID, userID string, rating int, comment string) (*model.Feedback, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO feedback (id, event_id, user_id, rating, comment) VALUES (?, ?, ?, ?, ?)`,
		id, eventID, userID, rating, comment,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert feedback: %w", err)
	}

	row := s.db.QueryRow(feedbackQuery+` WHERE f.id = ?`, id)
	f, err := scanFeedback(row)
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return f, nil
}

func (s *FeedbackStore) ListByEvent(eventID string) ([]model.Feedback, error) {
	rows, err := s.db.Query(feedbackQuery+` WHERE f.event_id = ? ORDER BY f.created_at DESC, f.rowid DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []model.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *FeedbackStore) CountByUser(userID string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM feedback WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return n, nil
}
