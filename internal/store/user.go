package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/google/uuid"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var blocked int
	err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &blocked, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Blocked = blocked != 0
	return &u, nil
}

const userCols = `id, name, email, password_hash, role, blocked, created_at, updated_at`

// Create inserts a user. Email must already be normalized. Returns ErrDuplicate
// if the email is taken.
func (s *UserStore) Create(name, email, passwordHash string, role model.Role) (*model.User, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO users (id, name, email, password_hash, role) VALUES (?, ?, ?, ?, ?)`,
		id, name, email, passwordHash, role,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) List() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userCols + ` FROM users ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// UpdateRole returns (nil, nil) if the user does not exist.
func (s *UserStore) UpdateRole(id string, role model.Role) (*model.User, error) {
	if _, err := s.db.Exec(`UPDATE users SET role = ? WHERE id = ?`, role, id); err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) SetBlocked(id string, blocked bool) (*model.User, error) {
	if _, err := s.db.Exec(`UPDATE users SET blocked = ? WHERE id = ?`, boolToInt(blocked), id); err != nil {
		return nil, fmt.Errorf("set user blocked: %w", err)
	}
	return s.GetByID(id)
}

// ConsumeResetToken sets a new password hash only if the user still holds
// the unexpired reset token, and clears the token in the same statement. It
// reports false when the token was already used or has expired.
func (s *UserStore) ConsumeResetToken(id, tokenHash, passwordHash string, now time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, reset_token_hash = NULL, reset_expires_at = NULL
		 WHERE id = ? AND reset_token_hash = ? AND reset_expires_at > ?`,
		passwordHash, id, tokenHash, now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("consume reset token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *UserStore) SetResetToken(id, tokenHash string, expiresAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE users SET reset_token_hash = ?, reset_expires_at = ? WHERE id = ?`,
		tokenHash, expiresAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// GetByResetToken finds the user holding an unexpired reset token.
func (s *UserStore) GetByResetToken(tokenHash string, now time.Time) (*model.User, error) {
	row := s.db.QueryRow(
		`SELECT `+userCols+` FROM users WHERE reset_token_hash = ? AND reset_expires_at > ?`,
		tokenHash, now.UTC(),
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}
	return u, nil
}

func (s *UserStore) ClearExpiredResetTokens(now time.Time) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE users SET reset_token_hash = NULL, reset_expires_at = NULL
		 WHERE reset_token_hash IS NOT NULL AND reset_expires_at <= ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("clear expired reset tokens: %w", err)
	}
	return result.RowsAffected()
}

// Delete removes a user together with their RSVPs and feedback, and every
// event they organize along with that event's RSVPs and feedback. It returns
// the cover image URLs of the removed events and reports false if no such
// user existed.
func (s *UserStore) Delete(id string) ([]string, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT image FROM events WHERE organizer_id = ? AND image != ''`, id)
	if err != nil {
		return nil, false, fmt.Errorf("list user event images: %w", err)
	}
	var images []string
	for rows.Next() {
		var img string
		if err := rows.Scan(&img); err != nil {
			rows.Close()
			return nil, false, fmt.Errorf("scan event image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Close(); err != nil {
		return nil, false, fmt.Errorf("close image rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate event images: %w", err)
	}

	stmts := []string{
		`DELETE FROM feedback WHERE user_id = ? OR event_id IN (SELECT id FROM events WHERE organizer_id = ?)`,
		`DELETE FROM rsvps WHERE user_id = ? OR event_id IN (SELECT id FROM events WHERE organizer_id = ?)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, id, id); err != nil {
			return nil, false, fmt.Errorf("delete user dependents: %w", err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM events WHERE organizer_id = ?`, id); err != nil {
		return nil, false, fmt.Errorf("delete user events: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, false, fmt.Errorf("delete user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, false, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}
	return images, true, nil
}
