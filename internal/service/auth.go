package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/eventsphere/internal/apperr"
	"github.com/dukerupert/eventsphere/internal/auth"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/store"
	"github.com/dukerupert/eventsphere/internal/validate"
	"github.com/google/uuid"
)

const resetTokenTTL = time.Hour

type AuthService struct {
	users  *store.UserStore
	tokens *auth.TokenIssuer
	mailer Mailer
	now    func() time.Time
	logger *slog.Logger
}

func NewAuthService(users *store.UserStore, tokens *auth.TokenIssuer, mailer Mailer, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, mailer: mailer, now: time.Now, logger: logger}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,personname"`
	Email    string `json:"email" validate:"required,emailaddr"`
	Password string `json:"password" validate:"required,strongpassword"`
	Role     string `json:"role" validate:"omitempty,oneof=user organizer"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,strongpassword"`
}

// Session is what a successful register or login returns.
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) Register(in RegisterInput) (*Session, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	role := model.RoleUser
	if in.Role != "" {
		role = model.Role(in.Role)
	}

	u, err := createUser(s.users, in.Name, in.Email, in.Password, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	return s.issue(u)
}

func (s *AuthService) Login(in LoginInput) (*Session, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(validate.NormalizeEmail(in.Email))
	if err != nil {
		return nil, err
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if u.Blocked {
		return nil, apperr.Forbidden("Account is blocked")
	}
	return s.issue(u)
}

func (s *AuthService) Me(userID string) (*model.User, error) {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

// ForgotPassword emails a reset link if the address belongs to a user. It
// reports success either way so callers cannot enumerate accounts.
func (s *AuthService) ForgotPassword(email string) error {
	if email == "" {
		return apperr.Validation("Email is required")
	}
	u, err := s.users.GetByEmail(validate.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}

	token := uuid.NewString()
	if err := s.users.SetResetToken(u.ID, hashToken(token), s.now().Add(resetTokenTTL)); err != nil {
		return err
	}

	if s.mailer == nil || !s.mailer.Configured() {
		s.logger.Warn("password reset requested but email is not configured", "user_id", u.ID)
		return nil
	}
	if err := s.mailer.SendPasswordReset(u.Email, u.Name, token); err != nil {
		s.logger.Error("send password reset", "user_id", u.ID, "error", err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of a valid reset token.
// The token is consumed by the same write that changes the password, so
// concurrent requests with one token cannot both succeed.
func (s *AuthService) ResetPassword(in ResetPasswordInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	tokenHash := hashToken(in.Token)
	u, err := s.users.GetByResetToken(tokenHash, s.now())
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.Validation("Invalid or expired reset token")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return err
	}
	ok, err := s.users.ConsumeResetToken(u.ID, tokenHash, hash, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("Invalid or expired reset token")
	}
	s.logger.Info("password reset", "user_id", u.ID)
	return nil
}

func (s *AuthService) issue(u *model.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

// createUser hashes the password and inserts the user, turning a taken email
// into a conflict.
func createUser(users *store.UserStore, name, email, password string, role model.Role) (*model.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := users.Create(normalizeName(name), validate.NormalizeEmail(email), hash, role)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("Email already in use")
	}
	return u, err
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
