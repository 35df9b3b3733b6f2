package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/eventsphere/internal/apperr"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/store"
	"github.com/dukerupert/eventsphere/internal/validate"
)

// UserService covers the admin user-management screens.
type UserService struct {
	users  *store.UserStore
	images ImageRemover
	logger *slog.Logger
}

// NewUserService builds the service. images may be nil when no event covers
// need cleaning up, e.g. for one-off admin seeding.
func NewUserService(users *store.UserStore, images ImageRemover, logger *slog.Logger) *UserService {
	return &UserService{users: users, images: images, logger: logger}
}

type CreateAdminInput struct {
	Name     string `json:"name" validate:"required,personname"`
	Email    string `json:"email" validate:"required,emailaddr"`
	Password string `json:"password" validate:"required,strongpassword"`
}

func (s *UserService) List() ([]model.User, error) {
	users, err := s.users.List()
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

func (s *UserService) CreateAdmin(in CreateAdminInput, actor Actor) (*model.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := createUser(s.users, in.Name, in.Email, in.Password, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin created", "user_id", u.ID, "actor_id", actor.ID)
	return u, nil
}

func (s *UserService) UpdateRole(id, role string, actor Actor) (*model.User, error) {
	r, ok := model.ParseRole(role)
	if !ok {
		return nil, apperr.Validation("Role must be one of user, organizer, admin")
	}
	if id == actor.ID && r != model.RoleAdmin {
		return nil, apperr.Validation("You cannot change your own role")
	}
	u, err := s.users.UpdateRole(id, r)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	s.logger.Info("user role updated", "user_id", id, "role", r, "actor_id", actor.ID)
	return u, nil
}

func (s *UserService) SetBlocked(id string, blocked bool, actor Actor) (*model.User, error) {
	if id == actor.ID {
		return nil, apperr.Validation("You cannot block yourself")
	}
	u, err := s.users.SetBlocked(id, blocked)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	s.logger.Info("user block changed", "user_id", id, "blocked", blocked, "actor_id", actor.ID)
	return u, nil
}

// Delete removes the user with their RSVPs, feedback and organized events.
func (s *UserService) Delete(id string, actor Actor) error {
	if id == actor.ID {
		return apperr.Validation("You cannot delete your own account")
	}
	images, deleted, err := s.users.Delete(id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("User not found")
	}

	if s.images != nil {
		for _, url := range images {
			if err := s.images.DeleteByURL(context.Background(), url); err != nil {
				s.logger.Warn("delete event image", "user_id", id, "url", url, "error", err)
			}
		}
	}
	s.logger.Info("user deleted", "user_id", id, "event_images", len(images), "actor_id", actor.ID)
	return nil
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
