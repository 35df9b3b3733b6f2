package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/eventsphere/internal/apperr"
	"github.com/dukerupert/eventsphere/internal/service"
)

// UserHandler serves the admin user-management endpoints.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *UserHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req service.CreateAdminInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	u, err := h.users.CreateAdmin(req, service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Admin created successfully", "user": u})
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	u, err := h.users.UpdateRole(r.PathValue("id"), req.Role, service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User role updated successfully", "user": u})
}

func (h *UserHandler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blocked *bool `json:"blocked"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Blocked == nil {
		writeError(w, r, h.logger, apperr.Validation("Missing required fields: blocked"))
		return
	}
	u, err := h.users.SetBlocked(r.PathValue("id"), *req.Blocked, service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	msg := "User unblocked successfully"
	if u.Blocked {
		msg = "User blocked successfully"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "user": u})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.PathValue("id"), service.ActorFromContext(r.Context())); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "User and related data deleted successfully")
}
