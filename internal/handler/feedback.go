package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/eventsphere/internal/service"
)

type FeedbackHandler struct {
	feedback *service.FeedbackService
	logger   *slog.Logger
}

func NewFeedbackHandler(feedback *service.FeedbackService, logger *slog.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, logger: logger}
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.FeedbackInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	fb, err := h.feedback.Create(r.PathValue("id"), req, service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"feedback": fb})
}

func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	items, avg, err := h.feedback.List(r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": items, "averageRating": avg})
}
