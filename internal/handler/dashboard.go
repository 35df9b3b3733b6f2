package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/eventsphere/internal/service"
)

type DashboardHandler struct {
	dashboards *service.DashboardService
	logger     *slog.Logger
}

func NewDashboardHandler(dashboards *service.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, logger: logger}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboards.For(service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
