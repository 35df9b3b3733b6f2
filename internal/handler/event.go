package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/eventsphere/internal/export"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/service"
	ws "github.com/dukerupert/eventsphere/internal/websocket"
)

const maxImageSize = 5 << 20

type EventHandler struct {
	events *service.EventService
	rsvps  *service.RSVPService
	hub    *ws.Hub
	loc    *time.Location
	logger *slog.Logger
}

func NewEventHandler(events *service.EventService, rsvps *service.RSVPService, hub *ws.Hub, loc *time.Location, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, rsvps: rsvps, hub: hub, loc: loc, logger: logger}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.URL.Query().Get("all") == "true")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *EventHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": model.Categories})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": ev})
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.EventInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ev, err := h.events.Create(req, service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.hub.Broadcast(ws.EventMessage("created", ev))
	writeJSON(w, http.StatusCreated, map[string]any{"event": ev})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.EventPatch
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ev, err := h.events.Update(r.PathValue("id"), req, service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.hub.Broadcast(ws.EventMessage("updated", ev))
	writeJSON(w, http.StatusOK, map[string]any{"event": ev})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.Delete(r.PathValue("id"), service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.hub.Broadcast(ws.EventMessage("deleted", ev))
	writeMessage(w, http.StatusOK, "Event deleted successfully")
}

// UploadImage accepts a multipart "image" field and stores it as the event's cover.
func (h *EventHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+(1<<20))
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		writeMessage(w, http.StatusBadRequest, "Image must be at most 5 MB")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()
	if header.Size > maxImageSize {
		writeMessage(w, http.StatusBadRequest, "Image must be at most 5 MB")
		return
	}

	contentType := header.Header.Get("Content-Type")
	ev, err := h.events.SetImage(r.Context(), r.PathValue("id"), service.ActorFromContext(r.Context()), contentType, file, header.Size)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.hub.Broadcast(ws.EventMessage("updated", ev))
	writeJSON(w, http.StatusOK, map[string]any{"event": ev})
}

// ExportAttendees streams the event's RSVPs as an XLSX workbook.
func (h *EventHandler) ExportAttendees(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.GetManaged(r.PathValue("id"), service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	rsvps, err := h.rsvps.ListByEvent(ev.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteAttendees(&buf, rsvps, h.loc); err != nil {
		writeError(w, r, h.logger, fmt.Errorf("export attendees: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendees-%s.xlsx"`, ev.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

