package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/eventsphere/internal/auth"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/service"
	ws "github.com/dukerupert/eventsphere/internal/websocket"
)

type RSVPHandler struct {
	rsvps  *service.RSVPService
	events *service.EventService
	hub    *ws.Hub
	logger *slog.Logger
}

func NewRSVPHandler(rsvps *service.RSVPService, events *service.EventService, hub *ws.Hub, logger *slog.Logger) *RSVPHandler {
	return &RSVPHandler{rsvps: rsvps, events: events, hub: hub, logger: logger}
}

// notify broadcasts an RSVP change to the event's organizer. The update is
// dropped if the event can no longer be read.
func (h *RSVPHandler) notify(action string, rsvp *model.RSVP) {
	ev, err := h.events.Get(rsvp.EventID)
	if err != nil {
		h.logger.Warn("skip rsvp broadcast", "rsvp_id", rsvp.ID, "error", err)
		return
	}
	h.hub.Broadcast(ws.RSVPMessage(action, rsvp.ID, rsvp.EventID, ev.OrganizerID, map[string]any{"status": rsvp.Status}))
}

func (h *RSVPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID string `json:"eventId"`
		Status  string `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	rsvp, err := h.rsvps.Create(req.EventID, req.Status, service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.notify("created", rsvp)
	writeJSON(w, http.StatusCreated, map[string]any{"rsvp": rsvp, "message": "RSVP created"})
}

func (h *RSVPHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	rsvp, err := h.rsvps.Cancel(r.PathValue("eventId"), service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.notify("cancelled", rsvp)
	writeMessage(w, http.StatusOK, "RSVP cancelled")
}

func (h *RSVPHandler) Mine(w http.ResponseWriter, r *http.Request) {
	rsvps, buckets, err := h.rsvps.MyBuckets(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rsvps": rsvps, "buckets": buckets})
}

func (h *RSVPHandler) Organizer(w http.ResponseWriter, r *http.Request) {
	rsvps, err := h.rsvps.ListForOrganizer(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rsvps": rsvps})
}

func (h *RSVPHandler) OrganizerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.rsvps.OrganizerStats(service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *RSVPHandler) All(w http.ResponseWriter, r *http.Request) {
	rsvps, err := h.rsvps.ListAll()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rsvps": rsvps})
}

func (h *RSVPHandler) ByEvent(w http.ResponseWriter, r *http.Request) {
	rsvps, err := h.rsvps.ListByEvent(r.PathValue("eventId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rsvps": rsvps})
}

func (h *RSVPHandler) QR(w http.ResponseWriter, r *http.Request) {
	png, err := h.rsvps.QR(r.PathValue("id"), service.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// CheckIn accepts either {rsvpId, eventId} or the raw scanned text as {qr}.
func (h *RSVPHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RSVPID  string `json:"rsvpId"`
		EventID string `json:"eventId"`
		QR      string `json:"qr"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	actor := service.ActorFromContext(r.Context())
	var (
		attendee *model.Attendee
		detail   *model.RSVPDetail
		err      error
	)
	if req.QR != "" {
		attendee, detail, err = h.rsvps.CheckInQR(req.QR, actor)
	} else {
		attendee, detail, err = h.rsvps.CheckIn(req.RSVPID, req.EventID, actor)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.hub.Broadcast(ws.RSVPMessage("checked_in", detail.ID, detail.EventID, detail.Event.OrganizerID, map[string]any{
		"name":        attendee.Name,
		"checkedInAt": detail.CheckedInAt,
	}))
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Attendee checked in successfully",
		"attendee": attendee,
	})
}
