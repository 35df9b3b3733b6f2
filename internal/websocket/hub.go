package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/eventsphere/internal/model"
)

// Message is a live update pushed to dashboards. Organizer names the owner of
// the event it concerns and decides who receives it; it is never sent.
type Message struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	EventID   string         `json:"eventId"`
	Data      map[string]any `json:"data,omitempty"`
	Organizer string         `json:"-"`
}

// EventMessage describes a change to ev, e.g. EventMessage("created", ev).
func EventMessage(action string, ev *model.Event) Message {
	return Message{
		Type:      "event_" + action,
		ID:        ev.ID,
		EventID:   ev.ID,
		Data:      map[string]any{"title": ev.Title, "date": ev.Date},
		Organizer: ev.OrganizerID,
	}
}

// RSVPMessage describes a change to an RSVP on an event owned by organizerID.
func RSVPMessage(action, rsvpID, eventID, organizerID string, data map[string]any) Message {
	return Message{
		Type:      "rsvp_" + action,
		ID:        rsvpID,
		EventID:   eventID,
		Data:      data,
		Organizer: organizerID,
	}
}

// Hub fans messages out to connected dashboards. Admins see every message,
// organizers only those about their own events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("dashboard connected", "user_id", c.userID, "admin", c.admin)
}

// Unregister removes c and closes its send channel. Calling it twice is safe.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg for every client allowed to see it. Clients whose
// buffer is full miss the message rather than stall the caller.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.wants(msg) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping message for slow client", "type", msg.Type, "user_id", c.userID)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
