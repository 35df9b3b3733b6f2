package websocket

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient is a Client with a buffered send channel and no connection.
func fakeClient(hub *Hub, userID string, admin bool) *Client {
	return &Client{hub: hub, send: make(chan []byte, sendBufferSize), userID: userID, admin: admin}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("client %s received nothing", c.userID)
		return Message{}
	}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Errorf("client %s got unexpected message %s", c.userID, data)
	default:
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	a := fakeClient(hub, "u1", false)
	b := fakeClient(hub, "u2", true)

	hub.Register(a)
	hub.Register(b)
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("ClientCount = %d, want 2", got)
	}

	hub.Unregister(a)
	hub.Unregister(a)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount = %d, want 1", got)
	}
	if _, open := <-a.send; open {
		t.Error("send channel should be closed after unregister")
	}
}

func TestBroadcastScopesByOrganizer(t *testing.T) {
	hub := NewHub(testLogger())
	owner := fakeClient(hub, "org-1", false)
	other := fakeClient(hub, "org-2", false)
	admin := fakeClient(hub, "admin-1", true)
	for _, c := range []*Client{owner, other, admin} {
		hub.Register(c)
	}

	ev := &model.Event{ID: "e-1", Title: "Tech Talk", OrganizerID: "org-1"}
	hub.Broadcast(EventMessage("updated", ev))

	for _, c := range []*Client{owner, admin} {
		msg := receive(t, c)
		if msg.Type != "event_updated" || msg.ID != "e-1" || msg.EventID != "e-1" {
			t.Errorf("%s got %+v", c.userID, msg)
		}
		if msg.Organizer != "" {
			t.Error("organizer must not be serialized")
		}
		if msg.Data["title"] != "Tech Talk" {
			t.Errorf("data = %v", msg.Data)
		}
	}
	assertEmpty(t, other)
}

func TestBroadcastGlobalMessage(t *testing.T) {
	hub := NewHub(testLogger())
	a := fakeClient(hub, "org-1", false)
	b := fakeClient(hub, "org-2", false)
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(RSVPMessage("created", "r-1", "e-9", "", nil))

	for _, c := range []*Client{a, b} {
		if msg := receive(t, c); msg.Type != "rsvp_created" || msg.ID != "r-1" {
			t.Errorf("%s got %+v", c.userID, msg)
		}
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(testLogger())
	c := fakeClient(hub, "org-1", false)
	hub.Register(c)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.Broadcast(RSVPMessage("created", fmt.Sprint(i), "e-1", "org-1", nil))
	}

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}
	if msg := receive(t, c); msg.ID != "0" {
		t.Errorf("first message id = %s, want 0", msg.ID)
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Broadcast(RSVPMessage("cancelled", "r-1", "e-1", "org-1", nil))
}

func TestConcurrentRegisterBroadcast(t *testing.T) {
	hub := NewHub(testLogger())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := fakeClient(hub, fmt.Sprintf("org-%d", i%3), i%5 == 0)
			hub.Register(c)
			hub.Broadcast(RSVPMessage("checked_in", "r", "e", "org-1", nil))
			hub.Unregister(c)
		}(i)
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d, want 0", got)
	}
}
