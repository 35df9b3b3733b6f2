package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/dukerupert/eventsphere/internal/auth"
	"github.com/dukerupert/eventsphere/internal/config"
	"github.com/dukerupert/eventsphere/internal/database"
	"github.com/dukerupert/eventsphere/internal/email"
	"github.com/dukerupert/eventsphere/internal/model"
)

type testServer struct {
	*httptest.Server
	srv *Server
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		JWTSecret:        "test-secret",
		JWTTTL:           time.Hour,
		FrontendURL:      "http://localhost:5173",
		CORSOrigins:      []string{"http://localhost:5173"},
		Location:         time.UTC,
		ReminderInterval: time.Minute,
		ReminderLead:     24 * time.Hour,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, cfg, email.NewClient("", "", cfg.FrontendURL), nil, logger)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, srv: srv}
}

type response struct {
	status int
	header http.Header
	body   map[string]any
	raw    []byte
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		json.Unmarshal(raw, &out.body)
	}
	return out
}

func (r response) message() string {
	s, _ := r.body["message"].(string)
	return s
}

// register signs up a user through the API and returns their token and id.
func (ts *testServer) register(t *testing.T, name, email, role string) (string, string) {
	t.Helper()
	resp := ts.do(t, "POST", "/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "Str0ng!pass",
		"role":     role,
	})
	if resp.status != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", email, resp.status, resp.raw)
	}
	user := resp.body["user"].(map[string]any)
	return resp.body["token"].(string), user["id"].(string)
}

// admin creates an admin directly in the store and returns a token for them.
func (ts *testServer) admin(t *testing.T) (string, string) {
	t.Helper()
	hash, _ := auth.HashPassword("Adm1n!pass")
	u, err := ts.srv.UserStore().Create("Ada Admin", "ada@example.com", hash, model.RoleAdmin)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	tok, err := ts.srv.tokens.Issue(u.ID, u.Role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok, u.ID
}

func (ts *testServer) createEvent(t *testing.T, token, title string, date time.Time) string {
	t.Helper()
	resp := ts.do(t, "POST", "/api/events", token, map[string]any{
		"title":       title,
		"description": "An evening of talks",
		"category":    "Conference",
		"date":        date.Format(time.RFC3339),
		"location":    "Main Hall",
	})
	if resp.status != http.StatusCreated {
		t.Fatalf("create event: status %d: %s", resp.status, resp.raw)
	}
	return resp.body["event"].(map[string]any)["id"].(string)
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)

	resp := ts.do(t, "GET", "/api/health", "", nil)
	if resp.status != http.StatusOK || resp.body["status"] != "ok" {
		t.Errorf("health = %d %v", resp.status, resp.body)
	}
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	ts := setupServer(t)

	resp := ts.do(t, "GET", "/api/events", "", nil)
	if resp.status != http.StatusOK {
		t.Errorf("list events = %d", resp.status)
	}
	resp = ts.do(t, "GET", "/api/events/categories", "", nil)
	if cats, _ := resp.body["categories"].([]any); len(cats) != 6 {
		t.Errorf("categories = %v", resp.body)
	}

	resp = ts.do(t, "GET", "/api/rsvps/my", "", nil)
	if resp.status != http.StatusUnauthorized || resp.message() != "No token provided" {
		t.Errorf("unauthenticated = %d %q", resp.status, resp.message())
	}

	token, _ := ts.register(t, "Adam Attendee", "adam@example.com", "")
	resp = ts.do(t, "POST", "/api/events", token, map[string]any{"title": "Nope"})
	if resp.status != http.StatusForbidden {
		t.Errorf("attendee create event = %d, want 403", resp.status)
	}
	resp = ts.do(t, "GET", "/api/users", token, nil)
	if resp.status != http.StatusForbidden {
		t.Errorf("attendee list users = %d, want 403", resp.status)
	}

	resp = ts.do(t, "GET", "/api/auth/me", token, nil)
	user, _ := resp.body["user"].(map[string]any)
	if resp.status != http.StatusOK || user["email"] != "adam@example.com" {
		t.Errorf("me = %d %v", resp.status, resp.body)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Error("password hash must not be serialized")
	}
}

func TestRSVPAndCheckInFlow(t *testing.T) {
	ts := setupServer(t)
	orgToken, _ := ts.register(t, "Olivia Organizer", "olivia@example.com", "organizer")
	userToken, _ := ts.register(t, "Adam Attendee", "adam@example.com", "user")

	eventID := ts.createEvent(t, orgToken, "Tech Talk", time.Now().Add(72*time.Hour))

	resp := ts.do(t, "POST", "/api/rsvps", userToken, map[string]string{"eventId": eventID})
	if resp.status != http.StatusCreated {
		t.Fatalf("rsvp = %d: %s", resp.status, resp.raw)
	}
	rsvpID := resp.body["rsvp"].(map[string]any)["id"].(string)

	resp = ts.do(t, "POST", "/api/rsvps", userToken, map[string]string{"eventId": eventID})
	if resp.status != http.StatusConflict || resp.message() != "Already RSVPed" {
		t.Errorf("duplicate rsvp = %d %q", resp.status, resp.message())
	}

	resp = ts.do(t, "GET", "/api/rsvps/qr/"+rsvpID, userToken, nil)
	if resp.status != http.StatusOK || resp.header.Get("Content-Type") != "image/png" {
		t.Errorf("qr = %d %s", resp.status, resp.header.Get("Content-Type"))
	}

	resp = ts.do(t, "POST", "/api/rsvps/checkin", userToken, map[string]string{"rsvpId": rsvpID, "eventId": eventID})
	if resp.status != http.StatusForbidden {
		t.Errorf("attendee check-in = %d, want 403", resp.status)
	}

	resp = ts.do(t, "POST", "/api/rsvps/checkin", orgToken, map[string]string{"rsvpId": rsvpID, "eventId": eventID})
	if resp.status != http.StatusOK {
		t.Fatalf("check-in = %d: %s", resp.status, resp.raw)
	}
	attendee := resp.body["attendee"].(map[string]any)
	if attendee["name"] != "Adam Attendee" || attendee["email"] != "adam@example.com" {
		t.Errorf("attendee = %v", attendee)
	}

	resp = ts.do(t, "POST", "/api/rsvps/checkin", orgToken, map[string]string{"rsvpId": rsvpID, "eventId": eventID})
	if resp.status != http.StatusBadRequest || resp.message() != "Already checked in" {
		t.Errorf("repeat check-in = %d %q", resp.status, resp.message())
	}

	resp = ts.do(t, "GET", "/api/rsvps/organizer/stats", orgToken, nil)
	stats, _ := resp.body["stats"].([]any)
	if len(stats) != 1 || stats[0].(map[string]any)["checkedIn"] != float64(1) {
		t.Errorf("stats = %v", resp.body)
	}

	resp = ts.do(t, "GET", "/api/rsvps/my", userToken, nil)
	buckets, _ := resp.body["buckets"].(map[string]any)
	if attended, _ := buckets["attended"].([]any); len(attended) != 1 {
		t.Errorf("buckets = %v", buckets)
	}

	resp = ts.do(t, "POST", "/api/events/"+eventID+"/feedback", userToken, map[string]any{"rating": 5, "comment": "Loved it"})
	if resp.status != http.StatusCreated {
		t.Errorf("feedback = %d: %s", resp.status, resp.raw)
	}
	resp = ts.do(t, "GET", "/api/events/"+eventID+"/feedback", "", nil)
	if resp.body["averageRating"] != float64(5) {
		t.Errorf("feedback list = %v", resp.body)
	}

	resp = ts.do(t, "GET", "/api/events/"+eventID+"/attendees.xlsx", orgToken, nil)
	if resp.status != http.StatusOK || !strings.Contains(resp.header.Get("Content-Type"), "spreadsheetml") {
		t.Errorf("export = %d %s", resp.status, resp.header.Get("Content-Type"))
	}
	if len(resp.raw) < 2 || string(resp.raw[:2]) != "PK" {
		t.Error("export is not a zip container")
	}
}

func TestRSVPPastEvent(t *testing.T) {
	ts := setupServer(t)
	orgToken, _ := ts.register(t, "Olivia Organizer", "olivia@example.com", "organizer")
	userToken, _ := ts.register(t, "Adam Attendee", "adam@example.com", "")

	eventID := ts.createEvent(t, orgToken, "Yesterday", time.Now().Add(-48*time.Hour))

	resp := ts.do(t, "POST", "/api/rsvps", userToken, map[string]string{"eventId": eventID})
	if resp.status != http.StatusBadRequest || resp.message() != "Cannot RSVP to events that have already passed" {
		t.Errorf("past rsvp = %d %q", resp.status, resp.message())
	}
}

func TestCancelAndRecreate(t *testing.T) {
	ts := setupServer(t)
	orgToken, _ := ts.register(t, "Olivia Organizer", "olivia@example.com", "organizer")
	userToken, _ := ts.register(t, "Adam Attendee", "adam@example.com", "")
	eventID := ts.createEvent(t, orgToken, "Tech Talk", time.Now().Add(72*time.Hour))

	ts.do(t, "POST", "/api/rsvps", userToken, map[string]string{"eventId": eventID})
	resp := ts.do(t, "DELETE", "/api/rsvps/event/"+eventID, userToken, nil)
	if resp.status != http.StatusOK || resp.message() != "RSVP cancelled" {
		t.Fatalf("cancel = %d %q", resp.status, resp.message())
	}
	resp = ts.do(t, "DELETE", "/api/rsvps/event/"+eventID, userToken, nil)
	if resp.status != http.StatusNotFound {
		t.Errorf("second cancel = %d, want 404", resp.status)
	}
	resp = ts.do(t, "POST", "/api/rsvps", userToken, map[string]string{"eventId": eventID, "status": "interested"})
	if resp.status != http.StatusCreated {
		t.Errorf("recreate = %d: %s", resp.status, resp.raw)
	}
}

func TestEventOwnership(t *testing.T) {
	ts := setupServer(t)
	ownerToken, _ := ts.register(t, "Olivia Organizer", "olivia@example.com", "organizer")
	otherToken, _ := ts.register(t, "Oscar Organizer", "oscar@example.com", "organizer")
	eventID := ts.createEvent(t, ownerToken, "Tech Talk", time.Now().Add(72*time.Hour))

	resp := ts.do(t, "PUT", "/api/events/"+eventID, otherToken, map[string]string{"title": "Mine now"})
	if resp.status != http.StatusForbidden {
		t.Errorf("non-owner update = %d, want 403", resp.status)
	}
	resp = ts.do(t, "GET", "/api/events/"+eventID, "", nil)
	if resp.body["event"].(map[string]any)["title"] != "Tech Talk" {
		t.Errorf("event changed: %v", resp.body)
	}

	resp = ts.do(t, "PUT", "/api/events/"+eventID, ownerToken, map[string]string{"title": "Tech Talk II"})
	if resp.status != http.StatusOK {
		t.Errorf("owner update = %d: %s", resp.status, resp.raw)
	}

	resp = ts.do(t, "POST", "/api/events/"+eventID+"/image", ownerToken, nil)
	if resp.status != http.StatusBadRequest {
		t.Errorf("image without multipart = %d, want 400", resp.status)
	}

	resp = ts.do(t, "DELETE", "/api/events/"+eventID, otherToken, nil)
	if resp.status != http.StatusForbidden {
		t.Errorf("non-owner delete = %d, want 403", resp.status)
	}
	resp = ts.do(t, "DELETE", "/api/events/"+eventID, ownerToken, nil)
	if resp.status != http.StatusOK || resp.message() != "Event deleted successfully" {
		t.Errorf("delete = %d %q", resp.status, resp.message())
	}
	resp = ts.do(t, "GET", "/api/events/"+eventID, "", nil)
	if resp.status != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", resp.status)
	}
}

func TestAdminUserManagement(t *testing.T) {
	ts := setupServer(t)
	adminToken, adminID := ts.admin(t)
	orgToken, _ := ts.register(t, "Olivia Organizer", "olivia@example.com", "organizer")
	userToken, userID := ts.register(t, "Adam Attendee", "adam@example.com", "")

	eventID := ts.createEvent(t, orgToken, "Tech Talk", time.Now().Add(72*time.Hour))
	ts.do(t, "POST", "/api/rsvps", userToken, map[string]string{"eventId": eventID})

	resp := ts.do(t, "GET", "/api/users", adminToken, nil)
	if users, _ := resp.body["users"].([]any); len(users) != 3 {
		t.Errorf("users = %v", resp.body)
	}

	resp = ts.do(t, "PUT", "/api/users/"+adminID+"/role", adminToken, map[string]string{"role": "user"})
	if resp.status != http.StatusBadRequest {
		t.Errorf("self demotion = %d, want 400", resp.status)
	}

	resp = ts.do(t, "PUT", "/api/users/"+userID+"/block", adminToken, map[string]bool{"blocked": true})
	if resp.status != http.StatusOK || resp.message() != "User blocked successfully" {
		t.Errorf("block = %d %q", resp.status, resp.message())
	}
	resp = ts.do(t, "GET", "/api/rsvps/my", userToken, nil)
	if resp.status != http.StatusForbidden || resp.message() != "Account is blocked" {
		t.Errorf("blocked user = %d %q", resp.status, resp.message())
	}

	resp = ts.do(t, "DELETE", "/api/users/"+userID, adminToken, nil)
	if resp.status != http.StatusOK || resp.message() != "User and related data deleted successfully" {
		t.Errorf("delete user = %d %q", resp.status, resp.message())
	}
	resp = ts.do(t, "GET", "/api/rsvps", adminToken, nil)
	if rsvps, _ := resp.body["rsvps"].([]any); len(rsvps) != 0 {
		t.Errorf("rsvps after user delete = %v", resp.body)
	}

	resp = ts.do(t, "GET", "/api/dashboard", adminToken, nil)
	if resp.body["view"] != "admin" || resp.body["users"] != float64(2) {
		t.Errorf("admin dashboard = %v", resp.body)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := setupServer(t)

	tests := []struct {
		name    string
		headers string
		want    string
	}{
		{"allowed headers", "authorization,content-type", "http://localhost:5173"},
		{"disallowed header", "x-custom-header", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("OPTIONS", ts.URL+"/api/events", nil)
			req.Header.Set("Origin", "http://localhost:5173")
			req.Header.Set("Access-Control-Request-Method", "POST")
			req.Header.Set("Access-Control-Request-Headers", tt.headers)
			resp, err := ts.Client().Do(req)
			if err != nil {
				t.Fatalf("preflight: %v", err)
			}
			resp.Body.Close()

			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWebSocketReceivesEventCreated(t *testing.T) {
	ts := setupServer(t)
	orgToken, _ := ts.register(t, "Olivia Organizer", "olivia@example.com", "organizer")
	userToken, _ := ts.register(t, "Adam Attendee", "adam@example.com", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token="
	if _, _, err := websocket.Dial(ctx, wsURL+userToken, nil); err == nil {
		t.Error("attendee should not be able to open the live feed")
	}

	conn, _, err := websocket.Dial(ctx, wsURL+orgToken, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for ts.srv.Hub().ClientCount() == 0 {
		if ctx.Err() != nil {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	eventID := ts.createEvent(t, orgToken, "Tech Talk", time.Now().Add(72*time.Hour))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "event_created" || msg.ID != eventID {
		t.Errorf("message = %+v, want event_created for %s", msg, eventID)
	}
}

func TestOriginHosts(t *testing.T) {
	got := originHosts([]string{"http://localhost:5173", "https://events.example.com", "not a url", "*"})
	want := []string{"localhost:5173", "events.example.com", "*"}
	if len(got) != len(want) {
		t.Fatalf("originHosts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("originHosts[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
