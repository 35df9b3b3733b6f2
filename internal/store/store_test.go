package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/eventsphere/internal/database"
	"github.com/dukerupert/eventsphere/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateUser(t *testing.T, us *UserStore, name, email string, role model.Role) *model.User {
	t.Helper()
	u, err := us.Create(name, email, "hash", role)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func mustCreateEvent(t *testing.T, es *EventStore, organizerID, title string, date time.Time) *model.Event {
	t.Helper()
	e, err := es.Create(organizerID, EventFields{
		Title:       title,
		Description: "desc",
		Category:    "Conference",
		Date:        date,
		Location:    "Main Hall",
		IsPublic:    true,
	})
	if err != nil {
		t.Fatalf("create event %s: %v", title, err)
	}
	return e
}
