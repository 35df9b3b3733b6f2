// Package service holds the rules that sit between the HTTP handlers and the
// stores: authorization, validation, state transitions and side effects.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/eventsphere/internal/auth"
	"github.com/dukerupert/eventsphere/internal/model"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  model.Role
}

// ActorFromContext builds an Actor from the request's AuthContext.
func ActorFromContext(ctx context.Context) Actor {
	ac, _ := auth.FromContext(ctx)
	return Actor{ID: ac.UserID, Name: ac.Name, Email: ac.Email, Role: ac.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// owns reports whether the actor may manage the event.
func (a Actor) owns(ev *model.Event) bool {
	return a.IsAdmin() || ev.OrganizerID == a.ID
}

// Mailer is the part of the email client the services depend on.
type Mailer interface {
	Configured() bool
	SendRSVPConfirmation(toEmail, toName string, ev model.Event) error
	SendPasswordReset(toEmail, toName, token string) error
}

// ImageRemover deletes stored event cover images. *media.Store satisfies it
// and treats a nil receiver as not configured.
type ImageRemover interface {
	DeleteByURL(ctx context.Context, url string) error
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate accepts RFC3339, an HTML datetime-local value, or a bare date.
// Values without an offset are read in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q", s)
}
