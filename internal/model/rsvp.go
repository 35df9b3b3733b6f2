package model

import "time"

type RSVPStatus string

const (
	StatusGoing      RSVPStatus = "going"
	StatusInterested RSVPStatus = "interested"
	StatusNotGoing   RSVPStatus = "not_going"
)

// Valid reports whether s is one of the three RSVP states.
func (s RSVPStatus) Valid() bool {
	switch s {
	case StatusGoing, StatusInterested, StatusNotGoing:
		return true
	}
	return false
}

type RSVP struct {
	ID             string     `json:"id"`
	EventID        string     `json:"eventId"`
	UserID         string     `json:"userId"`
	Status         RSVPStatus `json:"status"`
	CheckedIn      bool       `json:"checkedIn"`
	CheckedInAt    *time.Time `json:"checkedInAt,omitempty"`
	ReminderSentAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// RSVPDetail is an RSVP joined with the display fields of its event and user.
type RSVPDetail struct {
	RSVP
	Event EventSummary `json:"event"`
	User  UserSummary  `json:"user"`
}

// Attendee is returned to the organizer after a successful check-in.
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
