package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// ParseRole returns the Role named by s and whether it is one of the known roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return r, true
	}
	return "", false
}

// CanManageEvents reports whether the role may create events and run check-in.
func (r Role) CanManageEvents() bool {
	return r == RoleOrganizer || r == RoleAdmin
}

type View int

const (
	ViewAttendee View = iota
	ViewOrganizer
	ViewAdmin
)

// View selects the dashboard a role is shown. Unknown roles fall back to the attendee view.
func (r Role) View() View {
	switch r {
	case RoleAdmin:
		return ViewAdmin
	case RoleOrganizer:
		return ViewOrganizer
	default:
		return ViewAttendee
	}
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Blocked      bool      `json:"blocked"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the slice of a user shown next to RSVPs and feedback.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
