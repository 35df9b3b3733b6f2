package model

import "time"

// Categories offered by the event form. The server does not restrict Event.Category to this list.
var Categories = []string{"Conference", "Wedding", "Concert", "Corporate Meeting", "Workshop", "Other"}

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Image       string    `json:"image,omitempty"`
	OrganizerID string    `json:"organizerId"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EventSummary is the slice of an event joined onto RSVP listings.
type EventSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	OrganizerID string    `json:"organizerId"`
}
