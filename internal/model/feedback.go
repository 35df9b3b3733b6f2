package model

import "time"

type Feedback struct {
	ID        string      `json:"id"`
	EventID   string      `json:"eventId"`
	UserID    string      `json:"userId"`
	Rating    int         `json:"rating"`
	Comment   string      `json:"comment"`
	CreatedAt time.Time   `json:"createdAt"`
	User      UserSummary `json:"user"`
}
