// Package qr renders and reads the codes attendees show at the door.
package qr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 256

// Payload is the JSON document encoded into an RSVP's QR code.
type Payload struct {
	RSVPID        string           `json:"rsvpId"`
	EventID       string           `json:"eventId"`
	EventName     string           `json:"eventName"`
	EventDate     time.Time        `json:"eventDate"`
	AttendeeName  string           `json:"attendeeName"`
	AttendeeEmail string           `json:"attendeeEmail"`
	Status        model.RSVPStatus `json:"status"`
}

func PayloadFor(d model.RSVPDetail) Payload {
	return Payload{
		RSVPID:        d.ID,
		EventID:       d.EventID,
		EventName:     d.Event.Title,
		EventDate:     d.Event.Date,
		AttendeeName:  d.User.Name,
		AttendeeEmail: d.User.Email,
		Status:        d.Status,
	}
}

// Encode renders p as a PNG QR code.
func Encode(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal qr payload: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, imageSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

var ErrInvalidPayload = errors.New("invalid qr payload")

// Decode parses scanned QR text. Only rsvpId and eventId are required; the
// other fields are for display and are not trusted.
func Decode(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if p.RSVPID == "" || p.EventID == "" {
		return Payload{}, ErrInvalidPayload
	}
	return p, nil
}
