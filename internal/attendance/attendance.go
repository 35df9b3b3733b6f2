package attendance

import (
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
)

// IsPast reports whether eventDate falls on a calendar day before now's,
// with both sides read in loc. Time of day is ignored.
func IsPast(eventDate, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	return startOfDay(eventDate.In(loc)).Before(startOfDay(now.In(loc)))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type EventStats struct {
	EventID    string    `json:"eventId"`
	Title      string    `json:"title"`
	Date       time.Time `json:"date"`
	Going      int       `json:"going"`
	Interested int       `json:"interested"`
	NotGoing   int       `json:"notGoing"`
	CheckedIn  int       `json:"checkedIn"`
	Total      int       `json:"total"`
}

// Tally counts RSVPs by status for each event. Events without RSVPs are
// included with zero counts; RSVPs for events not in the list are ignored.
func Tally(events []model.Event, rsvps []model.RSVPDetail) []EventStats {
	stats := make([]EventStats, len(events))
	index := make(map[string]int, len(events))
	for i, e := range events {
		stats[i] = EventStats{EventID: e.ID, Title: e.Title, Date: e.Date}
		index[e.ID] = i
	}

	for _, r := range rsvps {
		i, ok := index[r.EventID]
		if !ok {
			continue
		}
		s := &stats[i]
		s.Total++
		switch r.Status {
		case model.StatusGoing:
			s.Going++
		case model.StatusInterested:
			s.Interested++
		case model.StatusNotGoing:
			s.NotGoing++
		}
		if r.CheckedIn {
			s.CheckedIn++
		}
	}
	return stats
}

type Buckets struct {
	Confirmed  []model.RSVPDetail `json:"confirmed"`
	Interested []model.RSVPDetail `json:"interested"`
	Cancelled  []model.RSVPDetail `json:"cancelled"`
	Attended   []model.RSVPDetail `json:"attended"`
}

// Partition sorts an attendee's RSVPs into dashboard buckets. A checked-in
// RSVP is always attended regardless of status.
func Partition(rsvps []model.RSVPDetail) Buckets {
	b := Buckets{
		Confirmed:  []model.RSVPDetail{},
		Interested: []model.RSVPDetail{},
		Cancelled:  []model.RSVPDetail{},
		Attended:   []model.RSVPDetail{},
	}
	for _, r := range rsvps {
		switch {
		case r.CheckedIn:
			b.Attended = append(b.Attended, r)
		case r.Status == model.StatusGoing:
			b.Confirmed = append(b.Confirmed, r)
		case r.Status == model.StatusInterested:
			b.Interested = append(b.Interested, r)
		case r.Status == model.StatusNotGoing:
			b.Cancelled = append(b.Cancelled, r)
		}
	}
	return b
}

// AverageRating returns the mean feedback rating, or 0 with no feedback.
func AverageRating(feedback []model.Feedback) float64 {
	if len(feedback) == 0 {
		return 0
	}
	sum := 0
	for _, f := range feedback {
		sum += f.Rating
	}
	return float64(sum) / float64(len(feedback))
}
