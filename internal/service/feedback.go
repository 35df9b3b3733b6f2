package service

import (
	"errors"
	"strings"

	"github.com/dukerupert/eventsphere/internal/apperr"
	"github.com/dukerupert/eventsphere/internal/attendance"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/store"
	"github.com/dukerupert/eventsphere/internal/validate"
)

type FeedbackService struct {
	feedback *store.FeedbackStore
	rsvps    *store.RSVPStore
	events   *store.EventStore
}

func NewFeedbackService(feedback *store.FeedbackStore, rsvps *store.RSVPStore, events *store.EventStore) *FeedbackService {
	return &FeedbackService{feedback: feedback, rsvps: rsvps, events: events}
}

type FeedbackInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// Create records feedback from an attendee who checked in to the event.
func (s *FeedbackService) Create(eventID string, in FeedbackInput, actor Actor) (*model.Feedback, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	ev, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, apperr.NotFound("Event not found")
	}

	r, err := s.rsvps.GetByEventAndUser(eventID, actor.ID)
	if err != nil {
		return nil, err
	}
	if r == nil || !r.CheckedIn {
		return nil, apperr.InvalidState("Only checked-in attendees can leave feedback")
	}

	fb, err := s.feedback.Create(eventID, actor.ID, in.Rating, in.Comment)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("Feedback already submitted")
	}
	return fb, err
}

// List returns the event's feedback and its average rating.
func (s *FeedbackService) List(eventID string) ([]model.Feedback, float64, error) {
	ev, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, 0, err
	}
	if ev == nil {
		return nil, 0, apperr.NotFound("Event not found")
	}
	items, err := s.feedback.ListByEvent(eventID)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []model.Feedback{}
	}
	return items, attendance.AverageRating(items), nil
}
