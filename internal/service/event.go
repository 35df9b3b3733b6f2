package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/eventsphere/internal/apperr"
	"github.com/dukerupert/eventsphere/internal/media"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/store"
	"github.com/dukerupert/eventsphere/internal/validate"
)

type EventService struct {
	events *store.EventStore
	users  *store.UserStore
	images *media.Store
	loc    *time.Location
	logger *slog.Logger
}

func NewEventService(events *store.EventStore, users *store.UserStore, images *media.Store, loc *time.Location, logger *slog.Logger) *EventService {
	if loc == nil {
		loc = time.UTC
	}
	return &EventService{events: events, users: users, images: images, loc: loc, logger: logger}
}

type EventInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Date        string `json:"date" validate:"required"`
	Location    string `json:"location" validate:"required"`
	Image       string `json:"image" validate:"omitempty,url"`
	IsPublic    *bool  `json:"isPublic"`
}

// EventPatch carries the fields of a partial update. Nil means unchanged.
type EventPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Date        *string `json:"date"`
	Location    *string `json:"location"`
	Image       *string `json:"image" validate:"omitempty,url"`
	IsPublic    *bool   `json:"isPublic"`
}

func (s *EventService) List(includePrivate bool) ([]model.Event, error) {
	events, err := s.events.List(includePrivate)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

func (s *EventService) Get(id string) (*model.Event, error) {
	ev, err := s.events.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, apperr.NotFound("Event not found")
	}
	return ev, nil
}

// GetManaged returns the event if the actor owns it or is an admin.
func (s *EventService) GetManaged(id string, actor Actor) (*model.Event, error) {
	ev, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !actor.owns(ev) {
		return nil, apperr.Forbidden("Forbidden")
	}
	return ev, nil
}

func (s *EventService) Create(in EventInput, actor Actor) (*model.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Location = strings.TrimSpace(in.Location)
	in.Image = strings.TrimSpace(in.Image)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	date, err := parseDate(in.Date, s.loc)
	if err != nil {
		return nil, apperr.Validation("Invalid date format")
	}

	organizer, err := s.users.GetByID(actor.ID)
	if err != nil {
		return nil, err
	}
	if organizer == nil {
		return nil, apperr.NotFound("User not found")
	}

	fields := store.EventFields{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Date:        date,
		Location:    in.Location,
		Image:       in.Image,
		IsPublic:    true,
	}
	if in.IsPublic != nil {
		fields.IsPublic = *in.IsPublic
	}

	ev, err := s.events.Create(organizer.ID, fields)
	if err != nil {
		return nil, err
	}
	s.logger.Info("event created", "event_id", ev.ID, "organizer_id", ev.OrganizerID)
	return ev, nil
}

func (s *EventService) Update(id string, patch EventPatch, actor Actor) (*model.Event, error) {
	ev, err := s.GetManaged(id, actor)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}

	fields := store.EventFields{
		Title:       ev.Title,
		Description: ev.Description,
		Category:    ev.Category,
		Date:        ev.Date,
		Location:    ev.Location,
		Image:       ev.Image,
		IsPublic:    ev.IsPublic,
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperr.Validation("Title cannot be empty")
		}
		fields.Title = title
	}
	if patch.Description != nil {
		fields.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		fields.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Date != nil {
		date, err := parseDate(*patch.Date, s.loc)
		if err != nil {
			return nil, apperr.Validation("Invalid date format")
		}
		fields.Date = date
	}
	if patch.Location != nil {
		fields.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.Image != nil {
		fields.Image = strings.TrimSpace(*patch.Image)
	}
	if patch.IsPublic != nil {
		fields.IsPublic = *patch.IsPublic
	}

	updated, err := s.events.Update(id, fields)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("Event not found")
	}
	return updated, nil
}

// Delete removes the event with its RSVPs and feedback and returns what was removed.
func (s *EventService) Delete(id string, actor Actor) (*model.Event, error) {
	ev, err := s.GetManaged(id, actor)
	if err != nil {
		return nil, err
	}
	deleted, err := s.events.Delete(id)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, apperr.NotFound("Event not found")
	}

	if ev.Image != "" {
		if err := s.images.DeleteByURL(context.Background(), ev.Image); err != nil {
			s.logger.Warn("delete event image", "event_id", id, "error", err)
		}
	}
	s.logger.Info("event deleted", "event_id", id, "actor_id", actor.ID)
	return ev, nil
}

// SetImage uploads a new cover image and points the event at it.
func (s *EventService) SetImage(ctx context.Context, id string, actor Actor, contentType string, body io.Reader, size int64) (*model.Event, error) {
	ev, err := s.GetManaged(id, actor)
	if err != nil {
		return nil, err
	}

	url, err := s.images.UploadEventImage(ctx, id, contentType, body, size)
	if errors.Is(err, media.ErrUnsupportedType) {
		return nil, apperr.Validation("Image must be a JPEG, PNG, GIF or WebP file")
	}
	if err != nil {
		return nil, fmt.Errorf("upload event image: %w", err)
	}

	updated, err := s.events.SetImage(id, url)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("Event not found")
	}

	if ev.Image != "" && ev.Image != url {
		if err := s.images.DeleteByURL(ctx, ev.Image); err != nil {
			s.logger.Warn("delete replaced event image", "event_id", id, "error", err)
		}
	}
	return updated, nil
}
