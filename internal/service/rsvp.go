package service

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/eventsphere/internal/apperr"
	"github.com/dukerupert/eventsphere/internal/attendance"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/qr"
	"github.com/dukerupert/eventsphere/internal/store"
	"github.com/dukerupert/eventsphere/internal/validate"
)

type RSVPService struct {
	rsvps  *store.RSVPStore
	events *store.EventStore
	mailer Mailer
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger

	wg sync.WaitGroup
}

func NewRSVPService(rsvps *store.RSVPStore, events *store.EventStore, mailer Mailer, loc *time.Location, logger *slog.Logger) *RSVPService {
	if loc == nil {
		loc = time.UTC
	}
	return &RSVPService{
		rsvps:  rsvps,
		events: events,
		mailer: mailer,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// Create records the actor's RSVP to an event. A second RSVP by the same
// user to the same event fails with a conflict.
func (s *RSVPService) Create(eventID string, status string, actor Actor) (*model.RSVP, error) {
	if eventID == "" {
		return nil, apperr.Validation("eventId is required")
	}
	if err := validate.RSVPStatus(status); err != nil {
		return nil, err
	}
	st := model.StatusGoing
	if status != "" {
		st = model.RSVPStatus(status)
	}

	ev, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, apperr.NotFound("Event not found")
	}
	if attendance.IsPast(ev.Date, s.now(), s.loc) {
		return nil, apperr.PastEvent("Cannot RSVP to events that have already passed")
	}

	rsvp, err := s.rsvps.Create(ev.ID, actor.ID, st)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("Already RSVPed")
	}
	if err != nil {
		return nil, err
	}

	s.sendConfirmation(actor, *ev)
	return rsvp, nil
}

// sendConfirmation emails the attendee in the background. Failures are logged.
func (s *RSVPService) sendConfirmation(actor Actor, ev model.Event) {
	if s.mailer == nil || !s.mailer.Configured() || actor.Email == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.mailer.SendRSVPConfirmation(actor.Email, actor.Name, ev); err != nil {
			s.logger.Error("send rsvp confirmation", "event_id", ev.ID, "user_id", actor.ID, "error", err)
			return
		}
		s.logger.Debug("rsvp confirmation sent", "event_id", ev.ID, "user_id", actor.ID)
	}()
}

// Wait blocks until background confirmation emails have finished.
func (s *RSVPService) Wait() {
	s.wg.Wait()
}

// Cancel deletes the actor's RSVP to the event.
func (s *RSVPService) Cancel(eventID string, actor Actor) (*model.RSVP, error) {
	existing, err := s.rsvps.GetByEventAndUser(eventID, actor.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound("RSVP not found")
	}
	deleted, err := s.rsvps.DeleteByEventAndUser(eventID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, apperr.NotFound("RSVP not found")
	}
	return existing, nil
}

func (s *RSVPService) ListByEvent(eventID string) ([]model.RSVPDetail, error) {
	return nonNil(s.rsvps.ListByEvent(eventID))
}

func (s *RSVPService) ListForOrganizer(organizerID string) ([]model.RSVPDetail, error) {
	return nonNil(s.rsvps.ListByOrganizer(organizerID))
}

func (s *RSVPService) ListAll() ([]model.RSVPDetail, error) {
	return nonNil(s.rsvps.ListAll())
}

func (s *RSVPService) ListMine(userID string) ([]model.RSVPDetail, error) {
	return nonNil(s.rsvps.ListByUser(userID))
}

// MyBuckets returns the user's RSVPs and their dashboard grouping.
func (s *RSVPService) MyBuckets(userID string) ([]model.RSVPDetail, attendance.Buckets, error) {
	rsvps, err := s.ListMine(userID)
	if err != nil {
		return nil, attendance.Buckets{}, err
	}
	return rsvps, attendance.Partition(rsvps), nil
}

// OrganizerStats tallies RSVPs for each event the organizer runs. Admins see
// every event.
func (s *RSVPService) OrganizerStats(actor Actor) ([]attendance.EventStats, error) {
	var (
		events []model.Event
		rsvps  []model.RSVPDetail
		err    error
	)
	if actor.IsAdmin() {
		events, err = s.events.List(true)
		if err == nil {
			rsvps, err = s.rsvps.ListAll()
		}
	} else {
		events, err = s.events.ListByOrganizer(actor.ID)
		if err == nil {
			rsvps, err = s.rsvps.ListByOrganizer(actor.ID)
		}
	}
	if err != nil {
		return nil, err
	}
	return attendance.Tally(events, rsvps), nil
}

// CheckIn marks a going RSVP as attended. Only the event's organizer or an
// admin may check attendees in.
func (s *RSVPService) CheckIn(rsvpID, eventID string, actor Actor) (*model.Attendee, *model.RSVPDetail, error) {
	if rsvpID == "" || eventID == "" {
		return nil, nil, apperr.Validation("rsvpId and eventId are required")
	}

	ev, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, nil, err
	}
	if ev == nil {
		return nil, nil, apperr.NotFound("RSVP not found")
	}
	if !actor.owns(ev) {
		return nil, nil, apperr.Forbidden("Forbidden")
	}

	ok, err := s.rsvps.CheckIn(rsvpID, eventID, s.now())
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, s.classifyCheckInFailure(rsvpID, eventID)
	}

	detail, err := s.rsvps.GetDetail(rsvpID)
	if err != nil {
		return nil, nil, err
	}
	if detail == nil {
		return nil, nil, apperr.NotFound("RSVP not found")
	}
	s.logger.Info("attendee checked in", "rsvp_id", rsvpID, "event_id", eventID, "actor_id", actor.ID)
	return &model.Attendee{Name: detail.User.Name, Email: detail.User.Email}, detail, nil
}

// CheckInQR decodes a scanned QR payload and checks the attendee in.
func (s *RSVPService) CheckInQR(raw string, actor Actor) (*model.Attendee, *model.RSVPDetail, error) {
	p, err := qr.Decode(raw)
	if err != nil {
		return nil, nil, apperr.Validation("Invalid QR code")
	}
	return s.CheckIn(p.RSVPID, p.EventID, actor)
}

func (s *RSVPService) classifyCheckInFailure(rsvpID, eventID string) error {
	r, err := s.rsvps.GetForEvent(rsvpID, eventID)
	if err != nil {
		return err
	}
	switch {
	case r == nil:
		return apperr.NotFound("RSVP not found")
	case r.Status != model.StatusGoing:
		return apperr.InvalidState("RSVP not confirmed")
	case r.CheckedIn:
		return apperr.AlreadyDone("Already checked in")
	}
	// The row changed between the update and the read; report it as taken.
	return apperr.AlreadyDone("Already checked in")
}

// QR renders the check-in code for an RSVP. The attendee, the event's
// organizer and admins may fetch it.
func (s *RSVPService) QR(rsvpID string, actor Actor) ([]byte, error) {
	d, err := s.rsvps.GetDetail(rsvpID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("RSVP not found")
	}
	if d.UserID != actor.ID && d.Event.OrganizerID != actor.ID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("Forbidden")
	}
	if d.Status != model.StatusGoing {
		return nil, apperr.InvalidState("RSVP not confirmed")
	}
	return qr.Encode(qr.PayloadFor(*d))
}

func nonNil(rsvps []model.RSVPDetail, err error) ([]model.RSVPDetail, error) {
	if err != nil {
		return nil, err
	}
	if rsvps == nil {
		rsvps = []model.RSVPDetail{}
	}
	return rsvps, nil
}
