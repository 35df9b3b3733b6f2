package service

import (
	"github.com/dukerupert/eventsphere/internal/attendance"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/store"
)

type DashboardService struct {
	users  *store.UserStore
	events *store.EventStore
	rsvps  *store.RSVPStore
	rsvp   *RSVPService
}

func NewDashboardService(users *store.UserStore, events *store.EventStore, rsvps *store.RSVPStore, rsvp *RSVPService) *DashboardService {
	return &DashboardService{users: users, events: events, rsvps: rsvps, rsvp: rsvp}
}

type AttendeeDashboard struct {
	View    string             `json:"view"`
	RSVPs   []model.RSVPDetail `json:"rsvps"`
	Buckets attendance.Buckets `json:"buckets"`
}

type OrganizerDashboard struct {
	View  string                  `json:"view"`
	Stats []attendance.EventStats `json:"stats"`
}

type AdminDashboard struct {
	View   string                  `json:"view"`
	Users  int                     `json:"users"`
	Events int                     `json:"events"`
	RSVPs  int                     `json:"rsvps"`
	Stats  []attendance.EventStats `json:"stats"`
}

// For builds the dashboard matching the actor's role.
func (s *DashboardService) For(actor Actor) (any, error) {
	switch actor.Role.View() {
	case model.ViewAdmin:
		return s.admin(actor)
	case model.ViewOrganizer:
		stats, err := s.rsvp.OrganizerStats(actor)
		if err != nil {
			return nil, err
		}
		return OrganizerDashboard{View: "organizer", Stats: stats}, nil
	default:
		rsvps, buckets, err := s.rsvp.MyBuckets(actor.ID)
		if err != nil {
			return nil, err
		}
		return AttendeeDashboard{View: "attendee", RSVPs: rsvps, Buckets: buckets}, nil
	}
}

func (s *DashboardService) admin(actor Actor) (AdminDashboard, error) {
	d := AdminDashboard{View: "admin"}
	var err error
	if d.Users, err = s.users.Count(); err != nil {
		return d, err
	}
	if d.Events, err = s.events.Count(); err != nil {
		return d, err
	}
	if d.RSVPs, err = s.rsvps.Count(); err != nil {
		return d, err
	}
	d.Stats, err = s.rsvp.OrganizerStats(actor)
	return d, err
}
