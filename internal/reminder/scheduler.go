// Package reminder emails attendees ahead of the events they are going to.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/store"
)

// Sender delivers a single reminder.
type Sender interface {
	Configured() bool
	SendEventReminder(toEmail, toName string, ev model.EventSummary) error
}

// Scheduler periodically looks for RSVPs whose event is within the lead
// window and sends each one reminder.
type Scheduler struct {
	mu       sync.RWMutex
	rsvps    *store.RSVPStore
	sender   Sender
	interval time.Duration
	lead     time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(rsvps *store.RSVPStore, sender Sender, interval, lead time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		rsvps:    rsvps,
		sender:   sender,
		interval: interval,
		lead:     lead,
		now:      time.Now,
		logger:   logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick runs one pass and returns the number of reminders sent.
func (s *Scheduler) Tick() int {
	if !s.sender.Configured() {
		return 0
	}

	now := s.now().UTC()
	due, err := s.rsvps.ListDueReminders(now, now.Add(s.lead))
	if err != nil {
		s.logger.Error("list due reminders", "error", err)
		return 0
	}

	sent := 0
	for _, r := range due {
		if err := s.sender.SendEventReminder(r.User.Email, r.User.Name, r.Event); err != nil {
			s.logger.Error("send reminder", "rsvp_id", r.ID, "error", err)
			continue
		}
		if err := s.rsvps.MarkReminderSent(r.ID, now); err != nil {
			s.logger.Error("mark reminder sent", "rsvp_id", r.ID, "error", err)
			continue
		}
		sent++
	}
	if sent > 0 {
		s.logger.Info("event reminders sent", "count", sent)
	}
	return sent
}
