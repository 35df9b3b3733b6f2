package service

import (
	"testing"
	"time"
)

func TestDashboardByRole(t *testing.T) {
	f := setup(t)
	ev := f.mustEvent(t, f.org, "Tech Talk", fixedNow.Add(48*time.Hour))
	f.rsvpSvc.Create(ev.ID, "", f.attendee)
	f.rsvpSvc.Wait()

	d, err := f.dashSvc.For(f.attendee)
	if err != nil {
		t.Fatalf("attendee dashboard: %v", err)
	}
	ad, ok := d.(AttendeeDashboard)
	if !ok {
		t.Fatalf("attendee dashboard type = %T", d)
	}
	if len(ad.Buckets.Confirmed) != 1 {
		t.Errorf("confirmed = %d, want 1", len(ad.Buckets.Confirmed))
	}

	d, _ = f.dashSvc.For(f.org)
	od, ok := d.(OrganizerDashboard)
	if !ok {
		t.Fatalf("organizer dashboard type = %T", d)
	}
	if len(od.Stats) != 1 || od.Stats[0].Going != 1 {
		t.Errorf("organizer stats = %+v", od.Stats)
	}

	d, _ = f.dashSvc.For(f.admin)
	adm, ok := d.(AdminDashboard)
	if !ok {
		t.Fatalf("admin dashboard type = %T", d)
	}
	if adm.Users != 4 || adm.Events != 1 || adm.RSVPs != 1 {
		t.Errorf("admin counts = %+v", adm)
	}
}
