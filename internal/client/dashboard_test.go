package client

import (
	"fmt"
	"testing"
	"time"

	"github.com/mr1hm/go-campus-sos/internal/models"
)

type countingBeeper struct {
	beeps chan struct{}
}

func newCountingBeeper() *countingBeeper {
	return &countingBeeper{beeps: make(chan struct{}, 32)}
}

func (b *countingBeeper) Beep() {
	b.beeps <- struct{}{}
}

func (b *countingBeeper) waitFor(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-b.beeps:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for beep %d of %d", i+1, n)
		}
	}
}

func (b *countingBeeper) expectSilence(t *testing.T) {
	t.Helper()
	select {
	case <-b.beeps:
		t.Fatal("unexpected beep")
	case <-time.After(20 * time.Millisecond):
	}
}

func activeAlert(id string) models.Alert {
	return models.Alert{
		ID:            id,
		SubmitterID:   "u1",
		SubmitterName: "A",
		Location:      models.Location{Lat: 1, Lng: 2},
		Category:      models.CategoryEmergency,
		Status:        models.StatusActive,
		CreatedAt:     time.Now().UTC(),
	}
}

func presentedDashboard(beeper Beeper) *Dashboard {
	d := newDashboard(beeper, 4, time.Millisecond)
	d.SetAdminSession(true)
	d.SetPresented(true)
	return d
}

func TestDashboard_SyncThenCreatedPrepends(t *testing.T) {
	d := newDashboard(newCountingBeeper(), 4, time.Millisecond)
	defer d.Close()

	d.Sync([]models.Alert{activeAlert("a1")})
	d.Apply(models.CreatedEvent(ptr(activeAlert("a2"))))

	alerts := d.Alerts()
	if len(alerts) != 2 || alerts[0].ID != "a2" {
		t.Errorf("expected a2 prepended, got %+v", alerts)
	}
	if got := len(d.Highlighted()); got != 2 {
		t.Errorf("expected 2 highlighted ids, got %d", got)
	}
}

func TestDashboard_CreatedDedupsBroadcastEcho(t *testing.T) {
	d := newDashboard(newCountingBeeper(), 4, time.Millisecond)
	defer d.Close()

	a := activeAlert("a1")
	d.InsertLocal(a)
	d.Apply(models.CreatedEvent(&a))

	if got := len(d.Alerts()); got != 1 {
		t.Errorf("expected the echo to dedup by id, got %d records", got)
	}
}

func TestDashboard_ResolvedReplacesAndUnhighlights(t *testing.T) {
	d := newDashboard(newCountingBeeper(), 4, time.Millisecond)
	defer d.Close()

	d.Sync([]models.Alert{activeAlert("a1")})

	resolved := activeAlert("a1")
	resolved.Status = models.StatusResolved
	d.Apply(models.ResolvedEvent(&resolved))

	alerts := d.Alerts()
	if len(alerts) != 1 || alerts[0].Status != models.StatusResolved {
		t.Errorf("expected a1 replaced with resolved copy, got %+v", alerts)
	}
	if len(d.Highlighted()) != 0 {
		t.Errorf("expected no highlighted ids, got %v", d.Highlighted())
	}
}

func TestDashboard_ResolvedForUnknownIDIsNoOp(t *testing.T) {
	d := newDashboard(newCountingBeeper(), 4, time.Millisecond)
	defer d.Close()

	// Joined late: the record was never fetched
	resolved := activeAlert("ghost")
	resolved.Status = models.StatusResolved
	d.Apply(models.ResolvedEvent(&resolved))

	if got := len(d.Alerts()); got != 0 {
		t.Errorf("expected no records, got %d", got)
	}
}

func TestDashboard_DeletedRemoves(t *testing.T) {
	d := newDashboard(newCountingBeeper(), 4, time.Millisecond)
	defer d.Close()

	d.Sync([]models.Alert{activeAlert("a1"), activeAlert("a2")})
	d.Apply(models.DeletedEvent("a1"))

	alerts := d.Alerts()
	if len(alerts) != 1 || alerts[0].ID != "a2" {
		t.Errorf("expected only a2 to remain, got %+v", alerts)
	}

	// Unknown id: no-op
	d.Apply(models.DeletedEvent("ghost"))
	if got := len(d.Alerts()); got != 1 {
		t.Errorf("expected 1 record, got %d", got)
	}
}

func TestDashboard_NewActiveAlertPlaysBoundedBurst(t *testing.T) {
	beeper := newCountingBeeper()
	d := presentedDashboard(beeper)
	defer d.Close()

	d.Apply(models.CreatedEvent(ptr(activeAlert("a1"))))

	beeper.waitFor(t, 4)
	beeper.expectSilence(t) // bounded: exactly burstCount beeps
}

func TestDashboard_BurstGating(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*Dashboard)
	}{
		{"not presented", func(d *Dashboard) { d.SetPresented(false) }},
		{"no admin session", func(d *Dashboard) { d.SetAdminSession(false) }},
		{"sound off", func(d *Dashboard) { d.SetSound(false) }},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			beeper := newCountingBeeper()
			d := presentedDashboard(beeper)
			defer d.Close()
			tc.setup(d)

			d.Apply(models.CreatedEvent(ptr(activeAlert(fmt.Sprintf("a%d", i)))))

			beeper.expectSilence(t)
			if got := len(d.Alerts()); got != 1 {
				t.Errorf("event must still apply silently, got %d records", got)
			}
		})
	}
}

func ptr(a models.Alert) *models.Alert { return &a }
