package client

import (
	"sync"
	"time"

	"github.com/mr1hm/go-campus-sos/internal/models"
)

// Beeper plays one audible alert tone.
type Beeper interface {
	Beep()
}

const (
	defaultBurstCount    = 4
	defaultBurstInterval = time.Second
)

// Dashboard mirrors the server's alert list on the admin side: an
// initial full fetch, then one delta per broadcast event. It tracks the
// highlighted (active) set and drives a bounded audible burst when a new
// active alert arrives while an admin is actually watching.
type Dashboard struct {
	burstCount    int
	burstInterval time.Duration
	beeper        Beeper

	mu           sync.Mutex
	alerts       []models.Alert
	highlighted  map[string]struct{}
	soundOn      bool
	presented    bool
	adminSession bool

	wg     sync.WaitGroup
	closed chan struct{}
}

func NewDashboard(beeper Beeper) *Dashboard {
	return newDashboard(beeper, defaultBurstCount, defaultBurstInterval)
}

func newDashboard(beeper Beeper, burstCount int, burstInterval time.Duration) *Dashboard {
	return &Dashboard{
		burstCount:    burstCount,
		burstInterval: burstInterval,
		beeper:        beeper,
		highlighted:   make(map[string]struct{}),
		soundOn:       true,
		closed:        make(chan struct{}),
	}
}

// Sync replaces the local mirror with a full server list, typically the
// GET after (re)connecting. Highlighted becomes the active set.
func (d *Dashboard) Sync(alerts []models.Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.alerts = make([]models.Alert, len(alerts))
	copy(d.alerts, alerts)
	d.highlighted = make(map[string]struct{})
	for i := range alerts {
		if alerts[i].Status == models.StatusActive {
			d.highlighted[alerts[i].ID] = struct{}{}
		}
	}
}

// Apply folds one broadcast event into the mirror. Events for ids the
// dashboard has never seen (joined late, missed deltas) are safe no-ops
// where that is the only sane answer.
func (d *Dashboard) Apply(ev models.Event) {
	switch ev.Kind {
	case models.EventCreated:
		if ev.Alert == nil {
			return
		}
		d.applyCreated(*ev.Alert)
	case models.EventResolved:
		if ev.Alert == nil {
			return
		}
		d.applyResolved(*ev.Alert)
	case models.EventDeleted:
		d.applyDeleted(ev.ID)
	}
}

func (d *Dashboard) applyCreated(a models.Alert) {
	d.mu.Lock()

	// The broadcast echo of our own optimistic insert: same id, skip.
	for i := range d.alerts {
		if d.alerts[i].ID == a.ID {
			d.mu.Unlock()
			return
		}
	}

	d.alerts = append([]models.Alert{a}, d.alerts...)
	audible := false
	if a.Status == models.StatusActive {
		d.highlighted[a.ID] = struct{}{}
		audible = d.presented && d.adminSession && d.soundOn
	}
	d.mu.Unlock()

	if audible {
		d.startBurst()
	}
}

func (d *Dashboard) applyResolved(a models.Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.highlighted, a.ID)
	for i := range d.alerts {
		if d.alerts[i].ID == a.ID {
			d.alerts[i] = a
			return
		}
	}
	// Not present locally: nothing to replace.
}

func (d *Dashboard) applyDeleted(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.highlighted, id)
	for i := range d.alerts {
		if d.alerts[i].ID == id {
			d.alerts = append(d.alerts[:i], d.alerts[i+1:]...)
			return
		}
	}
}

// InsertLocal prepends a record the user just submitted, ahead of its
// broadcast echo.
func (d *Dashboard) InsertLocal(a models.Alert) {
	d.applyCreated(a)
}

// startBurst plays a finite run of beeps; it never loops unbounded.
func (d *Dashboard) startBurst() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.burstInterval)
		defer ticker.Stop()

		d.beeper.Beep()
		for played := 1; played < d.burstCount; played++ {
			select {
			case <-ticker.C:
				d.mu.Lock()
				on := d.soundOn
				d.mu.Unlock()
				if !on {
					return
				}
				d.beeper.Beep()
			case <-d.closed:
				return
			}
		}
	}()
}

func (d *Dashboard) Alerts() []models.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Alert, len(d.alerts))
	copy(out, d.alerts)
	return out
}

func (d *Dashboard) Highlighted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.highlighted))
	for id := range d.highlighted {
		ids = append(ids, id)
	}
	return ids
}

func (d *Dashboard) ActiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for i := range d.alerts {
		if d.alerts[i].Status == models.StatusActive {
			n++
		}
	}
	return n
}

// SetSound is the user-controlled toggle; off also silences an in-flight
// burst at its next tick.
func (d *Dashboard) SetSound(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.soundOn = on
}

// SetPresented marks whether this dashboard is the view currently shown
// to the administrator.
func (d *Dashboard) SetPresented(p bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presented = p
}

func (d *Dashboard) SetAdminSession(active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.adminSession = active
}

// Close stops any in-flight audible burst and waits for it to finish.
func (d *Dashboard) Close() {
	close(d.closed)
	d.wg.Wait()
}
