package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mr1hm/go-campus-sos/internal/models"
)

type State string

const (
	StateIdle             State = "idle"
	StateAwaitingLocation State = "awaiting_location"
	StateConfirming       State = "confirming"
	StateSending          State = "sending"
	StateSent             State = "sent"
	StateQueued           State = "queued"
)

// validTransitions is the whole machine; everything else is rejected.
var validTransitions = map[State][]State{
	StateIdle:             {StateAwaitingLocation, StateConfirming},
	StateAwaitingLocation: {StateConfirming, StateIdle},
	StateConfirming:       {StateSending, StateIdle},
	StateSending:          {StateSent, StateQueued},
	StateSent:             {StateIdle},
	StateQueued:           {StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ErrBusy is returned when a user action arrives while a send is in
// flight; the initiating control is disabled during sending.
var ErrBusy = errors.New("submission already in progress")

// ErrNotConfirming is returned when confirm or cancel arrives outside
// the confirming step.
var ErrNotConfirming = errors.New("no confirmation pending")

// Sender delivers a submission to the server and returns the persisted
// record.
type Sender interface {
	Send(ctx context.Context, sub models.Submission) (*models.Alert, error)
}

type User struct {
	ID   string
	Name string
}

// Outcome reports where a confirmed submission ended up. Exactly one of
// Alert (sent, for optimistic local display) or Queued is set.
type Outcome struct {
	Alert  *models.Alert
	Queued bool
}

// Controller orchestrates one submission attempt at a time: location
// acquisition, two-step confirmation, send, and fallback to the offline
// queue. Timers and UI belong to the caller; the controller only moves
// through states and reports them via OnState.
type Controller struct {
	acquirer *Acquirer
	queue    *Queue
	sender   Sender
	user     User

	// OnState, when set, observes every state entry.
	OnState func(State)

	mu       sync.Mutex
	state    State
	location *models.Location
	pending  *models.Submission
}

func NewController(acquirer *Acquirer, queue *Queue, sender Sender, user User) *Controller {
	return &Controller{
		acquirer: acquirer,
		queue:    queue,
		sender:   sender,
		user:     user,
		state:    StateIdle,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setState must be called with c.mu held.
func (c *Controller) setState(to State) error {
	if !canTransition(c.state, to) {
		return fmt.Errorf("cannot move from %s to %s", c.state, to)
	}
	c.state = to
	if c.OnState != nil {
		c.OnState(to)
	}
	return nil
}

// resetLocked forces the machine back to idle regardless of the current
// state. Used after terminal states and retryable failures.
func (c *Controller) resetLocked() {
	c.state = StateIdle
	if c.OnState != nil {
		c.OnState(StateIdle)
	}
}

// Trigger is the user pressing the alert control. With a cached location
// it skips straight to confirming; otherwise it waits on the acquirer's
// bounded fix. A timeout or denial lands back in idle with a retryable
// ErrLocationUnavailable; the user may retry by triggering again.
func (c *Controller) Trigger(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateSending:
		c.mu.Unlock()
		return ErrBusy
	case StateSent, StateQueued:
		c.resetLocked()
	}

	if c.location != nil {
		err := c.setState(StateConfirming)
		c.mu.Unlock()
		return err
	}

	if err := c.setState(StateAwaitingLocation); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	loc, err := c.acquirer.Acquire(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingLocation {
		// Superseded by a newer user action.
		return nil
	}
	if err != nil {
		c.resetLocked()
		return err
	}

	c.location = &loc
	return c.setState(StateConfirming)
}

// Confirm is the explicit second step. It builds the payload, sends, and
// on a network failure hands the payload to the offline queue. No send
// happens unless the machine is in confirming.
func (c *Controller) Confirm(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.state != StateConfirming {
		busy := c.state == StateSending
		c.mu.Unlock()
		if busy {
			return Outcome{}, ErrBusy
		}
		return Outcome{}, ErrNotConfirming
	}

	loc := *c.location
	sub := models.Submission{
		SubmitterID:   c.user.ID,
		SubmitterName: c.user.Name,
		Location:      &loc,
		Category:      models.CategoryEmergency,
		Description:   "Emergency SOS alert triggered by user",
	}
	if err := c.setState(StateSending); err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}
	c.pending = &sub
	c.mu.Unlock()

	alert, err := c.sender.Send(ctx, sub)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil

	if err != nil {
		if n, qerr := c.queue.Enqueue(sub); qerr != nil {
			slog.Error("failed to queue submission", "error", qerr)
		} else {
			slog.Info("submission queued for retry when connectivity returns", "queue_length", n)
		}
		if serr := c.setState(StateQueued); serr != nil {
			return Outcome{}, serr
		}
		return Outcome{Queued: true}, nil
	}

	if serr := c.setState(StateSent); serr != nil {
		return Outcome{}, serr
	}
	return Outcome{Alert: alert}, nil
}

// Cancel abandons a pending confirmation with zero side effects.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConfirming {
		return ErrNotConfirming
	}
	return c.setState(StateIdle)
}

// HandleOnline flushes the offline queue through the same send path as a
// live submission. Called on a connectivity-restored signal and at
// application startup; items that still fail remain queued.
func (c *Controller) HandleOnline(ctx context.Context) FlushResult {
	res := c.queue.Flush(ctx, func(ctx context.Context, sub models.Submission) error {
		_, err := c.sender.Send(ctx, sub)
		return err
	})
	if res.Sent > 0 || res.Remaining > 0 {
		slog.Info("offline queue flushed", "sent", res.Sent, "remaining", res.Remaining)
	}
	return res
}

// SetLocation seeds the cached coordinate (the optimistic fast path for
// the next Trigger).
func (c *Controller) SetLocation(loc models.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.location = &loc
}

func (c *Controller) QueuedCount() int {
	return c.queue.Count()
}
