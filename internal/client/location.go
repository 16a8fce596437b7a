package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mr1hm/go-campus-sos/internal/models"
)

// ErrLocationUnavailable is returned when positioning is denied or the
// bounded wait elapses. The caller surfaces it with a retry affordance;
// the acquirer never retries on its own.
var ErrLocationUnavailable = errors.New("location unavailable")

const defaultLocationTimeout = 10 * time.Second

// LocationProvider is the platform positioning capability. It must
// produce a fresh fix, never a cached one.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (models.Location, error)
}

// ProviderFunc adapts a function to a LocationProvider.
type ProviderFunc func(ctx context.Context) (models.Location, error)

func (f ProviderFunc) CurrentLocation(ctx context.Context) (models.Location, error) {
	return f(ctx)
}

// StaticProvider reports a fixed coordinate, for terminals without a
// positioning device.
type StaticProvider struct {
	Location models.Location
}

func (p StaticProvider) CurrentLocation(context.Context) (models.Location, error) {
	if !p.Location.Valid() {
		return models.Location{}, errors.New("no coordinate configured")
	}
	return p.Location, nil
}

// Acquirer wraps a LocationProvider with a bounded wait. A fresh Acquire
// supersedes any pending one; acquisitions never stack.
type Acquirer struct {
	provider LocationProvider
	timeout  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewAcquirer(provider LocationProvider, timeout time.Duration) *Acquirer {
	if timeout <= 0 {
		timeout = defaultLocationTimeout
	}
	return &Acquirer{
		provider: provider,
		timeout:  timeout,
	}
}

func (a *Acquirer) Acquire(ctx context.Context) (models.Location, error) {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	loc, err := a.provider.CurrentLocation(ctx)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if !loc.Valid() {
		return models.Location{}, fmt.Errorf("%w: provider returned non-finite coordinates", ErrLocationUnavailable)
	}
	return loc, nil
}
