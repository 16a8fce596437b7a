package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mr1hm/go-campus-sos/internal/models"
	"github.com/mr1hm/go-campus-sos/internal/repository"
)

// ErrValidation marks a malformed submission. Handlers map it to 400.
var ErrValidation = errors.New("invalid submission")

// Notifier receives one event per store mutation. Injected at
// construction so mutation sites never reach for a shared global.
type Notifier interface {
	Notify(ev models.Event)
}

// Store owns the alert lifecycle. Writes go to the primary repository;
// when the primary is unreachable the store switches to the in-process
// fallback so submissions keep working (degraded mode).
type Store struct {
	primary  repository.AlertRepository
	fallback repository.AlertRepository
	notifier Notifier
	degraded atomic.Bool
}

func New(primary, fallback repository.AlertRepository, notifier Notifier) *Store {
	return &Store{
		primary:  primary,
		fallback: fallback,
		notifier: notifier,
	}
}

// Degraded reports whether any operation has fallen back to the
// in-process repository.
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

func (s *Store) markDegraded(op string, err error) {
	if !s.degraded.Swap(true) {
		slog.Warn("primary repository unavailable, serving degraded mode", "op", op, "error", err)
	}
}

func (s *Store) Create(ctx context.Context, sub models.Submission) (*models.Alert, error) {
	if sub.Location == nil {
		return nil, fmt.Errorf("%w: location is required", ErrValidation)
	}
	if !sub.Location.Valid() {
		return nil, fmt.Errorf("%w: location must be finite lat/lng degrees", ErrValidation)
	}
	category := sub.Category
	if category == "" {
		category = models.CategoryEmergency
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, sub.Category)
	}

	alert := &models.Alert{
		SubmitterID:   sub.SubmitterID,
		SubmitterName: sub.SubmitterName,
		Location:      *sub.Location,
		Category:      category,
		Status:        models.StatusActive,
		Description:   sub.Description,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.primary.Create(ctx, alert); err != nil {
		s.markDegraded("create", err)
		if ferr := s.fallback.Create(ctx, alert); ferr != nil {
			return nil, fmt.Errorf("error creating alert: %w", ferr)
		}
	}

	s.notifier.Notify(models.CreatedEvent(alert))
	return alert, nil
}

// List returns alerts most recent first. A primary outage is not an
// error for callers; the fallback list is served instead.
func (s *Store) List(ctx context.Context) ([]models.Alert, error) {
	alerts, err := s.primary.List(ctx)
	if err != nil {
		s.markDegraded("list", err)
		return s.fallback.List(ctx)
	}
	return alerts, nil
}

// Resolve marks the record resolved and emits a resolved event.
// Resolving an already-resolved record is an idempotent success.
func (s *Store) Resolve(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := s.primary.Resolve(ctx, id)
	if err == nil {
		s.notifier.Notify(models.ResolvedEvent(alert))
		return alert, nil
	}

	if !errors.Is(err, repository.ErrNotFound) {
		s.markDegraded("resolve", err)
	}

	// Records created while degraded live in the fallback.
	alert, ferr := s.fallback.Resolve(ctx, id)
	if ferr != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(ferr, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error resolving alert: %w", err)
	}

	s.notifier.Notify(models.ResolvedEvent(alert))
	return alert, nil
}

// Delete permanently removes one record and emits a deleted event.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.primary.Delete(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.markDegraded("delete", err)
		}
		if ferr := s.fallback.Delete(ctx, id); ferr != nil {
			if errors.Is(err, repository.ErrNotFound) || errors.Is(ferr, repository.ErrNotFound) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("error deleting alert: %w", err)
		}
	}

	s.notifier.Notify(models.DeletedEvent(id))
	return nil
}

// DeleteAllResolved removes every currently-resolved record and emits
// one deleted event per removed id. Read-then-delete: a record resolved
// after the read may be missed until the next sweep.
func (s *Store) DeleteAllResolved(ctx context.Context) (int, []string, error) {
	deleted := make([]string, 0)

	ids, err := s.primary.ResolvedIDs(ctx)
	if err != nil {
		s.markDegraded("delete_all_resolved", err)
	} else {
		for _, id := range ids {
			if derr := s.primary.Delete(ctx, id); derr != nil {
				// Lost a race with an individual delete; skip.
				continue
			}
			deleted = append(deleted, id)
		}
	}

	fids, ferr := s.fallback.ResolvedIDs(ctx)
	if ferr == nil {
		for _, id := range fids {
			if derr := s.fallback.Delete(ctx, id); derr != nil {
				continue
			}
			deleted = append(deleted, id)
		}
	}

	for _, id := range deleted {
		s.notifier.Notify(models.DeletedEvent(id))
	}
	return len(deleted), deleted, nil
}
