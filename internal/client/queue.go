package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mr1hm/go-campus-sos/internal/models"
)

// SendFunc delivers one queued submission. The queue treats any error as
// "keep it queued"; it never inspects the failure.
type SendFunc func(ctx context.Context, sub models.Submission) error

type FlushResult struct {
	Sent      int
	Remaining int
}

// Queue is the durable offline holding area for submissions that could
// not reach the server: one storage slot, a JSON-encoded array, FIFO.
// It survives process restarts.
type Queue struct {
	path string

	mu       sync.Mutex
	flushing atomic.Bool
}

func NewQueue(path string) *Queue {
	return &Queue{path: path}
}

// Enqueue appends the payload with a queued-timestamp and returns the
// new queue length.
func (q *Queue) Enqueue(sub models.Submission) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.loadLocked()
	items = append(items, models.QueuedSubmission{
		Submission: sub,
		QueuedAt:   time.Now().UTC(),
	})
	if err := q.saveLocked(items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.loadLocked())
}

// Flush attempts send for every queued item in FIFO order. Successes are
// removed; failures keep their original relative order. Partial flush is
// a normal outcome, never an error. Reentrant-safe: a second Flush while
// one is in flight returns immediately without duplicating sends, and
// the durable list is re-read before the final write so items enqueued
// mid-flush are never lost.
func (q *Queue) Flush(ctx context.Context, send SendFunc) FlushResult {
	if !q.flushing.CompareAndSwap(false, true) {
		return FlushResult{Sent: 0, Remaining: q.Count()}
	}
	defer q.flushing.Store(false)

	q.mu.Lock()
	items := q.loadLocked()
	q.mu.Unlock()

	sent := make([]bool, len(items))
	nsent := 0
	for i := range items {
		if err := send(ctx, items[i].Submission); err != nil {
			slog.Debug("queued submission still unsendable", "queued_at", items[i].QueuedAt, "error", err)
			continue
		}
		sent[i] = true
		nsent++
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Only Enqueue appends while we hold the flush guard, so positions
	// 0..len(items)-1 of the re-read list are the items we attempted.
	latest := q.loadLocked()
	remaining := make([]models.QueuedSubmission, 0, len(latest))
	for i := range latest {
		if i < len(sent) && sent[i] {
			continue
		}
		remaining = append(remaining, latest[i])
	}
	if err := q.saveLocked(remaining); err != nil {
		slog.Warn("failed to persist offline queue after flush", "error", err)
	}

	return FlushResult{Sent: nsent, Remaining: len(remaining)}
}

func (q *Queue) loadLocked() []models.QueuedSubmission {
	raw, err := os.ReadFile(q.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read offline queue", "path", q.path, "error", err)
		}
		return nil
	}

	var items []models.QueuedSubmission
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.Warn("offline queue file is corrupt, starting empty", "path", q.path, "error", err)
		return nil
	}
	return items
}

func (q *Queue) saveLocked(items []models.QueuedSubmission) error {
	if items == nil {
		items = []models.QueuedSubmission{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(q.path, raw, 0o600)
}
