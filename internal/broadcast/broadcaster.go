package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-campus-sos/internal/models"
)

// Broadcaster fans out store events to every subscribed observer.
// Delivery is best-effort: it carries deltas only, never snapshots, and
// a disconnected observer resynchronizes by fetching the full list.
type Broadcaster struct {
	subscribers map[uint64]chan models.Event
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.Event),
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan models.Event) {
	id := b.nextID.Add(1)
	ch := make(chan models.Event, 64)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Notify implements store.Notifier.
func (b *Broadcaster) Notify(ev models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing observers to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
