package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mr1hm/go-campus-sos/internal/models"
)

// MemoryDB is an in-process AlertRepository. It backs the store's
// degraded mode when the primary database is unreachable, and tests.
type MemoryDB struct {
	mu     sync.RWMutex
	alerts []models.Alert
	seq    uint64
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		alerts: make([]models.Alert, 0),
	}
}

func (m *MemoryDB) Create(_ context.Context, a *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	a.ID = fmt.Sprintf("mem_%d_%d", time.Now().UnixNano(), m.seq)
	m.alerts = append(m.alerts, *a)
	return nil
}

func (m *MemoryDB) List(_ context.Context) ([]models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Alert, len(m.alerts))
	copy(out, m.alerts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryDB) GetByID(_ context.Context, id string) (*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.alerts {
		if m.alerts[i].ID == id {
			a := m.alerts[i]
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) Resolve(_ context.Context, id string) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Status = models.StatusResolved
			a := m.alerts[i]
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryDB) ResolvedIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0)
	for i := range m.alerts {
		if m.alerts[i].Status == models.StatusResolved {
			ids = append(ids, m.alerts[i].ID)
		}
	}
	return ids, nil
}
