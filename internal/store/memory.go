// internal/store/memory.go
//
// In-memory adapter.  Records are cloned on the way in and on the way out
// so callers can never alias stored state.

package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yanizio/swregistry/internal/registry"
)

// Memory is a goroutine-safe map store.
type Memory struct {
	mu    sync.RWMutex
	rows  map[string]*registry.Registration
	notes map[string][]Note
	clock func() time.Time
	last  time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		rows:  make(map[string]*registry.Registration),
		notes: make(map[string][]Note),
		clock: time.Now,
	}
}

// Get implements registry.Store.
func (m *Memory) Get(_ context.Context, key string) (*registry.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rows[key]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// FindByEmail implements registry.Store.
func (m *Memory) FindByEmail(_ context.Context, email, product, domain string) (*registry.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *registry.Registration
	for _, r := range m.rows {
		if !strings.EqualFold(r.Email, email) || r.Product != product {
			continue
		}
		if domain != "" && !matchesDomain(r, domain) {
			continue
		}
		if best == nil || r.UpdatedAt.After(best.UpdatedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best.Clone(), nil
}

// matchesDomain reports whether r is registered for domain, either in its
// domain list or as the host suffix of its transaction id.
func matchesDomain(r *registry.Registration, domain string) bool {
	for _, d := range r.Domains {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return strings.HasSuffix(strings.ToLower(r.Transid), "|"+strings.ToLower(domain))
}

// Create implements registry.Store.
func (m *Memory) Create(_ context.Context, r *registry.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.rows[r.Key]; dup {
		return ErrDuplicate
	}
	c := r.Clone()
	now := m.next()
	c.CreatedAt, c.UpdatedAt = now, now
	m.rows[r.Key] = c
	return nil
}

// Update implements registry.Store.
func (m *Memory) Update(_ context.Context, r *registry.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.rows[r.Key]
	if !ok {
		return ErrNotFound
	}
	c := r.Clone()
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = m.next()
	m.rows[r.Key] = c
	return nil
}

// AddNote implements registry.Store.
func (m *Memory) AddNote(_ context.Context, key, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[key] = append(m.notes[key], Note{Key: key, Text: note, CreatedAt: m.clock()})
	return nil
}

// Notes returns the audit trail for key, oldest first.
func (m *Memory) Notes(_ context.Context, key string) ([]Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Note, len(m.notes[key]))
	copy(out, m.notes[key])
	return out, nil
}

// Len is the number of stored registrations.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// next returns a strictly increasing modification stamp.  Callers hold mu.
func (m *Memory) next() time.Time {
	now := m.clock()
	if !now.After(m.last) {
		now = m.last.Add(time.Nanosecond)
	}
	m.last = now
	return now
}
