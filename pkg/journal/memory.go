package journal

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process journal.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*Entry),
	}
}

// Record stores a copy of entry.
func (m *Memory) Record(_ context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.InvocationID] = clone(entry)
	return nil
}

// Get retrieves an entry by invocation id.
func (m *Memory) Get(_ context.Context, invocationID string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[invocationID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(entry), nil
}

// List returns up to limit entries, most recently submitted first. limit <= 0 means all.
func (m *Memory) List(_ context.Context, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, clone(entry))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].InvocationID < out[j].InvocationID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(e *Entry) *Entry {
	c := *e
	if e.Outputs != nil {
		c.Outputs = append([]string(nil), e.Outputs...)
	}
	return &c
}
