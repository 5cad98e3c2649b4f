package content

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dsjohal14/tourstack/internal/scope/content/wal"
)

// MemIndex is a thread-safe in-memory set of entities. It is a Storage on
// its own and the live state behind Store and WALStore.
type MemIndex struct {
	mu   sync.RWMutex
	ents map[string]Entity
}

// NewMemIndex creates a new empty in-memory index
func NewMemIndex() *MemIndex {
	return &MemIndex{
		ents: make(map[string]Entity),
	}
}

// Put adds or replaces an entity
func (m *MemIndex) Put(_ context.Context, e Entity) error {
	m.set(e)
	return nil
}

func (m *MemIndex) set(e Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ents[e.Key()] = e
}

// Get retrieves an entity by kind and id
func (m *MemIndex) Get(_ context.Context, kind Kind, id string) (Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.ents[Key(kind, id)]
	if !ok {
		return Entity{}, ErrNotFound
	}
	return e, nil
}

// GetBySlug retrieves the lowest-id entity of kind with the given slug
func (m *MemIndex) GetBySlug(_ context.Context, kind Kind, slug string) (Entity, error) {
	for _, e := range m.sorted(kind) {
		if e.Slug == slug {
			return e, nil
		}
	}
	return Entity{}, ErrNotFound
}

// Delete removes an entity
func (m *MemIndex) Delete(_ context.Context, kind Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key(kind, id)
	if _, ok := m.ents[key]; !ok {
		return ErrNotFound
	}
	delete(m.ents, key)
	return nil
}

// Has checks if an entity exists
func (m *MemIndex) Has(kind Kind, id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ents[Key(kind, id)]
	return ok
}

// List returns a page of entities of kind
func (m *MemIndex) List(_ context.Context, kind Kind, opts ListOptions) ([]Entity, error) {
	return page(m.sorted(kind), opts), nil
}

// Count returns the number of entities of kind
func (m *MemIndex) Count(_ context.Context, kind Kind) (int, error) {
	return m.count(kind), nil
}

func (m *MemIndex) count(kind Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if kind == "" {
		return len(m.ents)
	}
	n := 0
	for _, e := range m.ents {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// All returns every entity ordered by kind then id
func (m *MemIndex) All() []Entity {
	return m.sorted("")
}

// sorted returns a copy of the entities of kind ordered by kind then id
func (m *MemIndex) sorted(kind Kind) []Entity {
	m.mu.RLock()
	result := make([]Entity, 0, len(m.ents))
	for _, e := range m.ents {
		if kind == "" || e.Kind == kind {
			result = append(result, e)
		}
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Kind != result[j].Kind {
			return result[i].Kind < result[j].Kind
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Clear removes all entities
func (m *MemIndex) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ents = make(map[string]Entity)
}

// Clone creates a copy of the index
func (m *MemIndex) Clone() *MemIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clone := NewMemIndex()
	for key, e := range m.ents {
		clone.ents[key] = e
	}
	return clone
}

// Flush is a no-op for the in-memory index
func (m *MemIndex) Flush() error { return nil }

// Close is a no-op for the in-memory index
func (m *MemIndex) Close() error { return nil }

// Apply restores an entity from a WAL entry
// Implements wal.Index
func (m *MemIndex) Apply(entry wal.Entry) error {
	var e Entity
	if err := json.Unmarshal(entry.Doc, &e); err != nil {
		return fmt.Errorf("failed to decode entity %s: %w", entry.Key, err)
	}
	if e.Key() != entry.Key {
		return fmt.Errorf("entity key %s does not match record key %s", e.Key(), entry.Key)
	}
	m.set(e)
	return nil
}

// Remove drops an entity by storage key
// Implements wal.Index
func (m *MemIndex) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ents, key)
}
