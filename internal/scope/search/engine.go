package search

import (
	"context"
	"sort"
	"sync"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

// Query narrows an engine search
type Query struct {
	Kind  string // only records whose "kind" field equals Kind; empty means all
	Limit int    // 0 means unlimited
}

// Engine represents a search backend
type Engine interface {
	Index(docID string, rec record.Value) error
	Remove(docID string) error
	Search(ctx context.Context, query string, q Query) ([]record.Value, error)
	Count() int
	Close() error
}

// EngineFunc adapts an engine search to a Func usable with SearchWithFallback
func EngineFunc(e Engine, q Query) Func {
	return func(ctx context.Context, query string) ([]record.Value, error) {
		return e.Search(ctx, query, q)
	}
}

// MemoryEngine is an in-memory engine that filters records with Matches.
// Results come back ordered by document ID.
type MemoryEngine struct {
	mu   sync.RWMutex
	docs map[string]record.Value
	ids  []string // sorted, rebuilt lazily
}

// NewMemoryEngine creates a new in-memory search engine
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		docs: make(map[string]record.Value),
	}
}

// Index adds or replaces a record
func (e *MemoryEngine) Index(docID string, rec record.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.docs[docID]; !exists {
		e.ids = nil
	}
	e.docs[docID] = rec
	return nil
}

// Remove drops a record; unknown IDs are ignored
func (e *MemoryEngine) Remove(docID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.docs[docID]; exists {
		delete(e.docs, docID)
		e.ids = nil
	}
	return nil
}

// Search returns records matching query
func (e *MemoryEngine) Search(ctx context.Context, query string, q Query) ([]record.Value, error) {
	e.mu.Lock()
	if e.ids == nil {
		e.ids = make([]string, 0, len(e.docs))
		for id := range e.docs {
			e.ids = append(e.ids, id)
		}
		sort.Strings(e.ids)
	}
	ids := e.ids
	e.mu.Unlock()

	e.mu.RLock()
	defer e.mu.RUnlock()

	var results []record.Value
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, ok := e.docs[id]
		if !ok {
			continue
		}
		if q.Kind != "" && rec.GetString("kind") != q.Kind {
			continue
		}
		if Matches(rec, query) {
			results = append(results, rec)
			if q.Limit > 0 && len(results) >= q.Limit {
				break
			}
		}
	}

	return results, nil
}

// Count returns the number of indexed records
func (e *MemoryEngine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Close is a no-op for the in-memory engine
func (e *MemoryEngine) Close() error {
	return nil
}
