package content

import "context"

// Storage is the interface for entity storage.
// MemIndex, Store (file-based), WALStore (WAL-backed) and PGStore implement it.
type Storage interface {
	// Put creates or replaces an entity
	Put(ctx context.Context, e Entity) error

	// Get returns the entity with the given kind and id, or ErrNotFound
	Get(ctx context.Context, kind Kind, id string) (Entity, error)

	// GetBySlug returns the first entity of kind (by id) with the given slug
	GetBySlug(ctx context.Context, kind Kind, slug string) (Entity, error)

	// Delete removes an entity, or returns ErrNotFound
	Delete(ctx context.Context, kind Kind, id string) error

	// List returns entities of kind ordered by id; an empty kind lists all
	// kinds, ordered by kind then id
	List(ctx context.Context, kind Kind, opts ListOptions) ([]Entity, error)

	// Count returns the number of entities of kind; empty kind counts all
	Count(ctx context.Context, kind Kind) (int, error)

	// Flush persists any pending changes
	Flush() error

	// Close flushes and closes the storage
	Close() error
}

var (
	_ Storage = (*MemIndex)(nil)
	_ Storage = (*Store)(nil)
	_ Storage = (*WALStore)(nil)
	_ Storage = (*PGStore)(nil)
)
