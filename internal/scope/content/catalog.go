package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dsjohal14/tourstack/internal/libs/accel"
	"github.com/dsjohal14/tourstack/internal/scope/record"
	"github.com/dsjohal14/tourstack/internal/scope/search"
)

// rebuildBatchSize bounds how many records go into one engine batch on rebuild
const rebuildBatchSize = 500

// batchIndexer is implemented by engines that can index many records at once
type batchIndexer interface {
	IndexBatch(recs map[string]record.Value) error
}

// Catalog keeps a store, a search engine and a title index in step. Every
// write goes to the store first and is then mirrored into both indexes.
type Catalog struct {
	store  Storage
	engine search.Engine
	titles *search.TitleIndex
	logger zerolog.Logger
	now    func() time.Time
	mu     sync.Mutex // serializes writes
}

// CatalogOption configures a Catalog
type CatalogOption func(*Catalog)

// WithLogger sets the catalog logger
func WithLogger(logger zerolog.Logger) CatalogOption {
	return func(c *Catalog) { c.logger = logger }
}

// WithClock overrides the time source used to stamp writes
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) { c.now = now }
}

// NewCatalog wraps a store and an engine. Call Rebuild to index existing
// entities.
func NewCatalog(store Storage, engine search.Engine, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		store:  store,
		engine: engine,
		titles: search.NewTitleIndex(),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying storage
func (c *Catalog) Store() Storage { return c.store }

// Engine returns the underlying search engine
func (c *Catalog) Engine() search.Engine { return c.engine }

// Rebuild indexes every stored entity and returns how many were indexed
func (c *Catalog) Rebuild(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	all, err := c.store.List(ctx, "", ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to list entities: %w", err)
	}

	titles := search.NewTitleIndex()
	batcher, canBatch := c.engine.(batchIndexer)
	for _, chunk := range accel.Split(accel.NewBatch(rebuildBatchSize), all) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		recs := make(map[string]record.Value, len(chunk))
		for _, e := range chunk {
			recs[e.Key()] = searchRecord(e)
			titles.Add(e.Key(), e.Title)
		}
		if canBatch {
			if err := batcher.IndexBatch(recs); err != nil {
				return 0, err
			}
			continue
		}
		for key, rec := range recs {
			if err := c.engine.Index(key, rec); err != nil {
				return 0, err
			}
		}
	}
	c.titles = titles

	c.logger.Info().
		Int("entities", len(all)).
		Dur("took", time.Since(start)).
		Msg("catalog indexed")
	return len(all), nil
}

// Create stores a new entity, failing with ErrExists if its ID is taken
func (c *Catalog) Create(ctx context.Context, e Entity) (Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.store.Get(ctx, e.Kind, e.ID)
	switch {
	case err == nil:
		return Entity{}, fmt.Errorf("%w: %s", ErrExists, e.Key())
	case !errors.Is(err, ErrNotFound):
		return Entity{}, err
	}

	e = e.Touch(c.now(), time.Time{})
	if err := c.write(ctx, e); err != nil {
		return Entity{}, err
	}
	return e, nil
}

// Replace stores e, keeping the creation time of any entity it replaces.
// It reports whether the entity was new.
func (c *Catalog) Replace(ctx context.Context, e Entity) (Entity, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var createdAt time.Time
	existing, err := c.store.Get(ctx, e.Kind, e.ID)
	switch {
	case err == nil:
		createdAt = existing.CreatedAt
	case !errors.Is(err, ErrNotFound):
		return Entity{}, false, err
	}

	e = e.Touch(c.now(), createdAt)
	if err := c.write(ctx, e); err != nil {
		return Entity{}, false, err
	}
	return e, createdAt.IsZero(), nil
}

func (c *Catalog) write(ctx context.Context, e Entity) error {
	if err := c.store.Put(ctx, e); err != nil {
		return err
	}
	if err := c.engine.Index(e.Key(), searchRecord(e)); err != nil {
		return err
	}
	c.titles.Add(e.Key(), e.Title)
	return nil
}

// searchRecord is the record the engine matches against and returns;
// timestamps are left out so that queries do not match them
func searchRecord(e Entity) record.Value {
	return e.Record().Without("created_at", "updated_at")
}

// Remove deletes an entity from the store and both indexes
func (c *Catalog) Remove(ctx context.Context, kind Kind, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, kind, id); err != nil {
		return err
	}
	key := Key(kind, id)
	if err := c.engine.Remove(key); err != nil {
		return err
	}
	c.titles.Remove(key)
	return nil
}

// Get resolves ref as an ID first and then as a slug
func (c *Catalog) Get(ctx context.Context, kind Kind, ref string) (Entity, error) {
	e, err := c.store.Get(ctx, kind, ref)
	if !errors.Is(err, ErrNotFound) {
		return e, err
	}
	return c.store.GetBySlug(ctx, kind, ref)
}

// List returns a page of entities of kind
func (c *Catalog) List(ctx context.Context, kind Kind, opts ListOptions) ([]Entity, error) {
	return c.store.List(ctx, kind, opts)
}

// Count returns the number of entities of kind
func (c *Catalog) Count(ctx context.Context, kind Kind) (int, error) {
	return c.store.Count(ctx, kind)
}

// Records returns every entity of kind as a flattened record
func (c *Catalog) Records(ctx context.Context, kind Kind) ([]record.Value, error) {
	all, err := c.store.List(ctx, kind, ListOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]record.Value, len(all))
	for i, e := range all {
		out[i] = e.Record()
	}
	return out, nil
}

// SearchFunc returns the raw engine search restricted to kind
func (c *Catalog) SearchFunc(kind Kind, limit int) search.Func {
	return search.EngineFunc(c.engine, search.Query{Kind: string(kind), Limit: limit})
}

// Suggest completes a title prefix, optionally restricted to kind
func (c *Catalog) Suggest(prefix string, kind Kind, limit int) []search.Suggestion {
	c.mu.Lock()
	titles := c.titles
	c.mu.Unlock()

	if kind == "" {
		return titles.Complete(prefix, limit)
	}

	want := string(kind) + "/"
	out := []search.Suggestion{}
	for _, s := range titles.Complete(prefix, 0) {
		if !strings.HasPrefix(s.Ref, want) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Flush persists pending store changes
func (c *Catalog) Flush() error {
	return c.store.Flush()
}

// Close closes the engine and the store
func (c *Catalog) Close() error {
	return errors.Join(c.engine.Close(), c.store.Close())
}
