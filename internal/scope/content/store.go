package content

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// snapshotFile holds one JSON entity per line
const snapshotFile = "entities.jsonl"

// Store keeps entities in memory and persists them as a JSONL snapshot on
// Flush and Close
type Store struct {
	dataDir  string
	index    *MemIndex
	mu       sync.RWMutex
	modified bool
	closed   bool
}

// NewStore opens a store in dataDir, loading an existing snapshot
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		dataDir: dataDir,
		index:   NewMemIndex(),
	}
	if err := s.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	return s, nil
}

func (s *Store) check() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Put adds or replaces an entity
func (s *Store) Put(ctx context.Context, e Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	s.modified = true
	return s.index.Put(ctx, e)
}

// Get retrieves an entity by kind and id
func (s *Store) Get(ctx context.Context, kind Kind, id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return Entity{}, err
	}
	return s.index.Get(ctx, kind, id)
}

// GetBySlug retrieves an entity by kind and slug
func (s *Store) GetBySlug(ctx context.Context, kind Kind, slug string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return Entity{}, err
	}
	return s.index.GetBySlug(ctx, kind, slug)
}

// Delete removes an entity
func (s *Store) Delete(ctx context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	if err := s.index.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.modified = true
	return nil
}

// List returns a page of entities of kind
func (s *Store) List(ctx context.Context, kind Kind, opts ListOptions) ([]Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.index.List(ctx, kind, opts)
}

// Count returns the number of entities of kind
func (s *Store) Count(ctx context.Context, kind Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.index.Count(ctx, kind)
}

// Flush writes the snapshot if anything changed
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if !s.modified {
		return nil
	}
	if err := s.writeSnapshot(); err != nil {
		return err
	}
	s.modified = false
	return nil
}

// Close flushes and closes the store
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.flushLocked(); err != nil {
		return err
	}
	s.closed = true
	return nil
}

// writeSnapshot replaces the snapshot file atomically
func (s *Store) writeSnapshot() error {
	path := filepath.Join(s.dataDir, snapshotFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	w := bufio.NewWriter(f)
	encoder := json.NewEncoder(w)
	for _, e := range s.index.All() {
		if err := encoder.Encode(e); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to encode entity %s: %w", e.Key(), err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (s *Store) load() error {
	f, err := os.Open(filepath.Join(s.dataDir, snapshotFile))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entity
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return fmt.Errorf("failed to decode entity on line %d: %w", line, err)
		}
		s.index.set(e)
	}
	return scanner.Err()
}
