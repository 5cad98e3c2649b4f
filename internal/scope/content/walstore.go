package content

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dsjohal14/tourstack/internal/scope/content/wal"
)

// WALStore is a WAL-backed entity store with durable writes
type WALStore struct {
	walDir     string
	index      *MemIndex
	writer     *wal.Writer
	syncPolicy wal.SyncPolicy
	logger     zerolog.Logger
	mu         sync.RWMutex
	closed     bool
}

// WALStoreConfig holds configuration for WALStore
type WALStoreConfig struct {
	// DataDir is the base data directory
	DataDir string

	// WALDir is the WAL directory (defaults to DataDir/wal)
	WALDir string

	// SyncPolicy controls when to fsync
	SyncPolicy wal.SyncPolicy

	// MaxSegmentSize is the max segment size before rotation
	MaxSegmentSize int64

	// Logger receives recovery and compaction events
	Logger zerolog.Logger
}

// DefaultWALStoreConfig returns a default configuration
func DefaultWALStoreConfig(dataDir string) WALStoreConfig {
	return WALStoreConfig{
		DataDir:        dataDir,
		WALDir:         filepath.Join(dataDir, "wal"),
		SyncPolicy:     wal.ImmediateSyncPolicy(),
		MaxSegmentSize: wal.DefaultMaxSegmentSize,
		Logger:         zerolog.Nop(),
	}
}

// NewWALStore replays the WAL into memory and opens it for appending
func NewWALStore(ctx context.Context, config WALStoreConfig) (*WALStore, error) {
	walDir := config.WALDir
	if walDir == "" {
		walDir = filepath.Join(config.DataDir, "wal")
	}

	store := &WALStore{
		walDir:     walDir,
		index:      NewMemIndex(),
		syncPolicy: config.SyncPolicy,
		logger:     config.Logger,
	}

	stats, err := wal.Recover(ctx, walDir, store.index, config.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to recover from WAL: %w", err)
	}

	// Continue after the highest LSN and segment seen, including compacted ones
	initialSegmentID, err := nextSegmentID(walDir)
	if err != nil {
		return nil, err
	}

	writer, err := wal.NewWriter(walDir,
		wal.WithSyncPolicy(config.SyncPolicy),
		wal.WithMaxSegmentSize(config.MaxSegmentSize),
		wal.WithInitialLSN(stats.MaxLSN+1),
		wal.WithInitialSegmentID(initialSegmentID),
		wal.WithLogger(config.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAL writer: %w", err)
	}
	store.writer = writer

	config.Logger.Info().
		Int("entities", store.index.count("")).
		Int("records", stats.RecordsLoaded).
		Int("segments", stats.SegmentsLoaded).
		Int("corrupt", stats.CorruptRecords).
		Uint64("next_lsn", stats.MaxLSN+1).
		Uint64("segment", initialSegmentID).
		Dur("took", stats.RecoveryTime).
		Msg("WAL store recovered")

	return store, nil
}

// nextSegmentID picks the segment to append to: the latest WAL segment, or
// the one after a compacted segment that is newer
func nextSegmentID(walDir string) (uint64, error) {
	segments, err := wal.ListSegmentFiles(walDir)
	if err != nil {
		return 0, err
	}
	if len(segments) == 0 {
		return 1, nil
	}

	_, latestWAL, err := wal.FindLatestSegment(walDir)
	if err != nil {
		return 0, err
	}
	maxID, err := wal.GetSegmentID(segments[len(segments)-1])
	if err != nil {
		return 0, err
	}
	if latestWAL >= maxID {
		return latestWAL, nil
	}
	return maxID + 1, nil
}

func (s *WALStore) append(recType wal.RecordType, payload []byte) error {
	var err error
	if s.syncPolicy.Immediate {
		_, err = s.writer.AppendWithSync(recType, payload)
	} else {
		_, err = s.writer.Append(recType, payload)
	}
	if err != nil {
		return fmt.Errorf("failed to write to WAL: %w", err)
	}
	return nil
}

// Put adds or replaces an entity with WAL durability
func (s *WALStore) Put(ctx context.Context, e Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entity: %w", err)
	}
	payload, err := wal.EncodePut(wal.Entry{Key: e.Key(), Doc: doc})
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := s.append(wal.RecordTypePut, payload); err != nil {
		return err
	}
	return s.index.Put(ctx, e)
}

// Delete writes a tombstone and removes the entity
func (s *WALStore) Delete(ctx context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !s.index.Has(kind, id) {
		return ErrNotFound
	}

	payload, err := wal.EncodeDelete(Key(kind, id))
	if err != nil {
		return fmt.Errorf("failed to encode delete payload: %w", err)
	}
	if err := s.append(wal.RecordTypeDelete, payload); err != nil {
		return err
	}
	return s.index.Delete(ctx, kind, id)
}

// Get retrieves an entity by kind and id
func (s *WALStore) Get(ctx context.Context, kind Kind, id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Entity{}, ErrClosed
	}
	return s.index.Get(ctx, kind, id)
}

// GetBySlug retrieves an entity by kind and slug
func (s *WALStore) GetBySlug(ctx context.Context, kind Kind, slug string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Entity{}, ErrClosed
	}
	return s.index.GetBySlug(ctx, kind, slug)
}

// List returns a page of entities of kind
func (s *WALStore) List(ctx context.Context, kind Kind, opts ListOptions) ([]Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.index.List(ctx, kind, opts)
}

// Count returns the number of entities of kind
func (s *WALStore) Count(ctx context.Context, kind Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.index.Count(ctx, kind)
}

// Flush syncs pending writes to disk
// For immediate sync policy, this is a no-op since each write already syncs
func (s *WALStore) Flush() error {
	if s.syncPolicy.Immediate {
		return nil
	}
	return s.writer.Sync()
}

// WriteCheckpoint writes a synced checkpoint record to the WAL
func (s *WALStore) WriteCheckpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	payload, err := wal.EncodeCheckpoint(s.writer.CurrentLSN() - 1)
	if err != nil {
		return err
	}
	_, err = s.writer.AppendWithSync(wal.RecordTypeCheckpoint, payload)
	return err
}

// Compact rewrites every sealed segment as one snapshot of the live entities
func (s *WALStore) Compact(_ context.Context) (wal.CompactStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wal.CompactStats{}, ErrClosed
	}

	sealed, err := s.writer.Rotate()
	if err != nil {
		return wal.CompactStats{}, fmt.Errorf("failed to rotate before compaction: %w", err)
	}

	entities := s.index.All()
	entries := make([]wal.Entry, 0, len(entities))
	for _, e := range entities {
		doc, err := json.Marshal(e)
		if err != nil {
			return wal.CompactStats{}, fmt.Errorf("failed to encode entity %s: %w", e.Key(), err)
		}
		entries = append(entries, wal.Entry{Key: e.Key(), Doc: doc})
	}

	stats, err := wal.Compact(s.walDir, sealed, s.writer.CurrentLSN()-1, entries)
	if err != nil {
		return stats, fmt.Errorf("compaction failed: %w", err)
	}

	s.logger.Info().
		Int("entities", stats.Entries).
		Int("segments_removed", stats.SegmentsRemoved).
		Int64("bytes_before", stats.BytesBefore).
		Int64("bytes_after", stats.BytesAfter).
		Msg("WAL compacted")
	return stats, nil
}

// Close syncs and closes the WAL
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("failed to close WAL writer: %w", err)
	}
	return nil
}

// Index returns the underlying MemIndex for direct access
func (s *WALStore) Index() *MemIndex {
	return s.index
}
