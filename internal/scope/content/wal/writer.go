package wal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxSegmentSize is the default max size before rotation (64MB)
const DefaultMaxSegmentSize = 64 * 1024 * 1024

// SyncPolicy controls when to fsync writes to disk
type SyncPolicy struct {
	Immediate bool          // Sync after every write
	Interval  time.Duration // Background sync period
	BatchSize int           // Sync every N records
}

// DefaultSyncPolicy returns a balanced sync policy
func DefaultSyncPolicy() SyncPolicy {
	return SyncPolicy{
		Interval:  100 * time.Millisecond,
		BatchSize: 100,
	}
}

// ImmediateSyncPolicy returns a policy that syncs after every write
func ImmediateSyncPolicy() SyncPolicy {
	return SyncPolicy{Immediate: true}
}

// Writer is a thread-safe WAL writer over numbered segment files
type Writer struct {
	mu         sync.Mutex
	dir        string
	file       *os.File
	segmentID  uint64
	lsn        uint64 // next LSN to assign
	offset     int64
	syncPolicy SyncPolicy
	maxSize    int64
	logger     zerolog.Logger

	pendingWrites int
	syncTicker    *time.Ticker
	stopSync      chan struct{}
	wg            sync.WaitGroup

	closed bool
}

// WriterOption configures a Writer
type WriterOption func(*Writer)

// WithSyncPolicy sets the sync policy
func WithSyncPolicy(policy SyncPolicy) WriterOption {
	return func(w *Writer) {
		w.syncPolicy = policy
	}
}

// WithMaxSegmentSize sets the max segment size
func WithMaxSegmentSize(size int64) WriterOption {
	return func(w *Writer) {
		if size > 0 {
			w.maxSize = size
		}
	}
}

// WithInitialLSN sets the first LSN to assign
func WithInitialLSN(lsn uint64) WriterOption {
	return func(w *Writer) {
		w.lsn = lsn
	}
}

// WithInitialSegmentID sets the segment to append to
func WithInitialSegmentID(segmentID uint64) WriterOption {
	return func(w *Writer) {
		w.segmentID = segmentID
	}
}

// WithLogger sets the logger used for truncation and sync warnings
func WithLogger(logger zerolog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter opens dir for appending
func NewWriter(dir string, opts ...WriterOption) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	w := &Writer{
		dir:        dir,
		segmentID:  1,
		lsn:        1,
		syncPolicy: DefaultSyncPolicy(),
		maxSize:    DefaultMaxSegmentSize,
		logger:     zerolog.Nop(),
		stopSync:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.openSegment(); err != nil {
		return nil, err
	}

	if !w.syncPolicy.Immediate && w.syncPolicy.Interval > 0 {
		w.startBackgroundSync()
	}
	return w, nil
}

// openSegment opens the current segment for append, truncating a corrupt tail
func (w *Writer) openSegment() error {
	path := filepath.Join(w.dir, SegmentFilename(w.segmentID))

	if stat, err := os.Stat(path); err == nil && stat.Size() > 0 {
		validOffset, err := lastValidOffset(path)
		if err != nil {
			return fmt.Errorf("failed to scan segment for corruption: %w", err)
		}
		if validOffset < stat.Size() {
			w.logger.Warn().
				Str("segment", path).
				Int64("size", stat.Size()).
				Int64("valid", validOffset).
				Msg("truncating corrupt segment tail")
			if err := os.Truncate(path, validOffset); err != nil {
				return fmt.Errorf("failed to truncate corrupt segment: %w", err)
			}
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open segment %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat segment %s: %w", path, err)
	}

	w.file = f
	w.offset = stat.Size()
	return nil
}

// lastValidOffset returns the offset just past the last intact record
func lastValidOffset(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	var offset int64
	header := make([]byte, HeaderSize)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			break
		}
		payloadLen, err := checkHeader(header)
		if err != nil {
			break
		}
		rest := make([]byte, payloadLen+4)
		if _, err := io.ReadFull(f, rest); err != nil {
			break
		}
		if _, err := DecodeRecord(append(header, rest...)); err != nil {
			break
		}
		offset += int64(HeaderSize) + int64(payloadLen) + 4
	}
	return offset, nil
}

// Append writes a record under the configured sync policy and returns its LSN
func (w *Writer) Append(recType RecordType, payload []byte) (uint64, error) {
	return w.append(recType, payload, w.syncPolicy.Immediate)
}

// AppendWithSync writes a record and syncs before returning
func (w *Writer) AppendWithSync(recType RecordType, payload []byte) (uint64, error) {
	return w.append(recType, payload, true)
}

func (w *Writer) append(recType RecordType, payload []byte, sync bool) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, fmt.Errorf("WAL writer is closed")
	}

	rec, err := NewRecord(recType, w.lsn, payload)
	if err != nil {
		return 0, fmt.Errorf("failed to create record: %w", err)
	}
	data := rec.Encode()

	n, err := w.file.Write(data)
	if err != nil {
		return 0, fmt.Errorf("failed to write record: %w", err)
	}
	if n != len(data) {
		return 0, fmt.Errorf("short write: %d < %d", n, len(data))
	}
	lsn := w.lsn
	w.lsn++
	w.offset += int64(n)
	w.pendingWrites++

	if sync || (w.syncPolicy.BatchSize > 0 && w.pendingWrites >= w.syncPolicy.BatchSize) {
		if err := w.syncLocked(); err != nil {
			return 0, fmt.Errorf("failed to sync: %w", err)
		}
	}

	if w.offset >= w.maxSize {
		if err := w.rotateLocked(); err != nil {
			return 0, fmt.Errorf("failed to rotate segment: %w", err)
		}
	}
	return lsn, nil
}

// Sync forces fsync to disk
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.syncLocked()
}

func (w *Writer) syncLocked() error {
	if w.file == nil || w.pendingWrites == 0 {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	w.pendingWrites = 0
	return nil
}

// Rotate seals the current segment and starts the next one. It returns the
// ID of the sealed segment.
func (w *Writer) Rotate() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, fmt.Errorf("WAL writer is closed")
	}
	sealed := w.segmentID
	if err := w.rotateLocked(); err != nil {
		return 0, err
	}
	return sealed, nil
}

func (w *Writer) rotateLocked() error {
	if err := w.syncLocked(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close segment: %w", err)
	}

	w.segmentID++
	w.logger.Debug().Uint64("segment", w.segmentID).Msg("rotated WAL segment")
	return w.openSegment()
}

func (w *Writer) startBackgroundSync() {
	w.syncTicker = time.NewTicker(w.syncPolicy.Interval)
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.syncTicker.C:
				w.mu.Lock()
				if err := w.syncLocked(); err != nil {
					w.logger.Error().Err(err).Msg("background WAL sync failed")
				}
				w.mu.Unlock()
			case <-w.stopSync:
				return
			}
		}
	}()
}

// Close syncs and closes the current segment
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.syncTicker != nil {
		w.syncTicker.Stop()
		close(w.stopSync)
	}
	w.mu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close segment: %w", err)
	}
	return nil
}

// CurrentLSN returns the next LSN to be assigned
func (w *Writer) CurrentLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lsn
}

// CurrentSegmentID returns the segment being appended to
func (w *Writer) CurrentSegmentID() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.segmentID
}

// CurrentOffset returns the write offset in the current segment
func (w *Writer) CurrentOffset() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.offset
}

// Dir returns the WAL directory
func (w *Writer) Dir() string {
	return w.dir
}
