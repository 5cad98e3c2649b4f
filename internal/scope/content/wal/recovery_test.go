package wal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

// mapIndex is a minimal Index for tests
type mapIndex map[string]string

func (m mapIndex) Apply(e Entry) error {
	m[e.Key] = string(e.Doc)
	return nil
}

func (m mapIndex) Remove(key string) {
	delete(m, key)
}

func put(t *testing.T, w *Writer, key, doc string) {
	t.Helper()
	payload, err := EncodePut(Entry{Key: key, Doc: []byte(doc)})
	if err != nil {
		t.Fatalf("EncodePut() failed: %v", err)
	}
	if _, err := w.Append(RecordTypePut, payload); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
}

func del(t *testing.T, w *Writer, key string) {
	t.Helper()
	payload, err := EncodeDelete(key)
	if err != nil {
		t.Fatalf("EncodeDelete() failed: %v", err)
	}
	if _, err := w.Append(RecordTypeDelete, payload); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
}

func TestRecoverLastWriterWins(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, WithSyncPolicy(ImmediateSyncPolicy()))
	if err != nil {
		t.Fatalf("NewWriter() failed: %v", err)
	}

	put(t, w, "place/dombai", "v1")
	put(t, w, "place/teberda", "v1")
	if _, err := w.Rotate(); err != nil {
		t.Fatalf("Rotate() failed: %v", err)
	}
	put(t, w, "place/dombai", "v2")
	del(t, w, "place/teberda")
	put(t, w, "route/loop", "v1")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	index := mapIndex{}
	stats, err := Recover(context.Background(), dir, index, zerolog.Nop())
	if err != nil {
		t.Fatalf("Recover() failed: %v", err)
	}

	if len(index) != 2 || index["place/dombai"] != "v2" || index["route/loop"] != "v1" {
		t.Errorf("recovered state = %v", index)
	}
	if stats.RecordsLoaded != 5 || stats.TombstonesApplied != 1 || stats.MaxLSN != 5 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.SegmentsLoaded != 2 {
		t.Errorf("segments loaded = %d, want 2", stats.SegmentsLoaded)
	}
}

func TestRecoverStopsAtCorruption(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, WithSyncPolicy(ImmediateSyncPolicy()))
	if err != nil {
		t.Fatalf("NewWriter() failed: %v", err)
	}
	put(t, w, "place/a", "1")
	put(t, w, "place/b", "2")
	size := w.CurrentOffset()
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// flip a byte inside the second record's payload
	path := filepath.Join(dir, SegmentFilename(1))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[size-6] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	index := mapIndex{}
	stats, err := Recover(context.Background(), dir, index, zerolog.Nop())
	if err != nil {
		t.Fatalf("Recover() failed: %v", err)
	}
	if len(index) != 1 || index["place/a"] != "1" {
		t.Errorf("recovered state = %v", index)
	}
	if stats.CorruptRecords != 1 {
		t.Errorf("corrupt records = %d, want 1", stats.CorruptRecords)
	}
}

func TestRecoverEmptyDir(t *testing.T) {
	index := mapIndex{}
	stats, err := Recover(context.Background(), filepath.Join(t.TempDir(), "missing"), index, zerolog.Nop())
	if err != nil {
		t.Fatalf("Recover() failed: %v", err)
	}
	if stats.RecordsLoaded != 0 || len(index) != 0 {
		t.Errorf("expected nothing recovered, got %+v", stats)
	}
}

func TestCompact(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, WithSyncPolicy(ImmediateSyncPolicy()))
	if err != nil {
		t.Fatalf("NewWriter() failed: %v", err)
	}

	put(t, w, "place/a", "old")
	put(t, w, "place/b", "gone")
	if _, err := w.Rotate(); err != nil {
		t.Fatal(err)
	}
	put(t, w, "place/a", "new")
	del(t, w, "place/b")

	sealed, err := w.Rotate()
	if err != nil {
		t.Fatal(err)
	}
	lsn := w.CurrentLSN() - 1

	stats, err := Compact(dir, sealed, lsn, []Entry{{Key: "place/a", Doc: []byte("new")}})
	if err != nil {
		t.Fatalf("Compact() failed: %v", err)
	}
	if stats.Entries != 1 || stats.SegmentsRemoved != 2 {
		t.Errorf("stats = %+v", stats)
	}

	// writes after compaction still win
	put(t, w, "place/c", "later")
	put(t, w, "place/a", "newest")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	segments, _ := ListSegmentFiles(dir)
	if len(segments) != 2 || filepath.Base(segments[0]) != CompactedSegmentFilename(sealed) {
		t.Errorf("segments after compaction = %v", segments)
	}

	index := mapIndex{}
	if _, err := Recover(context.Background(), dir, index, zerolog.Nop()); err != nil {
		t.Fatalf("Recover() failed: %v", err)
	}
	if len(index) != 2 || index["place/a"] != "newest" || index["place/c"] != "later" {
		t.Errorf("recovered state = %v", index)
	}
}
