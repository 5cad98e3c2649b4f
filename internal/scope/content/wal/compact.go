package wal

import (
	"fmt"
	"os"
	"path/filepath"
)

// CompactStats describes one compaction
type CompactStats struct {
	Entries         int
	SegmentsRemoved int
	BytesBefore     int64
	BytesAfter      int64
}

// Compact replaces every segment in dir with ID <= through by one compacted
// segment holding entries, the live state as of lsn. Each entry is written
// with LSN lsn, followed by a checkpoint record.
//
// The compacted segment is renamed into place before old segments are
// removed, oldest first, so a crash at any point leaves a replayable log.
func Compact(dir string, through, lsn uint64, entries []Entry) (CompactStats, error) {
	var stats CompactStats

	segments, err := ListSegmentFiles(dir)
	if err != nil {
		return stats, err
	}

	final := filepath.Join(dir, CompactedSegmentFilename(through))
	tmp := final + ".tmp"

	sw, err := NewSegmentWriter(tmp)
	if err != nil {
		return stats, err
	}
	for _, e := range entries {
		payload, err := EncodePut(e)
		if err != nil {
			_ = sw.Close()
			_ = os.Remove(tmp)
			return stats, fmt.Errorf("failed to encode %s: %w", e.Key, err)
		}
		rec, err := NewRecord(RecordTypePut, lsn, payload)
		if err != nil {
			_ = sw.Close()
			_ = os.Remove(tmp)
			return stats, fmt.Errorf("failed to frame %s: %w", e.Key, err)
		}
		if err := sw.Write(rec); err != nil {
			_ = sw.Close()
			_ = os.Remove(tmp)
			return stats, err
		}
	}

	checkpoint, err := EncodeCheckpoint(lsn)
	if err != nil {
		_ = sw.Close()
		_ = os.Remove(tmp)
		return stats, err
	}
	rec, err := NewRecord(RecordTypeCheckpoint, lsn, checkpoint)
	if err != nil {
		_ = sw.Close()
		_ = os.Remove(tmp)
		return stats, err
	}
	if err := sw.Write(rec); err != nil {
		_ = sw.Close()
		_ = os.Remove(tmp)
		return stats, err
	}
	if err := sw.Close(); err != nil {
		_ = os.Remove(tmp)
		return stats, err
	}
	stats.Entries = len(entries)

	// measure before the rename so a replaced compacted segment is counted
	for _, path := range segments {
		id, err := GetSegmentID(path)
		if err != nil || id > through {
			continue
		}
		if info, err := os.Stat(path); err == nil {
			stats.BytesBefore += info.Size()
		}
	}

	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return stats, fmt.Errorf("failed to install compacted segment: %w", err)
	}
	if info, err := os.Stat(final); err == nil {
		stats.BytesAfter = info.Size()
	}

	for _, path := range segments {
		id, err := GetSegmentID(path)
		if err != nil || id > through || path == final {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return stats, fmt.Errorf("failed to remove segment %s: %w", path, err)
		}
		stats.SegmentsRemoved++
	}
	return stats, nil
}
