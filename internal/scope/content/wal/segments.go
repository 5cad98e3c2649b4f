package wal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	walPrefix       = "wal_"
	compactedPrefix = "cmp_"
	segmentSuffix   = ".seg"
)

// SegmentFilename generates a WAL segment filename for a given ID
func SegmentFilename(segmentID uint64) string {
	return fmt.Sprintf("%s%012d%s", walPrefix, segmentID, segmentSuffix)
}

// CompactedSegmentFilename generates a compacted segment filename. A compacted
// segment replaces every segment up to and including its ID.
func CompactedSegmentFilename(segmentID uint64) string {
	return fmt.Sprintf("%s%012d%s", compactedPrefix, segmentID, segmentSuffix)
}

// GetSegmentID extracts the segment ID from a segment filename
func GetSegmentID(filename string) (uint64, error) {
	base := filepath.Base(filename)
	var id uint64

	if n, err := fmt.Sscanf(base, walPrefix+"%d"+segmentSuffix, &id); err == nil && n == 1 {
		return id, nil
	}
	if n, err := fmt.Sscanf(base, compactedPrefix+"%d"+segmentSuffix, &id); err == nil && n == 1 {
		return id, nil
	}
	return 0, fmt.Errorf("invalid segment filename: %s", filename)
}

func isCompacted(path string) bool {
	return strings.HasPrefix(filepath.Base(path), compactedPrefix)
}

// ListSegmentFiles returns all segment files in dir in replay order: by
// segment ID, with a compacted segment before a WAL segment of the same ID.
func ListSegmentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, segmentSuffix) {
			continue
		}
		if strings.HasPrefix(name, walPrefix) || strings.HasPrefix(name, compactedPrefix) {
			segments = append(segments, filepath.Join(dir, name))
		}
	}

	sort.SliceStable(segments, func(i, j int) bool {
		idI, _ := GetSegmentID(segments[i])
		idJ, _ := GetSegmentID(segments[j])
		if idI != idJ {
			return idI < idJ
		}
		return isCompacted(segments[i]) && !isCompacted(segments[j])
	})
	return segments, nil
}

// FindLatestSegment finds the WAL segment with the highest ID in dir.
// Compacted segments are ignored; an empty dir yields ID 0.
func FindLatestSegment(dir string) (string, uint64, error) {
	segments, err := ListSegmentFiles(dir)
	if err != nil {
		return "", 0, err
	}

	for i := len(segments) - 1; i >= 0; i-- {
		if isCompacted(segments[i]) {
			continue
		}
		id, err := GetSegmentID(segments[i])
		if err != nil {
			return "", 0, err
		}
		return segments[i], id, nil
	}
	return "", 0, nil
}
