package wal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// SegmentIterator iterates over records in a segment file
type SegmentIterator struct {
	file   *os.File
	r      *bufio.Reader
	offset int64
	record *Record
	err    error
}

// NewSegmentIterator opens path for iteration
func NewSegmentIterator(path string) (*SegmentIterator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment %s: %w", path, err)
	}
	return &SegmentIterator{file: f, r: bufio.NewReader(f)}, nil
}

// Next advances to the next record. It returns false at the end of the
// segment or on the first unreadable record; Err tells them apart.
func (it *SegmentIterator) Next() bool {
	if it.err != nil {
		return false
	}

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(it.r, header); err != nil {
		if !errors.Is(err, io.EOF) {
			it.err = fmt.Errorf("%w: truncated header at offset %d", ErrCorrupt, it.offset)
		}
		return false
	}

	payloadLen, err := checkHeader(header)
	if err != nil {
		it.err = fmt.Errorf("at offset %d: %w", it.offset, err)
		return false
	}

	rest := make([]byte, payloadLen+4)
	if _, err := io.ReadFull(it.r, rest); err != nil {
		it.err = fmt.Errorf("%w: truncated payload at offset %d", ErrCorrupt, it.offset)
		return false
	}

	rec, err := DecodeRecord(append(header, rest...))
	if err != nil {
		it.err = fmt.Errorf("at offset %d: %w", it.offset, err)
		return false
	}

	it.record = rec
	it.offset += int64(rec.TotalSize())
	return true
}

// Record returns the current record
func (it *SegmentIterator) Record() *Record {
	return it.record
}

// Err returns the error that stopped iteration, if any
func (it *SegmentIterator) Err() error {
	return it.err
}

// Offset returns the byte offset after the current record
func (it *SegmentIterator) Offset() int64 {
	return it.offset
}

// Close closes the iterator
func (it *SegmentIterator) Close() error {
	return it.file.Close()
}

// ReadAllRecords reads every record from a segment file
func ReadAllRecords(path string) ([]*Record, error) {
	iter, err := NewSegmentIterator(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = iter.Close() }()

	var records []*Record
	for iter.Next() {
		records = append(records, iter.Record())
	}
	if err := iter.Err(); err != nil {
		return records, err
	}
	return records, nil
}

// SegmentWriter writes a standalone segment file, used for compaction
type SegmentWriter struct {
	file *os.File
	w    *bufio.Writer
	path string
	n    int
}

// NewSegmentWriter creates path, truncating an existing file
func NewSegmentWriter(path string) (*SegmentWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create segment %s: %w", path, err)
	}
	return &SegmentWriter{file: f, w: bufio.NewWriter(f), path: path}, nil
}

// Write appends rec to the segment
func (sw *SegmentWriter) Write(rec *Record) error {
	if _, err := sw.w.Write(rec.Encode()); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	sw.n++
	return nil
}

// Count returns the number of records written
func (sw *SegmentWriter) Count() int {
	return sw.n
}

// Close flushes, syncs and closes the segment
func (sw *SegmentWriter) Close() error {
	if err := sw.w.Flush(); err != nil {
		_ = sw.file.Close()
		return fmt.Errorf("failed to flush segment: %w", err)
	}
	if err := sw.file.Sync(); err != nil {
		_ = sw.file.Close()
		return fmt.Errorf("failed to sync segment: %w", err)
	}
	return sw.file.Close()
}
