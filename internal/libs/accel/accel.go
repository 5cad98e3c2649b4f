// Package accel provides utilities for accelerated batch processing.
package accel

// Batch represents a batch processing helper
type Batch struct {
	size int
}

// NewBatch creates a new batch processor with the given size
func NewBatch(size int) *Batch {
	if size <= 0 {
		size = 100
	}
	return &Batch{size: size}
}

// Size returns the batch size
func (b *Batch) Size() int {
	return b.size
}

// Split chunks items into consecutive batches of at most b.Size() items
func Split[T any](b *Batch, items []T) [][]T {
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+b.size-1)/b.size)
	for start := 0; start < len(items); start += b.size {
		end := min(start+b.size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
