package streamlite

import (
	"context"
	"fmt"
	"sync"

	httpapi "github.com/dsjohal14/tourstack/internal/http"
	"github.com/dsjohal14/tourstack/internal/libs/accel"
	"github.com/dsjohal14/tourstack/internal/libs/jobs"
	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/record"
)

// DefaultChunkSize bounds the number of items sent in one ingest call
const DefaultChunkSize = 100

// Sink accepts batches of records of one kind
type Sink interface {
	Ingest(ctx context.Context, kind content.Kind, items []record.Value) (httpapi.IngestResponse, error)
}

// SyncStats summarizes one Sync run
type SyncStats struct {
	Jobs     int
	Created  int
	Updated  int
	Rejected int // items the sink refused
	Failed   int // jobs whose ingest call failed
}

// Sync splits batches into chunks and ingests them with up to workers calls in
// flight. A failed chunk does not stop the rest; the errors are joined.
func Sync(ctx context.Context, batches []Batch, sink Sink, chunkSize, workers int) (SyncStats, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var (
		stats SyncStats
		mu    sync.Mutex
	)
	queue := jobs.NewQueue()
	chunker := accel.NewBatch(chunkSize)
	for i, b := range batches {
		for j, chunk := range accel.Split(chunker, b.Items) {
			kind := b.Kind
			id := fmt.Sprintf("%s#%d.%d", b.Source, i, j)
			queue.Enqueue(id, func(ctx context.Context) error {
				resp, err := sink.Ingest(ctx, kind, chunk)
				if err != nil {
					return err
				}
				mu.Lock()
				stats.Created += resp.Created
				stats.Updated += resp.Updated
				stats.Rejected += len(resp.Failures)
				mu.Unlock()
				return nil
			})
		}
	}

	stats.Jobs = queue.Count()
	err := queue.Run(ctx, workers)
	stats.Failed = queue.CountByStatus(jobs.StatusFailed)
	return stats, err
}
