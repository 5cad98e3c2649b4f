package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/dsjohal14/tourstack/internal/http"
	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/record"
	"github.com/dsjohal14/tourstack/internal/streamlite"
)

func TestRunLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	done := make(chan struct{})
	go func() {
		runLoop(ctx, time.Millisecond, func(context.Context) {
			if calls.Add(1) == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not stop after cancel")
	}
	if n := calls.Load(); n < 3 {
		t.Errorf("expected at least 3 calls, got %d", n)
	}
}

type staticConnector struct {
	*streamlite.BaseConnector
	batches []streamlite.Batch
	err     error
}

func (c *staticConnector) Read(context.Context) ([]streamlite.Batch, error) {
	return c.batches, c.err
}

type countingSink struct {
	items atomic.Int32
}

func (s *countingSink) Ingest(_ context.Context, kind content.Kind, items []record.Value) (httpapi.IngestResponse, error) {
	s.items.Add(int32(len(items)))
	return httpapi.IngestResponse{Kind: string(kind), Created: len(items)}, nil
}

func TestSyncOnce(t *testing.T) {
	item := record.Object(record.F("title", record.String("Dombai")))
	conn := &staticConnector{
		BaseConnector: streamlite.NewBaseConnector("static"),
		batches: []streamlite.Batch{
			{Kind: content.KindPlace, Items: []record.Value{item, item}, Source: "static"},
		},
	}
	sink := &countingSink{}

	syncOnce(context.Background(), conn, sink, zerolog.Nop())
	if n := sink.items.Load(); n != 2 {
		t.Errorf("expected 2 items ingested, got %d", n)
	}

	conn.err = errors.New("disk gone")
	syncOnce(context.Background(), conn, sink, zerolog.Nop())
	if n := sink.items.Load(); n != 2 {
		t.Errorf("expected nothing ingested after read error, got %d total", n)
	}
}
