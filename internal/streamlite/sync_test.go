package streamlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	httpapi "github.com/dsjohal14/tourstack/internal/http"
	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/record"
)

type fakeSink struct {
	mu    sync.Mutex
	calls map[content.Kind][]int
	fail  content.Kind
}

func (s *fakeSink) Ingest(_ context.Context, kind content.Kind, items []record.Value) (httpapi.IngestResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[content.Kind][]int{}
	}
	s.calls[kind] = append(s.calls[kind], len(items))
	if kind == s.fail {
		return httpapi.IngestResponse{}, errors.New("sink down")
	}

	resp := httpapi.IngestResponse{Kind: string(kind)}
	for i, item := range items {
		if item.GetString("title") == "" {
			resp.Failures = append(resp.Failures, httpapi.IngestFailure{Index: i, Error: "title is required"})
			continue
		}
		resp.Created++
	}
	return resp, nil
}

func titled(n int) []record.Value {
	items := make([]record.Value, n)
	for i := range items {
		items[i] = record.Object(record.F("title", record.String(fmt.Sprintf("Item %d", i))))
	}
	return items
}

func TestSync(t *testing.T) {
	batches := []Batch{
		{Kind: content.KindRoute, Items: titled(5), Source: "routes.yaml"},
		{Kind: content.KindPlace, Items: append(titled(1), record.Object()), Source: "places.yaml"},
	}
	sink := &fakeSink{}

	stats, err := Sync(context.Background(), batches, sink, 2, 3)
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	if stats.Jobs != 4 {
		t.Errorf("expected 4 jobs, got %d", stats.Jobs)
	}
	if stats.Created != 6 {
		t.Errorf("expected 6 created, got %d", stats.Created)
	}
	if stats.Rejected != 1 {
		t.Errorf("expected 1 rejected, got %d", stats.Rejected)
	}
	if stats.Failed != 0 {
		t.Errorf("expected no failed jobs, got %d", stats.Failed)
	}

	routeChunks := 0
	for _, n := range sink.calls[content.KindRoute] {
		if n > 2 {
			t.Errorf("chunk of %d exceeds chunk size", n)
		}
		routeChunks++
	}
	if routeChunks != 3 {
		t.Errorf("expected 3 route chunks, got %d", routeChunks)
	}
}

func TestSyncFailure(t *testing.T) {
	batches := []Batch{
		{Kind: content.KindRoute, Items: titled(3), Source: "routes.yaml"},
		{Kind: content.KindNews, Items: titled(2), Source: "news.yaml"},
	}
	sink := &fakeSink{fail: content.KindNews}

	stats, err := Sync(context.Background(), batches, sink, 0, 1)
	if err == nil {
		t.Fatal("expected error from failing sink")
	}
	if stats.Failed != 1 {
		t.Errorf("expected 1 failed job, got %d", stats.Failed)
	}
	if stats.Created != 3 {
		t.Errorf("expected the route batch to be ingested, got %d created", stats.Created)
	}
}

func TestSyncEmpty(t *testing.T) {
	stats, err := Sync(context.Background(), nil, &fakeSink{}, 10, 2)
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}
	if stats.Jobs != 0 {
		t.Errorf("expected no jobs, got %d", stats.Jobs)
	}
}
