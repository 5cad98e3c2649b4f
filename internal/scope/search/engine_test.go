package search

import (
	"context"
	"reflect"
	"testing"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

func doc(kind, id, title string) record.Value {
	return record.Object(
		record.F("id", record.String(id)),
		record.F("kind", record.String(kind)),
		record.F("title", record.String(title)),
	)
}

func seedEngine(t *testing.T, e Engine) {
	t.Helper()
	docs := []record.Value{
		doc("place", "teberda-lake", "Teberda Lake"),
		doc("place", "dombai", "Dombai"),
		doc("route", "teberda-trail", "Teberda gorge trail"),
		doc("news", "festival", "Mountain festival"),
	}
	for _, d := range docs {
		if err := e.Index(d.GetString("kind")+"/"+d.GetString("id"), d); err != nil {
			t.Fatalf("Index() failed: %v", err)
		}
	}
}

func ids(items []record.Value) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.GetString("id")
	}
	return out
}

func TestMemoryEngineSearch(t *testing.T) {
	engine := NewMemoryEngine()
	seedEngine(t, engine)

	tests := []struct {
		name  string
		query string
		q     Query
		want  []string
	}{
		{"all kinds", "teberda", Query{}, []string{"teberda-lake", "teberda-trail"}},
		{"kind filter", "teberda", Query{Kind: "route"}, []string{"teberda-trail"}},
		{"limit", "teberda", Query{Limit: 1}, []string{"teberda-lake"}},
		{"title match", "festival", Query{}, []string{"festival"}},
		{"no match", "river", Query{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := engine.Search(context.Background(), tt.query, tt.q)
			if err != nil {
				t.Fatalf("Search() failed: %v", err)
			}
			if got := ids(results); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestMemoryEngineIDNotMatched(t *testing.T) {
	engine := NewMemoryEngine()
	if err := engine.Index("place/border", doc("place", "border", "Mountain pass")); err != nil {
		t.Fatalf("Index() failed: %v", err)
	}

	results, err := engine.Search(context.Background(), "order", Query{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestMemoryEngineRemove(t *testing.T) {
	engine := NewMemoryEngine()
	seedEngine(t, engine)

	if err := engine.Remove("place/dombai"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if err := engine.Remove("place/missing"); err != nil {
		t.Fatalf("Remove() of unknown id failed: %v", err)
	}
	if engine.Count() != 3 {
		t.Errorf("expected 3 docs, got %d", engine.Count())
	}

	results, _ := engine.Search(context.Background(), "dombai", Query{})
	if len(results) != 0 {
		t.Errorf("removed doc still found")
	}
}

func TestMemoryEngineCancelled(t *testing.T) {
	engine := NewMemoryEngine()
	seedEngine(t, engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Search(ctx, "teberda", Query{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestEngineFuncWithFallback(t *testing.T) {
	engine := NewMemoryEngine()
	seedEngine(t, engine)

	out, err := SearchWithFallback(context.Background(), "Teberdaa", EngineFunc(engine, Query{Kind: "place"}))
	if err != nil {
		t.Fatalf("SearchWithFallback() failed: %v", err)
	}
	if out.Fallback != "Teberda" {
		t.Errorf("fallback = %q, want Teberda", out.Fallback)
	}
	if got := ids(out.Results); !reflect.DeepEqual(got, []string{"teberda-lake"}) {
		t.Errorf("results = %v", got)
	}
}
