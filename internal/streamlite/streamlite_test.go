package streamlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dsjohal14/tourstack/internal/scope/content"
)

func TestNewBaseConnector(t *testing.T) {
	name := "test-connector"
	connector := NewBaseConnector(name)

	if connector.Name() != name {
		t.Errorf("expected name %s, got %s", name, connector.Name())
	}
}

func TestBaseConnectorStart(t *testing.T) {
	connector := NewBaseConnector("test")

	if err := connector.Start(); err != nil {
		t.Errorf("Start() failed: %v", err)
	}

	if connector.StartedAt().IsZero() {
		t.Error("startedAt should be set after Start()")
	}
}

func TestBaseConnectorStop(t *testing.T) {
	connector := NewBaseConnector("test")

	if err := connector.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
}

func writeFile(t *testing.T, dir, name, data string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFileConnectorRead(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_routes.yaml", `
kind: route
items:
  - id: r1
    title: Teberda Lake
    length_km: 12
  - title: Alibek glacier
---
kind: place
items:
  - title: Dombai
`)
	writeFile(t, dir, "b/news.json", `[{"kind":"news","items":[{"title":"Season opening"}]}]`)
	writeFile(t, dir, "c_notes.txt", "ignored")

	connector := NewFileConnector(dir)
	var _ Connector = connector
	if err := connector.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	batches, err := connector.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want := []struct {
		kind  content.Kind
		count int
	}{
		{content.KindRoute, 2},
		{content.KindPlace, 1},
		{content.KindNews, 1},
	}
	if len(batches) != len(want) {
		t.Fatalf("expected %d batches, got %d", len(want), len(batches))
	}
	for i, w := range want {
		if batches[i].Kind != w.kind || len(batches[i].Items) != w.count {
			t.Errorf("batch %d: expected %s x%d, got %s x%d", i, w.kind, w.count, batches[i].Kind, len(batches[i].Items))
		}
	}

	first := batches[0].Items[0]
	if first.GetString("title") != "Teberda Lake" {
		t.Errorf("unexpected first item %s", first)
	}
	if n, ok := first.Get("length_km"); !ok || n.String() != "12" {
		t.Errorf("expected length_km 12, got %s", n)
	}
	if got := first.Keys(); len(got) != 3 || got[0] != "id" || got[2] != "length_km" {
		t.Errorf("expected key order to be kept, got %v", got)
	}

	e, err := content.FromRecord(batches[0].Kind, batches[0].Items[1])
	if err != nil || e.ID != "alibek-glacier" {
		t.Errorf("expected a usable entity, got %+v, %v", e, err)
	}
}

func TestFileConnectorErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"unknown kind", "x.yaml", "kind: hotel\nitems: []\n"},
		{"items not a list", "x.yaml", "kind: route\nitems: {}\n"},
		{"scalar item", "x.yaml", "kind: route\nitems: [x]\n"},
		{"scalar document", "x.yaml", "hello\n"},
		{"bad json", "x.json", "{"},
		{"bad yaml", "x.yml", "kind: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.data)
			if _, err := NewFileConnector(dir).Read(context.Background()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestFileConnectorMissingDir(t *testing.T) {
	connector := NewFileConnector(filepath.Join(t.TempDir(), "missing"))
	if err := connector.Start(); err == nil {
		t.Error("expected Start to fail for a missing directory")
	}
}
