package search

import (
	"reflect"
	"testing"
)

func suggestionTitles(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, item := range s {
		out[i] = item.Title
	}
	return out
}

func TestTitleIndexComplete(t *testing.T) {
	idx := NewTitleIndex()
	idx.Add("place/teberda-lake", "Teberda Lake")
	idx.Add("place/dombai", "Dombai")
	idx.Add("route/lake-loop", "Lake loop")
	idx.Add("route/blue-lakes", "Blue lakes of Teberda")

	tests := []struct {
		name   string
		prefix string
		limit  int
		want   []string
	}{
		{"leading prefix first", "lake", 0, []string{"Lake loop", "Teberda Lake", "Blue lakes of Teberda"}},
		{"inner word", "dom", 0, []string{"Dombai"}},
		{"case insensitive", "TEB", 0, []string{"Teberda Lake", "Blue lakes of Teberda"}},
		{"limit", "lake", 1, []string{"Lake loop"}},
		{"empty prefix", "  ", 0, []string{}},
		{"no match", "volc", 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := suggestionTitles(idx.Complete(tt.prefix, tt.limit))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Complete(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestTitleIndexDeduplicates(t *testing.T) {
	idx := NewTitleIndex()
	idx.Add("route/lakes", "Lake to lake")

	got := idx.Complete("lake", 0)
	if len(got) != 1 || got[0].Ref != "route/lakes" {
		t.Errorf("Complete() = %v, want one suggestion", got)
	}
}

func TestTitleIndexReplaceAndRemove(t *testing.T) {
	idx := NewTitleIndex()
	idx.Add("place/1", "Dombai")
	idx.Add("place/1", "Arkhyz")

	if got := idx.Complete("dom", 0); len(got) != 0 {
		t.Errorf("old title still indexed: %v", got)
	}
	if got := idx.Complete("ark", 0); len(got) != 1 {
		t.Errorf("new title not indexed: %v", got)
	}

	idx.Remove("place/1")
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d", idx.Len())
	}
	if got := idx.Complete("ark", 0); len(got) != 0 {
		t.Errorf("removed title still indexed: %v", got)
	}
}
