package search

import (
	"reflect"
	"testing"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

func mustParse(t *testing.T, doc string) record.Value {
	t.Helper()
	v, err := record.ParseJSON([]byte(doc))
	if err != nil {
		t.Fatalf("ParseJSON(%s) failed: %v", doc, err)
	}
	return v
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		query string
		want  bool
	}{
		{"plain string", `"Mountain Pass"`, "pass", true},
		{"case insensitive query", `"mountain pass"`, "  PASS ", true},
		{"empty query", `{"title":"Mountain pass"}`, "", false},
		{"whitespace query", `{"title":"Mountain pass"}`, "   ", false},
		{"nested title", `{"title":"Mountain pass"}`, "mount", true},
		{"identifier skipped", `{"id":"border","title":"Mountain pass"}`, "order", false},
		{"mongo id skipped", `{"_id":"lakeside","title":"x"}`, "lake", false},
		{"version skipped", `{"__v":"v2","title":"x"}`, "v2", false},
		{"single image string", `{"image":"sunset-route.jpg"}`, "sunset", true},
		{"image array skipped", `{"images":["sunset-route.jpg"]}`, "sunset", false},
		{"file string", `{"file":"guide.pdf"}`, "guide", true},
		{"files array skipped", `{"files":["guide.pdf"]}`, "guide", false},
		{"image object skipped", `{"image":{"url":"sunset.jpg"}}`, "sunset", false},
		{"numbers ignored", `{"altitude":2500}`, "2500", false},
		{"booleans ignored", `{"open":true}`, "true", false},
		{"null ignored", `null`, "null", false},
		{"array any element", `["lake","river"]`, "riv", true},
		{"deep nesting", `{"a":{"b":[{"c":"Glacier trail"}]}}`, "glacier", true},
		{"blocks through data", `{"blocks":[{"type":"paragraph","data":{"text":"Alpine meadows"}}]}`, "alpine", true},
		{"blocks ignore sibling of data", `{"blocks":[{"type":"paragraph","data":{"text":"x"}}]}`, "paragraph", false},
		{"blocks without data", `{"blocks":[{"text":"Waterfall"}]}`, "waterfall", true},
		{"blocks with null data", `{"blocks":[{"data":null,"text":"Waterfall"}]}`, "waterfall", true},
		{"blocks with empty data", `{"blocks":[{"data":"","text":"Waterfall"}]}`, "waterfall", true},
		{"blocks not array", `{"blocks":{"text":"Waterfall"}}`, "waterfall", true},
		{"no match", `{"title":"Mountain pass"}`, "river", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(mustParse(t, tt.doc), tt.query); got != tt.want {
				t.Errorf("Matches(%s, %q) = %v, want %v", tt.doc, tt.query, got, tt.want)
			}
		})
	}
}

func TestMatchesCollection(t *testing.T) {
	items := mustParse(t, `[{"id":"1","title":"Teberda Lake"},{"id":"2","title":"Dombai"}]`)

	if !Matches(items, "dombai") {
		t.Error("expected collection to match a title of one element")
	}
	if Matches(items, "1") {
		t.Error("identifier of an element should not match")
	}
}

func TestText(t *testing.T) {
	doc := mustParse(t, `{
		"id": "r1",
		"title": "Teberda",
		"image": "cover.jpg",
		"images": ["a.jpg"],
		"tags": ["lake", 3],
		"blocks": [{"type": "header", "data": {"text": "Intro"}}]
	}`)

	want := []string{"Teberda", "cover.jpg", "lake", "Intro"}
	if got := Text(doc); !reflect.DeepEqual(got, want) {
		t.Errorf("Text() = %v, want %v", got, want)
	}
}
