package content

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

func mustParse(t *testing.T, s string) record.Value {
	t.Helper()
	v, err := record.ParseJSON([]byte(s))
	if err != nil {
		t.Fatalf("failed to parse %s: %v", s, err)
	}
	return v
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"route", KindRoute, false},
		{" Region ", KindRegion, false},
		{"NEWS", KindNews, false},
		{"hotel", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFromRecord(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		wantID   string
		wantSlug string
		wantErr  bool
	}{
		{"explicit id and slug", `{"id":"r1","slug":"lake-loop","title":"Lake loop"}`, "r1", "lake-loop", false},
		{"mongo id", `{"_id":"5f1a","title":"Dombai"}`, "5f1a", "dombai", false},
		{"id derived from title", `{"title":"Teberda Lake"}`, "teberda-lake", "teberda-lake", false},
		{"punctuation in title", `{"title":"Dombai: Glade!"}`, "dombai-glade", "dombai-glade", false},
		{"missing title", `{"id":"r1"}`, "", "", true},
		{"blank title", `{"title":"   "}`, "", "", true},
		{"slash in id", `{"id":"a/b","title":"A"}`, "", "", true},
		{"not an object", `["title"]`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := FromRecord(KindRoute, mustParse(t, tt.json))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.ID != tt.wantID {
				t.Errorf("expected id %q, got %q", tt.wantID, e.ID)
			}
			if e.Slug != tt.wantSlug {
				t.Errorf("expected slug %q, got %q", tt.wantSlug, e.Slug)
			}
			if e.Kind != KindRoute {
				t.Errorf("expected kind route, got %q", e.Kind)
			}
		})
	}
}

func TestFromRecordFields(t *testing.T) {
	v := mustParse(t, `{
		"_id": "r1",
		"__v": 3,
		"kind": "news",
		"title": "Lake loop",
		"length_km": 12,
		"description": "Around the lake",
		"created_at": "2024-05-01T10:00:00Z"
	}`)

	e, err := FromRecord(KindRoute, v)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}

	if got := e.Fields.Keys(); !reflect.DeepEqual(got, []string{"length_km", "description"}) {
		t.Errorf("unexpected field keys: %v", got)
	}
	if e.Kind != KindRoute {
		t.Errorf("kind in the record must not override the given kind, got %q", e.Kind)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !e.CreatedAt.Equal(want) {
		t.Errorf("expected created_at %v, got %v", want, e.CreatedAt)
	}
	if !e.UpdatedAt.IsZero() {
		t.Errorf("expected zero updated_at, got %v", e.UpdatedAt)
	}
}

func TestEntityRecord(t *testing.T) {
	e := Entity{
		Kind:      KindPlace,
		ID:        "p1",
		Slug:      "blue-lakes",
		Title:     "Blue lakes",
		Fields:    mustParse(t, `{"region":"Teberda","title":"ignored"}`),
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	rec := e.Record()
	wantKeys := []string{"id", "kind", "slug", "title", "region", "created_at"}
	if got := rec.Keys(); !reflect.DeepEqual(got, wantKeys) {
		t.Errorf("expected keys %v, got %v", wantKeys, got)
	}
	if rec.GetString("title") != "Blue lakes" {
		t.Errorf("fields must not override the title, got %q", rec.GetString("title"))
	}
	if rec.GetString("created_at") != "2024-01-02T03:04:05Z" {
		t.Errorf("unexpected created_at %q", rec.GetString("created_at"))
	}

	back, err := FromRecord(KindPlace, rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if back.ID != e.ID || back.Slug != e.Slug || back.Title != e.Title || !back.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("round trip mismatch: %+v", back)
	}
	if !back.Fields.Equal(mustParse(t, `{"region":"Teberda"}`)) {
		t.Errorf("unexpected fields after round trip: %s", back.Fields)
	}
}

func TestTouch(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 500, time.UTC)
	earlier := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	imported := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		entity      Entity
		createdAt   time.Time
		wantCreated time.Time
	}{
		{"new entity", Entity{}, time.Time{}, now.Truncate(time.Second)},
		{"keeps existing creation time", Entity{CreatedAt: imported}, earlier, earlier},
		{"keeps imported creation time", Entity{CreatedAt: imported}, time.Time{}, imported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.entity.Touch(now, tt.createdAt)
			if !e.CreatedAt.Equal(tt.wantCreated) {
				t.Errorf("expected created %v, got %v", tt.wantCreated, e.CreatedAt)
			}
			if !e.UpdatedAt.Equal(now.Truncate(time.Second)) {
				t.Errorf("expected updated %v, got %v", now.Truncate(time.Second), e.UpdatedAt)
			}
		})
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name string
		opts ListOptions
		want []int
	}{
		{"no limit", ListOptions{}, []int{1, 2, 3, 4, 5}},
		{"limit", ListOptions{Limit: 2}, []int{1, 2}},
		{"offset and limit", ListOptions{Offset: 3, Limit: 5}, []int{4, 5}},
		{"offset past end", ListOptions{Offset: 9}, []int{}},
		{"negative offset", ListOptions{Offset: -2, Limit: 1}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := page(items, tt.opts); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
