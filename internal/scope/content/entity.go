// Package content provides portal entities and their storage backends.
package content

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

var (
	// ErrNotFound is returned when an entity does not exist
	ErrNotFound = errors.New("entity not found")
	// ErrExists is returned when creating an entity whose ID is taken
	ErrExists = errors.New("entity already exists")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store is closed")
	// ErrInvalid is returned for malformed entities or kinds
	ErrInvalid = errors.New("invalid entity")
)

// Kind is the content type of an entity
type Kind string

const (
	KindRegion  Kind = "region"
	KindRoute   Kind = "route"
	KindPlace   Kind = "place"
	KindNews    Kind = "news"
	KindService Kind = "service"
)

// Kinds lists every known kind
var Kinds = []Kind{KindRegion, KindRoute, KindPlace, KindNews, KindService}

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalid, s)
}

// reserved keys are lifted out of Fields into Entity attributes
var reserved = []string{"id", "_id", "__v", "kind", "slug", "title", "created_at", "updated_at"}

// Entity is one piece of portal content
type Entity struct {
	Kind      Kind         `json:"kind"`
	ID        string       `json:"id"`
	Slug      string       `json:"slug"`
	Title     string       `json:"title"`
	Fields    record.Value `json:"fields"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Key identifies an entity across kinds
func (e Entity) Key() string {
	return Key(e.Kind, e.ID)
}

// Key builds the storage key for kind and id
func Key(kind Kind, id string) string {
	return string(kind) + "/" + id
}

// FromRecord builds an entity of the given kind from a JSON object. The
// object must carry a title; a missing id or slug is derived from it.
func FromRecord(kind Kind, v record.Value) (Entity, error) {
	if v.Kind() != record.KindObject {
		return Entity{}, fmt.Errorf("%w: expected an object, got %s", ErrInvalid, v.Kind())
	}

	title := strings.TrimSpace(v.GetString("title"))
	if title == "" {
		return Entity{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}

	id := strings.TrimSpace(v.GetString("id"))
	if id == "" {
		id = strings.TrimSpace(v.GetString("_id"))
	}
	if id == "" {
		id = slug.Make(title)
	}
	if id == "" || strings.Contains(id, "/") {
		return Entity{}, fmt.Errorf("%w: unusable id %q", ErrInvalid, id)
	}

	s := strings.TrimSpace(v.GetString("slug"))
	if s == "" {
		s = slug.Make(title)
	}

	e := Entity{
		Kind:   kind,
		ID:     id,
		Slug:   s,
		Title:  title,
		Fields: v.Without(reserved...),
	}
	e.CreatedAt = parseTime(v.GetString("created_at"))
	e.UpdatedAt = parseTime(v.GetString("updated_at"))
	return e, nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// Record flattens the entity into one object: id, kind, slug and title
// first, then the remaining fields.
func (e Entity) Record() record.Value {
	base := record.Object(
		record.F("id", record.String(e.ID)),
		record.F("kind", record.String(string(e.Kind))),
		record.F("slug", record.String(e.Slug)),
		record.F("title", record.String(e.Title)),
	)
	if e.Fields.Kind() == record.KindObject {
		base = base.Merge(e.Fields.Without(reserved...))
	}
	if !e.CreatedAt.IsZero() {
		base = base.With("created_at", record.String(e.CreatedAt.UTC().Format(time.RFC3339)))
	}
	if !e.UpdatedAt.IsZero() {
		base = base.With("updated_at", record.String(e.UpdatedAt.UTC().Format(time.RFC3339)))
	}
	return base
}

// Touch stamps the entity as written at now, keeping an earlier creation time
func (e Entity) Touch(now time.Time, createdAt time.Time) Entity {
	now = now.UTC().Truncate(time.Second)
	switch {
	case !createdAt.IsZero():
		e.CreatedAt = createdAt
	case e.CreatedAt.IsZero():
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	return e
}

// ListOptions pages a listing
type ListOptions struct {
	Offset int
	Limit  int // 0 means no limit
}

// page applies opts to a sorted slice
func page[T any](items []T, opts ListOptions) []T {
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Offset >= len(items) {
		return []T{}
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
