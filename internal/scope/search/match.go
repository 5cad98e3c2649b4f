// Package search provides fuzzy text search over portal content records.
package search

import (
	"strings"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

// identifierKeys are never inspected for text
var identifierKeys = map[string]struct{}{
	"id":  {},
	"_id": {},
	"__v": {},
}

// attachmentKeys are inspected only when their value is a single string
var attachmentKeys = map[string]struct{}{
	"image":  {},
	"images": {},
	"file":   {},
	"files":  {},
}

const blocksKey = "blocks"

// Matches reports whether query occurs, case-insensitively, in any searchable
// string of v. Identifier fields are skipped, image and file fields count only
// when they hold a single string, and content blocks are searched through
// their data payload.
func Matches(v record.Value, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return walk(v, func(s string) bool {
		return strings.Contains(strings.ToLower(s), q)
	})
}

// Text returns every searchable string of v in document order, using the
// same field rules as Matches.
func Text(v record.Value) []string {
	var out []string
	walk(v, func(s string) bool {
		out = append(out, s)
		return false
	})
	return out
}

// walk visits searchable strings until visit returns true
func walk(v record.Value, visit func(string) bool) bool {
	switch v.Kind() {
	case record.KindString:
		s, _ := v.Str()
		return visit(s)
	case record.KindArray:
		for _, item := range v.Items() {
			if walk(item, visit) {
				return true
			}
		}
		return false
	case record.KindObject:
		found := false
		v.Range(func(key string, val record.Value) bool {
			found = walkField(key, val, visit)
			return !found
		})
		return found
	default:
		return false
	}
}

func walkField(key string, val record.Value, visit func(string) bool) bool {
	if _, skip := identifierKeys[key]; skip {
		return false
	}

	if _, ok := attachmentKeys[key]; ok {
		if s, isString := val.Str(); isString {
			return visit(s)
		}
		return false
	}

	if key == blocksKey && val.Kind() == record.KindArray {
		for _, block := range val.Items() {
			if data, ok := block.Get("data"); ok && data.Truthy() {
				if walk(data, visit) {
					return true
				}
				continue
			}
			if walk(block, visit) {
				return true
			}
		}
		return false
	}

	return walk(val, visit)
}
