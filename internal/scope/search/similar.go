package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

const (
	// DefaultMaxSimilar is the default number of similar titles returned
	DefaultMaxSimilar = 5

	// minSimilarScore is the relevance floor for similar titles
	minSimilarScore = 0.15

	minSimilarQueryLen = 2
)

// FindSimilarTitles suggests items whose titles resemble query but which are
// not already present in existing. Items scoring above 0.15 are returned in
// descending score order, at most maxResults of them (DefaultMaxSimilar when
// maxResults <= 0). Each returned item is an object carrying the resolved
// "title" field. Queries shorter than two characters yield nothing.
func FindSimilarTitles(query string, items, existing []record.Value, getTitle TitleFunc, maxResults int, opts ...Option) []record.Value {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < minSimilarQueryLen {
		return []record.Value{}
	}
	if getTitle == nil {
		getTitle = TitleOf
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxSimilar
	}
	o := buildOptions(opts)
	lowerQuery := strings.ToLower(trimmed)

	exclude := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		if title := getTitle(item); title != "" {
			exclude[strings.ToLower(title)] = struct{}{}
		}
	}

	type candidate struct {
		item  record.Value
		title string
		score float64
	}
	var candidates []candidate
	for _, item := range items {
		title := getTitle(item)
		if title == "" {
			continue
		}
		lowerTitle := strings.ToLower(title)
		if _, seen := exclude[lowerTitle]; seen {
			continue
		}
		score := o.scorer(lowerQuery, lowerTitle)
		if score <= minSimilarScore {
			continue
		}
		candidates = append(candidates, candidate{item: item, title: title, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	out := make([]record.Value, len(candidates))
	for i, c := range candidates {
		out[i] = c.item.With("title", record.String(c.title))
	}
	return out
}
