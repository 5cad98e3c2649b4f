package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

// Func runs a search for one query string. It may block, e.g. on a network call.
type Func func(ctx context.Context, query string) ([]record.Value, error)

// TitleFunc extracts the display title of a record; "" means no title
type TitleFunc func(record.Value) string

// TitleOf returns the string "title" field of an object record
func TitleOf(v record.Value) string {
	return v.GetString("title")
}

// Outcome is the result of SearchWithFallback
type Outcome struct {
	Results []record.Value
	// Fallback is the shortened query that produced Results, or "" when the
	// full query matched (or nothing matched at all).
	Fallback string
}

// UsedFallback reports whether the results came from a shortened query
func (o Outcome) UsedFallback() bool {
	return o.Fallback != ""
}

type options struct {
	scorer Scorer
	title  TitleFunc
}

// Option configures ranking behaviour
type Option func(*options)

// WithScorer replaces the default Similarity scorer
func WithScorer(s Scorer) Option {
	return func(o *options) {
		if s != nil {
			o.scorer = s
		}
	}
}

// WithTitle replaces the default TitleOf extractor used for ranking
func WithTitle(fn TitleFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.title = fn
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{scorer: Similarity, title: TitleOf}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SearchWithFallback calls fn with the trimmed query and, while nothing is
// found, with the query shortened by one trailing character, until a call
// returns results or the query is exhausted. Results are re-ranked by
// similarity of their title to the full query; ties keep fn's order.
//
// An error from fn stops the search and is returned wrapped with the query
// that failed. Cancellation of ctx is checked before every call.
func SearchWithFallback(ctx context.Context, query string, fn Func, opts ...Option) (Outcome, error) {
	normalized := strings.TrimSpace(query)
	if normalized == "" {
		return Outcome{Results: []record.Value{}}, nil
	}
	o := buildOptions(opts)

	var results []record.Value
	fallback := ""
	current := normalized
	for current != "" {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		found, err := fn(ctx, current)
		if err != nil {
			return Outcome{}, fmt.Errorf("search %q: %w", current, err)
		}
		if len(found) > 0 {
			results = found
			if current != normalized {
				fallback = current
			}
			break
		}

		_, size := utf8.DecodeLastRuneInString(current)
		current = current[:len(current)-size]
	}

	if len(results) == 0 {
		return Outcome{Results: []record.Value{}}, nil
	}

	return Outcome{
		Results:  rank(strings.ToLower(normalized), results, o),
		Fallback: fallback,
	}, nil
}

type scored struct {
	item  record.Value
	score float64
}

// rank returns a new slice ordered by descending title similarity
func rank(query string, items []record.Value, o options) []record.Value {
	pairs := make([]scored, len(items))
	for i, item := range items {
		pairs[i] = scored{item: item, score: o.scorer(query, strings.ToLower(o.title(item)))}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	out := make([]record.Value, len(pairs))
	for i, p := range pairs {
		out[i] = p.item
	}
	return out
}
