package search

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tchap/go-patricia/v2/patricia"
)

// keySep separates the indexed suffix from the reference in trie keys
const keySep = "\x00"

// Suggestion is one autocomplete candidate
type Suggestion struct {
	Ref   string `json:"ref"`
	Title string `json:"title"`
}

type titleEntry struct {
	ref   string
	title string
}

// TitleIndex provides prefix autocomplete over titles. Every word start of a
// title is indexed, so "pass" finds "Mountain pass".
type TitleIndex struct {
	mu   sync.RWMutex
	trie *patricia.Trie
	keys map[string][]string // ref -> trie keys
}

// NewTitleIndex creates an empty title index
func NewTitleIndex() *TitleIndex {
	return &TitleIndex{
		trie: patricia.NewTrie(),
		keys: make(map[string][]string),
	}
}

// Add indexes title under ref, replacing whatever ref held before
func (t *TitleIndex) Add(ref, title string) {
	title = strings.TrimSpace(title)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeLocked(ref)
	if title == "" {
		return
	}

	entry := titleEntry{ref: ref, title: title}
	lower := strings.ToLower(title)
	var keys []string
	for _, start := range wordStarts(lower) {
		key := lower[start:] + keySep + ref
		if t.trie.Insert(patricia.Prefix(key), entry) {
			keys = append(keys, key)
		}
	}
	t.keys[ref] = keys
}

// Remove drops ref from the index
func (t *TitleIndex) Remove(ref string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(ref)
}

func (t *TitleIndex) removeLocked(ref string) {
	for _, key := range t.keys[ref] {
		t.trie.Delete(patricia.Prefix(key))
	}
	delete(t.keys, ref)
}

// Len returns the number of indexed references
func (t *TitleIndex) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.keys)
}

// Complete returns titles with a word starting with prefix. Titles that start
// with prefix come first, then the rest by similarity to prefix; each
// reference appears once.
func (t *TitleIndex) Complete(prefix string, limit int) []Suggestion {
	prefix = normalize(prefix)
	if prefix == "" {
		return []Suggestion{}
	}

	t.mu.RLock()
	seen := make(map[string]struct{})
	var found []titleEntry
	_ = t.trie.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		entry := item.(titleEntry)
		if _, dup := seen[entry.ref]; dup {
			return nil
		}
		seen[entry.ref] = struct{}{}
		found = append(found, entry)
		return nil
	})
	t.mu.RUnlock()

	type ranked struct {
		entry   titleEntry
		leading bool
		score   float64
	}
	candidates := make([]ranked, len(found))
	for i, e := range found {
		lower := strings.ToLower(e.title)
		candidates[i] = ranked{
			entry:   e,
			leading: strings.HasPrefix(lower, prefix),
			score:   Similarity(prefix, lower),
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.leading != b.leading {
			return a.leading
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if a.entry.title != b.entry.title {
			return a.entry.title < b.entry.title
		}
		return a.entry.ref < b.entry.ref
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Suggestion, len(candidates))
	for i, c := range candidates {
		out[i] = Suggestion{Ref: c.entry.ref, Title: c.entry.title}
	}
	return out
}

// wordStarts returns byte offsets where a letter or digit follows a non-word
// character or the start of s
func wordStarts(s string) []int {
	var starts []int
	inWord := false
	for i, r := range s {
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		if word && !inWord {
			starts = append(starts, i)
		}
		inWord = word
	}
	return starts
}
