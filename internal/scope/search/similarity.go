package search

import (
	"strings"

	"github.com/hbollon/go-edlib"
)

// Scorer returns a closeness score in [0, 1] for two strings
type Scorer func(a, b string) float64

const (
	containmentBase   = 0.6
	containmentWeight = 0.4
	prefixWeight      = 0.4
	overlapWeight     = 0.6
)

// Similarity scores two strings after trimming and lower-casing them.
//
// Exact matches score 1. When one string contains the other the score is
// 0.6 + 0.4*(shorter/longer). Otherwise the score is 0.4*prefix + 0.6*overlap,
// where prefix is the length of the common leading run and overlap the
// multiset intersection of characters, both divided by the longer length.
// Lengths count runes.
//
// Containment scores at least 0.6 and a pair with no common leading run at
// most 0.6, but a near miss sharing a long prefix can outscore a short string
// contained in a long one.
func Similarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))

	if score, ok := containment(a, b, len(ra), len(rb)); ok {
		return score
	}

	prefix := 0
	for prefix < len(ra) && prefix < len(rb) && ra[prefix] == rb[prefix] {
		prefix++
	}

	remaining := make(map[rune]int, len(rb))
	for _, r := range rb {
		remaining[r]++
	}
	overlap := 0
	for _, r := range ra {
		if remaining[r] > 0 {
			remaining[r]--
			overlap++
		}
	}

	return float64(prefix)/float64(maxLen)*prefixWeight +
		float64(overlap)/float64(maxLen)*overlapWeight
}

// EditDistance scores like Similarity for exact and containment matches but
// uses normalized Levenshtein similarity, scaled below the containment tier,
// for everything else.
func EditDistance(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == b {
		return 1
	}

	la, lb := len([]rune(a)), len([]rune(b))
	if score, ok := containment(a, b, la, lb); ok {
		return score
	}
	if la == 0 || lb == 0 {
		return 0
	}

	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return float64(sim) * containmentBase
}

// containment scores a and b when one is a non-empty substring of the other
func containment(a, b string, la, lb int) (float64, bool) {
	if la == 0 || lb == 0 {
		return 0, false
	}
	if !strings.Contains(a, b) && !strings.Contains(b, a) {
		return 0, false
	}
	shorter, longer := min(la, lb), max(la, lb)
	return containmentBase + containmentWeight*float64(shorter)/float64(longer), true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
