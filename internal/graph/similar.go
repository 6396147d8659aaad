package graph

import (
	"sort"
	"strings"
)

// minSimilarity is the normalized edit-distance score below which an
// identifier is not offered as a suggestion.
const minSimilarity = 0.6

// Similar returns up to n block identifiers that look like id, best match
// first. It backs "did you mean" hints for unknown identifiers.
func (g *Graph) Similar(id string, n int) []string {
	type scored struct {
		id    string
		score float64
	}
	want := strings.ToUpper(id)
	var cands []scored
	g.ids.Scan(func(other string, _ int) bool {
		if s := normalizedLevenshtein(want, strings.ToUpper(other)); s >= minSimilarity {
			cands = append(cands, scored{other, s})
		}
		return true
	})
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
	if len(cands) > n {
		cands = cands[:n]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.id
	}
	return out
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// normalizedLevenshtein returns 1.0 - (distance / maxLen), so 1.0 = identical.
func normalizedLevenshtein(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(a, b))/float64(maxLen)
}
