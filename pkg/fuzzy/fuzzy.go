// Package fuzzy scores typo-tolerant matches with Levenshtein edit distance.
//
// Strings are compared byte by byte after lower-casing; no unicode
// segmentation is attempted.
package fuzzy

import (
	"sort"
	"strings"
)

// Candidate is one searchable key with the value it stands for.
type Candidate[T any] struct {
	Key   string
	Value T
}

// Match is a candidate that scored at or above the threshold.
type Match[T any] struct {
	Candidate[T]
	Similarity float64
	Distance   int
}

// Distance returns the minimum number of single-byte insertions, deletions
// or substitutions needed to turn a into b.
func Distance(a, b string) int {
	// rows follow b, columns follow a
	matrix := make([][]int, len(b)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(a)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(a); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(b); i++ {
		for j := 1; j <= len(a); j++ {
			cost := 1
			if b[i-1] == a[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(b)][len(a)]
}

// Similarity maps the edit distance into [0, 1], where 1 means identical.
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	return float64(maxLen-Distance(a, b)) / float64(maxLen)
}

// Search scores every candidate against query and keeps those whose
// similarity is at least threshold, best first. A limit <= 0 keeps all.
func Search[T any](query string, candidates []Candidate[T], threshold float64, limit int) []Match[T] {
	lowerQuery := strings.ToLower(query)
	matches := []Match[T]{}

	for _, c := range candidates {
		lowerKey := strings.ToLower(c.Key)
		distance := Distance(lowerQuery, lowerKey)

		maxLen := max(len(lowerQuery), len(lowerKey))
		similarity := 1.0
		if maxLen > 0 {
			similarity = float64(maxLen-distance) / float64(maxLen)
		}

		if similarity < threshold {
			continue
		}
		matches = append(matches, Match[T]{
			Candidate:  c,
			Similarity: similarity,
			Distance:   distance,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
