package utils

import "strings"

// NormalizeKey folds a search key to the form stored in the index:
// surrounding whitespace trimmed, ASCII and unicode letters lower-cased.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ContainsFold reports whether substr is within s, ignoring case.
// lowerS must already be lower-cased; substr is folded here.
func ContainsFold(lowerS, substr string) bool {
	return strings.Contains(lowerS, strings.ToLower(substr))
}
