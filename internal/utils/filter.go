package utils

import (
	"strings"
	"unicode"
)

// QueryCheck is the outcome of validating a raw query before it reaches the index.
type QueryCheck int

const (
	QueryOK QueryCheck = iota
	QueryEmpty
	QueryTooShort
	QueryTooLong
	QueryControlChars
)

func (c QueryCheck) String() string {
	switch c {
	case QueryOK:
		return "ok"
	case QueryEmpty:
		return "query is empty"
	case QueryTooShort:
		return "query is too short"
	case QueryTooLong:
		return "query is too long"
	case QueryControlChars:
		return "query contains control characters"
	default:
		return "unknown"
	}
}

// CheckQuery validates a query's length (in bytes, after trimming) against
// [minLen, maxLen]. A maxLen <= 0 disables the upper bound.
func CheckQuery(q string, minLen, maxLen int) QueryCheck {
	q = strings.TrimSpace(q)
	if q == "" {
		return QueryEmpty
	}
	if len(q) < minLen {
		return QueryTooShort
	}
	if maxLen > 0 && len(q) > maxLen {
		return QueryTooLong
	}
	for _, r := range q {
		if unicode.IsControl(r) {
			return QueryControlChars
		}
	}
	return QueryOK
}
