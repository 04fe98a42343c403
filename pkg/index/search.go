package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/bastiangx/strindex/internal/utils"
	"github.com/bastiangx/strindex/pkg/fuzzy"
	"github.com/bastiangx/strindex/pkg/trie"
)

// SearchType selects the strategy a query runs with.
type SearchType string

const (
	Exact    SearchType = "exact"
	Prefix   SearchType = "prefix"
	Contains SearchType = "contains"
	Fuzzy    SearchType = "fuzzy"
)

// ParseSearchType accepts the strategy names case-insensitively.
// "startsWith" is an alias for prefix.
func ParseSearchType(s string) (SearchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return Exact, nil
	case "prefix", "startswith", "starts_with":
		return Prefix, nil
	case "contains":
		return Contains, nil
	case "fuzzy":
		return Fuzzy, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSearchType, s)
}

// SearchOptions tune one search. Zero values fall back to the index config.
type SearchOptions struct {
	Type           string
	MaxResults     int
	FuzzyThreshold float64
	EnableFuzzy    bool
}

// Result is one matched record.
type Result[T any] struct {
	Key        string  `json:"key" msgpack:"key"`
	ID         string  `json:"id" msgpack:"id"`
	Item       T       `json:"item" msgpack:"item"`
	Frequency  int     `json:"frequency" msgpack:"frequency"`
	Similarity float64 `json:"similarity,omitempty" msgpack:"similarity,omitempty"`
	Distance   int     `json:"distance,omitempty" msgpack:"distance,omitempty"`
	Fuzzy      bool    `json:"fuzzy,omitempty" msgpack:"fuzzy,omitempty"`
}

// Response is the envelope every search returns, including failed ones.
type Response[T any] struct {
	Query        string      `json:"query" msgpack:"query"`
	SearchType   SearchType  `json:"searchType" msgpack:"searchType"`
	Items        []Result[T] `json:"items" msgpack:"items"`
	TotalFound   int         `json:"totalFound" msgpack:"totalFound"`
	FromBloom    bool        `json:"fromBloom" msgpack:"fromBloom"`
	UsedFuzzy    bool        `json:"usedFuzzy" msgpack:"usedFuzzy"`
	SearchTimeMs float64     `json:"searchTimeMs" msgpack:"searchTimeMs"`
}

type resolved struct {
	kind      SearchType
	raw       string
	limit     int
	threshold float64
	hybrid    bool
}

// trace records which branches a search took, for metrics.
type trace struct {
	kind        SearchType
	bloomReject bool
	fuzzy       bool
	hybrid      bool
	failed      bool
}

func (ix *Index[T]) resolve(opts SearchOptions) resolved {
	r := resolved{
		kind:      ix.defType,
		raw:       opts.Type,
		limit:     ix.cfg.MaxResults,
		threshold: ix.cfg.FuzzyThreshold,
		hybrid:    opts.EnableFuzzy || ix.cfg.EnableFuzzy,
	}
	if opts.Type != "" {
		r.kind = SearchType(opts.Type)
		if t, err := ParseSearchType(opts.Type); err == nil {
			r.kind = t
		}
	}
	if opts.MaxResults > 0 {
		r.limit = opts.MaxResults
	}
	if opts.FuzzyThreshold > 0 {
		r.threshold = opts.FuzzyThreshold
	}
	return r
}

// Search runs query with the selected strategy. It never panics and never
// returns an error: a failed search is logged, counted and answered with an
// empty envelope.
func (ix *Index[T]) Search(query string, opts SearchOptions) Response[T] {
	start := time.Now()
	r := ix.resolve(opts)

	resp, tr, err := ix.run(ix.current.Load(), utils.NormalizeKey(query), r)
	if err != nil {
		ix.logger.Error("Search failed", "query", query, "type", r.raw, "err", err)
		resp = Response[T]{Items: []Result[T]{}}
		tr = trace{kind: r.kind, failed: true}
	}

	elapsed := time.Since(start)
	resp.Query = query
	resp.SearchType = r.kind
	resp.TotalFound = len(resp.Items)
	resp.SearchTimeMs = millis(elapsed)

	ix.record(tr, elapsed)
	if ix.observer != nil {
		ix.observer.ObserveSearch(string(r.kind), tr.outcome(len(resp.Items)), len(resp.Items), elapsed)
	}
	return resp
}

func (ix *Index[T]) run(snap *snapshot[T], query string, r resolved) (resp Response[T], tr trace, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", errSearchPanicked, p)
		}
	}()

	tr.kind = r.kind
	var items []Result[T]

	switch r.kind {
	case Exact:
		// a negative filter answer is definitive
		if !snap.filter.Test(query) {
			tr.bloomReject = true
			return Response[T]{Items: []Result[T]{}, FromBloom: true}, tr, nil
		}
		items = snap.exact(query)
	case Prefix:
		items = snap.prefix(query, r.limit)
	case Contains:
		items = snap.contains(query, r.limit)
	case Fuzzy:
		tr.fuzzy = true
		items = snap.fuzzy(query, r.threshold, r.limit)
	default:
		return resp, tr, fmt.Errorf("%w: %q", ErrUnknownSearchType, r.raw)
	}

	if r.hybrid && r.kind != Fuzzy && len(items) < ix.cfg.HybridThreshold {
		tr.fuzzy, tr.hybrid = true, true
		items = snap.augment(items, query, r.threshold, r.limit)
	}
	return Response[T]{Items: items, UsedFuzzy: tr.fuzzy}, tr, nil
}

func (t trace) outcome(results int) string {
	switch {
	case t.failed:
		return "error"
	case t.bloomReject:
		return "bloom_negative"
	case results == 0:
		return "miss"
	}
	return "hit"
}

func (s *snapshot[T]) exact(key string) []Result[T] {
	m, ok := s.tree.Get(key)
	if !ok {
		return []Result[T]{}
	}
	return []Result[T]{fromTrie[T](m)}
}

func (s *snapshot[T]) prefix(prefix string, limit int) []Result[T] {
	matches := s.tree.Search(prefix, limit)
	out := make([]Result[T], 0, len(matches))
	for _, m := range matches {
		out = append(out, fromTrie[T](m))
	}
	return out
}

// contains scans records in insertion order and stops at limit.
func (s *snapshot[T]) contains(substr string, limit int) []Result[T] {
	out := []Result[T]{}
	for _, id := range s.order {
		rec := s.records[id]
		if !utils.ContainsFold(rec.key, substr) {
			continue
		}
		out = append(out, Result[T]{
			Key:       rec.key,
			ID:        rec.id,
			Item:      rec.item,
			Frequency: s.frequency(rec.key),
		})
		if len(out) >= limit {
			break
		}
	}
	return out
}

func (s *snapshot[T]) fuzzy(query string, threshold float64, limit int) []Result[T] {
	matches := fuzzy.Search(query, s.candidates, threshold, limit)
	out := make([]Result[T], 0, len(matches))
	for _, m := range matches {
		out = append(out, s.fromFuzzy(m))
	}
	return out
}

// augment tops up primary with fuzzy matches whose id is not already
// present, keeping primary results first and the total within limit.
func (s *snapshot[T]) augment(primary []Result[T], query string, threshold float64, limit int) []Result[T] {
	if len(primary) >= limit {
		return primary
	}
	ids := make([]string, 0, len(primary))
	for _, r := range primary {
		ids = append(ids, r.ID)
	}
	seen := utils.NewSeenFilter(ids...)

	for _, m := range fuzzy.Search(query, s.candidates, threshold, 0) {
		if !seen.ShouldInclude(m.Value.id) {
			continue
		}
		primary = append(primary, s.fromFuzzy(m))
		if len(primary) >= limit {
			break
		}
	}
	return primary
}

func (s *snapshot[T]) fromFuzzy(m fuzzy.Match[*record[T]]) Result[T] {
	rec := m.Value
	return Result[T]{
		Key:        rec.key,
		ID:         rec.id,
		Item:       rec.item,
		Frequency:  s.frequency(rec.key),
		Similarity: m.Similarity,
		Distance:   m.Distance,
		Fuzzy:      true,
	}
}

func fromTrie[T any](m trie.Match) Result[T] {
	rec := m.Payload.(*record[T])
	return Result[T]{
		Key:       m.Key,
		ID:        rec.id,
		Item:      rec.item,
		Frequency: m.Frequency,
	}
}
