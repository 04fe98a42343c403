package index

import (
	"time"

	"github.com/bastiangx/strindex/pkg/bloom"
)

// latencySmoothing weighs the newest sample in the running latency average.
const latencySmoothing = 0.2

// Observer receives every build and search, e.g. to export them to a
// metrics backend. Calls happen on the caller's goroutine.
type Observer interface {
	ObserveBuild(items, skipped int, elapsed time.Duration)
	ObserveSearch(searchType, outcome string, results int, elapsed time.Duration)
}

// Metrics are the cumulative search counters since the index was created.
// Clear and Build do not reset them.
type Metrics struct {
	TotalSearches int64 `json:"totalSearches" msgpack:"totalSearches"`
	// BloomFilterHits counts exact searches the filter rejected outright.
	BloomFilterHits     int64   `json:"bloomFilterHits" msgpack:"bloomFilterHits"`
	ExactSearches       int64   `json:"exactSearches" msgpack:"exactSearches"`
	PrefixSearches      int64   `json:"prefixSearches" msgpack:"prefixSearches"`
	ContainsSearches    int64   `json:"containsSearches" msgpack:"containsSearches"`
	FuzzySearches       int64   `json:"fuzzySearches" msgpack:"fuzzySearches"`
	HybridSearches      int64   `json:"hybridSearches" msgpack:"hybridSearches"`
	FailedSearches      int64   `json:"failedSearches" msgpack:"failedSearches"`
	AverageSearchTimeMs float64 `json:"averageSearchTimeMs" msgpack:"averageSearchTimeMs"`
}

// MetricsSnapshot joins the counters with the current index structure stats.
type MetricsSnapshot struct {
	Metrics
	IndexSize   int         `json:"indexSize" msgpack:"indexSize"`
	WordCount   int         `json:"wordCount" msgpack:"wordCount"`
	FilterStats bloom.Stats `json:"filterStats" msgpack:"filterStats"`
	LastBuild   BuildStats  `json:"lastBuild" msgpack:"lastBuild"`
}

// Metrics returns a consistent copy of the counters and structure stats.
func (ix *Index[T]) Metrics() MetricsSnapshot {
	snap := ix.current.Load()

	ix.statsMu.Lock()
	counters := ix.stats
	ix.statsMu.Unlock()

	return MetricsSnapshot{
		Metrics:     counters,
		IndexSize:   len(snap.records),
		WordCount:   snap.tree.Len(),
		FilterStats: snap.filter.Stats(),
		LastBuild:   snap.build,
	}
}

func (ix *Index[T]) record(tr trace, elapsed time.Duration) {
	ix.statsMu.Lock()
	defer ix.statsMu.Unlock()

	m := &ix.stats
	m.TotalSearches++

	if tr.failed {
		m.FailedSearches++
	} else {
		switch tr.kind {
		case Exact:
			m.ExactSearches++
		case Prefix:
			m.PrefixSearches++
		case Contains:
			m.ContainsSearches++
		}
		if tr.bloomReject {
			m.BloomFilterHits++
		}
		if tr.fuzzy {
			m.FuzzySearches++
		}
		if tr.hybrid {
			m.HybridSearches++
		}
	}

	ms := millis(elapsed)
	if m.TotalSearches == 1 {
		m.AverageSearchTimeMs = ms
		return
	}
	m.AverageSearchTimeMs += latencySmoothing * (ms - m.AverageSearchTimeMs)
}
