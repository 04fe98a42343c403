// Package index builds the composite search index over caller records and
// routes each query to the cheapest structure that can answer it.
//
// An Index owns one Bloom filter, one prefix tree and the raw id→record map.
// Build replaces all three at once; there is no per-item update. Searches
// read an immutable snapshot, so they may run concurrently with Build and
// Clear and never observe a half-built index.
package index

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/strindex/internal/logger"
	"github.com/bastiangx/strindex/internal/utils"
	"github.com/bastiangx/strindex/pkg/bloom"
	"github.com/bastiangx/strindex/pkg/config"
	"github.com/bastiangx/strindex/pkg/fuzzy"
	"github.com/bastiangx/strindex/pkg/trie"
	"github.com/charmbracelet/log"
)

var (
	// ErrInvalidConfig is returned by New for unusable capacities or defaults.
	ErrInvalidConfig = config.ErrInvalidConfig
	// ErrUnknownSearchType is reported for search types other than
	// exact, prefix (startsWith), contains and fuzzy.
	ErrUnknownSearchType = errors.New("unknown search type")
	errSearchPanicked    = errors.New("search panicked")
)

// Extractor tells the index how to read a record. Key is required; ID is
// optional and falls back to the normalized key when nil or empty.
type Extractor[T any] struct {
	Key func(T) string
	ID  func(T) string
}

// BuildStats summarizes one Build call.
type BuildStats struct {
	ItemCount   int         `json:"itemCount" msgpack:"itemCount"`
	Skipped     int         `json:"skipped" msgpack:"skipped"`
	UniqueKeys  int         `json:"uniqueKeys" msgpack:"uniqueKeys"`
	BuildTimeMs float64     `json:"buildTimeMs" msgpack:"buildTimeMs"`
	FilterStats bloom.Stats `json:"filterStats" msgpack:"filterStats"`
}

type record[T any] struct {
	key  string
	id   string
	item T
}

// snapshot is one immutable generation of the index once published.
type snapshot[T any] struct {
	filter     *bloom.Filter
	tree       *trie.Tree
	records    map[string]*record[T]
	order      []string
	candidates []fuzzy.Candidate[*record[T]]
	build      BuildStats
}

// Index is the search orchestrator. Create it with New.
type Index[T any] struct {
	extract  Extractor[T]
	cfg      config.IndexConfig
	defType  SearchType
	logger   *log.Logger
	observer Observer

	// mu serializes Build and Clear; searches never take it.
	mu      sync.Mutex
	current atomic.Pointer[snapshot[T]]

	statsMu sync.Mutex
	stats   Metrics
}

// New creates an empty index. Configuration is validated eagerly and any
// problem is reported as ErrInvalidConfig.
func New[T any](extract Extractor[T], opts ...Option) (*Index[T], error) {
	if extract.Key == nil {
		return nil, fmt.Errorf("%w: a key extractor is required", ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	defType, err := ParseSearchType(o.cfg.DefaultSearchType)
	if err != nil {
		return nil, fmt.Errorf("%w: default_search_type: %v", ErrInvalidConfig, err)
	}
	if o.logger == nil {
		o.logger = logger.New("index")
	}

	ix := &Index[T]{
		extract:  extract,
		cfg:      o.cfg,
		defType:  defType,
		logger:   o.logger,
		observer: o.observer,
	}
	ix.current.Store(ix.newSnapshot(0))
	return ix, nil
}

// Config returns the effective index configuration.
func (ix *Index[T]) Config() config.IndexConfig {
	return ix.cfg
}

func (ix *Index[T]) newSnapshot(capacity int) *snapshot[T] {
	return &snapshot[T]{
		filter:  bloom.MustNew(uint(ix.cfg.FilterSize), uint(ix.cfg.HashCount)),
		tree:    trie.New(),
		records: make(map[string]*record[T], capacity),
		order:   make([]string, 0, capacity),
	}
}

// Build indexes items from scratch and publishes the result, replacing
// whatever was indexed before. Items whose key is empty after trimming are
// skipped and counted.
func (ix *Index[T]) Build(items []T) BuildStats {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	start := time.Now()
	snap := ix.newSnapshot(len(items))
	skipped := 0

	for i, item := range items {
		key := utils.NormalizeKey(ix.extract.Key(item))
		if key == "" {
			skipped++
			ix.logger.Warn("Skipping item without a search key", "position", i)
			continue
		}

		id := key
		if ix.extract.ID != nil {
			if v := strings.TrimSpace(ix.extract.ID(item)); v != "" {
				id = v
			}
		}
		snap.add(key, id, item)
	}
	snap.seal()

	elapsed := time.Since(start)
	snap.build = BuildStats{
		ItemCount:   len(items) - skipped,
		Skipped:     skipped,
		UniqueKeys:  snap.tree.Len(),
		BuildTimeMs: millis(elapsed),
		FilterStats: snap.filter.Stats(),
	}
	ix.current.Store(snap)

	if ix.observer != nil {
		ix.observer.ObserveBuild(snap.build.ItemCount, skipped, elapsed)
	}
	ix.logger.Info("Index built",
		"items", snap.build.ItemCount,
		"skipped", skipped,
		"keys", snap.build.UniqueKeys,
		"took", elapsed)
	if skipped > 0 {
		ix.logger.Warnf("%d of %d items had no usable key", skipped, len(items))
	}
	return snap.build
}

// Clear drops everything indexed. Capacities stay as configured.
func (ix *Index[T]) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.current.Store(ix.newSnapshot(0))
	ix.logger.Debug("Index cleared")
}

// Len returns the number of records in the raw map.
func (ix *Index[T]) Len() int {
	return len(ix.current.Load().records)
}

func (s *snapshot[T]) add(key, id string, item T) {
	rec := &record[T]{key: key, id: id, item: item}
	if _, exists := s.records[id]; !exists {
		s.order = append(s.order, id)
	}
	s.records[id] = rec

	s.filter.Add(key)
	s.tree.Insert(key, rec)
}

// seal fixes the candidate list used by the fuzzy strategy.
func (s *snapshot[T]) seal() {
	s.candidates = make([]fuzzy.Candidate[*record[T]], 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		s.candidates = append(s.candidates, fuzzy.Candidate[*record[T]]{Key: rec.key, Value: rec})
	}
}

func (s *snapshot[T]) frequency(key string) int {
	if m, ok := s.tree.Get(key); ok {
		return m.Frequency
	}
	return 0
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
