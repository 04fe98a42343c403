package index

import (
	"github.com/bastiangx/strindex/pkg/config"
	"github.com/charmbracelet/log"
)

type options struct {
	cfg      config.IndexConfig
	logger   *log.Logger
	observer Observer
}

// Option configures an Index at construction.
type Option func(*options)

func defaultOptions() options {
	return options{cfg: config.DefaultConfig().Index}
}

// WithConfig replaces every index setting at once, typically with the
// [index] section of a loaded config file.
func WithConfig(cfg config.IndexConfig) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithFilterSize sets the number of bits in the Bloom filter.
func WithFilterSize(bits int) Option {
	return func(o *options) {
		o.cfg.FilterSize = bits
	}
}

// WithHashCount sets how many bits each key sets in the Bloom filter.
func WithHashCount(k int) Option {
	return func(o *options) {
		o.cfg.HashCount = k
	}
}

// WithMaxResults sets the result cap used when a search does not give one.
func WithMaxResults(n int) Option {
	return func(o *options) {
		o.cfg.MaxResults = n
	}
}

// WithFuzzyThreshold sets the minimum similarity a fuzzy match needs when a
// search does not give one.
func WithFuzzyThreshold(threshold float64) Option {
	return func(o *options) {
		o.cfg.FuzzyThreshold = threshold
	}
}

// WithHybridThreshold sets the result count below which a search with fuzzy
// enabled is topped up with fuzzy matches. Zero disables the top-up.
func WithHybridThreshold(n int) Option {
	return func(o *options) {
		o.cfg.HybridThreshold = n
	}
}

// WithDefaultSearchType sets the strategy used when a search names none.
func WithDefaultSearchType(t SearchType) Option {
	return func(o *options) {
		o.cfg.DefaultSearchType = string(t)
	}
}

// WithFuzzyFallback turns on fuzzy top-up for every search.
func WithFuzzyFallback(enabled bool) Option {
	return func(o *options) {
		o.cfg.EnableFuzzy = enabled
	}
}

// WithLogger routes index logs to l.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver reports every build and search to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}
