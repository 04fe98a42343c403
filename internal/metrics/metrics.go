// Package metrics exports index activity as Prometheus collectors and serves
// them for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "strindex"

// Metrics holds all Prometheus collectors for the index. It satisfies
// index.Observer.
type Metrics struct {
	SearchesTotal *prometheus.CounterVec
	SearchLatency *prometheus.HistogramVec
	SearchResults prometheus.Histogram
	BuildsTotal   prometheus.Counter
	BuildDuration prometheus.Histogram
	ItemsIndexed  prometheus.Gauge
	ItemsSkipped  prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total searches by strategy and outcome (hit, miss, bloom_negative, error).",
			},
			[]string{"type", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_latency_seconds",
				Help:      "Search latency in seconds by strategy.",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"type"},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results_count",
				Help:      "Number of results returned per search.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		BuildsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Total index builds.",
			},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Index build duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		ItemsIndexed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "items_indexed",
				Help:      "Items accepted by the most recent build.",
			},
		),
		ItemsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_skipped_total",
				Help:      "Items skipped by builds because they had no search key.",
			},
		),
	}

	reg.MustRegister(
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchResults,
		m.BuildsTotal,
		m.BuildDuration,
		m.ItemsIndexed,
		m.ItemsSkipped,
	)

	return m
}

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(searchType, outcome string, results int, elapsed time.Duration) {
	m.SearchesTotal.WithLabelValues(searchType, outcome).Inc()
	m.SearchLatency.WithLabelValues(searchType).Observe(elapsed.Seconds())
	m.SearchResults.Observe(float64(results))
}

// ObserveBuild records one build.
func (m *Metrics) ObserveBuild(items, skipped int, elapsed time.Duration) {
	m.BuildsTotal.Inc()
	m.BuildDuration.Observe(elapsed.Seconds())
	m.ItemsIndexed.Set(float64(items))
	m.ItemsSkipped.Add(float64(skipped))
}

// Handler returns the scrape handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
