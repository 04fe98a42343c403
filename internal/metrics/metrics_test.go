package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bastiangx/strindex/internal/logger"
	"github.com/bastiangx/strindex/pkg/index"
	"github.com/prometheus/client_golang/prometheus"
)

// counterValue finds the sample of family name whose labels all match.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestObserverWiring(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	ix, err := index.New(index.Extractor[string]{Key: func(s string) string { return s }},
		index.WithObserver(m), index.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	ix.Build([]string{"hello", "help", "", "world"})

	ix.Search("hel", index.SearchOptions{Type: "prefix"})
	ix.Search("hel", index.SearchOptions{Type: "prefix"})
	ix.Search("zzqx9notpresent", index.SearchOptions{Type: "exact"})
	ix.Search("x", index.SearchOptions{Type: "bogus"})

	testCases := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"strindex_searches_total", map[string]string{"type": "prefix", "outcome": "hit"}, 2},
		{"strindex_searches_total", map[string]string{"type": "exact", "outcome": "bloom_negative"}, 1},
		{"strindex_searches_total", map[string]string{"type": "bogus", "outcome": "error"}, 1},
		{"strindex_builds_total", nil, 1},
		{"strindex_items_indexed", nil, 3},
		{"strindex_items_skipped_total", nil, 1},
	}
	for _, tc := range testCases {
		if got := counterValue(t, reg, tc.name, tc.labels); got != tc.want {
			t.Errorf("%s%v = %v, want %v", tc.name, tc.labels, got, tc.want)
		}
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveSearch("fuzzy", "miss", 0, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(body), `strindex_searches_total{outcome="miss",type="fuzzy"} 1`) {
		t.Errorf("scrape output missing search counter:\n%s", body)
	}
}
