package server

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bastiangx/strindex/internal/logger"
	"github.com/bastiangx/strindex/pkg/config"
	"github.com/bastiangx/strindex/pkg/dictionary"
	"github.com/bastiangx/strindex/pkg/index"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

var entries = []dictionary.Entry{
	{ID: "1", Key: "hello", Text: "Hello there", Context: "greeting"},
	{ID: "2", Key: "help", Text: "Help me"},
	{ID: "3", Key: "world"},
}

// runServer feeds msgs to a fresh server and returns a decoder over its
// output, positioned after the ready message.
func runServer(t *testing.T, reload Reloader, msgs ...any) (*msgpack.Decoder, *index.Index[dictionary.Entry]) {
	t.Helper()

	ix, err := index.New(dictionary.Fields, index.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	ix.Build(entries)

	var in, out bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			t.Fatal(err)
		}
	}

	srv := NewServerWithIO(ix, config.DefaultConfig().Server, reload, &in, &out)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start returned %v", err)
	}
	if got := srv.Requests(); got != int64(len(msgs)) {
		t.Errorf("handled %d requests, want %d", got, len(msgs))
	}

	dec := msgpack.NewDecoder(&out)
	var ready ActionResponse
	if err := dec.Decode(&ready); err != nil || ready.Status != "ready" || ready.Items != 3 {
		t.Fatalf("bad ready message %+v: %v", ready, err)
	}
	return dec, ix
}

func TestSearchRoundTrip(t *testing.T) {
	dec, _ := runServer(t, nil,
		Request{ID: "q1", Query: "hel", Type: "prefix", Limit: 5},
		Request{ID: "q2", Query: "zzqx9notpresent", Type: "exact"},
	)

	var first SearchResponse
	if err := dec.Decode(&first); err != nil {
		t.Fatal(err)
	}
	if first.ID != "q1" || first.Count != 2 || first.Type != "prefix" {
		t.Fatalf("unexpected response %+v", first)
	}
	for i, h := range first.Hits {
		if h.Rank != uint16(i+1) {
			t.Errorf("hit %d has rank %d", i, h.Rank)
		}
	}
	if first.Hits[0].Key == "hello" && first.Hits[0].Context != "greeting" {
		t.Errorf("entry fields not carried: %+v", first.Hits[0])
	}

	var second SearchResponse
	if err := dec.Decode(&second); err != nil {
		t.Fatal(err)
	}
	if !second.FromBloom || second.Count != 0 || len(second.Hits) != 0 {
		t.Errorf("expected filter rejection, got %+v", second)
	}
}

func TestFuzzyRequest(t *testing.T) {
	dec, _ := runServer(t, nil, Request{ID: "f", Query: "helo", Type: "fuzzy", Threshold: 0.7})

	var resp SearchResponse
	if err := dec.Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.UsedFuzzy || len(resp.Hits) == 0 || resp.Hits[0].Key != "hello" || !resp.Hits[0].Fuzzy {
		t.Errorf("unexpected fuzzy response %+v", resp)
	}
}

func TestMetricsAction(t *testing.T) {
	dec, _ := runServer(t, nil,
		Request{ID: "q", Query: "wor"},
		Request{ID: "m", Action: "metrics"},
	)

	var search SearchResponse
	if err := dec.Decode(&search); err != nil {
		t.Fatal(err)
	}
	var resp MetricsResponse
	if err := dec.Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "m" || resp.Status != "ok" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Metrics.TotalSearches != 1 || resp.Metrics.PrefixSearches != 1 {
		t.Errorf("counters not carried: %+v", resp.Metrics.Metrics)
	}
	if resp.Metrics.IndexSize != 3 || resp.Metrics.FilterStats.ItemCount != 3 {
		t.Errorf("structure stats not carried: %+v", resp.Metrics)
	}
}

func TestClearAndReload(t *testing.T) {
	reload := func() ([]dictionary.Entry, error) {
		return []dictionary.Entry{{Key: "fresh"}}, nil
	}
	dec, ix := runServer(t, reload,
		Request{ID: "c", Action: "clear"},
		Request{ID: "r", Action: "reload"},
	)

	var cleared, reloaded ActionResponse
	if err := dec.Decode(&cleared); err != nil || cleared.Status != "ok" {
		t.Fatalf("clear: %+v %v", cleared, err)
	}
	if err := dec.Decode(&reloaded); err != nil || reloaded.Items != 1 {
		t.Fatalf("reload: %+v %v", reloaded, err)
	}
	if ix.Len() != 1 {
		t.Errorf("index holds %d entries after reload", ix.Len())
	}
}

func TestReloadFailure(t *testing.T) {
	reload := func() ([]dictionary.Entry, error) {
		return nil, errors.New("disk on fire")
	}
	dec, ix := runServer(t, reload, Request{ID: "r", Action: "reload"})

	var resp ErrorResponse
	if err := dec.Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "r" || resp.Code != 500 {
		t.Errorf("unexpected response %+v", resp)
	}
	if ix.Len() != 3 {
		t.Error("a failed reload must keep the current index")
	}
}

func TestBadRequests(t *testing.T) {
	testCases := []struct {
		name string
		msg  any
		id   string
		code int
	}{
		{"unknown action", Request{ID: "u", Action: "explode"}, "u", 400},
		{"empty query", Request{ID: "e", Query: "   "}, "e", 400},
		{"wrong field type", map[string]any{"id": "w", "l": "ten"}, "", 400},
		{"reload not configured", Request{ID: "n", Action: "reload"}, "n", 501},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dec, _ := runServer(t, nil, tc.msg)

			var resp ErrorResponse
			if err := dec.Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.ID != tc.id || resp.Code != tc.code || resp.Error == "" {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	}
}

func TestLimitIsClamped(t *testing.T) {
	dec, _ := runServer(t, nil, Request{ID: "l", Query: "o", Type: "contains", Limit: 100000})

	var resp SearchResponse
	if err := dec.Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Errorf("expected hello and world, got %+v", resp.Hits)
	}
}
