/*
Package server implements msgpack IPC for the search index.

The server reads a stream of msgpack maps from stdin and writes one msgpack
map per request to stdout. Requests are handled synchronously, in order,
with timing info included in search responses.

# IPC

Every message carries an "id" that is echoed back. A message without an
"action" is a search:

	{"id": "q1", "q": "hel", "t": "prefix", "l": 10}

Optional fields are "t" (exact, prefix, startsWith, contains, fuzzy), "l"
(result limit), "th" (fuzzy similarity threshold) and "f" (top up sparse
results with fuzzy matches). The response lists hits best first:

	{"id": "q1", "h": [{"k": "hello", "i": "7", "r": 1, "fr": 3}], "c": 1, "t": "prefix", "ms": 0.04}

Management messages name an action:

	{"id": "m1", "action": "metrics"}
	{"id": "m2", "action": "clear"}
	{"id": "m3", "action": "reload"}
	{"id": "m4", "action": "health"}

Failed requests are answered with an ErrorResponse carrying a status code.
*/
package server

import "github.com/bastiangx/strindex/pkg/index"

// Request is the union of every message the server accepts.
type Request struct {
	ID        string  `msgpack:"id"`
	Action    string  `msgpack:"action,omitempty"`
	Query     string  `msgpack:"q,omitempty"`
	Type      string  `msgpack:"t,omitempty"`
	Limit     int     `msgpack:"l,omitempty"`
	Threshold float64 `msgpack:"th,omitempty"`
	Fuzzy     bool    `msgpack:"f,omitempty"`
}

// SearchHit - minimal hit
type SearchHit struct {
	Key        string  `msgpack:"k"`
	ID         string  `msgpack:"i"`
	Text       string  `msgpack:"x,omitempty"`
	Context    string  `msgpack:"ctx,omitempty"`
	Rank       uint16  `msgpack:"r"`
	Frequency  int     `msgpack:"fr"`
	Similarity float64 `msgpack:"s,omitempty"`
	Fuzzy      bool    `msgpack:"z,omitempty"`
}

// SearchResponse - search response
type SearchResponse struct {
	ID        string      `msgpack:"id"`
	Hits      []SearchHit `msgpack:"h"`
	Count     int         `msgpack:"c"`
	Type      string      `msgpack:"t"`
	FromBloom bool        `msgpack:"b,omitempty"`
	UsedFuzzy bool        `msgpack:"f,omitempty"`
	TimeTaken float64     `msgpack:"ms"`
}

// MetricsResponse carries the index counters and structure stats.
type MetricsResponse struct {
	ID      string                `msgpack:"id"`
	Status  string                `msgpack:"status"`
	Metrics index.MetricsSnapshot `msgpack:"metrics"`
}

// ActionResponse answers clear, reload and health.
type ActionResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
	Items  int    `msgpack:"items,omitempty"`
}

// ErrorResponse holds basic error information
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
