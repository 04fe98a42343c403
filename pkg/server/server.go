package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/bastiangx/strindex/internal/utils"
	"github.com/bastiangx/strindex/pkg/config"
	"github.com/bastiangx/strindex/pkg/dictionary"
	"github.com/bastiangx/strindex/pkg/index"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Reloader fetches a fresh batch of entries for the "reload" action.
type Reloader func() ([]dictionary.Entry, error)

// Server handles the IPC for index searches
type Server struct {
	index    *index.Index[dictionary.Entry]
	cfg      config.ServerConfig
	reload   Reloader
	decoder  *msgpack.Decoder
	writer   *bufio.Writer
	encoder  *msgpack.Encoder
	requests atomic.Int64
}

// NewServer creates a search server using stdin/stdout for IPC.
func NewServer(ix *index.Index[dictionary.Entry], cfg config.ServerConfig, reload Reloader) *Server {
	return NewServerWithIO(ix, cfg, reload, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a search server on arbitrary streams.
func NewServerWithIO(ix *index.Index[dictionary.Entry], cfg config.ServerConfig, reload Reloader, r io.Reader, w io.Writer) *Server {
	bw := bufio.NewWriter(w)
	return &Server{
		index:   ix,
		cfg:     cfg,
		reload:  reload,
		decoder: msgpack.NewDecoder(bufio.NewReader(r)),
		writer:  bw,
		encoder: msgpack.NewEncoder(bw),
	}
}

// Requests returns how many messages have been handled.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// Start announces readiness and serves requests until the input ends.
func (s *Server) Start() error {
	log.Debug("Starting Server.")

	s.send(ActionResponse{Status: "ready", Items: s.index.Len()})

	for {
		raw, err := s.decoder.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("Reading from stdin: %v", err)
			return err
		}
		s.requests.Add(1)
		s.handleMessage(raw)
	}
}

// handleMessage decodes one framed message and routes it by action.
func (s *Server) handleMessage(raw msgpack.RawMessage) {
	var req Request
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		log.Errorf("Unmarshaling request: %v", err)
		s.sendError("", "Invalid msgpack request", 400)
		return
	}

	switch req.Action {
	case "", "search":
		s.handleSearch(req)
	case "metrics":
		s.send(MetricsResponse{ID: req.ID, Status: "ok", Metrics: s.index.Metrics()})
	case "clear":
		s.index.Clear()
		s.send(ActionResponse{ID: req.ID, Status: "ok"})
	case "reload":
		s.handleReload(req)
	case "health":
		s.send(ActionResponse{ID: req.ID, Status: "ok", Items: s.index.Len()})
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown action: %s", req.Action), 400)
	}
}

func (s *Server) handleSearch(req Request) {
	if check := utils.CheckQuery(req.Query, s.cfg.MinQuery, s.cfg.MaxQuery); check != utils.QueryOK {
		log.Debugf("Rejected query %q: %s", req.Query, check)
		s.sendError(req.ID, fmt.Sprintf("Invalid query: %s", check), 400)
		return
	}

	limit := req.Limit
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	resp := s.index.Search(req.Query, index.SearchOptions{
		Type:           req.Type,
		MaxResults:     limit,
		FuzzyThreshold: req.Threshold,
		EnableFuzzy:    req.Fuzzy,
	})

	hits := make([]SearchHit, len(resp.Items))
	for i, it := range resp.Items {
		hits[i] = SearchHit{
			Key:        it.Key,
			ID:         it.ID,
			Text:       it.Item.Text,
			Context:    it.Item.Context,
			Rank:       uint16(i + 1),
			Frequency:  it.Frequency,
			Similarity: it.Similarity,
			Fuzzy:      it.Fuzzy,
		}
	}

	s.send(SearchResponse{
		ID:        req.ID,
		Hits:      hits,
		Count:     resp.TotalFound,
		Type:      string(resp.SearchType),
		FromBloom: resp.FromBloom,
		UsedFuzzy: resp.UsedFuzzy,
		TimeTaken: resp.SearchTimeMs,
	})
}

func (s *Server) handleReload(req Request) {
	if s.reload == nil {
		s.sendError(req.ID, "Reload is not configured", 501)
		return
	}
	entries, err := s.reload()
	if err != nil {
		log.Errorf("Reloading dictionary: %v", err)
		s.sendError(req.ID, fmt.Sprintf("Reload failed: %v", err), 500)
		return
	}
	stats := s.index.Build(entries)
	s.send(ActionResponse{ID: req.ID, Status: "ok", Items: stats.ItemCount})
}

// send encodes response and flushes it so the client sees it immediately.
func (s *Server) send(response any) {
	if err := s.encoder.Encode(response); err != nil {
		log.Errorf("Marshaling response: %v", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		log.Errorf("Writing response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
