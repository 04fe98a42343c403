// Package cli handles cmd line input and searches for DBG and testing various features
package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bastiangx/strindex/internal/utils"
	"github.com/bastiangx/strindex/pkg/config"
	"github.com/bastiangx/strindex/pkg/dictionary"
	"github.com/bastiangx/strindex/pkg/index"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	fuzzyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
)

// InputHandler reads queries from stdin and prints what the index returns.
// Lines starting with ':' are commands that change the search mode.
type InputHandler struct {
	index        *index.Index[dictionary.Entry]
	minLength    int
	maxLength    int
	limit        int
	showTimings  bool
	searchType   index.SearchType
	fuzzy        bool
	requestCount int
	in           io.Reader
	out          *log.Logger
}

// NewInputHandler handles initialization of the InputHandler from the cli
// and server sections of the config.
func NewInputHandler(ix *index.Index[dictionary.Entry], cli config.CliConfig, srv config.ServerConfig) *InputHandler {
	cfg := ix.Config()
	searchType, err := index.ParseSearchType(cfg.DefaultSearchType)
	if err != nil {
		searchType = index.Prefix
	}
	return &InputHandler{
		index:       ix,
		minLength:   srv.MinQuery,
		maxLength:   srv.MaxQuery,
		limit:       cli.DefaultLimit,
		showTimings: cli.ShowTimings,
		searchType:  searchType,
		fuzzy:       cfg.EnableFuzzy,
		in:          os.Stdin,
		out:         log.Default(),
	}
}

// SetIO redirects input and output, mainly for tests.
func (h *InputHandler) SetIO(in io.Reader, out *log.Logger) {
	h.in, h.out = in, out
}

// Start begins the interface loop. It returns nil when input ends or the
// user types :q.
func (h *InputHandler) Start() error {
	h.out.Print("strindex CLI [BETA]")
	h.out.Print("type a query and press Enter, :help for commands (Ctrl+C to exit):")

	reader := bufio.NewReader(h.in)
	for {
		h.out.Print("> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			if quit := h.handleLine(line); quit {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (h *InputHandler) handleLine(line string) (quit bool) {
	if strings.HasPrefix(line, ":") {
		return h.handleCommand(strings.Fields(line[1:]))
	}
	h.handleQuery(line)
	return false
}

func (h *InputHandler) handleCommand(args []string) (quit bool) {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "q", "quit", "exit":
		return true
	case "help":
		h.out.Print("commands: :type <exact|prefix|contains|fuzzy>  :fuzzy <on|off>  :limit <n>  :metrics  :clear  :q")
	case "type":
		if len(args) < 2 {
			h.out.Printf("current type: %s", h.searchType)
			return false
		}
		t, err := index.ParseSearchType(args[1])
		if err != nil {
			h.out.Errorf("%v", err)
			return false
		}
		h.searchType = t
		h.out.Printf("search type set to %s", t)
	case "fuzzy":
		if len(args) < 2 {
			h.out.Printf("fuzzy top-up: %t", h.fuzzy)
			return false
		}
		h.fuzzy = args[1] == "on" || args[1] == "true"
		h.out.Printf("fuzzy top-up: %t", h.fuzzy)
	case "limit":
		if len(args) < 2 {
			h.out.Printf("current limit: %d", h.limit)
			return false
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			h.out.Errorf("Invalid limit: %s", args[1])
			return false
		}
		h.limit = n
		h.out.Printf("limit set to %d", n)
	case "metrics":
		h.printMetrics()
	case "clear":
		h.index.Clear()
		h.out.Print("index cleared")
	default:
		h.out.Errorf("Unknown command: %s", args[0])
	}
	return false
}

// handleQuery validates the query length and content, runs it and prints
// the results.
func (h *InputHandler) handleQuery(query string) {
	h.requestCount++

	if check := utils.CheckQuery(query, h.minLength, h.maxLength); check != utils.QueryOK {
		h.out.Errorf("Rejected '%s': %s", query, check)
		return
	}

	log.Debug("Processing request for", "query", query, "type", h.searchType)
	resp := h.index.Search(query, index.SearchOptions{
		Type:        string(h.searchType),
		MaxResults:  h.limit,
		EnableFuzzy: h.fuzzy,
	})

	if resp.TotalFound == 0 {
		if resp.FromBloom {
			h.out.Warnf("No results for '%s' (rejected by bloom filter)", query)
		} else {
			h.out.Warnf("No results for '%s'", query)
		}
		return
	}

	h.out.Printf("Found %d results for '%s' (%s):", resp.TotalFound, query, resp.SearchType)
	for i, it := range resp.Items {
		key := keyStyle.Render(it.Key)
		if it.Fuzzy {
			key = fuzzyStyle.Render(it.Key) + " ~" + strconv.FormatFloat(it.Similarity, 'f', 2, 64)
		}
		h.out.Printf("%2d. %-40s (freq: %8s) %s", i+1, key, utils.FormatWithCommas(it.Frequency), it.Item.Context)
	}
	if h.showTimings {
		h.out.Printf("took %s", utils.FormatMillis(resp.SearchTimeMs))
	}
}

func (h *InputHandler) printMetrics() {
	m := h.index.Metrics()
	h.out.Printf("entries: %s  keys: %s  searches: %s  failed: %s",
		utils.FormatWithCommas(m.IndexSize),
		utils.FormatWithCommas(m.WordCount),
		utils.FormatWithCommas(int(m.TotalSearches)),
		utils.FormatWithCommas(int(m.FailedSearches)))
	h.out.Printf("exact: %d  prefix: %d  contains: %d  fuzzy: %d  hybrid: %d  bloom negatives: %d",
		m.ExactSearches, m.PrefixSearches, m.ContainsSearches, m.FuzzySearches, m.HybridSearches, m.BloomFilterHits)
	h.out.Printf("filter: %s bits, k=%d, load %.4f, est. fp %.6f",
		utils.FormatWithCommas(int(m.FilterStats.Size)), m.FilterStats.HashCount,
		m.FilterStats.LoadFactor, m.FilterStats.EstimatedFalsePositiveRate)
	h.out.Printf("avg search: %s", utils.FormatMillis(m.AverageSearchTimeMs))
}
