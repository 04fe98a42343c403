// Package trie is the prefix tree of the index: normalized keys mapped to
// payloads, with subtree enumeration ranked by how often a key was inserted.
package trie

import (
	"errors"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// errLimitReached stops a subtree walk once enough terminals were collected.
var errLimitReached = errors.New("trie: limit reached")

// Match is a terminal key found in the tree.
type Match struct {
	Key       string `json:"key" msgpack:"key"`
	Payload   any    `json:"payload" msgpack:"payload"`
	Frequency int    `json:"frequency" msgpack:"frequency"`
}

// entry is what the patricia trie stores for each terminal key.
type entry struct {
	payload   any
	frequency int
}

// Tree wraps a patricia trie keyed by lower-cased strings.
// It is not safe for concurrent mutation.
type Tree struct {
	root  *patricia.Trie
	words int
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: patricia.NewTrie()}
}

// Insert stores payload under key. Inserting the same normalized key again
// replaces the payload and bumps its frequency.
func (t *Tree) Insert(key string, payload any) {
	lowerKey := patricia.Prefix(strings.ToLower(key))

	if item := t.root.Get(lowerKey); item != nil {
		e := item.(*entry)
		e.payload = payload
		e.frequency++
		return
	}

	t.root.Insert(lowerKey, &entry{payload: payload, frequency: 1})
	t.words++
}

// Get looks up one exact key.
func (t *Tree) Get(key string) (Match, bool) {
	lowerKey := strings.ToLower(key)
	item := t.root.Get(patricia.Prefix(lowerKey))
	if item == nil {
		return Match{}, false
	}
	e := item.(*entry)
	return Match{Key: lowerKey, Payload: e.payload, Frequency: e.frequency}, true
}

// Search returns terminal keys under prefix, highest frequency first.
// Collection stops once limit terminals were seen; limit <= 0 collects the
// whole subtree. A prefix with no path in the tree yields an empty slice.
func (t *Tree) Search(prefix string, limit int) []Match {
	lowerPrefix := strings.ToLower(prefix)
	matches := []Match{}

	err := t.root.VisitSubtree(patricia.Prefix(lowerPrefix), func(p patricia.Prefix, item patricia.Item) error {
		e, ok := item.(*entry)
		if !ok {
			log.Errorf("Unknown item type: %T for key %s", item, p)
			return nil
		}

		matches = append(matches, Match{
			Key:       string(p),
			Payload:   e.payload,
			Frequency: e.frequency,
		})

		if limit > 0 && len(matches) >= limit {
			return errLimitReached
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		log.Errorf("Error visiting trie subtree: %v", err)
		return []Match{}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Frequency != matches[j].Frequency {
			return matches[i].Frequency > matches[j].Frequency
		}
		return matches[i].Key < matches[j].Key
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Len returns the number of distinct keys.
func (t *Tree) Len() int {
	return t.words
}
