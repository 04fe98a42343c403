// Package dictionary loads the records a search index is built from.
package dictionary

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bastiangx/strindex/pkg/index"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Entry is one searchable record.
type Entry struct {
	ID      string   `json:"id,omitempty" msgpack:"id,omitempty"`
	Key     string   `json:"key,omitempty" msgpack:"key,omitempty"`
	Text    string   `json:"text,omitempty" msgpack:"text,omitempty"`
	Context string   `json:"context,omitempty" msgpack:"context,omitempty"`
	Tags    []string `json:"tags,omitempty" msgpack:"tags,omitempty"`
}

// SearchKey returns Key, or Text when Key is blank. An entry with neither
// has no key and is skipped by the index.
func (e Entry) SearchKey() string {
	if strings.TrimSpace(e.Key) != "" {
		return e.Key
	}
	return e.Text
}

// Identity returns the entry ID.
func (e Entry) Identity() string {
	return e.ID
}

// Fields is the extractor for indexing entries.
var Fields = index.Extractor[Entry]{
	Key: Entry.SearchKey,
	ID:  Entry.Identity,
}

// LoaderStats provides statistics about the loading process
type LoaderStats struct {
	Files    int
	Entries  int
	Failed   int
	Duration time.Duration
}

// Load reads every entry from one dictionary file.
func Load(path string) ([]Entry, error) {
	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateFileFormat(path, format); err != nil {
		return nil, err
	}

	var entries []Entry
	switch format {
	case FormatJSON:
		entries, err = loadJSON(path)
	case FormatMsgpack:
		entries, err = loadMsgpack(path)
	case FormatText:
		entries, err = loadText(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	log.Debugf("Loaded %d entries from %s (%s)", len(entries), path, format)
	return entries, nil
}

// LoadPath loads a single file, or every supported file in a directory in
// name order. Unreadable files in a directory are logged and skipped.
func LoadPath(path string) ([]Entry, LoaderStats, error) {
	start := time.Now()
	var stats LoaderStats

	info, err := os.Stat(path)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		entries, err := Load(path)
		if err != nil {
			return nil, stats, err
		}
		stats.Files, stats.Entries, stats.Duration = 1, len(entries), time.Since(start)
		return entries, stats, nil
	}

	files, err := availableFiles(path)
	if err != nil {
		return nil, stats, err
	}
	if len(files) == 0 {
		return nil, stats, fmt.Errorf("no dictionary files found in %s", path)
	}

	var all []Entry
	for _, file := range files {
		entries, err := Load(file)
		if err != nil {
			log.Warnf("Skipping dictionary file %s: %v", file, err)
			stats.Failed++
			continue
		}
		all = append(all, entries...)
		stats.Files++
	}
	stats.Entries = len(all)
	stats.Duration = time.Since(start)

	if stats.Files == 0 {
		return nil, stats, fmt.Errorf("none of the %d dictionary files in %s could be loaded", len(files), path)
	}
	return all, stats, nil
}

// availableFiles scans dir for files with a supported extension.
func availableFiles(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for dictionary files: %w", err)
	}

	var files []string
	for _, de := range dirEntries {
		if de.IsDir() || !IsSupported(de.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, de.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func loadJSON(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func loadMsgpack(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	if err := msgpack.NewDecoder(bufio.NewReader(file)).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadText reads one key per line. Blank lines and lines starting with #
// are ignored; a tab separates an optional id from the key.
func loadText(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if id, key, ok := strings.Cut(line, "\t"); ok {
			entries = append(entries, Entry{ID: strings.TrimSpace(id), Key: strings.TrimSpace(key)})
			continue
		}
		entries = append(entries, Entry{Key: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
