package dictionary

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

var sample = []Entry{
	{ID: "1", Key: "hello", Context: "greeting"},
	{ID: "2", Text: "Help Desk"},
	{ID: "3", Key: "world", Text: "ignored text", Tags: []string{"noun"}},
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSearchKey(t *testing.T) {
	testCases := []struct {
		entry    Entry
		expected string
	}{
		{Entry{Key: "key", Text: "text"}, "key"},
		{Entry{Key: "  ", Text: "text"}, "text"},
		{Entry{Text: "text"}, "text"},
		{Entry{ID: "only-id"}, ""},
	}

	for _, tc := range testCases {
		if got := tc.entry.SearchKey(); got != tc.expected {
			t.Errorf("SearchKey(%+v) = %q, want %q", tc.entry, got, tc.expected)
		}
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.json")
	data, err := json.Marshal(sample)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, data)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, sample) {
		t.Errorf("got %+v, want %+v", got, sample)
	}
}

func TestLoadMsgpack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.msgpack")
	data, err := msgpack.Marshal(sample)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, data)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, sample) {
		t.Errorf("got %+v, want %+v", got, sample)
	}
}

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	writeFile(t, path, []byte("# comment\nhello\n\n  world  \n42\tanswer\n"))

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []Entry{{Key: "hello"}, {Key: "world"}, {ID: "42", Key: "answer"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.csv")
	writeFile(t, path, []byte("a,b"))

	if _, err := Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	writeFile(t, path, []byte("{not json"))

	if _, err := Load(path); err == nil {
		t.Error("expected a decode error")
	}
}

func TestLoadPathDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("alpha\nbeta\n"))
	writeFile(t, filepath.Join(dir, "b.json"), []byte(`[{"id":"g","key":"gamma"}]`))
	writeFile(t, filepath.Join(dir, "c.json"), []byte("garbage"))
	writeFile(t, filepath.Join(dir, "notes.md"), []byte("ignored"))

	entries, stats, err := LoadPath(dir)
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}
	if len(entries) != 3 || entries[2].Key != "gamma" {
		t.Errorf("unexpected entries: %+v", entries)
	}
	if stats.Files != 2 || stats.Failed != 1 || stats.Entries != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestLoadPathEmptyDirectory(t *testing.T) {
	if _, _, err := LoadPath(t.TempDir()); err == nil {
		t.Error("expected an error for a directory without dictionaries")
	}
}

func TestDetectFileFormat(t *testing.T) {
	testCases := map[string]FileFormat{
		"a.json":    FormatJSON,
		"a.JSON":    FormatJSON,
		"a.msgpack": FormatMsgpack,
		"a.mpk":     FormatMsgpack,
		"a.txt":     FormatText,
		"a.bin":     FormatUnknown,
	}
	for name, want := range testCases {
		got, _ := DetectFileFormat(name)
		if got != want {
			t.Errorf("DetectFileFormat(%q) = %v, want %v", name, got, want)
		}
	}
}
