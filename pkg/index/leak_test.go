//go:build test

package index

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"testing"
)

var leakQueries = [][]string{
	{"a", "ab", "abc", "abcd", "abcde"},
	{"h", "he", "hel", "hell", "hello"},
	{"w", "wo", "wor", "worl", "world"},
	{"p", "pr", "pro", "prog", "progr", "progra", "program"},
	{"i", "in", "int", "inte", "inter", "intern", "interna", "internat", "internati", "internatio", "internation"},
}

var leakTypes = []string{"exact", "prefix", "contains", "fuzzy"}

func leakIndex(t *testing.T) *Index[word] {
	t.Helper()
	texts := make([]string, 0, 5000)
	for i := 0; i < 5000; i++ {
		pattern := leakQueries[i%len(leakQueries)]
		texts = append(texts, fmt.Sprintf("%s%d", pattern[len(pattern)-1], i))
	}
	ix := newTestIndex(t)
	ix.Build(words(texts...))
	return ix
}

func memSnapshot() (runtime.MemStats, int) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return m, runtime.NumGoroutine()
}

func TestMemoryLeakBasic(t *testing.T) {
	for _, iterCount := range []int{100, 500, 1000} {
		t.Run(fmt.Sprintf("iterations_%d", iterCount), func(t *testing.T) {
			ix := leakIndex(t)
			baseline, baselineGoroutines := memSnapshot()

			ops := 0
			for i := 0; i < iterCount; i++ {
				for _, pattern := range leakQueries {
					q := pattern[i%len(pattern)]
					ix.Search(q, SearchOptions{Type: leakTypes[ops%3], MaxResults: 10})
					ops++
				}
			}

			final, finalGoroutines := memSnapshot()
			memDelta := int64(final.Alloc - baseline.Alloc)
			memPerOp := float64(memDelta) / float64(ops)
			goroutineDelta := finalGoroutines - baselineGoroutines

			t.Logf("iterations=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
				iterCount, ops, memDelta, memPerOp, goroutineDelta)

			if memPerOp > 1000 {
				t.Errorf("excessive memory usage per operation: %.2f bytes", memPerOp)
			}
			if goroutineDelta > 2 {
				t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
			}
		})
	}
}

func TestMemoryLeakConcurrent(t *testing.T) {
	memFile, err := os.CreateTemp(t.TempDir(), "concurrent_memory-*.prof")
	if err != nil {
		t.Fatalf("profile file creation failed: %v", err)
	}
	defer memFile.Close()

	ix := leakIndex(t)
	baseline, baselineGoroutines := memSnapshot()

	var wg sync.WaitGroup
	var ops atomic.Int64
	for worker := 0; worker < 4; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for iter := 0; iter < 100; iter++ {
				for _, pattern := range leakQueries {
					for _, q := range pattern {
						ix.Search(q, SearchOptions{Type: leakTypes[(worker+iter)%len(leakTypes)], MaxResults: 10})
						ops.Add(1)
					}
				}
			}
		}(worker)
	}

	// rebuilds while readers are active must not retain old generations
	for i := 0; i < 5; i++ {
		ix.Build(words("hello", "world", "program"))
		ix.Clear()
	}
	wg.Wait()

	final, finalGoroutines := memSnapshot()
	memDelta := int64(final.Alloc - baseline.Alloc)
	goroutineDelta := finalGoroutines - baselineGoroutines

	t.Logf("total_ops=%d mem_delta=%d bytes goroutine_delta=%d", ops.Load(), memDelta, goroutineDelta)

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		t.Errorf("heap profile write failed: %v", err)
	}
	if memDelta > 0 && memDelta > int64(baseline.Alloc) {
		t.Errorf("heap grew from %d to %d bytes", baseline.Alloc, final.Alloc)
	}
	if goroutineDelta > 3 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
	}
}
