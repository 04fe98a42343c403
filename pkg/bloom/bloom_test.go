package bloom

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestNewRejectsInvalidParameters(t *testing.T) {
	testCases := []struct {
		name      string
		size      uint
		hashCount uint
		want      error
	}{
		{"zero size", 0, 3, ErrInvalidSize},
		{"zero hash count", 1024, 0, ErrInvalidHashCount},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := New(tc.size, tc.hashCount)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if f != nil {
				t.Errorf("expected nil filter on error")
			}
		})
	}
}

// every added key must test positive, regardless of case
func TestNoFalseNegatives(t *testing.T) {
	f := MustNew(4096, 4)
	keys := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		keys = append(keys, fmt.Sprintf("Translation.Key.%d", i))
	}
	for _, k := range keys {
		f.Add(k)
	}

	for _, k := range keys {
		if !f.Test(k) {
			t.Errorf("false negative for %q", k)
		}
		if !f.Test(toUpper(k)) {
			t.Errorf("false negative for upper-cased %q", k)
		}
	}
}

func TestFalsePositiveRateMatchesEstimate(t *testing.T) {
	f := MustNew(2000, 3)
	for i := 0; i < 300; i++ {
		f.Add(fmt.Sprintf("present-%d", i))
	}

	const samples = 20000
	falsePositives := 0
	for i := 0; i < samples; i++ {
		if f.Test(fmt.Sprintf("absent-%d", i)) {
			falsePositives++
		}
	}

	observed := float64(falsePositives) / samples
	estimated := f.Stats().EstimatedFalsePositiveRate
	if math.Abs(observed-estimated) > 0.03 {
		t.Errorf("observed FP rate %.4f too far from estimate %.4f", observed, estimated)
	}
}

func TestStats(t *testing.T) {
	f := MustNew(1000, 3)

	empty := f.Stats()
	if empty.SetBits != 0 || empty.LoadFactor != 0 || empty.ItemCount != 0 {
		t.Fatalf("expected empty stats, got %+v", empty)
	}
	if empty.Size != 1000 || empty.HashCount != 3 {
		t.Fatalf("unexpected shape %+v", empty)
	}

	f.Add("hello")
	f.Add("world")
	s := f.Stats()

	if s.ItemCount != 2 {
		t.Errorf("expected itemCount 2, got %d", s.ItemCount)
	}
	if s.SetBits == 0 || s.SetBits > 6 {
		t.Errorf("expected 1..6 set bits, got %d", s.SetBits)
	}
	wantLoad := float64(s.SetBits) / 1000
	if s.LoadFactor != wantLoad {
		t.Errorf("loadFactor = %v, want %v", s.LoadFactor, wantLoad)
	}
	if want := math.Pow(wantLoad, 3); s.EstimatedFalsePositiveRate != want {
		t.Errorf("estimatedFalsePositiveRate = %v, want %v", s.EstimatedFalsePositiveRate, want)
	}
}

func TestReset(t *testing.T) {
	f := MustNew(512, 2)
	f.Add("hello")
	f.Reset()

	if f.Test("hello") {
		t.Errorf("expected reset filter to reject previously added key")
	}
	if s := f.Stats(); s.SetBits != 0 || s.ItemCount != 0 {
		t.Errorf("expected cleared stats, got %+v", s)
	}
	if f.Size() != 512 || f.HashCount() != 2 {
		t.Errorf("reset must keep capacity")
	}
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func BenchmarkTest(b *testing.B) {
	f := MustNew(1<<20, 4)
	for i := 0; i < 10000; i++ {
		f.Add(fmt.Sprintf("word%d", i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Test("zzqx9notpresent")
	}
}
