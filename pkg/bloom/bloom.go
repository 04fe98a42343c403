// Package bloom implements the set-membership filter that sits in front of
// the prefix tree. A negative Test is definitive, so exact lookups for keys
// that were never indexed are rejected without walking the tree.
package bloom

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

var (
	ErrInvalidSize      = errors.New("bloom: size must be positive")
	ErrInvalidHashCount = errors.New("bloom: hash count must be positive")
)

// Stats describes the fill level of a filter. Purely informational.
type Stats struct {
	Size                       uint    `json:"size" msgpack:"size"`
	HashCount                  uint    `json:"hashCount" msgpack:"hashCount"`
	SetBits                    uint    `json:"setBits" msgpack:"setBits"`
	LoadFactor                 float64 `json:"loadFactor" msgpack:"loadFactor"`
	EstimatedFalsePositiveRate float64 `json:"estimatedFalsePositiveRate" msgpack:"estimatedFalsePositiveRate"`
	ItemCount                  int     `json:"itemCount" msgpack:"itemCount"`
}

// Filter is a fixed-size Bloom filter over lower-cased string keys.
// It is not safe for concurrent mutation.
type Filter struct {
	bits      *bitset.BitSet
	size      uint
	hashCount uint
	itemCount int
}

// New creates a filter with size bits and hashCount hash functions.
func New(size, hashCount uint) (*Filter, error) {
	if size == 0 {
		return nil, ErrInvalidSize
	}
	if hashCount == 0 {
		return nil, ErrInvalidHashCount
	}
	return &Filter{
		bits:      bitset.New(size),
		size:      size,
		hashCount: hashCount,
	}, nil
}

// MustNew is New for sizes known to be valid at compile time.
func MustNew(size, hashCount uint) *Filter {
	f, err := New(size, hashCount)
	if err != nil {
		panic(fmt.Sprintf("bloom.MustNew(%d, %d): %v", size, hashCount, err))
	}
	return f
}

// Add records key as present.
func (f *Filter) Add(key string) {
	h1, h2 := hashes(strings.ToLower(key))
	for i := uint(0); i < f.hashCount; i++ {
		f.bits.Set(f.position(h1, h2, i))
	}
	f.itemCount++
}

// Test reports whether key may have been added. False is definitive.
func (f *Filter) Test(key string) bool {
	h1, h2 := hashes(strings.ToLower(key))
	for i := uint(0); i < f.hashCount; i++ {
		if !f.bits.Test(f.position(h1, h2, i)) {
			return false
		}
	}
	return true
}

// Stats returns the current fill level and the false-positive estimate.
func (f *Filter) Stats() Stats {
	setBits := f.bits.Count()
	load := float64(setBits) / float64(f.size)
	return Stats{
		Size:                       f.size,
		HashCount:                  f.hashCount,
		SetBits:                    setBits,
		LoadFactor:                 load,
		EstimatedFalsePositiveRate: math.Pow(load, float64(f.hashCount)),
		ItemCount:                  f.itemCount,
	}
}

// Reset clears every bit and the item count.
func (f *Filter) Reset() {
	f.bits.ClearAll()
	f.itemCount = 0
}

// Size returns the number of bits in the filter.
func (f *Filter) Size() uint { return f.size }

// HashCount returns k.
func (f *Filter) HashCount() uint { return f.hashCount }

// position derives the i-th index with double hashing: h1 + i*h2 mod size.
func (f *Filter) position(h1, h2 uint64, i uint) uint {
	return uint((h1 + uint64(i)*h2) % uint64(f.size))
}

// hashes returns two independent 64-bit hashes of key. h2 is forced odd so
// successive probes never collapse onto the same bit.
func hashes(key string) (uint64, uint64) {
	h1 := xxhash.Sum64String(key)

	h := fnv.New64a()
	h.Write([]byte(key))
	h2 := h.Sum64() | 1

	return h1, h2
}
