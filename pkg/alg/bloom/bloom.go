// Package bloom provides a space-efficient probabilistic set membership
// filter.
//
// A Bloom filter answers "definitely not present" or "possibly present"
// with a tunable false-positive rate. The embedding cache uses one to
// short-circuit lookups for narration text that was never embedded, skipping
// lock acquisition on the definite misses.
//
// Bit positions derive from two base hashes via the double-hashing scheme of
// Kirsch and Mitzenmacher (2006): h(i) = h1 + i*h2 mod m.
package bloom

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"
	"math/bits"
	"sync"

	"github.com/Sumatoshi-tech/recut/pkg/safeconv"
)

const (
	bitsPerWord = 64

	// ln2Squared is ln(2) squared, used in the optimal bit-array size formula.
	ln2Squared = math.Ln2 * math.Ln2
)

var (
	// ErrZeroN is returned when the expected element count is zero.
	ErrZeroN = errors.New("bloom: n must be positive")

	// ErrInvalidFP is returned when fp is not in the open interval (0, 1).
	ErrInvalidFP = errors.New("bloom: fp must be in the open interval (0, 1)")
)

// Filter is a thread-safe Bloom filter.
type Filter struct {
	mu    sync.RWMutex
	bits  []uint64
	m     uint // Total bits.
	k     uint // Number of hash functions.
	count uint // Approximate number of added elements.
}

// NewWithEstimates creates a filter sized for n expected elements at a
// false-positive rate of fp.
func NewWithEstimates(n uint, fp float64) (*Filter, error) {
	if n == 0 {
		return nil, ErrZeroN
	}

	if fp <= 0 || fp >= 1 {
		return nil, ErrInvalidFP
	}

	m := optimalM(n, fp)
	k := optimalK(m, n)
	words := (m + bitsPerWord - 1) / bitsPerWord

	return &Filter{
		bits: make([]uint64, words),
		m:    m,
		k:    k,
	}, nil
}

// Add inserts data into the filter.
func (f *Filter) Add(data []byte) {
	h1, h2 := hashKernel(data)

	f.mu.Lock()

	for i := range f.k {
		pos := (h1 + uint64(i)*h2) % uint64(f.m)
		f.bits[pos/bitsPerWord] |= uint64(1) << (pos % bitsPerWord)
	}

	f.count++
	f.mu.Unlock()
}

// Test reports whether data is possibly in the filter. False guarantees the
// element was never added; true is subject to the configured false-positive
// rate.
func (f *Filter) Test(data []byte) bool {
	h1, h2 := hashKernel(data)

	f.mu.RLock()
	defer f.mu.RUnlock()

	for i := range f.k {
		pos := (h1 + uint64(i)*h2) % uint64(f.m)
		if f.bits[pos/bitsPerWord]&(uint64(1)<<(pos%bitsPerWord)) == 0 {
			return false
		}
	}

	return true
}

// TestAndAdd tests for membership and then adds the element, under a single
// lock acquisition. It returns true if the element was possibly already
// present before this call.
func (f *Filter) TestAndAdd(data []byte) bool {
	h1, h2 := hashKernel(data)

	f.mu.Lock()
	defer f.mu.Unlock()

	present := true

	for i := range f.k {
		pos := (h1 + uint64(i)*h2) % uint64(f.m)
		wordIdx := pos / bitsPerWord
		bitMask := uint64(1) << (pos % bitsPerWord)

		if f.bits[wordIdx]&bitMask == 0 {
			present = false
			f.bits[wordIdx] |= bitMask
		}
	}

	f.count++

	return present
}

// EstimatedCount returns an approximation of the number of added elements.
func (f *Filter) EstimatedCount() uint {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.count
}

// FillRatio returns the fraction of set bits, in the range [0, 1].
func (f *Filter) FillRatio() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	total := uint(0)
	for _, word := range f.bits {
		total += safeconv.MustIntToUint(bits.OnesCount64(word))
	}

	return float64(total) / float64(f.m)
}

// optimalM computes the bit-array size minimizing false positives for n
// elements at rate fp: m = -n*ln(fp) / ln(2)^2.
func optimalM(n uint, fp float64) uint {
	return uint(math.Ceil(-float64(n) * math.Log(fp) / ln2Squared))
}

// optimalK computes the hash-function count for a bit array of m bits and n
// elements: k = (m/n) * ln(2).
func optimalK(m, n uint) uint {
	k := uint(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		return 1
	}

	return k
}

// hashKernel derives the two base hashes from a single FNV-128a pass,
// splitting the digest into two 64-bit halves.
func hashKernel(data []byte) (h1, h2 uint64) {
	h := fnv.New128a()
	_, _ = h.Write(data)
	sum := h.Sum(nil)

	h1 = binary.BigEndian.Uint64(sum[:8])
	h2 = binary.BigEndian.Uint64(sum[8:])

	// Force h2 odd so gcd(h2, m) avoids degenerate cycling.
	h2 |= 1

	return h1, h2
}
