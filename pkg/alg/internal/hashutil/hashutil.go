// Package hashutil provides the shared hash mixing primitives used by the
// probabilistic structures in pkg/alg (MinHash signatures, Bloom filters).
//
// Seed generation and mixing use the splitmix64 finalizer by Vigna (2014),
// which provides full-avalanche mixing across all 64 bits.
package hashutil

import "hash/fnv"

const (
	// baseSeed is the starting state for deterministic seed generation.
	baseSeed = 0x517cc1b727220a95

	// splitmix64Increment is the golden-ratio-derived increment used in
	// the splitmix64 state-advance step.
	splitmix64Increment = 0x9e3779b97f4a7c15

	mixShift1 = 30
	mixMul1   = 0xbf58476d1ce4e5b9
	mixShift2 = 27
	mixMul2   = 0x94d049bb133111eb
	mixShift3 = 31
)

// Splitmix64 advances the state by the golden-ratio increment and applies
// the mix64 finalizer. This is a full PRNG step that both advances state
// and produces output.
func Splitmix64(state uint64) uint64 {
	state += splitmix64Increment
	z := state
	z = (z ^ (z >> mixShift1)) * mixMul1
	z = (z ^ (z >> mixShift2)) * mixMul2
	z ^= z >> mixShift3

	return z
}

// MixHash combines a base hash with a seed using XOR and the splitmix64
// finalizer, producing a deterministic variation for a (base, seed) pair.
func MixHash(base, seed uint64) uint64 {
	x := base ^ seed
	x = (x ^ (x >> mixShift1)) * mixMul1
	x = (x ^ (x >> mixShift2)) * mixMul2
	x ^= x >> mixShift3

	return x
}

// FNV64a computes a 64-bit FNV-1a hash of the given data.
func FNV64a(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)

	return h.Sum64()
}

// GenerateSeeds creates n deterministic seeds by walking the splitmix64
// sequence from a fixed base state. The same n always yields the same seeds,
// which keeps MinHash signatures comparable across process restarts.
func GenerateSeeds(n int) []uint64 {
	seeds := make([]uint64, n)
	state := uint64(baseSeed)

	for i := range n {
		state = Splitmix64(state)
		seeds[i] = state
	}

	return seeds
}
