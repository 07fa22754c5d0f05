// Package minhash provides MinHash signatures for estimating Jaccard
// similarity between token sets.
//
// The snapshot store uses signatures as a cheap first pass when deciding
// whether a newly generated narration is a near duplicate of an earlier
// take: two signatures compare in O(numHashes) regardless of text length.
package minhash

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"

	"github.com/Sumatoshi-tech/recut/pkg/alg/internal/hashutil"
	"github.com/Sumatoshi-tech/recut/pkg/safeconv"
)

const (
	// HeaderSize is the byte size of the serialized signature header.
	HeaderSize = 4

	// BytesPerHash is the byte size of a single serialized hash value.
	BytesPerHash = 8
)

var (
	// ErrZeroNumHashes is returned when numHashes is not positive.
	ErrZeroNumHashes = errors.New("minhash: numHashes must be positive")

	// ErrSizeMismatch is returned when two signatures of different sizes
	// are compared.
	ErrSizeMismatch = errors.New("minhash: signature sizes do not match")

	// ErrNilSignature is returned when a nil signature is provided.
	ErrNilSignature = errors.New("minhash: signature must not be nil")

	// ErrInvalidData is returned when serialized data cannot be decoded.
	ErrInvalidData = errors.New("minhash: invalid serialized data")
)

// Signature is a thread-safe MinHash signature.
type Signature struct {
	mu    sync.Mutex
	mins  []uint64
	seeds []uint64
}

// New creates a signature with the given number of hash functions. Seeds are
// derived deterministically, so signatures built in different processes with
// the same numHashes remain comparable.
func New(numHashes int) (*Signature, error) {
	if numHashes <= 0 {
		return nil, ErrZeroNumHashes
	}

	mins := make([]uint64, numHashes)
	for i := range mins {
		mins[i] = math.MaxUint64
	}

	return &Signature{
		mins:  mins,
		seeds: hashutil.GenerateSeeds(numHashes),
	}, nil
}

// Add folds a token into the signature.
func (s *Signature) Add(token []byte) {
	base := hashutil.FNV64a(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, seed := range s.seeds {
		h := hashutil.MixHash(base, seed)
		if h < s.mins[i] {
			s.mins[i] = h
		}
	}
}

// Len returns the number of hash functions in the signature.
func (s *Signature) Len() int {
	return len(s.mins)
}

// Similarity estimates the Jaccard similarity between two signatures as the
// fraction of matching minimum hash values. Comparing a signature with
// itself returns 1.0 without acquiring its lock twice.
func (s *Signature) Similarity(other *Signature) (float64, error) {
	if other == nil {
		return 0, ErrNilSignature
	}

	if s == other {
		return 1.0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	other.mu.Lock()
	defer other.mu.Unlock()

	if len(s.mins) != len(other.mins) {
		return 0, ErrSizeMismatch
	}

	matches := 0

	for i := range s.mins {
		if s.mins[i] == other.mins[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(s.mins)), nil
}

// Bytes serializes the signature as a big-endian uint32 hash count followed
// by the minimum hash values. The layout is stable and feeds both persistence
// and the LSH band hasher.
func (s *Signature) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, HeaderSize+len(s.mins)*BytesPerHash)
	binary.BigEndian.PutUint32(buf[:HeaderSize], safeconv.MustIntToUint32(len(s.mins)))

	for i, m := range s.mins {
		offset := HeaderSize + i*BytesPerHash
		binary.BigEndian.PutUint64(buf[offset:offset+BytesPerHash], m)
	}

	return buf
}

// FromBytes reconstructs a signature serialized by Bytes. The restored
// signature carries the deterministic seeds for its size, so it can keep
// accepting tokens.
func FromBytes(data []byte) (*Signature, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidData
	}

	numHashes := int(binary.BigEndian.Uint32(data[:HeaderSize]))
	if numHashes <= 0 {
		return nil, ErrZeroNumHashes
	}

	if len(data) != HeaderSize+numHashes*BytesPerHash {
		return nil, ErrInvalidData
	}

	mins := make([]uint64, numHashes)
	for i := range numHashes {
		offset := HeaderSize + i*BytesPerHash
		mins[i] = binary.BigEndian.Uint64(data[offset : offset+BytesPerHash])
	}

	return &Signature{
		mins:  mins,
		seeds: hashutil.GenerateSeeds(numHashes),
	}, nil
}
