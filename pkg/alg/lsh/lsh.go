// Package lsh provides a Locality-Sensitive Hashing index over MinHash
// signatures.
//
// The snapshot store keeps one signature per retained take. A full diversity
// check against every prior take is O(N) cosine and edit-distance work, so
// the index first narrows the field to takes that share at least one band
// hash with the candidate. numBands * numRows must equal the signature size;
// more bands lowers the similarity needed to surface as a candidate.
package lsh

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/Sumatoshi-tech/recut/pkg/alg/minhash"
)

const bytesPerUint64 = 8

var (
	// ErrInvalidParams is returned when numBands or numRows is not positive.
	ErrInvalidParams = errors.New("lsh: numBands and numRows must be positive")

	// ErrNilSignature is returned when a nil signature is provided.
	ErrNilSignature = errors.New("lsh: signature must not be nil")

	// ErrSizeMismatch is returned when the signature size does not equal
	// numBands * numRows.
	ErrSizeMismatch = errors.New("lsh: signature size must equal numBands * numRows")
)

// Index is a thread-safe LSH index keyed by caller-chosen string IDs.
type Index struct {
	mu       sync.RWMutex
	numBands int
	numRows  int
	bands    []map[uint64]map[string]bool
	sigs     map[string]*minhash.Signature
}

// New creates an index expecting signatures of numBands * numRows hashes.
func New(numBands, numRows int) (*Index, error) {
	if numBands <= 0 || numRows <= 0 {
		return nil, ErrInvalidParams
	}

	bands := make([]map[uint64]map[string]bool, numBands)
	for i := range bands {
		bands[i] = make(map[uint64]map[string]bool)
	}

	return &Index{
		numBands: numBands,
		numRows:  numRows,
		bands:    bands,
		sigs:     make(map[string]*minhash.Signature),
	}, nil
}

// Insert adds a signature under the given ID, replacing any previous
// signature stored for that ID.
func (idx *Index) Insert(id string, sig *minhash.Signature) error {
	if err := idx.checkSig(sig); err != nil {
		return err
	}

	bandHashes := idx.computeBandHashes(sig)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if oldSig, exists := idx.sigs[id]; exists {
		idx.removeLocked(id, oldSig)
	}

	idx.sigs[id] = sig

	for b, h := range bandHashes {
		bucket := idx.bands[b][h]
		if bucket == nil {
			bucket = make(map[string]bool)
			idx.bands[b][h] = bucket
		}

		bucket[id] = true
	}

	return nil
}

// Remove deletes the signature stored under id, if any.
func (idx *Index) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	sig, exists := idx.sigs[id]
	if !exists {
		return
	}

	idx.removeLocked(id, sig)
}

// Query returns deduplicated IDs whose signatures share at least one band
// hash with sig.
func (idx *Index) Query(sig *minhash.Signature) ([]string, error) {
	if err := idx.checkSig(sig); err != nil {
		return nil, err
	}

	bandHashes := idx.computeBandHashes(sig)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]bool)

	for b, h := range bandHashes {
		for id := range idx.bands[b][h] {
			seen[id] = true
		}
	}

	result := make([]string, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}

	return result, nil
}

// QueryThreshold returns IDs whose exact MinHash similarity with sig is at
// or above threshold. Candidates come from Query, so takes that share no
// band are never compared.
func (idx *Index) QueryThreshold(sig *minhash.Signature, threshold float64) ([]string, error) {
	candidates, err := idx.Query(sig)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := make([]string, 0)

	for _, id := range candidates {
		stored := idx.sigs[id]
		if stored == nil {
			continue
		}

		sim, simErr := sig.Similarity(stored)
		if simErr != nil {
			continue
		}

		if sim >= threshold {
			result = append(result, id)
		}
	}

	return result, nil
}

// Len returns the number of signatures currently indexed.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.sigs)
}

func (idx *Index) checkSig(sig *minhash.Signature) error {
	if sig == nil {
		return ErrNilSignature
	}

	if sig.Len() != idx.numBands*idx.numRows {
		return ErrSizeMismatch
	}

	return nil
}

// removeLocked removes a signature from all band buckets. Callers hold mu.
func (idx *Index) removeLocked(id string, sig *minhash.Signature) {
	for b, h := range idx.computeBandHashes(sig) {
		bucket := idx.bands[b][h]
		delete(bucket, id)

		if len(bucket) == 0 {
			delete(idx.bands[b], h)
		}
	}

	delete(idx.sigs, id)
}

// computeBandHashes hashes each band of the serialized signature with
// FNV-1a, prefixing the band index for domain separation.
func (idx *Index) computeBandHashes(sig *minhash.Signature) []uint64 {
	data := sig.Bytes()[minhash.HeaderSize:]
	hashes := make([]uint64, idx.numBands)
	buf := make([]byte, bytesPerUint64)

	for b := range idx.numBands {
		h := fnv.New64a()

		binary.BigEndian.PutUint64(buf, uint64(b))
		_, _ = h.Write(buf)

		start := b * idx.numRows * bytesPerUint64
		_, _ = h.Write(data[start : start+idx.numRows*bytesPerUint64])

		hashes[b] = h.Sum64()
	}

	return hashes
}
