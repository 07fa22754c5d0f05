package backend

import (
	"hash/fnv"
	"math"

	"github.com/Sumatoshi-tech/recut/pkg/textutil"
)

// EmbedDim is the dimensionality of the hashed bag-of-words embeddings every
// variant produces. 64 dimensions is enough for the diversity gate's cosine
// comparisons while keeping snapshots small.
const EmbedDim = 64

// hashedEmbedding maps text to a normalized EmbedDim vector by hashing each
// word into a bucket with a signed contribution. Deterministic: identical
// text always yields an identical vector.
func hashedEmbedding(text string) []float32 {
	vec := make([]float32, EmbedDim)

	for _, word := range textutil.Words(text) {
		h := fnv.New64a()
		h.Write([]byte(word))
		sum := h.Sum64()

		bucket := int(sum % EmbedDim)

		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}

		vec[bucket] += sign
	}

	normalize(vec)

	return vec
}

// normalize scales vec to unit length in place. The zero vector stays zero.
func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}

	if sumSq == 0 {
		return
	}

	inv := float32(1 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= inv
	}
}

// Cosine returns the cosine similarity of two embedding vectors. Mismatched
// lengths or zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
