package snapshot

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/recut/pkg/alg/levenshtein"
	"github.com/Sumatoshi-tech/recut/pkg/alg/lru"
	"github.com/Sumatoshi-tech/recut/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/recut/pkg/alg/minhash"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
)

// Diversity gate defaults.
const (
	// DefaultRecentLeaves is how many recent leaves a new take is scored
	// against.
	DefaultRecentLeaves = 10

	// DefaultThreshold is the hybrid similarity at which a take is tagged
	// a near duplicate.
	DefaultThreshold = 0.65

	// Hybrid similarity weights: embedding cosine, sequence-match ratio,
	// line-diff ratio.
	weightCosine   = 0.5
	weightSequence = 0.3
	weightLineDiff = 0.2

	// Prefilter shape: 64-hash signatures in 16 bands estimate Jaccard;
	// candidates under the floor skip exact scoring entirely.
	prefilterHashes = 64
	prefilterBands  = 16
	prefilterFloor  = 0.1

	// defaultEmbedCacheEntries bounds the per-store embedding memo.
	defaultEmbedCacheEntries = 1024
)

// Embedder produces sentence embeddings. backend.GenerationBackend
// satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Candidate is one prior take the gate scores against.
type Candidate struct {
	ID      string
	Content string
}

// Match is the gate's verdict on the most similar candidate.
type Match struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// DiversityGate scores a new take against recent leaves. Without an
// embedder the cosine term drops out and the remaining weights renormalize,
// so text-only deployments still gate on sequence and line shape.
type DiversityGate struct {
	// K caps how many recent leaves are considered.
	K int

	// Threshold is the near-duplicate similarity bound.
	Threshold float64

	embedder     Embedder
	cacheEntries int
	cache        *lru.Cache[string, []float32]
}

// GateOption configures a DiversityGate.
type GateOption func(*DiversityGate)

// WithRecentLeaves overrides the candidate window.
func WithRecentLeaves(k int) GateOption {
	return func(g *DiversityGate) { g.K = k }
}

// WithThreshold overrides the near-duplicate bound.
func WithThreshold(tau float64) GateOption {
	return func(g *DiversityGate) { g.Threshold = tau }
}

// WithEmbedCacheEntries sizes the embedding memo. The budget solver derives
// this from the memory ceiling.
func WithEmbedCacheEntries(n int) GateOption {
	return func(g *DiversityGate) {
		if n > 0 {
			g.cacheEntries = n
		}
	}
}

// NewDiversityGate builds a gate. embedder may be nil.
func NewDiversityGate(embedder Embedder, opts ...GateOption) *DiversityGate {
	g := &DiversityGate{
		K:            DefaultRecentLeaves,
		Threshold:    DefaultThreshold,
		embedder:     embedder,
		cacheEntries: defaultEmbedCacheEntries,
	}

	for _, opt := range opts {
		opt(g)
	}

	g.cache = lru.New[string, []float32](
		lru.WithMaxEntries[string, []float32](g.cacheEntries),
	)

	return g
}

// Check scores content against the candidates and returns the best match
// when its similarity reaches the threshold. The MinHash prefilter drops
// candidates whose estimated token overlap cannot plausibly reach it.
func (g *DiversityGate) Check(ctx context.Context, content string, candidates []Candidate) (Match, bool, error) {
	if len(candidates) == 0 {
		return Match{}, false, nil
	}

	if len(candidates) > g.K {
		candidates = candidates[:g.K]
	}

	near, err := g.prefilter(content, candidates)
	if err != nil {
		return Match{}, false, err
	}

	best := Match{Similarity: -1}

	for _, c := range near {
		sim, err := g.similarity(ctx, content, c.Content)
		if err != nil {
			return Match{}, false, err
		}

		if sim > best.Similarity {
			best = Match{ID: c.ID, Similarity: sim}
		}
	}

	if best.Similarity >= g.Threshold {
		return best, true, nil
	}

	return Match{}, false, nil
}

// prefilter keeps the candidates whose LSH buckets collide with the new
// content at the floor estimate or above.
func (g *DiversityGate) prefilter(content string, candidates []Candidate) ([]Candidate, error) {
	index, err := lsh.New(prefilterBands, prefilterHashes/prefilterBands)
	if err != nil {
		return nil, fmt.Errorf("prefilter index: %w", err)
	}

	byID := make(map[string]Candidate, len(candidates))

	for _, c := range candidates {
		byID[c.ID] = c

		err = index.Insert(c.ID, signatureOf(c.Content))
		if err != nil {
			return nil, fmt.Errorf("prefilter insert: %w", err)
		}
	}

	ids, err := index.QueryThreshold(signatureOf(content), prefilterFloor)
	if err != nil {
		return nil, fmt.Errorf("prefilter query: %w", err)
	}

	kept := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		kept = append(kept, byID[id])
	}

	return kept, nil
}

// signatureOf hashes a text's word set into a MinHash signature.
func signatureOf(content string) *minhash.Signature {
	// Error is structurally impossible: prefilterHashes is a positive
	// constant.
	sig, _ := minhash.New(prefilterHashes)

	for _, word := range textutil.Words(content) {
		sig.Add([]byte(word))
	}

	return sig
}

// similarity is the hybrid score over one candidate.
func (g *DiversityGate) similarity(ctx context.Context, a, b string) (float64, error) {
	normA, normB := textutil.Normalize(a), textutil.Normalize(b)

	seq := sequenceRatio(normA, normB)
	lines := lineDiffRatio(a, b)

	if g.embedder == nil {
		total := weightSequence + weightLineDiff

		return (weightSequence*seq + weightLineDiff*lines) / total, nil
	}

	cos, err := g.cosine(ctx, a, b)
	if err != nil {
		return 0, err
	}

	return weightCosine*cos + weightSequence*seq + weightLineDiff*lines, nil
}

// cosine compares the mean sentence embeddings of the two texts.
func (g *DiversityGate) cosine(ctx context.Context, a, b string) (float64, error) {
	va, err := g.meanEmbedding(ctx, a)
	if err != nil {
		return 0, err
	}

	vb, err := g.meanEmbedding(ctx, b)
	if err != nil {
		return 0, err
	}

	return cosineSim(va, vb), nil
}

// meanEmbedding embeds each line of the text and averages, memoized by
// content hash.
func (g *DiversityGate) meanEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := hashContent(text)
	if v, ok := g.cache.Get(key); ok {
		return v, nil
	}

	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return nil, nil
	}

	vecs, err := g.embedder.Embed(ctx, lines)
	if err != nil {
		return nil, fmt.Errorf("embed for diversity: %w", err)
	}

	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, nil
	}

	mean := make([]float32, len(vecs[0]))

	for _, v := range vecs {
		for i := range mean {
			mean[i] += v[i]
		}
	}

	for i := range mean {
		mean[i] /= float32(len(vecs))
	}

	g.cache.Put(key, mean)

	return mean, nil
}

func nonEmptyLines(text string) []string {
	var lines []string

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	return lines
}

// cosineSim is the cosine of two vectors, zero when either is empty or
// zero-length.
func cosineSim(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// sequenceRatio is an edit-distance match ratio over normalized text.
func sequenceRatio(a, b string) float64 {
	if a == b {
		return 1
	}

	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)

	if longest == 0 {
		return 1
	}

	dist := (&levenshtein.Context{}).Distance(a, b)

	return 1 - float64(dist)/float64(longest)
}

// lineDiffRatio is the share of line-level diff that two texts have in
// common: 1 for identical line sequences, 0 for fully disjoint ones.
func lineDiffRatio(a, b string) float64 {
	dmp := diffmatchpatch.New()

	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var equal, inA, inB int

	for _, d := range diffs {
		n := lineCount(d.Text)

		switch d.Type {
		case diffmatchpatch.DiffEqual:
			equal += n
			inA += n
			inB += n
		case diffmatchpatch.DiffDelete:
			inA += n
		case diffmatchpatch.DiffInsert:
			inB += n
		}
	}

	if inA+inB == 0 {
		return 1
	}

	return float64(2*equal) / float64(inA+inB)
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}

	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}

	return n
}
