// Package budget distributes the process memory ceiling across the pipeline:
// resident generation backends, the embedding cache, and plot buffers.
package budget

import "github.com/Sumatoshi-tech/recut/pkg/units"

// Component memory sizes (empirically measured).
const (
	// BaseOverhead is the fixed Go runtime overhead plus the loaded
	// lexicon banks and VADER dictionary.
	BaseOverhead = 96 * units.MiB

	// AvgEmbeddingSize is the in-memory cost of one cached embedding
	// vector (64 float32 dims plus key and cache bookkeeping).
	AvgEmbeddingSize = 512

	// PlotBufferSize is the render buffer for one emotion-curve chart.
	PlotBufferSize = 4 * units.MiB

	// MaxEmbedCacheEntries caps the embedding cache. Past 100K entries
	// the diversity gate's hit rate gain is marginal.
	MaxEmbedCacheEntries = 100_000
)

// Allocation proportions for budget distribution.
const (
	// BackendAllocationPercent is the share reserved for resident
	// generation backends, the dominant consumer.
	BackendAllocationPercent = 85

	// EmbedCacheAllocationPercent is the share for the embedding cache.
	EmbedCacheAllocationPercent = 10

	// PlotAllocationPercent is the share for chart render buffers.
	PlotAllocationPercent = 5

	// percentDivisor converts percentage ratios to fractions.
	percentDivisor = 100
)

// Plan is the derived allocation for one process.
type Plan struct {
	// BackendBudgetBytes bounds the summed declared sizes of resident
	// backends; the governor enforces it.
	BackendBudgetBytes int64

	// EmbedCacheEntries sizes the diversity gate's embedding cache.
	EmbedCacheEntries int

	// PlotBufferBytes bounds concurrent chart rendering.
	PlotBufferBytes int64
}

// EstimateMemoryUsage returns the worst-case resident bytes a plan admits.
func EstimateMemoryUsage(p Plan) int64 {
	return BaseOverhead +
		p.BackendBudgetBytes +
		int64(p.EmbedCacheEntries)*AvgEmbeddingSize +
		p.PlotBufferBytes
}
