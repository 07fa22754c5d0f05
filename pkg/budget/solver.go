package budget

import (
	"errors"

	"github.com/Sumatoshi-tech/recut/pkg/safeconv"
	"github.com/Sumatoshi-tech/recut/pkg/units"
)

// Solver constraints.
const (
	// MinimumBudget is the smallest ceiling the solver accepts: base
	// overhead plus room for the stub backend and a minimal cache.
	MinimumBudget = 128 * units.MiB

	// MinBackendBudget always admits the stub backend.
	MinBackendBudget = 16 * units.MiB

	// MinEmbedCacheEntries keeps the diversity gate functional.
	MinEmbedCacheEntries = 256
)

// ErrBudgetTooSmall indicates the ceiling is below the minimum required.
var ErrBudgetTooSmall = errors.New("budget: memory ceiling too small")

// Solve distributes a memory ceiling (bytes) into a Plan. The ceiling comes
// from MAX_RESIDENT_MEMORY_MIB; callers below MinimumBudget get
// ErrBudgetTooSmall and should fail fast rather than thrash the governor.
func Solve(ceilingBytes int64) (Plan, error) {
	if ceilingBytes < MinimumBudget {
		return Plan{}, ErrBudgetTooSmall
	}

	available := ceilingBytes - BaseOverhead
	if available <= 0 {
		return Plan{}, ErrBudgetTooSmall
	}

	backendAlloc := available * BackendAllocationPercent / percentDivisor
	embedAlloc := available * EmbedCacheAllocationPercent / percentDivisor
	plotAlloc := available * PlotAllocationPercent / percentDivisor

	plan := Plan{
		BackendBudgetBytes: max(backendAlloc, MinBackendBudget),
		EmbedCacheEntries:  safeconv.MustInt64ToInt(min(max(embedAlloc/AvgEmbeddingSize, MinEmbedCacheEntries), MaxEmbedCacheEntries)),
		PlotBufferBytes:    max(plotAlloc, PlotBufferSize),
	}

	return plan, nil
}
