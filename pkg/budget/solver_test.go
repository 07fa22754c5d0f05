package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/recut/pkg/units"
)

func TestSolve_RejectsTinyCeiling(t *testing.T) {
	t.Parallel()

	_, err := Solve(64 * units.MiB)
	require.ErrorIs(t, err, ErrBudgetTooSmall)
}

func TestSolve_DefaultCeiling(t *testing.T) {
	t.Parallel()

	plan, err := Solve(units.MiBToBytes(3800))
	require.NoError(t, err)

	assert.Greater(t, plan.BackendBudgetBytes, int64(3*units.GiB),
		"most of a 3.8 GiB ceiling should go to backends")
	assert.Positive(t, plan.EmbedCacheEntries)
	assert.GreaterOrEqual(t, plan.PlotBufferBytes, int64(PlotBufferSize))
}

func TestSolve_StaysUnderCeiling(t *testing.T) {
	t.Parallel()

	for _, mib := range []int64{128, 256, 512, 1024, 3800, 16384} {
		plan, err := Solve(units.MiBToBytes(mib))
		require.NoError(t, err, "ceiling %d MiB", mib)

		assert.LessOrEqual(t, EstimateMemoryUsage(plan), units.MiBToBytes(mib)+BaseOverhead,
			"plan for %d MiB must not overcommit beyond slack", mib)
	}
}

func TestSolve_MinimumsHold(t *testing.T) {
	t.Parallel()

	plan, err := Solve(MinimumBudget)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, plan.BackendBudgetBytes, int64(MinBackendBudget))
	assert.GreaterOrEqual(t, plan.EmbedCacheEntries, MinEmbedCacheEntries)
	assert.LessOrEqual(t, plan.EmbedCacheEntries, MaxEmbedCacheEntries)
}
