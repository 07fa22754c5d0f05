package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithEstimates_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewWithEstimates(0, 0.01)
	require.ErrorIs(t, err, ErrZeroN)

	_, err = NewWithEstimates(100, 0)
	require.ErrorIs(t, err, ErrInvalidFP)

	_, err = NewWithEstimates(100, 1)
	require.ErrorIs(t, err, ErrInvalidFP)
}

func TestAddTest_NoFalseNegatives(t *testing.T) {
	t.Parallel()

	f, err := NewWithEstimates(1000, 0.01)
	require.NoError(t, err)

	keys := make([][]byte, 0, 500)
	for i := range 500 {
		keys = append(keys, fmt.Appendf(nil, "embed-key-%d", i))
	}

	for _, k := range keys {
		f.Add(k)
	}

	for _, k := range keys {
		assert.True(t, f.Test(k), "added key must always test positive: %s", k)
	}

	assert.Equal(t, uint(500), f.EstimatedCount())
}

func TestTest_FalsePositiveRateNearTarget(t *testing.T) {
	t.Parallel()

	const n = 2000

	f, err := NewWithEstimates(n, 0.01)
	require.NoError(t, err)

	for i := range n {
		f.Add(fmt.Appendf(nil, "present-%d", i))
	}

	falsePositives := 0

	for i := range n {
		if f.Test(fmt.Appendf(nil, "absent-%d", i)) {
			falsePositives++
		}
	}

	// Allow generous slack over the 1% target.
	assert.Less(t, float64(falsePositives)/float64(n), 0.03)
}

func TestTestAndAdd(t *testing.T) {
	t.Parallel()

	f, err := NewWithEstimates(100, 0.01)
	require.NoError(t, err)

	assert.False(t, f.TestAndAdd([]byte("first")))
	assert.True(t, f.TestAndAdd([]byte("first")))
}

func TestFillRatio_GrowsWithInsertions(t *testing.T) {
	t.Parallel()

	f, err := NewWithEstimates(100, 0.01)
	require.NoError(t, err)

	assert.Zero(t, f.FillRatio())

	for i := range 100 {
		f.Add(fmt.Appendf(nil, "k%d", i))
	}

	ratio := f.FillRatio()
	assert.Greater(t, ratio, 0.0)
	assert.LessOrEqual(t, ratio, 1.0)
}
