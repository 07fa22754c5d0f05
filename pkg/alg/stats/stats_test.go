package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/recut/pkg/alg/stats"
)

func TestMean_Basic(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, stats.Mean(nil), 1e-9)
	assert.InDelta(t, 2.0, stats.Mean([]float64{1, 2, 3}), 1e-9)
}

func TestMeanStdDev_Population(t *testing.T) {
	t.Parallel()

	mean, stddev := stats.MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.0, stddev, 1e-9)
}

func TestPercentile_Interpolation(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4}

	assert.InDelta(t, 2.5, stats.Percentile(values, 0.5), 1e-9)
	assert.InDelta(t, 4.0, stats.Percentile(values, 1.0), 1e-9)
	assert.InDelta(t, 1.0, stats.Percentile(values, 0.0), 1e-9)
}

func TestEMA_FirstObservationInitializes(t *testing.T) {
	t.Parallel()

	ema := stats.NewEMA(0.3)

	assert.False(t, ema.Initialized())
	assert.InDelta(t, 100.0, ema.Update(100), 1e-9)
	assert.True(t, ema.Initialized())
}

func TestEMA_SmoothsTowardObservations(t *testing.T) {
	t.Parallel()

	ema := stats.NewEMA(0.5)
	ema.Update(0)

	got := ema.Update(10)

	assert.InDelta(t, 5.0, got, 1e-9)
	assert.InDelta(t, 5.0, ema.Value(), 1e-9)
}
