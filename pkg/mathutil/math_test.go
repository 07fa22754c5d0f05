package mathutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/recut/pkg/mathutil"
)

func TestClamp_Bounds(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.2, mathutil.Clamp(0.05, 0.2, 0.6), 1e-9)
	assert.InDelta(t, 0.6, mathutil.Clamp(0.95, 0.2, 0.6), 1e-9)
	assert.InDelta(t, 0.4, mathutil.Clamp(0.4, 0.2, 0.6), 1e-9)
}

func TestClamp01_Range(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, mathutil.Clamp01(-3), 1e-9)
	assert.InDelta(t, 1.0, mathutil.Clamp01(42), 1e-9)
}

func TestSafeRatio_ZeroDenominator(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, mathutil.SafeRatio(5, 0), 1e-9)
	assert.InDelta(t, 2.5, mathutil.SafeRatio(5, 2), 1e-9)
}
