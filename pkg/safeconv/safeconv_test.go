package safeconv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/recut/pkg/safeconv"
)

func TestMustIntToUint_Valid(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint(42), safeconv.MustIntToUint(42))
	assert.Equal(t, uint(0), safeconv.MustIntToUint(0))
}

func TestMustIntToUint_NegativePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { safeconv.MustIntToUint(-1) })
}

func TestMustIntToUint32_Bounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(9000), safeconv.MustIntToUint32(9000))
	assert.Panics(t, func() { safeconv.MustIntToUint32(-5) })
}

func TestMustInt64ToInt_Valid(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 123456, safeconv.MustInt64ToInt(123456))
	assert.Equal(t, -7, safeconv.MustInt64ToInt(-7))
}
