package units_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/recut/pkg/units"
)

func TestMultipliers_Relationships(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1024, units.KiB)
	assert.Equal(t, 1024*units.KiB, units.MiB)
	assert.Equal(t, 1024*units.MiB, units.GiB)
}

func TestMiBToBytes_RoundTrip(t *testing.T) {
	t.Parallel()

	bytes := units.MiBToBytes(3800)

	assert.Equal(t, int64(3800)*1024*1024, bytes)
	assert.InDelta(t, 3800.0, units.BytesToMiB(bytes), 1e-9)
}
