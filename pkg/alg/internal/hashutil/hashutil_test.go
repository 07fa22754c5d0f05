package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitmix64_Deterministic(t *testing.T) {
	t.Parallel()

	a := Splitmix64(42)
	b := Splitmix64(42)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Splitmix64(43))
}

func TestMixHash_SeedSeparation(t *testing.T) {
	t.Parallel()

	base := FNV64a([]byte("主人公终于回到了家"))

	assert.NotEqual(t, MixHash(base, 1), MixHash(base, 2))
	assert.Equal(t, MixHash(base, 7), MixHash(base, 7))
}

func TestGenerateSeeds_StableAcrossCalls(t *testing.T) {
	t.Parallel()

	first := GenerateSeeds(16)
	second := GenerateSeeds(16)

	assert.Equal(t, first, second)
	assert.Len(t, first, 16)

	seen := make(map[uint64]bool, len(first))
	for _, s := range first {
		assert.False(t, seen[s], "seed collision")
		seen[s] = true
	}
}

func TestFNV64a_DiffersByContent(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, FNV64a([]byte("hook")), FNV64a([]byte("hook!")))
}
