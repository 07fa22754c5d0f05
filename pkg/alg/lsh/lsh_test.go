package lsh

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/recut/pkg/alg/minhash"
)

const (
	testBands = 16
	testRows  = 8
)

func sigFromTokens(t *testing.T, tokens ...string) *minhash.Signature {
	t.Helper()

	sig, err := minhash.New(testBands * testRows)
	require.NoError(t, err)

	for _, tok := range tokens {
		sig.Add([]byte(tok))
	}

	return sig
}

func TestNew_RejectsBadParams(t *testing.T) {
	t.Parallel()

	_, err := New(0, 8)
	require.ErrorIs(t, err, ErrInvalidParams)

	_, err = New(16, -1)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestInsertQuery_NearDuplicateSurfaces(t *testing.T) {
	t.Parallel()

	idx, err := New(testBands, testRows)
	require.NoError(t, err)

	original := sigFromTokens(t, "他", "推开", "门", "看见", "空荡荡", "的", "房间", "愣住", "了")
	require.NoError(t, idx.Insert("take-1", original))

	// One token changed out of nine.
	variant := sigFromTokens(t, "他", "推开", "门", "看见", "空荡荡", "的", "房间", "呆住", "了")

	candidates, err := idx.Query(variant)
	require.NoError(t, err)
	assert.Contains(t, candidates, "take-1")
}

func TestQueryThreshold_FiltersDissimilar(t *testing.T) {
	t.Parallel()

	idx, err := New(testBands, testRows)
	require.NoError(t, err)

	require.NoError(t, idx.Insert("near", sigFromTokens(t, "a", "b", "c", "d", "e", "f")))
	require.NoError(t, idx.Insert("far", sigFromTokens(t, "u", "v", "w", "x", "y", "z")))

	probe := sigFromTokens(t, "a", "b", "c", "d", "e", "g")

	hits, err := idx.QueryThreshold(probe, 0.5)
	require.NoError(t, err)

	assert.Contains(t, hits, "near")
	assert.NotContains(t, hits, "far")
}

func TestInsert_ReplacesExistingID(t *testing.T) {
	t.Parallel()

	idx, err := New(testBands, testRows)
	require.NoError(t, err)

	require.NoError(t, idx.Insert("take", sigFromTokens(t, "old", "content")))
	require.NoError(t, idx.Insert("take", sigFromTokens(t, "completely", "new", "words")))

	assert.Equal(t, 1, idx.Len())

	hits, err := idx.QueryThreshold(sigFromTokens(t, "completely", "new", "words"), 0.9)
	require.NoError(t, err)
	assert.Equal(t, []string{"take"}, hits)
}

func TestRemove_DropsSignature(t *testing.T) {
	t.Parallel()

	idx, err := New(testBands, testRows)
	require.NoError(t, err)

	sig := sigFromTokens(t, "ephemeral", "take")
	require.NoError(t, idx.Insert("gone", sig))
	idx.Remove("gone")
	idx.Remove("never-existed")

	assert.Equal(t, 0, idx.Len())

	candidates, err := idx.Query(sig)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSizeMismatch(t *testing.T) {
	t.Parallel()

	idx, err := New(testBands, testRows)
	require.NoError(t, err)

	small, err := minhash.New(8)
	require.NoError(t, err)

	require.ErrorIs(t, idx.Insert("x", small), ErrSizeMismatch)

	_, err = idx.Query(small)
	require.ErrorIs(t, err, ErrSizeMismatch)

	require.ErrorIs(t, idx.Insert("x", nil), ErrNilSignature)
}

func TestQuery_ManyTakes(t *testing.T) {
	t.Parallel()

	idx, err := New(testBands, testRows)
	require.NoError(t, err)

	for i := range 50 {
		sig := sigFromTokens(t, fmt.Sprintf("unique-%d-a", i), fmt.Sprintf("unique-%d-b", i))
		require.NoError(t, idx.Insert(fmt.Sprintf("take-%d", i), sig))
	}

	assert.Equal(t, 50, idx.Len())

	probe := sigFromTokens(t, "unique-17-a", "unique-17-b")

	hits, err := idx.QueryThreshold(probe, 0.95)
	require.NoError(t, err)
	assert.Equal(t, []string{"take-17"}, hits)
}
