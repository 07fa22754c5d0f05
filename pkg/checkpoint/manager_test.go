package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enginePayload struct {
	Segments []string `json:"segments"`
	Score    float64  `json:"score"`
}

func testParams() Params {
	return Params{Fingerprint: "abc123", Style: "viral", Seed: 7}
}

func TestManager_SaveLoadStage(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), testParams())

	original := enginePayload{Segments: []string{"a", "b"}, Score: 8.4}
	require.NoError(t, m.SaveStage("engine", original))
	require.True(t, m.Exists())

	var restored enginePayload

	require.True(t, m.LoadStage("engine", &restored))
	assert.Equal(t, original, restored)
}

func TestManager_LoadMissingStage(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), testParams())
	require.NoError(t, m.SaveStage("engine", enginePayload{}))

	var out enginePayload

	assert.False(t, m.LoadStage("planner", &out))
}

func TestManager_NoCheckpointAtAll(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), testParams())

	var out enginePayload

	assert.False(t, m.Exists())
	assert.False(t, m.LoadStage("engine", &out))
}

func TestManager_CorruptPayloadReadsAsAbsent(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), testParams())
	require.NoError(t, m.SaveStage("engine", enginePayload{Score: 1}))

	path := filepath.Join(m.Dir(), "engine.json.lz4")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	data[len(data)/2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o600))

	var out enginePayload

	assert.False(t, m.LoadStage("engine", &out))
}

func TestManager_DifferentParamsDoNotShare(t *testing.T) {
	t.Parallel()

	base := t.TempDir()

	writer := NewManager(base, testParams())
	require.NoError(t, writer.SaveStage("engine", enginePayload{Score: 2}))

	other := testParams()
	other.Seed = 8

	reader := NewManager(base, other)

	var out enginePayload

	assert.False(t, reader.LoadStage("engine", &out))
	assert.NotEqual(t, writer.Dir(), reader.Dir())
}

func TestManager_Clear(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), testParams())
	require.NoError(t, m.SaveStage("engine", enginePayload{}))
	require.NoError(t, m.Clear())

	assert.False(t, m.Exists())
	require.NoError(t, m.Clear(), "clearing twice is fine")
}

func TestManager_StagesListsCheckpointed(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), testParams())
	require.NoError(t, m.SaveStage("engine", enginePayload{}))
	require.NoError(t, m.SaveStage("planner", enginePayload{}))

	assert.ElementsMatch(t, []string{"engine", "planner"}, m.Stages())
}
