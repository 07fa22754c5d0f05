package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stageState stands in for the checkpoint payloads the codecs carry.
type stageState struct {
	Stage    string         `json:"stage"`
	Attempt  int            `json:"attempt"`
	Counters map[string]int `json:"counters"`
}

func sampleState() stageState {
	return stageState{
		Stage:    "engine",
		Attempt:  2,
		Counters: map[string]int{"segments": 42, "insertions": 3},
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	t.Parallel()

	codecs := map[string]Codec{
		"json": NewJSONCodec(),
		"gob":  NewGobCodec(),
		"lz4":  NewLZ4Codec(),
	}

	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			original := sampleState()

			var buf bytes.Buffer
			require.NoError(t, codec.Encode(&buf, original))

			var decoded stageState
			require.NoError(t, codec.Decode(&buf, &decoded))

			assert.Equal(t, original, decoded)
		})
	}
}

func TestLZ4Codec_FrameIsNotPlainJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewLZ4Codec().Encode(&buf, sampleState()))

	assert.NotContains(t, buf.String(), `"stage"`)
	assert.Equal(t, ".json.lz4", NewLZ4Codec().Extension())
}

func TestJSONCodec_Indentation(t *testing.T) {
	t.Parallel()

	var pretty, compact bytes.Buffer

	require.NoError(t, NewJSONCodec().Encode(&pretty, sampleState()))
	require.NoError(t, (&JSONCodec{}).Encode(&compact, sampleState()))

	assert.Contains(t, pretty.String(), defaultIndent)
	assert.LessOrEqual(t, strings.Count(compact.String(), "\n"), 1)
}

func TestJSONCodec_DecodeError(t *testing.T) {
	t.Parallel()

	var decoded stageState

	err := NewJSONCodec().Decode(strings.NewReader("not valid json{{{"), &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json decode")
}

func TestSaveState_WritesUnderFinalName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	require.NoError(t, SaveState(dir, "stage_state", NewJSONCodec(), sampleState()))

	_, err := os.Stat(filepath.Join(dir, "stage_state.json"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp file left behind")
}

func TestSaveState_EncodeFailureLeavesNoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Channels cannot be JSON-encoded.
	err := SaveState(dir, "bad", NewJSONCodec(), make(chan int))
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "bad.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadState_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	original := sampleState()

	require.NoError(t, SaveState(dir, "stage_state", NewLZ4Codec(), original))

	var loaded stageState
	require.NoError(t, LoadState(dir, "stage_state", NewLZ4Codec(), &loaded))

	assert.Equal(t, original, loaded)
}

func TestLoadState_MissingFile(t *testing.T) {
	t.Parallel()

	var state stageState

	err := LoadState(t.TempDir(), "nonexistent", NewJSONCodec(), &state)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadState_CorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("not json{{{"), 0o600))

	var state stageState

	err := LoadState(dir, "corrupt", NewJSONCodec(), &state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
