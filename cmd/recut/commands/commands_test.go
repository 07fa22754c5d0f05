package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/recut/pkg/budget"
	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/snapshot"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:03,000
John opened the door and froze at what he saw.

2
00:00:04,000 --> 00:00:07,500
The room was empty, but the window stood wide open.

3
00:00:08,500 --> 00:00:12,000
He finally understood why Mary had warned him to stay away.

4
00:00:13,000 --> 00:00:16,000
In the end they talked it through and made peace.
`

// testEnv pins the contract environment to per-test directories.
func testEnv(t *testing.T) string {
	t.Helper()

	snapDir := filepath.Join(t.TempDir(), "snapshots")

	t.Setenv("SNAPSHOT_DIR", snapDir)
	t.Setenv("ANCHOR_DIR", filepath.Join(t.TempDir(), "anchors"))
	t.Setenv("RECUT_CHECKPOINT_ENABLED", "false")

	return snapDir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	app := &App{}
	root := NewRootCommand(app)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	app.shutdown()

	return out.String(), err
}

func writeSample(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "episode.srt")
	require.NoError(t, os.WriteFile(path, []byte(sampleSRT), 0o600))

	return path
}

func TestSetup_FailsFastBelowMinimumBudget(t *testing.T) {
	testEnv(t)
	t.Setenv("MAX_RESIDENT_MEMORY_MIB", "64")

	_, err := runCLI(t, "audit")
	require.Error(t, err)
	require.ErrorIs(t, err, budget.ErrBudgetTooSmall)
	assert.Equal(t, faults.KindResource, faults.KindOf(err))
	assert.Equal(t, 3, faults.ExitCode(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "recut ")
}

func TestReconstruct_EmitsPlanJSON(t *testing.T) {
	snapDir := testEnv(t)

	out, err := runCLI(t, "reconstruct", writeSample(t), "--seed", "7", "--style", "viral")
	require.NoError(t, err)

	var plan map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &plan), "stdout is plan JSON")
	assert.EqualValues(t, 1, plan["version"])
	assert.Equal(t, "episode", plan["project_name"])
	assert.NotEmpty(t, plan["segments"])

	entries, err := os.ReadDir(snapDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "plan was snapshotted")
}

func TestReconstruct_UnknownStyle(t *testing.T) {
	testEnv(t)

	_, err := runCLI(t, "reconstruct", writeSample(t), "--style", "operatic")
	require.Error(t, err)
	assert.Equal(t, faults.KindInput, faults.KindOf(err))
}

func TestReconstruct_WritesPlot(t *testing.T) {
	testEnv(t)
	plotPath := filepath.Join(t.TempDir(), "curve.html")

	_, err := runCLI(t, "reconstruct", writeSample(t), "--plot", plotPath)
	require.NoError(t, err)

	data, err := os.ReadFile(plotPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")
}

func TestSnapshotListAndRestore(t *testing.T) {
	snapDir := testEnv(t)

	store, err := snapshot.Open(snapshot.Options{Dir: snapDir})
	require.NoError(t, err)

	node, err := store.Take(context.Background(), `{"plan":1}`, "reconstruct",
		snapshot.KindLinear, snapshot.TakeOptions{})
	require.NoError(t, err)

	out, err := runCLI(t, "snapshot", "list")
	require.NoError(t, err)
	assert.Contains(t, out, node.ID)
	assert.Contains(t, out, "linear")

	out, err = runCLI(t, "snapshot", "restore", node.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, `{"plan":1}`, strings.TrimSpace(out))
}

func TestAudit_CleanStoreExitsZero(t *testing.T) {
	snapDir := testEnv(t)

	store, err := snapshot.Open(snapshot.Options{Dir: snapDir})
	require.NoError(t, err)

	_, err = store.Take(context.Background(), "content", "reconstruct",
		snapshot.KindLinear, snapshot.TakeOptions{})
	require.NoError(t, err)

	out, err := runCLI(t, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, `"clean"`)
}

func TestAudit_ByteFlipFailsWithExitOne(t *testing.T) {
	snapDir := testEnv(t)

	store, err := snapshot.Open(snapshot.Options{Dir: snapDir})
	require.NoError(t, err)

	node, err := store.Take(context.Background(), "registered content", "reconstruct",
		snapshot.KindLinear, snapshot.TakeOptions{})
	require.NoError(t, err)

	blobPath := filepath.Join(snapDir, node.ID+".json")
	data, err := os.ReadFile(blobPath)
	require.NoError(t, err)

	data[len(data)/2] ^= 0x01
	require.NoError(t, os.WriteFile(blobPath, data, 0o600))

	out, err := runCLI(t, "audit")
	require.Error(t, err)

	assert.Equal(t, 1, faults.ExitCode(err))
	assert.Contains(t, out, node.ID, "report still lists the tampered blob")
}

func TestAudit_SurfacesOrphanAnchors(t *testing.T) {
	snapDir := testEnv(t)
	anchorDir := filepath.Join(t.TempDir(), "anchors")
	t.Setenv("ANCHOR_DIR", anchorDir)

	store, err := snapshot.Open(snapshot.Options{Dir: snapDir})
	require.NoError(t, err)

	root, err := store.Take(context.Background(), "root", "reconstruct",
		snapshot.KindLinear, snapshot.TakeOptions{})
	require.NoError(t, err)

	leaf, err := store.Take(context.Background(), "leaf", "reconstruct",
		snapshot.KindLinear, snapshot.TakeOptions{})
	require.NoError(t, err)

	anchors, err := snapshot.OpenAnchors(anchorDir)
	require.NoError(t, err)

	anchor, err := anchors.Put(leaf.ID, snapshot.AnchorMilestone, 5, nil)
	require.NoError(t, err)

	_, err = store.Restore(root.ID)
	require.NoError(t, err)
	require.NoError(t, store.Delete(leaf.ID, false))

	out, err := runCLI(t, "audit")
	require.NoError(t, err, "orphan anchors are surfaced, not failures")
	assert.Contains(t, out, anchor.ID)
	assert.Contains(t, out, "orphan_anchors")
}

func TestAudit_SecureNeedsSecretKey(t *testing.T) {
	testEnv(t)

	_, err := runCLI(t, "audit", "--secure")
	require.Error(t, err)
	assert.Equal(t, faults.KindInput, faults.KindOf(err))
}

func TestVerify_PathArgument(t *testing.T) {
	testEnv(t)
	dir := t.TempDir()

	store, err := snapshot.Open(snapshot.Options{Dir: dir})
	require.NoError(t, err)

	_, err = store.Take(context.Background(), "x", "reconstruct",
		snapshot.KindLinear, snapshot.TakeOptions{})
	require.NoError(t, err)

	_, err = runCLI(t, "verify", dir)
	require.NoError(t, err)
}
