package framework_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Sumatoshi-tech/recut/pkg/backend"
	"github.com/Sumatoshi-tech/recut/pkg/engine"
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/framework"
	"github.com/Sumatoshi-tech/recut/pkg/governor"
	"github.com/Sumatoshi-tech/recut/pkg/planner"
	"github.com/Sumatoshi-tech/recut/pkg/snapshot"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
	"github.com/Sumatoshi-tech/recut/pkg/units"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

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

func writeSampleSRT(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "episode.srt")
	require.NoError(t, os.WriteFile(path, []byte(sampleSRT), 0o600))

	return path
}

// stubGovernor keeps every test on the 8 MiB stub variant.
func stubGovernor(t *testing.T, ceilingMiB int64) *governor.Governor {
	t.Helper()

	registry := backend.NewRegistry()
	registry.Prefer(timeline.LangEN, backend.VariantStub)
	registry.Prefer(timeline.LangZH, backend.VariantStub)

	g := governor.New(governor.Config{
		CeilingBytes: units.MiBToBytes(ceilingMiB),
		Registry:     registry,
	})
	t.Cleanup(g.Close)

	return g
}

func openTestStore(t *testing.T) *snapshot.Store {
	t.Helper()

	store, err := snapshot.Open(snapshot.Options{Dir: t.TempDir()})
	require.NoError(t, err)

	return store
}

func TestCoordinator_RunsJobEndToEnd(t *testing.T) {
	store := openTestStore(t)

	coord := framework.New(framework.Config{
		Workers:  2,
		Governor: stubGovernor(t, 512),
		Store:    store,
	})

	results, err := coord.Run(context.Background(), []framework.Job{{
		SRTPath:     writeSampleSRT(t),
		Style:       engine.StyleViral,
		Seed:        7,
		ProjectName: "episode",
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	require.NoError(t, res.Err)

	assert.Equal(t, timeline.LangEN, res.Timeline.Language)
	assert.NotEmpty(t, res.PlanJSON)
	assert.True(t, res.Validation.Accepted)
	assert.NotEmpty(t, res.Snapshot.ID)
	assert.Equal(t, 1, store.Len())
}

const sampleSRTzh = `1
00:00:00,000 --> 00:00:03,000
他推开门，被眼前的景象吓住了。

2
00:00:04,000 --> 00:00:07,500
房间空无一人，窗户却大开着。

3
00:00:08,500 --> 00:00:12,000
他终于明白她为什么警告他不要靠近。

4
00:00:13,000 --> 00:00:16,000
最后他们把话说开，彼此和解了。
`

func TestCoordinator_ChineseJobEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode_zh.srt")
	require.NoError(t, os.WriteFile(path, []byte(sampleSRTzh), 0o600))

	store := openTestStore(t)
	coord := framework.New(framework.Config{
		Governor: stubGovernor(t, 512),
		Store:    store,
	})

	results, err := coord.Run(context.Background(), []framework.Job{{
		SRTPath:     path,
		Seed:        5,
		ProjectName: "episode-zh",
	}})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	assert.Equal(t, timeline.LangZH, results[0].Timeline.Language)
	assert.True(t, results[0].Validation.Accepted)
	assert.NotEmpty(t, results[0].PlanJSON)
}

const minimalSRTzh = `1
00:00:00,000 --> 00:00:03,000
今天天气很好

2
00:00:03,000 --> 00:00:06,000
我去了公园散步

3
00:00:06,000 --> 00:00:09,000
心情变得很愉快
`

const minimalSRTen = `1
00:00:00,000 --> 00:00:03,000
The weather is wonderful today

2
00:00:03,000 --> 00:00:06,000
I took a happy walk in the park

3
00:00:06,000 --> 00:00:09,000
My heart filled with joy
`

// runMinimalStory pushes a three-block narration through the full pipeline
// and checks the shape a minimal story must keep: every source cut survives,
// the plan opens on a positive hook, and nothing trips the validators.
func runMinimalStory(t *testing.T, srt string, lang timeline.Language) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "minimal.srt")
	require.NoError(t, os.WriteFile(path, []byte(srt), 0o600))

	store := openTestStore(t)
	coord := framework.New(framework.Config{
		Governor: stubGovernor(t, 512),
		Store:    store,
	})

	results, err := coord.Run(context.Background(), []framework.Job{{
		SRTPath:     path,
		Style:       engine.StyleViral,
		Seed:        9,
		ProjectName: "minimal",
	}})
	require.NoError(t, err)

	res := results[0]
	require.NoError(t, res.Err)
	assert.Equal(t, lang, res.Timeline.Language)

	var cuts []planner.Segment

	for _, seg := range res.Plan.Segments {
		if !seg.IsInsertion() {
			cuts = append(cuts, seg)
		}
	}

	require.Len(t, cuts, 3, "every source block survives as a cut")

	covered := int64(0)
	for _, cut := range cuts {
		covered += cut.SrcEndMS - cut.SrcStartMS
	}

	assert.Equal(t, int64(0), cuts[0].SrcStartMS)
	assert.Equal(t, int64(9000), cuts[2].SrcEndMS)
	assert.Equal(t, int64(9000), covered, "source intervals union to the full story")

	opening := res.Plan.Segments[0]
	require.True(t, opening.IsInsertion(), "the plan opens on the hook")

	hooks := lexicons.ForLanguage(lang).Hooks(lexicons.HookPositive)
	texts := make([]string, 0, len(hooks))

	for _, h := range hooks {
		texts = append(texts, h.Text)
	}

	assert.Contains(t, texts, opening.Text, "the hook comes from the positive bank")

	assert.True(t, res.Validation.Accepted)
	assert.NotEmpty(t, res.Snapshot.ID)
}

func TestCoordinator_MinimalChineseStory(t *testing.T) {
	runMinimalStory(t, minimalSRTzh, timeline.LangZH)
}

func TestCoordinator_MinimalEnglishStory(t *testing.T) {
	runMinimalStory(t, minimalSRTen, timeline.LangEN)
}

func TestCoordinator_ResumesFromCheckpoint(t *testing.T) {
	ckptDir := t.TempDir()
	srtPath := writeSampleSRT(t)

	cfg := framework.Config{
		Governor:      stubGovernor(t, 512),
		CheckpointDir: ckptDir,
		Resume:        true,
	}

	job := framework.Job{SRTPath: srtPath, Seed: 11, ProjectName: "episode"}

	first, err := framework.New(cfg).Run(context.Background(), []framework.Job{job})
	require.NoError(t, err)
	require.NoError(t, first[0].Err)
	assert.False(t, first[0].Resumed)

	second, err := framework.New(cfg).Run(context.Background(), []framework.Job{job})
	require.NoError(t, err)
	require.NoError(t, second[0].Err)
	assert.True(t, second[0].Resumed)

	assert.Equal(t, first[0].PlanJSON, second[0].PlanJSON, "resumed run reproduces the plan")
}

func TestCoordinator_MissingInputIsInputFault(t *testing.T) {
	coord := framework.New(framework.Config{Governor: stubGovernor(t, 512)})

	results, err := coord.Run(context.Background(), []framework.Job{{
		SRTPath: filepath.Join(t.TempDir(), "absent.srt"),
	}})
	require.NoError(t, err)

	require.Error(t, results[0].Err)
	assert.Equal(t, faults.KindInput, faults.KindOf(results[0].Err))
	assert.Equal(t, 2, faults.ExitCode(results[0].Err))
}

func TestCoordinator_MemoryExhaustionIsRetriableResourceFault(t *testing.T) {
	registry := backend.NewRegistry()
	registry.Register("oversized", func(lang timeline.Language) backend.GenerationBackend {
		return backend.NewStubSized(lang, units.MiBToBytes(128))
	})
	registry.Prefer(timeline.LangEN, "oversized")

	g := governor.New(governor.Config{
		CeilingBytes: units.MiBToBytes(64),
		Registry:     registry,
	})
	t.Cleanup(g.Close)

	coord := framework.New(framework.Config{Governor: g})

	results, err := coord.Run(context.Background(), []framework.Job{{
		SRTPath: writeSampleSRT(t),
	}})
	require.NoError(t, err)

	require.Error(t, results[0].Err)
	assert.Equal(t, faults.KindResource, faults.KindOf(results[0].Err))
	assert.Equal(t, 3, faults.ExitCode(results[0].Err))
}

func TestCoordinator_RunsJobsConcurrently(t *testing.T) {
	store := openTestStore(t)
	srtPath := writeSampleSRT(t)

	coord := framework.New(framework.Config{
		Workers:  3,
		Governor: stubGovernor(t, 512),
		Store:    store,
	})

	jobs := []framework.Job{
		{SRTPath: srtPath, Seed: 1, ProjectName: "a"},
		{SRTPath: srtPath, Seed: 2, ProjectName: "b"},
		{SRTPath: srtPath, Seed: 3, ProjectName: "c"},
	}

	results, err := coord.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, res := range results {
		require.NoError(t, res.Err, "job %d", i)
		assert.Equal(t, jobs[i].ProjectName, res.Job.ProjectName, "results keep input order")
	}

	assert.Equal(t, 3, store.Len())
}

func TestCoordinator_CanceledContextStopsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coord := framework.New(framework.Config{Governor: stubGovernor(t, 512)})

	results, err := coord.Run(ctx, []framework.Job{{SRTPath: writeSampleSRT(t)}})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.True(t, faults.IsCanceled(results[0].Err))
}
