package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/recut/pkg/backend"
	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

func storyTimeline(texts ...string) timeline.Timeline {
	segments := make([]timeline.Segment, len(texts))

	for i, text := range texts {
		segments[i] = timeline.Segment{
			StartMS: int64(i) * 4000,
			EndMS:   int64(i+1) * 4000,
			Text:    text,
		}
	}

	return timeline.New(segments)
}

func dramaticStory() timeline.Timeline {
	return storyTimeline(
		"Once upon a time, John lived a quiet and happy life.",
		"One day John met Mary and they fell in love.",
		"But suddenly Mary discovered a shocking betrayal.",
		"John and Mary had a devastating fight, full of anger and pain.",
		"Mary walked away in despair, and John was lost and broken.",
		"In the end they chose to forgive each other and found peace.",
	)
}

func TestReconstruct_Deterministic(t *testing.T) {
	t.Parallel()

	tl := dramaticStory()
	opts := Options{Seed: 42}

	first, err := Reconstruct(context.Background(), tl, opts)
	require.NoError(t, err)

	second, err := Reconstruct(context.Background(), tl, opts)
	require.NoError(t, err)

	assert.Equal(t, first.Rewritten, second.Rewritten)
	assert.Equal(t, first.Score, second.Score)
}

func TestReconstruct_SourceTextSurvivesVerbatim(t *testing.T) {
	t.Parallel()

	tl := dramaticStory()

	byIndex := make(map[int]string, len(tl.Segments))
	for _, s := range tl.Segments {
		byIndex[s.Index] = s.Text
	}

	res, err := Reconstruct(context.Background(), tl, Options{Seed: 7})
	require.NoError(t, err)
	require.NotEmpty(t, res.Rewritten.Segments)

	for _, seg := range res.Rewritten.Segments {
		if seg.IsInsertion() {
			continue
		}

		src := byIndex[seg.Provenance[0]]
		assert.Contains(t, seg.Text, src,
			"carried segment %v must keep its source text verbatim", seg.Provenance)
	}
}

func TestReconstruct_HookOpensTheCut(t *testing.T) {
	t.Parallel()

	res, err := Reconstruct(context.Background(), dramaticStory(), Options{Seed: 1})
	require.NoError(t, err)
	require.NotEmpty(t, res.Rewritten.Segments)

	first := res.Rewritten.Segments[0]
	assert.Equal(t, timeline.TagHook, first.Transform)
	assert.True(t, first.IsInsertion(), "the hook consumes no source media")
	assert.NotEmpty(t, first.Text)
}

func TestPrependHook_SkipsWhenAlreadyHooked(t *testing.T) {
	t.Parallel()

	hook := lexicons.ForLanguage(timeline.LangEN).Hooks(lexicons.HookIntense)[0]

	tl := storyTimeline(
		hook.Text,
		"Then the story unfolds.",
	)

	tr := &transformer{
		tl: tl,
		features: analysis.Features{
			Dominant:  backend.AxisIntense,
			Intensity: hook.Intensity,
			Arc:       analysis.Arc{ClimaxIndex: -1},
		},
		bank: lexicons.ForLanguage(timeline.LangEN),
		opts: Options{},
	}

	out := tr.run(context.Background())

	assert.NotEqual(t, timeline.TagHook, out.Segments[0].Transform,
		"a first segment that already reads as a hook is not double-hooked")
}

func TestReconstruct_SingleSegmentNeverEmpty(t *testing.T) {
	t.Parallel()

	tl := storyTimeline("A single devastating moment of betrayal and despair.")

	res, err := Reconstruct(context.Background(), tl, Options{Seed: 3})
	require.NoError(t, err)

	require.NotEmpty(t, res.Rewritten.Segments)
	assert.Contains(t, res.Rewritten.CombinedText(), tl.Segments[0].Text)
}

func TestReconstruct_EmptyTimeline(t *testing.T) {
	t.Parallel()

	res, err := Reconstruct(context.Background(), timeline.New(nil), Options{Seed: 3})
	require.NoError(t, err)

	assert.Empty(t, res.Rewritten.Segments)
	assert.False(t, res.Fallback)
}

func TestReconstruct_MinimalStyleLeavesTextUntouched(t *testing.T) {
	t.Parallel()

	tl := dramaticStory()

	byIndex := make(map[int]string, len(tl.Segments))
	for _, s := range tl.Segments {
		byIndex[s.Index] = s.Text
	}

	res, err := Reconstruct(context.Background(), tl, Options{Style: StyleMinimal, Seed: 5})
	require.NoError(t, err)
	require.NotEmpty(t, res.Rewritten.Segments)
	assert.False(t, res.Fallback)

	for _, seg := range res.Rewritten.Segments {
		require.False(t, seg.IsInsertion(), "minimal style inserts nothing")
		assert.Equal(t, byIndex[seg.Provenance[0]], seg.Text)
	}
}

func TestReconstruct_ShortTimelineSkipsPacing(t *testing.T) {
	t.Parallel()

	tl := storyTimeline(
		"A shocking and devastating betrayal.",
		"They forgave each other and found peace.",
	)

	res, err := Reconstruct(context.Background(), tl, Options{Seed: 11})
	require.NoError(t, err)

	for _, seg := range res.Rewritten.Segments {
		assert.NotEqual(t, timeline.TagSuspense, seg.Transform,
			"below the pacing minimum no suspense beat is inserted")
	}

	assert.Len(t, res.Rewritten.ProvenanceCover(), 2, "reallocation never drops from a short timeline")
}

func TestReconstruct_LowEngagementSkipsTrigger(t *testing.T) {
	t.Parallel()

	tl := storyTimeline(
		"The committee reviewed the quarterly schedule.",
		"The minutes were recorded and filed.",
		"The session adjourned at noon.",
	)

	res, err := Reconstruct(context.Background(), tl, Options{Style: StyleFormal, Seed: 2})
	require.NoError(t, err)

	for _, seg := range res.Rewritten.Segments {
		assert.NotEqual(t, timeline.TagTrigger, seg.Transform)
	}
}

func TestReconstruct_ReallocationProtectsArc(t *testing.T) {
	t.Parallel()

	tl := dramaticStory()

	res, err := Reconstruct(context.Background(), tl, Options{Seed: 13, TargetRatio: 0.5})
	require.NoError(t, err)

	carried := make(map[int]bool)
	for _, idx := range res.Rewritten.ProvenanceCover() {
		carried[idx] = true
	}

	assert.True(t, carried[tl.Segments[0].Index], "the beginning survives reallocation")
	assert.True(t, carried[tl.Segments[len(tl.Segments)-1].Index], "the resolution survives reallocation")
}

func TestScore_WeakestPrefersHeavierWeightOnTies(t *testing.T) {
	t.Parallel()

	s := Score{LengthGrowth: 2, ViralDensity: 2, Amplification: 9, Structural: 9, Originality: 9}
	assert.Equal(t, dimViralDensity, s.weakest(), "viral density outweighs length growth")

	s = Score{LengthGrowth: 1, ViralDensity: 8, Amplification: 8, Structural: 8, Originality: 8}
	assert.Equal(t, dimLengthGrowth, s.weakest())
}

func TestScoreCandidate_UntouchedCopyScoresLow(t *testing.T) {
	t.Parallel()

	tl := dramaticStory()

	features, err := analysis.Run(context.Background(), tl, analysis.Params{})
	require.NoError(t, err)

	tr := &transformer{tl: tl, features: features, bank: lexicons.ForLanguage(tl.Language)}

	plain := timeline.RewrittenTimeline{
		Segments: tr.carrySource(),
		Language: tl.Language,
	}

	score := scoreCandidate(tl, plain, features)

	assert.Zero(t, score.LengthGrowth)
	assert.Zero(t, score.ViralDensity)
	assert.Less(t, score.Total, fallbackScore)
}

func TestStyleValid(t *testing.T) {
	t.Parallel()

	assert.True(t, StyleViral.Valid())
	assert.True(t, StyleFormal.Valid())
	assert.True(t, StyleMinimal.Valid())
	assert.False(t, Style("aggressive").Valid())
}

func TestRenderCurve(t *testing.T) {
	t.Parallel()

	tl := dramaticStory()

	features, err := analysis.Run(context.Background(), tl, analysis.Params{})
	require.NoError(t, err)

	var buf strings.Builder

	require.NoError(t, RenderCurve(&buf, features))

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Emotion Curve")
}
