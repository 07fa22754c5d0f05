package planner

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

func sourceTimeline() timeline.Timeline {
	return timeline.New([]timeline.Segment{
		{StartMS: 0, EndMS: 3000, Text: "John began his long journey at dawn."},
		{StartMS: 3000, EndMS: 6000, Text: "A terrible storm scattered the caravan."},
		{StartMS: 6000, EndMS: 9000, Text: "John finally reached the silent city."},
	})
}

func carried(src timeline.Timeline, idx int) timeline.RewrittenSegment {
	s := src.Segments[idx]

	return timeline.RewrittenSegment{Segment: s, Provenance: []int{s.Index}}
}

func pinned() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	}
}

func TestBuild_LaysOutputEndToEnd(t *testing.T) {
	t.Parallel()

	src := sourceTimeline()

	rewritten := timeline.RewrittenTimeline{
		Segments: []timeline.RewrittenSegment{
			carried(src, 0),
			carried(src, 2),
		},
		Language: src.Language,
	}

	plan, err := Build(src, rewritten, Options{ProjectName: "demo", Now: pinned()})
	require.NoError(t, err)

	require.Len(t, plan.Segments, 2)
	assert.Equal(t, int64(0), plan.Segments[0].OutStartMS)
	assert.Equal(t, int64(3000), plan.Segments[0].OutEndMS)
	assert.Equal(t, int64(3000), plan.Segments[1].OutStartMS)
	assert.Equal(t, int64(6000), plan.Segments[1].OutEndMS)
	assert.Equal(t, int64(6000), plan.TotalDurationMS)

	assert.Equal(t, int64(6000), plan.Segments[1].SrcStartMS)
	assert.Equal(t, int64(9000), plan.Segments[1].SrcEndMS)
}

func TestBuild_ContiguousRunBecomesOneCut(t *testing.T) {
	t.Parallel()

	src := sourceTimeline()

	rewritten := timeline.RewrittenTimeline{
		Segments: []timeline.RewrittenSegment{
			{
				Segment:    src.Segments[0],
				Provenance: []int{1, 2},
			},
		},
		Language: src.Language,
	}

	plan, err := Build(src, rewritten, Options{Now: pinned()})
	require.NoError(t, err)

	require.Len(t, plan.Segments, 1)
	assert.Equal(t, int64(0), plan.Segments[0].SrcStartMS)
	assert.Equal(t, int64(6000), plan.Segments[0].SrcEndMS, "the run hull covers both source segments")
	assert.Equal(t, int64(6000), plan.TotalDurationMS)
}

func TestBuild_NonContiguousProvenanceSplits(t *testing.T) {
	t.Parallel()

	src := sourceTimeline()

	rewritten := timeline.RewrittenTimeline{
		Segments: []timeline.RewrittenSegment{
			{
				Segment:    src.Segments[0],
				Provenance: []int{1, 3},
			},
		},
		Language: src.Language,
	}

	plan, err := Build(src, rewritten, Options{Now: pinned()})
	require.NoError(t, err)

	require.Len(t, plan.Segments, 2, "indices 1 and 3 are not contiguous")
	assert.Equal(t, []int{1}, plan.Segments[0].ProvenanceIDs)
	assert.Equal(t, []int{3}, plan.Segments[1].ProvenanceIDs)
	assert.Equal(t, src.Segments[0].Text, plan.Segments[0].Text)
	assert.Empty(t, plan.Segments[1].Text, "further runs lift media only")
}

func TestBuild_InsertionsAttachToNeighbors(t *testing.T) {
	t.Parallel()

	src := sourceTimeline()

	hook := timeline.RewrittenSegment{
		Segment:   timeline.Segment{Text: "Wait for the ending"},
		Transform: timeline.TagHook,
	}
	trigger := timeline.RewrittenSegment{
		Segment:   timeline.Segment{Text: "Follow for part two"},
		Transform: timeline.TagTrigger,
	}

	rewritten := timeline.RewrittenTimeline{
		Segments: []timeline.RewrittenSegment{hook, carried(src, 1), trigger},
		Language: src.Language,
	}

	plan, err := Build(src, rewritten, Options{Now: pinned()})
	require.NoError(t, err)

	require.Len(t, plan.Segments, 3)

	first, last := plan.Segments[0], plan.Segments[2]

	assert.True(t, first.IsInsertion())
	assert.Zero(t, first.OutSpan().Len(), "insertions consume no output media")
	assert.Equal(t, int64(3000), first.SrcStartMS, "hook anchors at the following cut's source start")

	assert.True(t, last.IsInsertion())
	assert.Equal(t, int64(6000), last.SrcStartMS, "trigger anchors at the preceding cut's source end")

	assert.Equal(t, int64(3000), plan.TotalDurationMS, "only the media cut contributes duration")
}

func TestBuild_RealignsByTextWhenTimingDrifts(t *testing.T) {
	t.Parallel()

	src := sourceTimeline()

	drifted := carried(src, 1)
	drifted.StartMS += 2000
	drifted.Provenance = []int{3}

	rewritten := timeline.RewrittenTimeline{
		Segments: []timeline.RewrittenSegment{drifted},
		Language: src.Language,
	}

	plan, err := Build(src, rewritten, Options{Now: pinned()})
	require.NoError(t, err)

	require.Len(t, plan.Segments, 1)
	assert.Equal(t, []int{2}, plan.Segments[0].ProvenanceIDs,
		"text similarity re-derives the true source segment")
	assert.Equal(t, int64(3000), plan.Segments[0].SrcStartMS)
}

func TestBuild_AlignmentFailure(t *testing.T) {
	t.Parallel()

	src := sourceTimeline()

	alien := timeline.RewrittenSegment{
		Segment: timeline.Segment{
			StartMS: 50_000,
			EndMS:   53_000,
			Text:    "零零零零零零零零",
		},
		Provenance: []int{1},
	}

	_, err := Build(src, timeline.RewrittenTimeline{Segments: []timeline.RewrittenSegment{alien}}, Options{Now: pinned()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlignment))
	assert.Equal(t, faults.KindInternal, faults.KindOf(err))
}

func TestBuild_SourceBeyondMediaDuration(t *testing.T) {
	t.Parallel()

	src := sourceTimeline()

	rewritten := timeline.RewrittenTimeline{
		Segments: []timeline.RewrittenSegment{carried(src, 2)},
		Language: src.Language,
	}

	_, err := Build(src, rewritten, Options{MediaDurationMS: 5000, Now: pinned()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlignment))
}

func TestBuild_RatioWarning(t *testing.T) {
	t.Parallel()

	src := timeline.New([]timeline.Segment{
		{StartMS: 0, EndMS: 1000, Text: "short opening line"},
		{StartMS: 1000, EndMS: 60_000, Text: "a very long stretch of narration"},
	})

	rewritten := timeline.RewrittenTimeline{
		Segments: []timeline.RewrittenSegment{carried(src, 0)},
		Language: src.Language,
	}

	plan, err := Build(src, rewritten, Options{Now: pinned()})
	require.NoError(t, err)

	require.NotEmpty(t, plan.Warnings)
	assert.Contains(t, plan.Warnings[0], "duration ratio")
}

func TestEmitJSON_ValidatesAgainstSchema(t *testing.T) {
	t.Parallel()

	src := sourceTimeline()

	rewritten := timeline.RewrittenTimeline{
		Segments: []timeline.RewrittenSegment{carried(src, 0), carried(src, 1)},
		Language: src.Language,
	}

	plan, err := Build(src, rewritten, Options{ProjectName: "demo", Now: pinned()})
	require.NoError(t, err)

	data, err := EmitJSON(plan)
	require.NoError(t, err)

	var decoded CutPlan

	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, PlanVersion, decoded.Version)
	assert.Equal(t, "demo", decoded.ProjectName)
	assert.Equal(t, plan.TotalDurationMS, decoded.TotalDurationMS)
}

func TestValidateJSON_RejectsWrongVersion(t *testing.T) {
	t.Parallel()

	bad := []byte(`{
		"version": 2,
		"project_name": "demo",
		"created_at": "2026-08-26T12:00:00Z",
		"total_duration_ms": 0,
		"segments": []
	}`)

	err := ValidateJSON(bad)
	require.Error(t, err)
	assert.Equal(t, faults.KindInternal, faults.KindOf(err))
}

func TestTextSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, TextSimilarity("the same line", "the same line"), 1e-9)
	assert.Less(t, TextSimilarity("abcdef ghijkl", "零一二三四五"), simAcceptThreshold)

	similar := TextSimilarity(
		"A terrible storm scattered the caravan, and it gets absolutely wild",
		"A terrible storm scattered the caravan.",
	)
	assert.Greater(t, similar, simAcceptThreshold)
}
