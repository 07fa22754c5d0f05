package sandbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/recut/pkg/alg/span"
	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/validators"
	"github.com/Sumatoshi-tech/recut/pkg/validators/sandbox"
)

// cleanStory is a four-scene baseline that passes every validator: spaced
// scenes, a resolved problem, consistent emotions via a neutral beat.
func cleanStory() analysis.Annotations {
	return analysis.Annotations{
		Scenes: []analysis.Scene{
			{
				Index: 1, Span: span.Span{Start: 0, End: 30_000},
				Characters: []string{"Alice", "Bob"},
				Emotions:   map[string]analysis.Emotion{"Alice": analysis.EmotionJoy},
			},
			{
				Index: 2, Span: span.Span{Start: 90_000, End: 120_000},
				Characters: []string{"Alice"},
				Emotions:   map[string]analysis.Emotion{"Alice": analysis.EmotionNeutral},
			},
			{
				Index: 3, Span: span.Span{Start: 180_000, End: 210_000},
				Characters: []string{"Alice", "Bob"},
				Emotions:   map[string]analysis.Emotion{"Alice": analysis.EmotionSorrow},
			},
			{
				Index: 4, Span: span.Span{Start: 270_000, End: 300_000},
				Characters: []string{"Bob"},
			},
		},
		Events: []analysis.Event{
			{ID: "p1", SceneIndex: 1, Type: analysis.EventProblem, Importance: 5, Characters: []string{"Alice"}},
			{ID: "r1", SceneIndex: 3, Type: analysis.EventResolution, Importance: 5, Characters: []string{"Alice"}},
		},
	}
}

func run(t *testing.T, ann analysis.Annotations) validators.ValidationReport {
	t.Helper()

	verdict, err := validators.Run(context.Background(), validators.Input{
		Annotations: ann,
		Rules:       validators.DefaultRules(),
	})
	require.NoError(t, err)

	return verdict
}

func hasKind(verdict validators.ValidationReport, kind string) bool {
	for _, report := range verdict.Reports {
		for _, issue := range report.Issues {
			if issue.Kind == kind {
				return true
			}
		}
	}

	return false
}

func TestCleanBaselineHasNoIssues(t *testing.T) {
	t.Parallel()

	verdict := run(t, cleanStory())
	assert.Zero(t, verdict.IssueCount)
	assert.True(t, verdict.Accepted)
}

func TestInject_EachDefectIsDetected(t *testing.T) {
	t.Parallel()

	detectedKind := map[sandbox.Defect]string{
		sandbox.DefectTimeJump:       "scene_overlap",
		sandbox.DefectPropTeleport:   "prop_teleport",
		sandbox.DefectCharacterClone: "bilocation",
		sandbox.DefectCausalityBreak: "temporal_paradox",
		sandbox.DefectDialogueMix:    "anachronism",
		sandbox.DefectEmotionFlip:    "emotion_flip",
	}

	for _, defect := range sandbox.All() {
		t.Run(string(defect), func(t *testing.T) {
			t.Parallel()

			injected := sandbox.New(7).Inject(cleanStory(), defect)
			verdict := run(t, injected)

			assert.True(t, hasKind(verdict, detectedKind[defect]),
				"defect %s not detected", defect)
		})
	}
}

func TestInject_SeedReproducesPlacement(t *testing.T) {
	t.Parallel()

	a := sandbox.New(42).Inject(cleanStory(), sandbox.DefectTimeJump)
	b := sandbox.New(42).Inject(cleanStory(), sandbox.DefectTimeJump)

	assert.Equal(t, a, b)
}

func TestInject_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	original := cleanStory()
	pristine := cleanStory()

	sandbox.New(1).Inject(original, sandbox.DefectPropTeleport)
	assert.Equal(t, pristine, original)
}

func TestInject_TooFewScenesReturnsUnchanged(t *testing.T) {
	t.Parallel()

	ann := analysis.Annotations{Scenes: []analysis.Scene{{Index: 1}}}
	out := sandbox.New(1).Inject(ann, sandbox.DefectTimeJump)

	assert.Equal(t, ann, out)
}
