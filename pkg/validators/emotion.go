package validators

import (
	"context"
	"fmt"
	"sort"

	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
)

// EmotionContinuity walks each character's emotion tags across scenes and
// flags opposite-pair jumps that nothing explains: no transition cue in the
// scene's text and no neutral beat in between.
type EmotionContinuity struct{}

// Name implements Validator.
func (EmotionContinuity) Name() string { return "emotion_continuity" }

// Validate implements Validator.
func (v EmotionContinuity) Validate(ctx context.Context, in Input) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	scenes := make([]analysis.Scene, len(in.Annotations.Scenes))
	copy(scenes, in.Annotations.Scenes)
	sort.SliceStable(scenes, func(i, j int) bool { return scenes[i].Index < scenes[j].Index })

	bank := lexicons.ForLanguage(in.Rewritten.Language)
	report := Report{Validator: v.Name()}

	type tagged struct {
		sceneIdx int
		scenePos int
		emotion  analysis.Emotion
	}

	trails := make(map[string][]tagged)

	var names []string

	for pos, scene := range scenes {
		for name, e := range scene.Emotions {
			if _, seen := trails[name]; !seen {
				names = append(names, name)
			}

			trails[name] = append(trails[name], tagged{sceneIdx: scene.Index, scenePos: pos, emotion: e})
		}
	}

	sort.Strings(names)

	for _, name := range names {
		trail := trails[name]

		for i := 1; i < len(trail); i++ {
			prev, cur := trail[i-1], trail[i]

			if !analysis.AreOpposite(prev.emotion, cur.emotion) {
				continue
			}

			if timeJumpWaived(scenes[cur.scenePos]) {
				continue
			}

			if bank.ContainsAny(in.sceneText(cur.sceneIdx), bank.Transitions()) {
				continue
			}

			if neutralBetween(scenes, name, prev.scenePos, cur.scenePos) {
				continue
			}

			report.Issues = append(report.Issues, Issue{
				Validator:  v.Name(),
				Kind:       "emotion_discontinuity",
				Severity:   SeverityMedium,
				Confidence: 0.7,
				SceneIndex: prev.sceneIdx,
				SceneEnd:   cur.sceneIdx,
				Message: fmt.Sprintf("%s jumps %s → %s between scenes %d and %d with no transition",
					name, prev.emotion, cur.emotion, prev.sceneIdx, cur.sceneIdx),
				Suggestion: "keep a bridging scene or add a transition cue",
			})
		}
	}

	return report, nil
}

// neutralBetween reports whether the character passes through a neutral
// beat in any scene strictly between the two positions.
func neutralBetween(scenes []analysis.Scene, name string, from, to int) bool {
	for pos := from + 1; pos < to; pos++ {
		if e, ok := scenes[pos].Emotions[name]; ok && e == analysis.EmotionNeutral {
			return true
		}
	}

	return false
}
