package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
)

// longWordRunes is the rune length from which an ASCII word counts toward
// vocabulary complexity.
const longWordRunes = 8

// maxEmotionSwitches is how many opposite-polarity switches one speaker may
// make inside a scene.
const maxEmotionSwitches = 1

// DialogueLogic checks utterances against their scene: era-inappropriate
// referents, vocabulary beyond the speaker's education, and emotional
// whiplash inside a single scene.
type DialogueLogic struct{}

// Name implements Validator.
func (DialogueLogic) Name() string { return "dialogue_logic" }

// Validate implements Validator.
func (v DialogueLogic) Validate(ctx context.Context, in Input) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	report := Report{Validator: v.Name()}

	for _, scene := range in.Annotations.Scenes {
		report.Issues = append(report.Issues, v.anachronisms(scene, in.Rules)...)
		report.Issues = append(report.Issues, v.vocabulary(scene, in.Rules)...)
		report.Issues = append(report.Issues, v.whiplash(scene)...)
	}

	return report, nil
}

// anachronisms flags referents that do not exist yet in the scene's era.
func (v DialogueLogic) anachronisms(scene analysis.Scene, rules Rules) []Issue {
	if scene.Era == 0 || len(rules.EraReferents) == 0 {
		return nil
	}

	var issues []Issue

	for _, u := range scene.Utterances {
		norm := textutil.Normalize(u.Text)

		for referent, firstYear := range rules.EraReferents {
			if firstYear <= scene.Era || !strings.Contains(norm, referent) {
				continue
			}

			issues = append(issues, Issue{
				Validator:  v.Name(),
				Kind:       "anachronism",
				Severity:   SeverityHigh,
				Confidence: 0.9,
				SceneIndex: scene.Index,
				Message: fmt.Sprintf("%s mentions %q in %d, before it exists (%d)",
					u.Speaker, referent, scene.Era, firstYear),
			})
		}
	}

	sortIssuesByMessage(issues)

	return issues
}

// vocabulary flags speakers whose long-word ratio exceeds their declared
// education level.
func (v DialogueLogic) vocabulary(scene analysis.Scene, rules Rules) []Issue {
	if len(scene.Education) == 0 || len(rules.EducationComplexity) == 0 {
		return nil
	}

	var issues []Issue

	for _, u := range scene.Utterances {
		level, ok := scene.Education[u.Speaker]
		if !ok {
			continue
		}

		ceiling, ok := rules.EducationComplexity[level]
		if !ok {
			continue
		}

		ratio := longWordRatio(u.Text)
		if ratio <= ceiling {
			continue
		}

		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "vocabulary_mismatch",
			Severity:   SeverityMedium,
			Confidence: 0.6,
			SceneIndex: scene.Index,
			Message: fmt.Sprintf("%s (%s education) speaks with long-word ratio %.2f, above %.2f",
				u.Speaker, level, ratio, ceiling),
		})
	}

	return issues
}

// whiplash counts opposite-polarity emotion switches per speaker within the
// scene.
func (v DialogueLogic) whiplash(scene analysis.Scene) []Issue {
	last := make(map[string]analysis.Emotion)
	switches := make(map[string]int)

	for _, u := range scene.Utterances {
		if u.Emotion == "" {
			continue
		}

		if prev, ok := last[u.Speaker]; ok && analysis.AreOpposite(prev, u.Emotion) {
			switches[u.Speaker]++
		}

		last[u.Speaker] = u.Emotion
	}

	var issues []Issue

	for speaker, n := range switches {
		if n <= maxEmotionSwitches {
			continue
		}

		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "emotion_whiplash",
			Severity:   SeverityMedium,
			Confidence: 0.7,
			SceneIndex: scene.Index,
			Message: fmt.Sprintf("%s switches between opposite emotions %d times in one scene",
				speaker, n),
		})
	}

	sortIssuesByMessage(issues)

	return issues
}

// longWordRatio is the share of ASCII words at or above the long-word
// threshold. CJK text has no word-length signal and scores zero.
func longWordRatio(text string) float64 {
	words := textutil.Words(text)
	if len(words) == 0 {
		return 0
	}

	long := 0
	ascii := 0

	for _, w := range words {
		runes := []rune(w)
		if len(runes) > 0 && runes[0] < 128 {
			ascii++

			if len(runes) >= longWordRunes {
				long++
			}
		}
	}

	if ascii == 0 {
		return 0
	}

	return float64(long) / float64(ascii)
}
