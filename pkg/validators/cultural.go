package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
)

// CulturalContext matches each scene against the cultural rules for its era
// and region: forbidden elements, stereotype markers, appropriation
// markers, and required elements that the cut dropped entirely.
type CulturalContext struct{}

// Name implements Validator.
func (CulturalContext) Name() string { return "cultural_context" }

// Validate implements Validator.
func (v CulturalContext) Validate(ctx context.Context, in Input) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	report := Report{Validator: v.Name()}
	if len(in.Rules.Cultural) == 0 {
		return report, nil
	}

	// Required elements are satisfied if any matched scene carries them,
	// so track presence across the whole pass.
	type requirement struct {
		rule int
		term string
	}

	seenRequired := make(map[requirement]bool)

	var requirements []requirement

	for _, scene := range in.Annotations.Scenes {
		text := sceneCorpus(scene, in)

		for ri, rule := range in.Rules.Cultural {
			if !rule.Matches(scene.Era, scene.Region) {
				continue
			}

			report.Issues = append(report.Issues, v.scanScene(scene, rule, text)...)

			for _, term := range rule.Required {
				req := requirement{rule: ri, term: term}
				if _, tracked := seenRequired[req]; !tracked {
					seenRequired[req] = false
					requirements = append(requirements, req)
				}

				if strings.Contains(text, textutil.Normalize(term)) {
					seenRequired[req] = true
				}
			}
		}
	}

	for _, req := range requirements {
		if seenRequired[req] {
			continue
		}

		rule := in.Rules.Cultural[req.rule]

		report.Issues = append(report.Issues, Issue{
			Validator:  v.Name(),
			Kind:       "missing_required_element",
			Severity:   SeverityLow,
			Confidence: 0.5,
			Message: fmt.Sprintf("no scene in era %d-%d region %q carries required element %q",
				rule.EraFrom, rule.EraTo, rule.Region, req.term),
			Suggestion: "restore a scene mentioning it or relax the rule",
		})
	}

	return report, nil
}

// scanScene flags forbidden, stereotype, and appropriation terms present in
// one scene's corpus.
func (v CulturalContext) scanScene(scene analysis.Scene, rule CulturalRule, text string) []Issue {
	var issues []Issue

	for _, term := range rule.Forbidden {
		if !strings.Contains(text, textutil.Normalize(term)) {
			continue
		}

		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "forbidden_element",
			Severity:   SeverityHigh,
			Confidence: 0.8,
			SceneIndex: scene.Index,
			Message:    fmt.Sprintf("scene %d carries %q, forbidden in its era/region", scene.Index, term),
		})
	}

	for _, term := range rule.Stereotypes {
		if !strings.Contains(text, textutil.Normalize(term)) {
			continue
		}

		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "stereotype",
			Severity:   SeverityMedium,
			Confidence: 0.6,
			SceneIndex: scene.Index,
			Message:    fmt.Sprintf("scene %d leans on stereotype marker %q", scene.Index, term),
			Suggestion: "rework or cut the line",
		})
	}

	for _, term := range rule.Appropriation {
		if !strings.Contains(text, textutil.Normalize(term)) {
			continue
		}

		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "appropriation",
			Severity:   SeverityMedium,
			Confidence: 0.5,
			SceneIndex: scene.Index,
			Message:    fmt.Sprintf("scene %d uses %q outside its cultural context", scene.Index, term),
		})
	}

	return issues
}

// sceneCorpus gathers everything the scene says: the rewritten text, every
// utterance, and every prop name, normalized for matching.
func sceneCorpus(scene analysis.Scene, in Input) string {
	var b strings.Builder

	b.WriteString(in.sceneText(scene.Index))

	for _, u := range scene.Utterances {
		b.WriteByte(' ')
		b.WriteString(u.Text)
	}

	for _, p := range scene.Props {
		b.WriteByte(' ')
		b.WriteString(p.Name)
	}

	return textutil.Normalize(b.String())
}
