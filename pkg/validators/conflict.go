package validators

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
)

// ConflictResolution checks each declared conflict: the resolution method
// must be compatible with the conflict's type and intensity, and
// third-party methods need a qualified third party on scene.
type ConflictResolution struct{}

// Name implements Validator.
func (ConflictResolution) Name() string { return "conflict_resolution" }

// Validate implements Validator.
func (v ConflictResolution) Validate(ctx context.Context, in Input) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	report := Report{Validator: v.Name()}

	sceneByIndex := make(map[int]analysis.Scene, len(in.Annotations.Scenes))
	for _, s := range in.Annotations.Scenes {
		sceneByIndex[s.Index] = s
	}

	for _, conflict := range in.Annotations.Conflicts {
		report.Issues = append(report.Issues, v.check(conflict, in.Rules, sceneByIndex)...)
	}

	return report, nil
}

func (v ConflictResolution) check(c analysis.Conflict, rules Rules, scenes map[int]analysis.Scene) []Issue {
	byIntensity, ok := rules.ConflictMethods[c.Type]
	if !ok {
		return []Issue{{
			Validator:  v.Name(),
			Kind:       "unknown_conflict_type",
			Severity:   SeverityLow,
			Confidence: 0.5,
			SceneIndex: c.SceneIndex,
			Message:    fmt.Sprintf("no compatibility rules for conflict type %q", c.Type),
		}}
	}

	methods := byIntensity[c.Intensity]

	if !contains(methods, c.Method) {
		return []Issue{{
			Validator:  v.Name(),
			Kind:       "incompatible_resolution",
			Severity:   SeverityHigh,
			Confidence: 0.8,
			SceneIndex: c.SceneIndex,
			Message: fmt.Sprintf("%s/%s conflict resolved by %q, expected one of %v",
				c.Type, c.Intensity, c.Method, methods),
		}}
	}

	if c.Method != MethodMediation && c.Method != MethodArbitration {
		return nil
	}

	if c.ThirdParty == "" {
		return []Issue{{
			Validator:  v.Name(),
			Kind:       "missing_third_party",
			Severity:   SeverityHigh,
			Confidence: 0.9,
			SceneIndex: c.SceneIndex,
			Message:    fmt.Sprintf("%s requires a third party and none is declared", c.Method),
		}}
	}

	scene, ok := scenes[c.SceneIndex]
	if ok && !hasSkill(scene, c.ThirdParty, c.Method) {
		return []Issue{{
			Validator:  v.Name(),
			Kind:       "unqualified_third_party",
			Severity:   SeverityMedium,
			Confidence: 0.7,
			SceneIndex: c.SceneIndex,
			Message: fmt.Sprintf("%s acts as %s without the %q skill",
				c.ThirdParty, c.Method, c.Method),
		}}
	}

	return nil
}

func hasSkill(scene analysis.Scene, character, skill string) bool {
	return contains(scene.Skills[character], skill)
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}

	return false
}
