package validators

import (
	"context"
	"fmt"
	"sort"

	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
)

// PropContinuity tracks every sighted prop through the scenes: who holds
// it, whether its origin and hand-offs are explained. Scenes tagged
// flashback, dream, or montage are exempt.
type PropContinuity struct{}

// Name implements Validator.
func (PropContinuity) Name() string { return "prop_continuity" }

// propState is the tracked position of one prop.
type propState struct {
	carrier  string
	acquired bool
	dropped  bool
}

// Validate implements Validator.
func (v PropContinuity) Validate(ctx context.Context, in Input) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	scenes := make([]analysis.Scene, len(in.Annotations.Scenes))
	copy(scenes, in.Annotations.Scenes)
	sort.SliceStable(scenes, func(i, j int) bool { return scenes[i].Index < scenes[j].Index })

	report := Report{Validator: v.Name()}
	props := make(map[string]*propState)

	for _, scene := range scenes {
		if timeJumpWaived(scene) {
			continue
		}

		inScene := make(map[string]bool, len(scene.Characters))
		for _, c := range scene.Characters {
			inScene[c] = true
		}

		for _, sighting := range scene.Props {
			report.Issues = append(report.Issues, v.checkSighting(scene, sighting, props, inScene)...)
		}
	}

	return report, nil
}

func (v PropContinuity) checkSighting(
	scene analysis.Scene,
	sighting analysis.PropSighting,
	props map[string]*propState,
	inScene map[string]bool,
) []Issue {
	var issues []Issue

	state, known := props[sighting.Name]
	if !known {
		state = &propState{}
		props[sighting.Name] = state

		if sighting.Carrier != "" && !sighting.Acquired {
			issues = append(issues, Issue{
				Validator:  v.Name(),
				Kind:       "unexplained_origin",
				Severity:   SeverityMedium,
				Confidence: 0.8,
				SceneIndex: scene.Index,
				Message: fmt.Sprintf("%s appears with %s without an origin",
					sighting.Name, sighting.Carrier),
				Suggestion: "mark the sighting acquired or show where the prop came from",
			})
		}
	}

	if known && sighting.Carrier != "" && state.carrier != "" &&
		sighting.Carrier != state.carrier && !state.dropped {
		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "prop_teleport",
			Severity:   SeverityHigh,
			Confidence: 0.9,
			SceneIndex: scene.Index,
			Message: fmt.Sprintf("%s moves from %s to %s without a hand-off",
				sighting.Name, state.carrier, sighting.Carrier),
			Suggestion: "mark the previous sighting dropped or keep the hand-off scene",
		})
	}

	if sighting.Carrier != "" && len(inScene) > 0 && !inScene[sighting.Carrier] {
		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "absent_carrier",
			Severity:   SeverityMedium,
			Confidence: 0.7,
			SceneIndex: scene.Index,
			Message: fmt.Sprintf("%s is held by %s, who is not in the scene",
				sighting.Name, sighting.Carrier),
		})
	}

	if sighting.Carrier != "" {
		state.carrier = sighting.Carrier
		state.dropped = false
	}

	if sighting.Acquired {
		state.acquired = true
	}

	if sighting.Dropped {
		state.dropped = true
		state.carrier = ""
	}

	return issues
}
