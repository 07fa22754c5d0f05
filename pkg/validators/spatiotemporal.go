package validators

import (
	"context"
	"fmt"
	"sort"

	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
)

// Spatiotemporal gaps: a location change closer than this needs a transport
// cue, and an opposite-emotion flip closer than this is implausible.
const (
	locationJumpGapMS = 30_000
	emotionFlipGapMS  = 10_000
)

// Spatiotemporal checks scene timing and placement: overlapping scenes,
// teleporting location changes, and same-character emotion flips in
// implausibly short wall time.
type Spatiotemporal struct{}

// Name implements Validator.
func (Spatiotemporal) Name() string { return "spatiotemporal" }

// Validate implements Validator.
func (v Spatiotemporal) Validate(ctx context.Context, in Input) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	scenes := make([]analysis.Scene, len(in.Annotations.Scenes))
	copy(scenes, in.Annotations.Scenes)
	sort.SliceStable(scenes, func(i, j int) bool {
		return scenes[i].Span.Start < scenes[j].Span.Start
	})

	report := Report{Validator: v.Name()}

	for i := 1; i < len(scenes); i++ {
		prev, cur := scenes[i-1], scenes[i]

		if prev.Span.Overlaps(cur.Span) {
			report.Issues = append(report.Issues, Issue{
				Validator:  v.Name(),
				Kind:       "scene_overlap",
				Severity:   SeverityHigh,
				Confidence: 1,
				SceneIndex: prev.Index,
				SceneEnd:   cur.Index,
				Message: fmt.Sprintf("scenes %d and %d overlap in time ([%d, %d) vs [%d, %d))",
					prev.Index, cur.Index, prev.Span.Start, prev.Span.End, cur.Span.Start, cur.Span.End),
			})
		}

		report.Issues = append(report.Issues, v.locationJump(prev, cur)...)
		report.Issues = append(report.Issues, v.emotionFlips(prev, cur)...)
	}

	return report, nil
}

// locationJump flags a location change with too little wall time and no
// transport explanation on either side.
func (v Spatiotemporal) locationJump(prev, cur analysis.Scene) []Issue {
	if prev.Location == "" || cur.Location == "" || prev.Location == cur.Location {
		return nil
	}

	if timeJumpWaived(cur) {
		return nil
	}

	gap := cur.Span.Start - prev.Span.End
	if gap >= locationJumpGapMS || prev.Transport || cur.Transport {
		return nil
	}

	return []Issue{{
		Validator:  v.Name(),
		Kind:       "location_teleport",
		Severity:   SeverityMedium,
		Confidence: 0.8,
		SceneIndex: prev.Index,
		SceneEnd:   cur.Index,
		Message: fmt.Sprintf("location changes %q → %q with only %d ms and no transport cue",
			prev.Location, cur.Location, gap),
		Suggestion: "add a transport cue or widen the gap between the scenes",
	}}
}

// emotionFlips flags characters whose emotion inverts across a gap shorter
// than the flip window.
func (v Spatiotemporal) emotionFlips(prev, cur analysis.Scene) []Issue {
	gap := cur.Span.Start - prev.Span.End
	if gap >= emotionFlipGapMS || timeJumpWaived(cur) {
		return nil
	}

	var issues []Issue

	for name, e := range cur.Emotions {
		before, ok := prev.Emotions[name]
		if !ok || !analysis.AreOpposite(before, e) {
			continue
		}

		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "emotion_flip",
			Severity:   SeverityMedium,
			Confidence: 0.7,
			SceneIndex: prev.Index,
			SceneEnd:   cur.Index,
			Message: fmt.Sprintf("%s flips %s → %s within %d ms",
				name, before, e, gap),
		})
	}

	sortIssuesByMessage(issues)

	return issues
}

// timeJumpWaived reports whether the scene legitimately breaks continuity.
func timeJumpWaived(s analysis.Scene) bool {
	return s.Tagged(analysis.SceneTagFlashback) ||
		s.Tagged(analysis.SceneTagDream) ||
		s.Tagged(analysis.SceneTagMontage)
}
