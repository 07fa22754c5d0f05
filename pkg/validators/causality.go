package validators

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/eventgraph"
)

// highImportance is the event importance from which isolation and
// unresolved problems escalate.
const highImportance = 7

// Causality builds the cause→effect graph over narrative events and flags
// unresolved problems, dangling clues, temporal paradoxes, causal cycles,
// and isolated high-importance events.
type Causality struct{}

// Name implements Validator.
func (Causality) Name() string { return "causality" }

// Validate implements Validator.
func (v Causality) Validate(ctx context.Context, in Input) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	events := in.Annotations.Events
	report := Report{Validator: v.Name()}

	byID := make(map[string]analysis.Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	g := buildGraph(events)

	report.Issues = append(report.Issues, v.paradoxes(g, byID)...)
	report.Issues = append(report.Issues, v.cycles(g, events)...)
	report.Issues = append(report.Issues, v.unresolved(g, events)...)
	report.Issues = append(report.Issues, v.danglingAndIsolated(g, events)...)

	return report, nil
}

// buildGraph links declared causes plus inferred problem→resolution edges:
// a resolution without declared causes links back to the latest earlier
// problem sharing a character.
func buildGraph(events []analysis.Event) *eventgraph.Graph {
	g := eventgraph.New()

	for _, ev := range events {
		g.Add(ev.ID)

		for _, cause := range ev.CauseIDs {
			g.Link(cause, ev.ID)
		}
	}

	for _, ev := range events {
		if ev.Type != analysis.EventResolution || len(ev.CauseIDs) > 0 {
			continue
		}

		if cause, ok := inferCause(ev, events); ok {
			g.Link(cause, ev.ID)
		}
	}

	return g
}

// inferCause finds the latest problem before the resolution that shares a
// character with it.
func inferCause(resolution analysis.Event, events []analysis.Event) (string, bool) {
	best := ""
	bestScene := -1

	for _, ev := range events {
		if ev.Type != analysis.EventProblem || ev.SceneIndex >= resolution.SceneIndex {
			continue
		}

		if !sharesCharacter(ev.Characters, resolution.Characters) {
			continue
		}

		if ev.SceneIndex > bestScene {
			best = ev.ID
			bestScene = ev.SceneIndex
		}
	}

	return best, best != ""
}

func sharesCharacter(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}

	return false
}

// paradoxes flags edges whose cause plays after its effect.
func (v Causality) paradoxes(g *eventgraph.Graph, byID map[string]analysis.Event) []Issue {
	var issues []Issue

	for _, id := range g.Nodes() {
		effect, ok := byID[id]
		if !ok {
			continue
		}

		for _, causeID := range g.Causes(id) {
			cause, ok := byID[causeID]
			if !ok {
				continue
			}

			if cause.SceneIndex > effect.SceneIndex {
				issues = append(issues, Issue{
					Validator:  v.Name(),
					Kind:       "temporal_paradox",
					Severity:   SeverityHigh,
					Confidence: 1,
					SceneIndex: effect.SceneIndex,
					SceneEnd:   cause.SceneIndex,
					Message: fmt.Sprintf("event %s (scene %d) is caused by %s which happens later (scene %d)",
						id, effect.SceneIndex, causeID, cause.SceneIndex),
				})
			}
		}
	}

	return issues
}

// cycles reports the first causal cycle found.
func (v Causality) cycles(g *eventgraph.Graph, events []analysis.Event) []Issue {
	if _, ok := g.TopoSort(); ok {
		return nil
	}

	for _, ev := range events {
		cycle := g.FindCycle(ev.ID)
		if cycle == nil {
			continue
		}

		return []Issue{{
			Validator:  v.Name(),
			Kind:       "causal_cycle",
			Severity:   SeverityHigh,
			Confidence: 1,
			SceneIndex: ev.SceneIndex,
			Message:    fmt.Sprintf("causal cycle: %v", cycle),
		}}
	}

	return nil
}

// unresolved flags problems with no path to any resolution.
func (v Causality) unresolved(g *eventgraph.Graph, events []analysis.Event) []Issue {
	var issues []Issue

	for _, ev := range events {
		if ev.Type != analysis.EventProblem {
			continue
		}

		resolved := false

		for _, other := range events {
			if other.Type == analysis.EventResolution && g.Reaches(ev.ID, other.ID) {
				resolved = true

				break
			}
		}

		if resolved {
			continue
		}

		severity := SeverityMedium
		if ev.Importance >= highImportance {
			severity = SeverityHigh
		}

		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "unresolved_problem",
			Severity:   severity,
			Confidence: 0.8,
			SceneIndex: ev.SceneIndex,
			Message:    fmt.Sprintf("problem %s never reaches a resolution", ev.ID),
			Suggestion: "keep its resolution scene in the cut or drop the problem scene",
		})
	}

	return issues
}

// danglingAndIsolated flags clues that lead nowhere and important events
// with no causal edges at all.
func (v Causality) danglingAndIsolated(g *eventgraph.Graph, events []analysis.Event) []Issue {
	var issues []Issue

	for _, ev := range events {
		if ev.Type == analysis.EventClue && len(g.Effects(ev.ID)) == 0 {
			issues = append(issues, Issue{
				Validator:  v.Name(),
				Kind:       "dangling_clue",
				Severity:   SeverityLow,
				Confidence: 0.6,
				SceneIndex: ev.SceneIndex,
				Message:    fmt.Sprintf("clue %s leads to nothing", ev.ID),
			})

			continue
		}

		if ev.Importance >= highImportance && g.Degree(ev.ID) == 0 {
			issues = append(issues, Issue{
				Validator:  v.Name(),
				Kind:       "isolated_event",
				Severity:   SeverityMedium,
				Confidence: 0.7,
				SceneIndex: ev.SceneIndex,
				Message:    fmt.Sprintf("high-importance event %s has no causes or effects", ev.ID),
			})
		}
	}

	return issues
}
