package validators

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
)

// threadImbalanceRatio is the share of the mean thread weight below which a
// thread counts as starved.
const threadImbalanceRatio = 0.3

// MultiThread cross-checks parallel narrative threads: a character cannot
// be in two places at once, declared states must agree, crossovers must
// point at real threads, and no thread may be starved or abandoned.
type MultiThread struct{}

// Name implements Validator.
func (MultiThread) Name() string { return "multi_thread" }

// placement is one character sighting inside a thread.
type placement struct {
	threadID string
	event    analysis.ThreadEvent
}

// Validate implements Validator.
func (v MultiThread) Validate(ctx context.Context, in Input) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	threads := in.Annotations.Threads
	report := Report{Validator: v.Name()}

	report.Issues = append(report.Issues, v.bilocations(threads)...)
	report.Issues = append(report.Issues, v.crossovers(threads)...)
	report.Issues = append(report.Issues, v.balance(threads)...)
	report.Issues = append(report.Issues, v.abandonment(threads)...)

	return report, nil
}

// bilocations flags the same character at overlapping times in different
// locations or contradictory states.
func (v MultiThread) bilocations(threads []analysis.Thread) []Issue {
	byCharacter := make(map[string][]placement)

	var order []string

	for _, t := range threads {
		for _, ev := range t.Events {
			if ev.Character == "" {
				continue
			}

			if _, seen := byCharacter[ev.Character]; !seen {
				order = append(order, ev.Character)
			}

			byCharacter[ev.Character] = append(byCharacter[ev.Character], placement{threadID: t.ID, event: ev})
		}
	}

	var issues []Issue

	for _, name := range order {
		places := byCharacter[name]

		for i := 0; i < len(places); i++ {
			for j := i + 1; j < len(places); j++ {
				a, b := places[i], places[j]

				if a.threadID == b.threadID || !a.event.Span.Overlaps(b.event.Span) {
					continue
				}

				if a.event.Location != "" && b.event.Location != "" && a.event.Location != b.event.Location {
					issues = append(issues, Issue{
						Validator:  v.Name(),
						Kind:       "bilocation",
						Severity:   SeverityHigh,
						Confidence: 0.9,
						SceneIndex: a.event.SceneIndex,
						SceneEnd:   b.event.SceneIndex,
						Message: fmt.Sprintf("%s is in %s (thread %s) and %s (thread %s) at overlapping times",
							name, a.event.Location, a.threadID, b.event.Location, b.threadID),
					})
				}

				if a.event.State != "" && b.event.State != "" && a.event.State != b.event.State {
					issues = append(issues, Issue{
						Validator:  v.Name(),
						Kind:       "state_contradiction",
						Severity:   SeverityHigh,
						Confidence: 0.8,
						SceneIndex: a.event.SceneIndex,
						SceneEnd:   b.event.SceneIndex,
						Message: fmt.Sprintf("%s is %q in thread %s but %q in thread %s at the same time",
							name, a.event.State, a.threadID, b.event.State, b.threadID),
					})
				}
			}
		}
	}

	return issues
}

// crossovers flags references to threads that do not exist.
func (v MultiThread) crossovers(threads []analysis.Thread) []Issue {
	known := make(map[string]bool, len(threads))
	for _, t := range threads {
		known[t.ID] = true
	}

	var issues []Issue

	for _, t := range threads {
		for _, ref := range t.Crossovers {
			if known[ref] {
				continue
			}

			issues = append(issues, Issue{
				Validator:  v.Name(),
				Kind:       "unresolved_crossover",
				Severity:   SeverityMedium,
				Confidence: 0.8,
				Message:    fmt.Sprintf("thread %s crosses into %s, which is not in the cut", t.ID, ref),
				Suggestion: "keep the referenced thread or drop the crossover",
			})
		}
	}

	return issues
}

// balance flags threads far below the mean weight by events or duration.
func (v MultiThread) balance(threads []analysis.Thread) []Issue {
	if len(threads) < 2 {
		return nil
	}

	totalEvents := 0
	totalMS := int64(0)

	for _, t := range threads {
		totalEvents += len(t.Events)
		totalMS += threadDurationMS(t)
	}

	meanEvents := float64(totalEvents) / float64(len(threads))
	meanMS := float64(totalMS) / float64(len(threads))

	var issues []Issue

	for _, t := range threads {
		starvedByEvents := meanEvents > 0 && float64(len(t.Events)) < threadImbalanceRatio*meanEvents
		starvedByTime := meanMS > 0 && float64(threadDurationMS(t)) < threadImbalanceRatio*meanMS

		if !starvedByEvents && !starvedByTime {
			continue
		}

		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "thread_imbalance",
			Severity:   SeverityLow,
			Confidence: 0.6,
			Message: fmt.Sprintf("thread %s carries %d events over %d ms, under 30%% of the mean",
				t.ID, len(t.Events), threadDurationMS(t)),
		})
	}

	return issues
}

// abandonment flags threads that neither conclude nor converge.
func (v MultiThread) abandonment(threads []analysis.Thread) []Issue {
	var issues []Issue

	for _, t := range threads {
		if t.Concluded || t.Convergent {
			continue
		}

		issues = append(issues, Issue{
			Validator:  v.Name(),
			Kind:       "thread_abandoned",
			Severity:   SeverityMedium,
			Confidence: 0.7,
			Message:    fmt.Sprintf("thread %s never concludes and is not marked convergent", t.ID),
		})
	}

	return issues
}

func threadDurationMS(t analysis.Thread) int64 {
	total := int64(0)
	for _, ev := range t.Events {
		total += ev.Span.Len()
	}

	return total
}
