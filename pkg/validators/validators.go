// Package validators runs the eight logic checks over a cut plan and its
// scene annotations: spatiotemporal consistency, causality, prop
// continuity, dialogue logic, emotion continuity, conflict resolution,
// multi-thread consistency, and cultural context.
//
// Validators are pure: they never mutate their input and report findings as
// Issues instead of errors. An error return means the validator itself
// failed, not that the plan is bad. The merged report accepts a plan iff no
// issue is critical.
package validators

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/planner"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// Severity grades an issue.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for sorting, critical first.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Issue is one finding. SceneIndex locates it; SceneEnd is set when the
// finding spans a scene range.
type Issue struct {
	Validator  string   `json:"validator" yaml:"validator"`
	Kind       string   `json:"kind" yaml:"kind"`
	Severity   Severity `json:"severity" yaml:"severity"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	SceneIndex int      `json:"scene_index,omitempty" yaml:"scene_index,omitempty"`
	SceneEnd   int      `json:"scene_end,omitempty" yaml:"scene_end,omitempty"`
	Message    string   `json:"message" yaml:"message"`
	Suggestion string   `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// Report is one validator's findings.
type Report struct {
	Validator string  `json:"validator" yaml:"validator"`
	Issues    []Issue `json:"issues" yaml:"issues"`
}

// Input is the read-only bundle every validator sees.
type Input struct {
	Plan        planner.CutPlan
	Rewritten   timeline.RewrittenTimeline
	Annotations analysis.Annotations
	Rules       Rules
}

// sceneText returns the rewritten text carrying the given source segment
// index, or the empty string when the segment was dropped.
func (in Input) sceneText(index int) string {
	for _, s := range in.Rewritten.Segments {
		for _, idx := range s.Provenance {
			if idx == index {
				return s.Text
			}
		}
	}

	return ""
}

// sortIssuesByMessage pins a deterministic order on issues produced from
// map iteration.
func sortIssuesByMessage(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool { return issues[i].Message < issues[j].Message })
}

// Validator is one logic check.
type Validator interface {
	Name() string
	Validate(ctx context.Context, in Input) (Report, error)
}

// All returns the eight validators in their canonical order.
func All() []Validator {
	return []Validator{
		Spatiotemporal{},
		Causality{},
		PropContinuity{},
		DialogueLogic{},
		EmotionContinuity{},
		ConflictResolution{},
		MultiThread{},
		CulturalContext{},
	}
}

// ValidationReport is the merged verdict.
type ValidationReport struct {
	Reports       []Report `json:"reports" yaml:"reports"`
	IssueCount    int      `json:"issue_count" yaml:"issue_count"`
	CriticalCount int      `json:"critical_count" yaml:"critical_count"`
	Accepted      bool     `json:"accepted" yaml:"accepted"`
}

// Run fans the validators out on an errgroup and merges their reports. On
// cancellation or validator failure the partial results are discarded.
func Run(ctx context.Context, in Input, validators ...Validator) (ValidationReport, error) {
	if len(validators) == 0 {
		validators = All()
	}

	reports := make([]Report, len(validators))

	g, ctx := errgroup.WithContext(ctx)

	for i, v := range validators {
		g.Go(func() error {
			report, err := v.Validate(ctx, in)
			if err != nil {
				return err
			}

			reports[i] = report

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ValidationReport{}, err
	}

	return Merge(reports), nil
}

// Merge folds per-validator reports into the accept/reject verdict. Issues
// inside each report sort by severity, then scene.
func Merge(reports []Report) ValidationReport {
	merged := ValidationReport{Reports: reports}

	for i := range merged.Reports {
		issues := merged.Reports[i].Issues

		sort.SliceStable(issues, func(a, b int) bool {
			if issues[a].Severity.rank() != issues[b].Severity.rank() {
				return issues[a].Severity.rank() < issues[b].Severity.rank()
			}

			return issues[a].SceneIndex < issues[b].SceneIndex
		})

		for _, issue := range issues {
			merged.IssueCount++

			if issue.Severity == SeverityCritical {
				merged.CriticalCount++
			}
		}
	}

	merged.Accepted = merged.CriticalCount == 0

	return merged
}
