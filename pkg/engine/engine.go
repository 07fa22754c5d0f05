// Package engine reconstructs a subtitle timeline into its viral-shaped
// re-cut: six analysis passes feed an ordered pipeline of transformations
// (hook, amplifiers, suspense beats, climax intensifier, engagement trigger,
// timeline reallocation), and a self-scoring loop repairs weak candidates
// before the planner sees them.
package engine

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/Sumatoshi-tech/recut/pkg/backend"
	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// Style selects how aggressive the transformation pipeline is.
type Style string

const (
	// StyleViral applies the full transformation pipeline.
	StyleViral Style = "viral"

	// StyleFormal keeps the hook and reallocation but skips amplifiers,
	// suspense beats, and engagement bait.
	StyleFormal Style = "formal"

	// StyleMinimal only reallocates; text is left untouched.
	StyleMinimal Style = "minimal"
)

// Valid reports whether s names a known style.
func (s Style) Valid() bool {
	switch s {
	case StyleViral, StyleFormal, StyleMinimal:
		return true
	default:
		return false
	}
}

// Duration-ratio targets for reallocation (output speech over input speech).
const (
	RatioMin       = 0.1
	RatioMax       = 0.8
	RatioPreferLow = 0.2
	RatioPreferTop = 0.6
)

// Scoring thresholds of the optimization loop.
const (
	// acceptScore ends the repair loop.
	acceptScore = 8.0

	// fallbackScore is the floor below which the minimal wrap ships
	// instead of the candidate.
	fallbackScore = 6.0

	// maxRepairs bounds the repair iterations.
	maxRepairs = 3
)

// minSegmentsForPacing is the smallest source timeline on which suspense
// insertion makes sense; reallocation needs strictly more to have anything
// to trim.
const minSegmentsForPacing = 3

// engagementThreshold gates the T5 trigger append.
const engagementThreshold = 0.6

// Options parameterize one reconstruction run.
type Options struct {
	Style Style

	// Seed drives every phrase pick; fixed seed means fixed output.
	Seed int64

	// Analysis forwards pass parameters, including an optional backend.
	Analysis analysis.Params

	// TargetRatio overrides the preferred output/input duration ratio
	// when inside [RatioMin, RatioMax]. Zero picks the band middle.
	TargetRatio float64
}

func (o Options) style() Style {
	if o.Style == "" {
		return StyleViral
	}

	return o.Style
}

func (o Options) targetRatio() float64 {
	if o.TargetRatio >= RatioMin && o.TargetRatio <= RatioMax {
		return o.TargetRatio
	}

	return (RatioPreferLow + RatioPreferTop) / 2
}

// Result is the engine's output: the rewritten timeline, the features it
// was built from, and the final self-score.
type Result struct {
	Rewritten timeline.RewrittenTimeline
	Features  analysis.Features
	Score     Score
	Fallback  bool
}

// Reconstruct analyzes tl and applies the transformation pipeline,
// re-scoring and repairing up to three times. Deterministic for fixed
// (input, options, seed).
func Reconstruct(ctx context.Context, tl timeline.Timeline, opts Options) (Result, error) {
	features, err := analysis.Run(ctx, tl, opts.Analysis)
	if err != nil {
		return Result{}, fmt.Errorf("analysis: %w", err)
	}

	if len(tl.Segments) == 0 {
		return Result{
			Rewritten: timeline.RewrittenTimeline{
				Language:          tl.Language,
				SourceFingerprint: tl.Fingerprint,
			},
			Features: features,
		}, nil
	}

	bank := lexicons.ForLanguage(tl.Language)
	rng := rand.New(rand.NewSource(opts.Seed))

	tr := &transformer{
		tl:       tl,
		features: features,
		bank:     bank,
		rng:      rng,
		opts:     opts,
		backend:  opts.Analysis.Backend,
	}

	candidate := tr.run(ctx)
	score := scoreCandidate(tl, candidate, features)

	// The score grades viral qualities; only the viral style repairs
	// against it or falls back.
	if opts.style() == StyleViral {
		for i := 0; i < maxRepairs && score.Total < acceptScore; i++ {
			if !tr.adjust(score) {
				break
			}

			candidate = tr.run(ctx)
			score = scoreCandidate(tl, candidate, features)
		}

		if score.Total < fallbackScore {
			fallback := tr.fallbackWrap(ctx)
			fallback.Warnings = append(fallback.Warnings,
				fmt.Sprintf("quality score %.1f below %.1f, minimal wrap emitted", score.Total, fallbackScore))

			return Result{Rewritten: fallback, Features: features, Score: score, Fallback: true}, nil
		}
	}

	if !features.Integrity.HasBeginning || !features.Integrity.HasResolution {
		candidate.Warnings = append(candidate.Warnings, features.Integrity.Flags...)
	}

	return Result{Rewritten: candidate, Features: features, Score: score}, nil
}

// pickPhrase selects a phrase deterministically from the seeded stream.
func pickPhrase(rng *rand.Rand, phrases []string) string {
	if len(phrases) == 0 {
		return ""
	}

	return phrases[rng.Intn(len(phrases))]
}

// pickHook selects the hook whose intensity sits closest to the target,
// breaking ties toward the stronger phrase.
func pickHook(phrases []lexicons.Phrase, target float64) lexicons.Phrase {
	if len(phrases) == 0 {
		return lexicons.Phrase{}
	}

	best := phrases[0]
	bestGap := gap(best.Intensity, target)

	for _, p := range phrases[1:] {
		if g := gap(p.Intensity, target); g < bestGap {
			best = p
			bestGap = g
		}
	}

	return best
}

func gap(a, b float64) float64 {
	if a > b {
		return a - b
	}

	return b - a
}

// hookCategory maps the dominant emotion axis onto a hook family.
func hookCategory(dominant backend.Axis) lexicons.HookCategory {
	switch dominant {
	case backend.AxisPositive, backend.AxisResolution:
		return lexicons.HookPositive
	case backend.AxisNegative:
		return lexicons.HookNegative
	case backend.AxisIntense, backend.AxisConflict:
		return lexicons.HookIntense
	default:
		return lexicons.HookNeutral
	}
}

// climaxStyle maps the dominant emotion axis onto a climax family.
func climaxStyle(dominant backend.Axis) lexicons.ClimaxStyle {
	switch dominant {
	case backend.AxisNegative, backend.AxisConflict:
		return lexicons.ClimaxDramatic
	case backend.AxisIntense:
		return lexicons.ClimaxSuspenseful
	case backend.AxisPositive, backend.AxisResolution:
		return lexicons.ClimaxEmotional
	default:
		return lexicons.ClimaxEmotional
	}
}

// amplifierLevel grades a segment's intensity into an amplifier strength.
func amplifierLevel(intensity float64) lexicons.Level {
	switch {
	case intensity >= 0.75:
		return lexicons.LevelHigh
	case intensity >= 0.6:
		return lexicons.LevelMedium
	default:
		return lexicons.LevelContextual
	}
}
