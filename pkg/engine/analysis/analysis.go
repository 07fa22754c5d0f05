// Package analysis runs the six deterministic passes that precede the viral
// rewrite: semantic scoring, narrative structure, character and relation
// extraction, turning-point detection, the emotion curve, and plot
// integrity. Each pass feeds the next through a shared Features value.
//
// The passes are lexicon-driven by default and may delegate semantic scoring
// to a leased generation backend for higher quality; either way the result
// is deterministic for a fixed input and parameter set.
package analysis

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/recut/pkg/backend"
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// Default pass parameters.
const (
	// DefaultTurningDelta is the minimum emotion swing between adjacent
	// segments that marks a turning point.
	DefaultTurningDelta = 0.35

	// DefaultCoMentionWindow is the segment distance within which two
	// characters count as co-mentioned.
	DefaultCoMentionWindow = 3

	// DefaultAmplifyThreshold is the minimum segment intensity for
	// amplifier insertion downstream.
	DefaultAmplifyThreshold = 0.5
)

// Params tunes the analysis passes. The zero value selects every default.
type Params struct {
	// TurningDelta overrides DefaultTurningDelta when positive.
	TurningDelta float64

	// CoMentionWindow overrides DefaultCoMentionWindow when positive.
	CoMentionWindow int

	// Backend, when set, scores segment semantics instead of the local
	// lexicons. Must be resident for the duration of the run.
	Backend backend.GenerationBackend
}

func (p Params) turningDelta() float64 {
	if p.TurningDelta > 0 {
		return p.TurningDelta
	}

	return DefaultTurningDelta
}

func (p Params) coMentionWindow() int {
	if p.CoMentionWindow > 0 {
		return p.CoMentionWindow
	}

	return DefaultCoMentionWindow
}

// Marker tags a segment's place in the narrative arc.
type Marker string

const (
	MarkerBeginning   Marker = "beginning"
	MarkerDevelopment Marker = "development"
	MarkerClimax      Marker = "climax"
	MarkerResolution  Marker = "resolution"
	MarkerNone        Marker = "none"
)

// SegmentFeatures holds everything the passes learned about one segment.
type SegmentFeatures struct {
	Index     int
	Signals   backend.SemanticSignals
	Polarity  float64
	Marker    Marker
	Sentences int

	// Importance combines intensity, structural weight, and turning-point
	// proximity; T6 keeps the top-K by this score.
	Importance float64
}

// TurningPoint is a segment where the story pivots.
type TurningPoint struct {
	Index     int
	Delta     float64
	Score     float64
	HasCue    bool
	Intensity float64
}

// CurvePoint is one sentence's signed emotion score.
type CurvePoint struct {
	SegmentIndex int
	Sentence     string
	Score        float64
}

// Arc summarizes the narrative shape.
type Arc struct {
	// Completeness is the fraction of the four arc stages present.
	Completeness float64

	// PacingSPM is sentences per minute over the timeline extent.
	PacingSPM float64

	// ClimaxIndex is the strongest-arc segment, -1 when none qualifies.
	ClimaxIndex int
}

// Integrity is the P6 verdict.
type Integrity struct {
	HasBeginning  bool
	HasResolution bool
	Flags         []string
}

// Features is the combined output of all six passes.
type Features struct {
	Language timeline.Language

	Segments []SegmentFeatures

	// Dominant and Intensity aggregate P1 over the whole timeline.
	Dominant  backend.Axis
	Intensity float64

	Arc           Arc
	Characters    []Character
	Relations     []Relation
	TurningPoints []TurningPoint
	Curve         []CurvePoint
	Integrity     Integrity
}

// EngagementWeights are the fixed weights of the engagement potential score:
// emotional intensity, turning-point count, arc strength, relational
// complexity.
var EngagementWeights = [4]float64{0.4, 0.3, 0.2, 0.1}

// turningPointSaturation is the count at which the turning-point term of the
// engagement score saturates.
const turningPointSaturation = 5.0

// relationSaturation is the relation count at which the relational term
// saturates.
const relationSaturation = 6.0

// Engagement computes the engagement potential in [0, 1] from the extracted
// features.
func (f Features) Engagement() float64 {
	turning := float64(len(f.TurningPoints)) / turningPointSaturation
	if turning > 1 {
		turning = 1
	}

	relations := float64(len(f.Relations)) / relationSaturation
	if relations > 1 {
		relations = 1
	}

	return EngagementWeights[0]*f.Intensity +
		EngagementWeights[1]*turning +
		EngagementWeights[2]*f.Arc.Completeness +
		EngagementWeights[3]*relations
}

// Run executes the six passes in order over tl.
func Run(ctx context.Context, tl timeline.Timeline, params Params) (Features, error) {
	bank := lexicons.ForLanguage(tl.Language)

	features := Features{
		Language: tl.Language,
		Arc:      Arc{ClimaxIndex: -1},
	}

	if err := passSemantics(ctx, &features, tl, bank, params); err != nil {
		return Features{}, fmt.Errorf("semantic pass: %w", err)
	}

	passStructure(&features, tl, bank)
	passCharacters(&features, tl, bank, params)
	passTurningPoints(&features, tl, bank, params)
	passCurve(&features, tl, bank)
	passIntegrity(&features)

	scoreImportance(&features)

	return features, nil
}

// scoreImportance folds the pass outputs into one per-segment importance
// score used by timeline reallocation.
func scoreImportance(f *Features) {
	turning := make(map[int]float64, len(f.TurningPoints))
	for _, tp := range f.TurningPoints {
		turning[tp.Index] = tp.Score
	}

	for i := range f.Segments {
		seg := &f.Segments[i]

		importance := seg.Signals.Intensity

		switch seg.Marker {
		case MarkerClimax:
			importance += 0.5
		case MarkerBeginning, MarkerResolution:
			importance += 0.3
		case MarkerDevelopment, MarkerNone:
		}

		if score, ok := turning[seg.Index]; ok {
			importance += score
		}

		seg.Importance = importance
	}
}
