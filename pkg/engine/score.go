package engine

import (
	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// dimension indexes the five scoring dimensions.
type dimension int

const (
	dimLengthGrowth dimension = iota
	dimViralDensity
	dimAmplification
	dimStructural
	dimOriginality

	dimCount
)

// ScoreWeights are the fixed dimension weights of the composite score:
// length growth, viral element density, emotional amplification, structural
// completeness, originality retention.
var ScoreWeights = [dimCount]float64{0.20, 0.30, 0.25, 0.15, 0.10}

// Score grades a candidate 0..10 per dimension plus the weighted total.
type Score struct {
	LengthGrowth  float64 `json:"length_growth"`
	ViralDensity  float64 `json:"viral_density"`
	Amplification float64 `json:"amplification"`
	Structural    float64 `json:"structural"`
	Originality   float64 `json:"originality"`
	Total         float64 `json:"total"`
}

func (s Score) dims() [dimCount]float64 {
	return [dimCount]float64{
		s.LengthGrowth, s.ViralDensity, s.Amplification, s.Structural, s.Originality,
	}
}

// weakest returns the lowest-scoring dimension, preferring the heavier
// weight on ties so repair attacks what matters most.
func (s Score) weakest() dimension {
	dims := s.dims()
	worst := dimension(0)

	for d := dimension(1); d < dimCount; d++ {
		if dims[d] < dims[worst] ||
			(dims[d] == dims[worst] && ScoreWeights[d] > ScoreWeights[worst]) {
			worst = d
		}
	}

	return worst
}

// Scoring shape constants: the rune-growth ratio at which length scores
// full marks, the tagged-segment fraction that saturates viral density, and
// the provenance coverage that counts as full originality.
const (
	fullGrowthRatio     = 1.15
	densitySaturation   = 0.4
	coverageSaturation  = 0.6
	amplifyGainFullMark = 1.5
)

// scoreCandidate grades a rewritten timeline against its source on the five
// dimensions and folds them into the weighted total.
func scoreCandidate(tl timeline.Timeline, candidate timeline.RewrittenTimeline, features analysis.Features) Score {
	bank := lexicons.ForLanguage(tl.Language)

	s := Score{
		LengthGrowth:  scoreLengthGrowth(tl, candidate),
		ViralDensity:  scoreViralDensity(candidate),
		Amplification: scoreAmplification(bank, tl, candidate),
		Structural:    scoreStructural(candidate, features),
		Originality:   scoreOriginality(tl, candidate),
	}

	dims := s.dims()
	for d := dimension(0); d < dimCount; d++ {
		s.Total += ScoreWeights[d] * dims[d]
	}

	return s
}

// scoreLengthGrowth rewards text that grew past the source. Full marks from
// +15% growth; shrinkage scores zero.
func scoreLengthGrowth(tl timeline.Timeline, candidate timeline.RewrittenTimeline) float64 {
	in := float64(len([]rune(tl.CombinedText())))
	out := float64(len([]rune(candidate.CombinedText())))

	if in == 0 {
		if out > 0 {
			return 10
		}

		return 0
	}

	ratio := out / in
	if ratio <= 1 {
		return 0
	}

	score := (ratio - 1) / (fullGrowthRatio - 1) * 10
	if score > 10 {
		score = 10
	}

	return score
}

// scoreViralDensity rewards the fraction of segments touched by a viral
// transformation.
func scoreViralDensity(candidate timeline.RewrittenTimeline) float64 {
	if len(candidate.Segments) == 0 {
		return 0
	}

	tagged := 0

	for _, s := range candidate.Segments {
		if s.Transform != timeline.TagNone && s.Transform != timeline.TagReallocated {
			tagged++
		}
	}

	density := float64(tagged) / float64(len(candidate.Segments))

	score := density / densitySaturation * 10
	if score > 10 {
		score = 10
	}

	return score
}

// scoreAmplification compares per-word emotional lexicon mass before and
// after. A 1.5x gain scores full marks; no gain scores the midpoint.
func scoreAmplification(bank *lexicons.Bank, tl timeline.Timeline, candidate timeline.RewrittenTimeline) float64 {
	in := emotionalMass(bank, tl.CombinedText())
	out := emotionalMass(bank, candidate.CombinedText())

	if in == 0 {
		if out > 0 {
			return 10
		}

		return 5
	}

	gain := out / in
	if gain <= 1 {
		return 5 * gain
	}

	score := 5 + 5*(gain-1)/(amplifyGainFullMark-1)
	if score > 10 {
		score = 10
	}

	return score
}

// emotionalMass is the weighted lexicon hit count per word.
func emotionalMass(bank *lexicons.Bank, text string) float64 {
	words := float64(len(textutil.Words(text)))
	if words == 0 {
		return 0
	}

	t := bank.Tally(text)

	return (t.Positive + t.Negative + t.Intense + t.Conflict + t.Resolution) / words
}

// scoreStructural checks the candidate for the four structural elements of a
// viral cut: a hook, a climax, the source's beginning, and its resolution.
func scoreStructural(candidate timeline.RewrittenTimeline, features analysis.Features) float64 {
	score := 0.0

	tags := make(map[timeline.TransformTag]bool, len(candidate.Segments))
	for _, s := range candidate.Segments {
		tags[s.Transform] = true
	}

	if tags[timeline.TagHook] {
		score += 2.5
	}

	if tags[timeline.TagClimax] || features.Arc.ClimaxIndex < 0 {
		score += 2.5
	}

	carried := make(map[int]bool)
	for _, idx := range candidate.ProvenanceCover() {
		carried[idx] = true
	}

	var beginningKept, resolutionKept bool

	for _, f := range features.Segments {
		switch f.Marker {
		case analysis.MarkerBeginning:
			beginningKept = beginningKept || carried[f.Index]
		case analysis.MarkerResolution:
			resolutionKept = resolutionKept || carried[f.Index]
		case analysis.MarkerDevelopment, analysis.MarkerClimax, analysis.MarkerNone:
		}
	}

	if beginningKept {
		score += 2.5
	}

	if resolutionKept {
		score += 2.5
	}

	return score
}

// scoreOriginality rewards provenance coverage of the source: keeping 60%
// of the source segments scores full marks.
func scoreOriginality(tl timeline.Timeline, candidate timeline.RewrittenTimeline) float64 {
	if len(tl.Segments) == 0 {
		return 10
	}

	coverage := float64(len(candidate.ProvenanceCover())) / float64(len(tl.Segments))

	score := coverage / coverageSaturation * 10
	if score > 10 {
		score = 10
	}

	return score
}
