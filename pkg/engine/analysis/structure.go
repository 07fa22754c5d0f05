package analysis

import (
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// Positional bands for cue-less structural tagging: the first band of a
// story reads as setup, the last as resolution.
const (
	beginningBand  = 0.15
	resolutionBand = 0.85
)

// msPerMinute converts extent milliseconds to minutes for pacing.
const msPerMinute = 60_000.0

// passStructure tags each segment with a structural marker and computes arc
// completeness and pacing (P2). Cue words win over position; the strongest
// remaining segment becomes the climax when no cue names one.
func passStructure(f *Features, tl timeline.Timeline, bank *lexicons.Bank) {
	n := len(tl.Segments)
	if n == 0 {
		return
	}

	climaxFromCue := -1

	for i, seg := range tl.Segments {
		marker := cueMarker(seg.Text, bank)

		if marker == MarkerNone {
			marker = positionMarker(i, n)
		}

		if marker == MarkerClimax && climaxFromCue < 0 {
			climaxFromCue = i
		}

		f.Segments[i].Marker = marker
	}

	climax := climaxFromCue
	if climax < 0 {
		climax = strongestSegment(f.Segments)

		if climax >= 0 && f.Segments[climax].Signals.Intensity > 0 {
			f.Segments[climax].Marker = MarkerClimax
		} else {
			climax = -1
		}
	}

	f.Arc = Arc{
		Completeness: arcCompleteness(f.Segments),
		PacingSPM:    pacing(f, tl),
		ClimaxIndex:  climax,
	}
}

// cueMarker returns the marker whose cue list matches text, or MarkerNone.
// Climax cues are checked first so a segment that both opens and peaks reads
// as the peak.
func cueMarker(text string, bank *lexicons.Bank) Marker {
	ordered := []struct {
		cue    string
		marker Marker
	}{
		{lexicons.CueClimax, MarkerClimax},
		{lexicons.CueResolution, MarkerResolution},
		{lexicons.CueBeginning, MarkerBeginning},
		{lexicons.CueDevelopment, MarkerDevelopment},
	}

	for _, entry := range ordered {
		if bank.ContainsAny(text, bank.StructureCues(entry.cue)) {
			return entry.marker
		}
	}

	return MarkerNone
}

func positionMarker(i, n int) Marker {
	pos := float64(i) / float64(n)

	switch {
	case pos < beginningBand:
		return MarkerBeginning
	case pos >= resolutionBand:
		return MarkerResolution
	default:
		return MarkerDevelopment
	}
}

// strongestSegment returns the index of the most intense development-band
// segment, preferring earlier segments on ties.
func strongestSegment(segments []SegmentFeatures) int {
	best := -1
	bestScore := 0.0

	for i, seg := range segments {
		if seg.Marker != MarkerDevelopment {
			continue
		}

		if seg.Signals.Intensity > bestScore {
			best = i
			bestScore = seg.Signals.Intensity
		}
	}

	return best
}

func arcCompleteness(segments []SegmentFeatures) float64 {
	present := make(map[Marker]bool, 4)
	for _, seg := range segments {
		present[seg.Marker] = true
	}

	stages := 0

	for _, m := range []Marker{MarkerBeginning, MarkerDevelopment, MarkerClimax, MarkerResolution} {
		if present[m] {
			stages++
		}
	}

	return float64(stages) / 4
}

func pacing(f *Features, tl timeline.Timeline) float64 {
	extent := tl.Extent().Len()
	if extent <= 0 {
		return 0
	}

	sentences := 0
	for _, seg := range f.Segments {
		sentences += seg.Sentences
	}

	return float64(sentences) / (float64(extent) / msPerMinute)
}
