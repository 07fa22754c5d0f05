package analysis

import (
	"sort"

	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// densityWindow is the segment radius over which turning-point density is
// measured.
const densityWindow = 2

// passTurningPoints locates segments whose polarity swing exceeds the
// threshold or that carry an explicit reversal cue, and scores each by
// intensity times local density (P4). Ties prefer the earlier segment.
func passTurningPoints(f *Features, tl timeline.Timeline, bank *lexicons.Bank, params Params) {
	if len(f.Segments) < 2 {
		return
	}

	threshold := params.turningDelta()

	type candidate struct {
		pos    int
		delta  float64
		hasCue bool
	}

	var candidates []candidate

	for i := 1; i < len(f.Segments); i++ {
		delta := f.Segments[i].Polarity - f.Segments[i-1].Polarity
		if delta < 0 {
			delta = -delta
		}

		hasCue := bank.ContainsAny(tl.Segments[i].Text, bank.Reversals())

		if delta >= threshold || hasCue {
			candidates = append(candidates, candidate{pos: i, delta: delta, hasCue: hasCue})
		}
	}

	if len(candidates) == 0 {
		return
	}

	isCandidate := make(map[int]bool, len(candidates))
	for _, c := range candidates {
		isCandidate[c.pos] = true
	}

	points := make([]TurningPoint, 0, len(candidates))

	for _, c := range candidates {
		neighbors := 0

		for d := -densityWindow; d <= densityWindow; d++ {
			if d != 0 && isCandidate[c.pos+d] {
				neighbors++
			}
		}

		density := 1 + float64(neighbors)/float64(2*densityWindow)
		intensity := f.Segments[c.pos].Signals.Intensity

		points = append(points, TurningPoint{
			Index:     f.Segments[c.pos].Index,
			Delta:     c.delta,
			HasCue:    c.hasCue,
			Intensity: intensity,
			Score:     intensity * density,
		})
	}

	// Strongest first; equal scores keep the earlier segment ahead.
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Score != points[j].Score {
			return points[i].Score > points[j].Score
		}

		return points[i].Index < points[j].Index
	})

	f.TurningPoints = points
}
