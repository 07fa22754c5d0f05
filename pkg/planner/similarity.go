package planner

import (
	"fmt"

	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// Similarity weights: character-set overlap, word-set overlap, length
// ratio, and 3-gram overlap.
const (
	simCharWeight   = 0.3
	simWordWeight   = 0.4
	simLengthWeight = 0.2
	simNGramWeight  = 0.1

	simAcceptThreshold = 0.2

	simNGramSize = 3
)

// realignByText re-derives provenance for every carried segment by best
// text similarity against the source. Segments with no acceptable match
// fail the plan.
func realignByText(segs []timeline.RewrittenSegment, source timeline.Timeline) ([]timeline.RewrittenSegment, error) {
	out := make([]timeline.RewrittenSegment, len(segs))
	copy(out, segs)

	for i := range out {
		if out[i].IsInsertion() {
			continue
		}

		best, score := bestMatch(out[i].Text, source)
		if score < simAcceptThreshold {
			return nil, faults.E(faults.KindInternal,
				fmt.Sprintf("segment %d: best text similarity %.2f below %.2f", i, score, simAcceptThreshold),
				ErrAlignment)
		}

		out[i].Provenance = []int{best.Index}
		out[i].StartMS = best.StartMS
		out[i].EndMS = best.EndMS
	}

	return out, nil
}

// bestMatch returns the most similar source segment, preferring the earlier
// one on ties.
func bestMatch(text string, source timeline.Timeline) (timeline.Segment, float64) {
	var best timeline.Segment

	bestScore := -1.0

	for _, s := range source.Segments {
		if score := TextSimilarity(text, s.Text); score > bestScore {
			best = s
			bestScore = score
		}
	}

	return best, bestScore
}

// TextSimilarity scores two texts in [0, 1] as the weighted blend of
// character-set Jaccard, word-set Jaccard, length ratio, and 3-gram
// Jaccard. Symmetric; identical texts score 1.
func TextSimilarity(a, b string) float64 {
	na, nb := textutil.Normalize(a), textutil.Normalize(b)
	if na == "" || nb == "" {
		if na == nb {
			return 1
		}

		return 0
	}

	chars := jaccardRunes(textutil.CharSet(na), textutil.CharSet(nb))
	words := jaccardStrings(wordSet(na), wordSet(nb))
	length := lengthRatio(na, nb)
	grams := jaccardStrings(textutil.NGrams(na, simNGramSize), textutil.NGrams(nb, simNGramSize))

	return simCharWeight*chars + simWordWeight*words + simLengthWeight*length + simNGramWeight*grams
}

func jaccardRunes(a, b map[rune]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}

	inter := 0

	for r := range a {
		if _, ok := b[r]; ok {
			inter++
		}
	}

	return float64(inter) / float64(len(a)+len(b)-inter)
}

func jaccardStrings(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}

	inter := 0

	for s := range a {
		if _, ok := b[s]; ok {
			inter++
		}
	}

	return float64(inter) / float64(len(a)+len(b)-inter)
}

func wordSet(norm string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range textutil.Words(norm) {
		set[w] = struct{}{}
	}

	return set
}

func lengthRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la > lb {
		la, lb = lb, la
	}

	if lb == 0 {
		return 1
	}

	return float64(la) / float64(lb)
}
