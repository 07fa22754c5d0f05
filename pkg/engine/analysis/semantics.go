package analysis

import (
	"context"

	"github.com/Sumatoshi-tech/recut/pkg/backend"
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// passSemantics scores every segment along the fixed emotion axes (P1).
// With a backend in the params, scoring delegates to it; otherwise the
// lexicon tallies stand in. Either path is deterministic.
func passSemantics(ctx context.Context, f *Features, tl timeline.Timeline, bank *lexicons.Bank, params Params) error {
	f.Segments = make([]SegmentFeatures, len(tl.Segments))

	var intensitySum float64

	aggregate := make(map[backend.Axis]float64, len(backend.Axes))

	for i, seg := range tl.Segments {
		signals, err := segmentSignals(ctx, seg.Text, bank, params)
		if err != nil {
			return err
		}

		f.Segments[i] = SegmentFeatures{
			Index:     seg.Index,
			Signals:   signals,
			Polarity:  bank.Sentiment(seg.Text),
			Sentences: len(textutil.SplitSentences(seg.Text)),
		}

		intensitySum += signals.Intensity

		for axis, score := range signals.Scores {
			aggregate[axis] += score
		}
	}

	if len(tl.Segments) == 0 {
		f.Dominant = backend.AxisPositive

		return nil
	}

	for axis := range aggregate {
		aggregate[axis] /= float64(len(tl.Segments))
	}

	f.Dominant = backend.Dominant(aggregate)
	f.Intensity = intensitySum / float64(len(tl.Segments))

	return nil
}

func segmentSignals(ctx context.Context, text string, bank *lexicons.Bank, params Params) (backend.SemanticSignals, error) {
	if params.Backend != nil {
		return params.Backend.Analyze(ctx, text)
	}

	if err := ctx.Err(); err != nil {
		return backend.SemanticSignals{}, err
	}

	return lexiconScores(text, bank), nil
}

// lexiconScale stretches sparse per-word hit ratios into the [0, 1] band; a
// hit every four words saturates an axis.
const lexiconScale = 4.0

// lexiconScores folds a bank tally into per-axis scores.
func lexiconScores(text string, bank *lexicons.Bank) backend.SemanticSignals {
	tally := bank.Tally(text)

	words := float64(len(textutil.Words(text)))
	if words == 0 {
		words = 1
	}

	clamp := func(v float64) float64 {
		if v > 1 {
			return 1
		}

		return v
	}

	scores := map[backend.Axis]float64{
		backend.AxisPositive:   clamp(tally.Positive / words * lexiconScale),
		backend.AxisNegative:   clamp(tally.Negative / words * lexiconScale),
		backend.AxisIntense:    clamp(tally.Intense / words * lexiconScale),
		backend.AxisConflict:   clamp(tally.Conflict / words * lexiconScale),
		backend.AxisResolution: clamp(tally.Resolution / words * lexiconScale),
	}

	dominant := backend.Dominant(scores)

	return backend.SemanticSignals{
		Scores:    scores,
		Dominant:  dominant,
		Intensity: scores[dominant],
	}
}

// AxisEmotion maps a dominant axis onto the character-emotion vocabulary the
// validators reason about.
func AxisEmotion(axis backend.Axis, polarity float64) Emotion {
	switch axis {
	case backend.AxisPositive:
		return EmotionJoy
	case backend.AxisNegative:
		if polarity < -0.5 {
			return EmotionDespair
		}

		return EmotionSorrow
	case backend.AxisConflict:
		return EmotionHostility
	case backend.AxisResolution:
		return EmotionCalm
	case backend.AxisIntense:
		if polarity >= 0 {
			return EmotionHope
		}

		return EmotionFury
	default:
		return EmotionNeutral
	}
}
