package analysis

import (
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// passCurve scores every sentence with a signed polarity in [-1, 1] (P5).
// The rewriter picks suspense insertion points from this sequence, and the
// plot command renders it.
func passCurve(f *Features, tl timeline.Timeline, bank *lexicons.Bank) {
	for _, seg := range tl.Segments {
		for _, sentence := range textutil.SplitSentences(seg.Text) {
			f.Curve = append(f.Curve, CurvePoint{
				SegmentIndex: seg.Index,
				Sentence:     sentence,
				Score:        bank.Sentiment(sentence),
			})
		}
	}
}

// passIntegrity verifies the analyzed arc retains at least one beginning and
// one resolution (P6). The rewriter consults the flags before dropping
// segments; missing stages become quality warnings downstream.
func passIntegrity(f *Features) {
	for _, seg := range f.Segments {
		switch seg.Marker {
		case MarkerBeginning:
			f.Integrity.HasBeginning = true
		case MarkerResolution:
			f.Integrity.HasResolution = true
		case MarkerDevelopment, MarkerClimax, MarkerNone:
		}
	}

	if !f.Integrity.HasBeginning {
		f.Integrity.Flags = append(f.Integrity.Flags, "missing beginning")
	}

	if !f.Integrity.HasResolution {
		f.Integrity.Flags = append(f.Integrity.Flags, "missing resolution")
	}
}
