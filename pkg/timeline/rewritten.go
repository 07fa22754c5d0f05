package timeline

import "strings"

// TransformTag names the viral transformation that produced or touched a
// rewritten segment. The empty tag marks untouched segments.
type TransformTag string

const (
	TagNone        TransformTag = ""
	TagHook        TransformTag = "hook"
	TagAmplifier   TransformTag = "amplifier"
	TagSuspense    TransformTag = "suspense"
	TagClimax      TransformTag = "climax"
	TagTrigger     TransformTag = "trigger"
	TagReallocated TransformTag = "reallocated"
)

// RewrittenSegment is a segment after viral transformation. Provenance holds
// the 1-based indices of the source segments whose text it carries; an empty
// Provenance marks a pure insertion (hook lines, suspense beats) that
// consumes no source media.
type RewrittenSegment struct {
	Segment
	Provenance []int        `json:"provenance"`
	Transform  TransformTag `json:"transform,omitempty"`
}

// IsInsertion reports whether the segment carries no source material.
func (s RewrittenSegment) IsInsertion() bool {
	return len(s.Provenance) == 0
}

// RewrittenTimeline is the engine's output: transformed segments plus any
// quality warnings accumulated during scoring and repair.
type RewrittenTimeline struct {
	Segments          []RewrittenSegment `json:"segments"`
	Language          Language           `json:"language"`
	SourceFingerprint string             `json:"source_fingerprint"`
	Warnings          []string           `json:"warnings,omitempty"`
}

// CombinedText joins the rewritten segment texts with newlines.
func (r RewrittenTimeline) CombinedText() string {
	parts := make([]string, len(r.Segments))
	for i, s := range r.Segments {
		parts[i] = s.Text
	}

	return strings.Join(parts, "\n")
}

// ProvenanceCover returns every distinct source index referenced by any
// rewritten segment, in first-reference order.
func (r RewrittenTimeline) ProvenanceCover() []int {
	seen := make(map[int]bool)
	cover := make([]int, 0, len(r.Segments))

	for _, s := range r.Segments {
		for _, idx := range s.Provenance {
			if !seen[idx] {
				seen[idx] = true

				cover = append(cover, idx)
			}
		}
	}

	return cover
}
