// Package planner maps a rewritten timeline back onto the source media: one
// cut per maximal contiguous run of reused source segments, output intervals
// laid end-to-end, pure insertions attached to their neighboring cut. The
// emitted CutPlan is schema-validated JSON an editor can execute without
// reading any other artifact.
package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/recut/pkg/alg/span"
	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// PlanVersion is the CutPlan wire format version.
const PlanVersion = 1

// alignmentGateMS is the mean timing residual above which provenance is
// considered unreliable and text-similarity realignment kicks in.
const alignmentGateMS = 500

// Duration-ratio band; outside it the plan carries a quality warning.
const (
	ratioWarnLow  = 0.1
	ratioWarnHigh = 0.8
)

// ErrAlignment is returned when neither provenance nor text similarity can
// map a rewritten segment back to the source.
var ErrAlignment = errors.New("planner: cannot align rewritten segment to source")

// Segment is one cut of the plan: a source interval to lift and the output
// interval it lands on. Pure insertions have an empty provenance list and a
// zero-length source interval.
type Segment struct {
	SrcStartMS    int64  `json:"src_start_ms"`
	SrcEndMS      int64  `json:"src_end_ms"`
	OutStartMS    int64  `json:"out_start_ms"`
	OutEndMS      int64  `json:"out_end_ms"`
	Text          string `json:"text"`
	ProvenanceIDs []int  `json:"provenance_ids"`
}

// SrcSpan returns the segment's source interval.
func (s Segment) SrcSpan() span.Span {
	return span.Span{Start: s.SrcStartMS, End: s.SrcEndMS}
}

// OutSpan returns the segment's output interval.
func (s Segment) OutSpan() span.Span {
	return span.Span{Start: s.OutStartMS, End: s.OutEndMS}
}

// IsInsertion reports whether the segment consumes no source media.
func (s Segment) IsInsertion() bool {
	return len(s.ProvenanceIDs) == 0
}

// CutPlan is the executable re-cut description.
type CutPlan struct {
	Version         int       `json:"version"`
	ProjectName     string    `json:"project_name"`
	CreatedAt       time.Time `json:"created_at"`
	TotalDurationMS int64     `json:"total_duration_ms"`
	Segments        []Segment `json:"segments"`
	Warnings        []string  `json:"warnings,omitempty"`
}

// Options parameterize plan construction.
type Options struct {
	ProjectName string

	// MediaDurationMS bounds source intervals. Zero means the source
	// timeline's extent end.
	MediaDurationMS int64

	// Now stamps CreatedAt; nil uses time.Now. Tests pin it.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}

	return time.Now()
}

// Build maps the rewritten timeline onto the source and lays the cuts
// end-to-end. Provenance drives the mapping; when its timing disagrees with
// the source beyond the alignment gate, text similarity re-derives it.
func Build(source timeline.Timeline, rewritten timeline.RewrittenTimeline, opts Options) (CutPlan, error) {
	mediaMS := opts.MediaDurationMS
	if mediaMS == 0 {
		mediaMS = source.Extent().End
	}

	byIndex := make(map[int]timeline.Segment, len(source.Segments))
	for _, s := range source.Segments {
		byIndex[s.Index] = s
	}

	aligned := rewritten.Segments

	if residual := meanResidualMS(aligned, byIndex); residual > alignmentGateMS {
		realigned, err := realignByText(aligned, source)
		if err != nil {
			return CutPlan{}, err
		}

		aligned = realigned
	}

	segments, err := layout(aligned, byIndex, mediaMS)
	if err != nil {
		return CutPlan{}, err
	}

	plan := CutPlan{
		Version:         PlanVersion,
		ProjectName:     opts.ProjectName,
		CreatedAt:       opts.now().UTC(),
		TotalDurationMS: totalOut(segments),
		Segments:        segments,
		Warnings:        append([]string(nil), rewritten.Warnings...),
	}

	if w := ratioWarning(plan.TotalDurationMS, source.SpeechMS()); w != "" {
		plan.Warnings = append(plan.Warnings, w)
	}

	return plan, nil
}

// layout builds one cut per maximal contiguous provenance run and lays the
// output intervals end-to-end. Insertions attach to the boundary instant of
// the neighboring cut.
func layout(segs []timeline.RewrittenSegment, byIndex map[int]timeline.Segment, mediaMS int64) ([]Segment, error) {
	out := make([]Segment, 0, len(segs))
	cursor := int64(0)

	// Insertions seen before the first media cut anchor at output zero and
	// at the first cut's source start once it is known.
	pendingInsertions := 0

	for _, rs := range segs {
		if rs.IsInsertion() {
			out = append(out, Segment{
				OutStartMS: cursor,
				OutEndMS:   cursor,
				Text:       rs.Text,
			})

			pendingInsertions++

			continue
		}

		runs := contiguousRuns(rs.Provenance)

		for ri, run := range runs {
			hull, err := runHull(run, byIndex, mediaMS)
			if err != nil {
				return nil, err
			}

			text := ""
			if ri == 0 {
				// The rewritten text belongs to the first cut of the
				// segment; further runs lift media only.
				text = rs.Text
			}

			cut := Segment{
				SrcStartMS:    hull.Start,
				SrcEndMS:      hull.End,
				OutStartMS:    cursor,
				OutEndMS:      cursor + hull.Len(),
				Text:          text,
				ProvenanceIDs: append([]int(nil), run...),
			}

			for ; pendingInsertions > 0; pendingInsertions-- {
				ins := &out[len(out)-pendingInsertions]
				ins.SrcStartMS = hull.Start
				ins.SrcEndMS = hull.Start
			}

			out = append(out, cut)
			cursor = cut.OutEndMS
		}
	}

	// Trailing insertions anchor at the last cut's source end.
	if pendingInsertions > 0 {
		anchor := int64(0)

		for i := len(out) - pendingInsertions - 1; i >= 0; i-- {
			if !out[i].IsInsertion() {
				anchor = out[i].SrcEndMS

				break
			}
		}

		for ; pendingInsertions > 0; pendingInsertions-- {
			ins := &out[len(out)-pendingInsertions]
			ins.SrcStartMS = anchor
			ins.SrcEndMS = anchor
		}
	}

	return out, nil
}

// contiguousRuns splits sorted-or-not provenance indices into maximal runs
// of consecutive source segments, preserving first-appearance order.
func contiguousRuns(indices []int) [][]int {
	if len(indices) == 0 {
		return nil
	}

	runs := [][]int{{indices[0]}}

	for _, idx := range indices[1:] {
		last := runs[len(runs)-1]
		if idx == last[len(last)-1]+1 {
			runs[len(runs)-1] = append(last, idx)

			continue
		}

		runs = append(runs, []int{idx})
	}

	return runs
}

// runHull returns the source hull of a provenance run, bounded by the media
// duration.
func runHull(run []int, byIndex map[int]timeline.Segment, mediaMS int64) (span.Span, error) {
	spans := make([]span.Span, 0, len(run))

	for _, idx := range run {
		src, ok := byIndex[idx]
		if !ok {
			return span.Span{}, faults.E(faults.KindInternal,
				fmt.Sprintf("provenance references unknown source segment %d", idx), ErrAlignment)
		}

		spans = append(spans, src.Span())
	}

	hull := span.Hull(spans)

	if hull.End > mediaMS {
		return span.Span{}, faults.E(faults.KindInternal,
			fmt.Sprintf("source interval [%d, %d) exceeds media duration %d ms", hull.Start, hull.End, mediaMS),
			ErrAlignment)
	}

	return hull, nil
}

// meanResidualMS measures how far the carried segments' timing drifted from
// the source segments their provenance names.
func meanResidualMS(segs []timeline.RewrittenSegment, byIndex map[int]timeline.Segment) int64 {
	total := int64(0)
	carried := 0

	for _, rs := range segs {
		if rs.IsInsertion() {
			continue
		}

		src, ok := byIndex[rs.Provenance[0]]
		if !ok {
			continue
		}

		d := rs.StartMS - src.StartMS
		if d < 0 {
			d = -d
		}

		total += d
		carried++
	}

	if carried == 0 {
		return 0
	}

	return total / int64(carried)
}

// totalOut sums the output durations; insertions are zero-length.
func totalOut(segs []Segment) int64 {
	total := int64(0)
	for _, s := range segs {
		total += s.OutSpan().Len()
	}

	return total
}

// ratioWarning returns a quality warning when the output/input duration
// ratio leaves the acceptable band. Empty string inside the band.
func ratioWarning(outMS, sourceMS int64) string {
	if sourceMS == 0 {
		return ""
	}

	ratio := float64(outMS) / float64(sourceMS)
	if ratio >= ratioWarnLow && ratio <= ratioWarnHigh {
		return ""
	}

	return fmt.Sprintf("duration ratio %.2f outside [%.1f, %.1f]", ratio, ratioWarnLow, ratioWarnHigh)
}
