// Package span provides half-open millisecond interval algebra for source
// and output timelines.
//
// Spans are [Start, End) so that segments cut end-to-end share a boundary
// without overlapping. The planner hulls the source spans of each contiguous
// reused run, and validators sweep output spans for overlap.
package span

import "sort"

// Span is a half-open interval of millisecond offsets.
type Span struct {
	Start int64
	End   int64
}

// Len returns the span duration in milliseconds, zero for inverted spans.
func (s Span) Len() int64 {
	if s.End <= s.Start {
		return 0
	}

	return s.End - s.Start
}

// Valid reports whether the span is non-negative and non-empty.
func (s Span) Valid() bool {
	return s.Start >= 0 && s.End > s.Start
}

// Contains reports whether ms falls inside the span.
func (s Span) Contains(ms int64) bool {
	return ms >= s.Start && ms < s.End
}

// Overlaps reports whether two half-open spans share any instant. Adjacent
// spans (a.End == b.Start) do not overlap.
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Hull returns the smallest span covering all inputs: the minimum start and
// maximum end. Returns the zero Span for empty input.
func Hull(spans []Span) Span {
	if len(spans) == 0 {
		return Span{}
	}

	hull := spans[0]

	for _, s := range spans[1:] {
		if s.Start < hull.Start {
			hull.Start = s.Start
		}

		if s.End > hull.End {
			hull.End = s.End
		}
	}

	return hull
}

// Merge sorts the spans and coalesces any that overlap or touch. The input
// slice is not modified.
func Merge(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}

		return sorted[i].End < sorted[j].End
	})

	merged := sorted[:1]

	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}

			continue
		}

		merged = append(merged, s)
	}

	return merged
}

// TotalLen returns the combined duration of the spans with overlaps counted
// once.
func TotalLen(spans []Span) int64 {
	total := int64(0)
	for _, s := range Merge(spans) {
		total += s.Len()
	}

	return total
}

// AnyOverlap reports whether any two spans in the slice overlap, using a
// sort-and-sweep pass.
func AnyOverlap(spans []Span) bool {
	if len(spans) < 2 {
		return false
	}

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			return true
		}
	}

	return false
}
