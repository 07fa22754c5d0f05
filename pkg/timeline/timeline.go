// Package timeline defines the segment model shared by every pipeline stage:
// ingest produces a Timeline, the engine produces a RewrittenTimeline, and
// the planner maps one onto the other.
//
// Timelines are passed by value and never mutated in place. A stage that
// needs to reorder or rewrite segments builds a new Timeline.
package timeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/recut/pkg/alg/span"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
)

// Language identifies the narration language selected at ingest.
type Language string

const (
	LangZH      Language = "zh"
	LangEN      Language = "en"
	LangUnknown Language = "unknown"
)

// cjkRatioThreshold is the minimum proportion of CJK ideographs among
// counted letters for a text to classify as Chinese.
const cjkRatioThreshold = 0.3

// DetectLanguage classifies text by the ratio of CJK Unified Ideographs to
// all counted letters (CJK + ASCII). Mixed subtitles with at least 30% CJK
// classify as Chinese; any ASCII letters otherwise classify as English.
func DetectLanguage(text string) Language {
	cjk, ascii := textutil.ScriptTally(text)

	total := cjk + ascii
	if total == 0 {
		return LangUnknown
	}

	if float64(cjk)/float64(total) >= cjkRatioThreshold {
		return LangZH
	}

	if ascii > 0 {
		return LangEN
	}

	return LangUnknown
}

var (
	// ErrSegmentInverted is returned when a segment ends at or before its
	// start.
	ErrSegmentInverted = errors.New("timeline: segment end must be after start")

	// ErrSegmentsOverlap is returned when two segments share more than a
	// boundary instant.
	ErrSegmentsOverlap = errors.New("timeline: segments overlap")

	// ErrNegativeOffset is returned when a segment starts before zero.
	ErrNegativeOffset = errors.New("timeline: segment start must not be negative")
)

// Segment is one subtitle cue: a half-open [StartMS, EndMS) source interval
// and its text. Index is 1-based and unique within a Timeline.
type Segment struct {
	Index   int    `json:"index"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// DurationMS returns the segment length in milliseconds.
func (s Segment) DurationMS() int64 {
	return s.EndMS - s.StartMS
}

// Span returns the segment's source interval.
func (s Segment) Span() span.Span {
	return span.Span{Start: s.StartMS, End: s.EndMS}
}

// Timeline is an ordered, non-overlapping sequence of segments plus the
// language detected over their combined text.
type Timeline struct {
	Segments    []Segment `json:"segments"`
	Language    Language  `json:"language"`
	Fingerprint string    `json:"fingerprint"`
}

// New builds a Timeline from segments: sorts by start time, renumbers
// indices 1..N, detects the language over the combined text, and computes
// the content fingerprint. The input slice is not modified.
func New(segments []Segment) Timeline {
	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartMS < sorted[j].StartMS
	})

	var combined strings.Builder

	for i := range sorted {
		sorted[i].Index = i + 1

		combined.WriteString(sorted[i].Text)
		combined.WriteByte('\n')
	}

	return Timeline{
		Segments:    sorted,
		Language:    DetectLanguage(combined.String()),
		Fingerprint: fingerprint(sorted),
	}
}

// fingerprint hashes the normalized text and timing of every segment, so
// formatting-only differences between two subtitle files do not fork the
// snapshot lineage.
func fingerprint(segments []Segment) string {
	h := sha256.New()

	for _, s := range segments {
		fmt.Fprintf(h, "%d|%d|%d|%s\n", s.Index, s.StartMS, s.EndMS, textutil.Normalize(s.Text))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks segment ordering invariants: non-negative offsets, end
// after start, and no overlap beyond shared boundaries.
func (t Timeline) Validate() error {
	for i, s := range t.Segments {
		if s.StartMS < 0 {
			return fmt.Errorf("segment %d: %w", s.Index, ErrNegativeOffset)
		}

		if s.EndMS <= s.StartMS {
			return fmt.Errorf("segment %d: %w", s.Index, ErrSegmentInverted)
		}

		if i > 0 && s.StartMS < t.Segments[i-1].EndMS {
			return fmt.Errorf("segments %d and %d: %w", t.Segments[i-1].Index, s.Index, ErrSegmentsOverlap)
		}
	}

	return nil
}

// Extent returns the source interval from the first segment's start to the
// last segment's end. Zero Span for an empty timeline.
func (t Timeline) Extent() span.Span {
	if len(t.Segments) == 0 {
		return span.Span{}
	}

	return span.Span{
		Start: t.Segments[0].StartMS,
		End:   t.Segments[len(t.Segments)-1].EndMS,
	}
}

// SpeechMS returns the summed duration of all segments, excluding the
// silent gaps between them.
func (t Timeline) SpeechMS() int64 {
	total := int64(0)
	for _, s := range t.Segments {
		total += s.DurationMS()
	}

	return total
}

// CombinedText joins all segment texts with newlines, the form language
// detection and whole-story analysis operate on.
func (t Timeline) CombinedText() string {
	parts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		parts[i] = s.Text
	}

	return strings.Join(parts, "\n")
}

// Copy returns a Timeline with its own segment slice, safe to hand to a
// stage that will reorder or rewrite it.
func (t Timeline) Copy() Timeline {
	segments := make([]Segment, len(t.Segments))
	copy(segments, t.Segments)

	out := t
	out.Segments = segments

	return out
}
