package timeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Language
	}{
		{"pure chinese", "他推开门看见空荡荡的房间", LangZH},
		{"pure english", "He opened the door to an empty room", LangEN},
		{"mixed above threshold", "他说 hello 然后离开了房间再也没有回来", LangZH},
		{"mostly english with a few ideographs", "The protagonist said 你好 and then walked away from home forever", LangEN},
		{"digits and punctuation only", "12:34 !!! 999", LangUnknown},
		{"empty", "", LangUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, DetectLanguage(tt.text))
		})
	}
}

func TestNew_SortsAndRenumbers(t *testing.T) {
	t.Parallel()

	tl := New([]Segment{
		{Index: 99, StartMS: 5000, EndMS: 7000, Text: "later"},
		{Index: 2, StartMS: 0, EndMS: 2000, Text: "first"},
		{Index: 7, StartMS: 2500, EndMS: 4000, Text: "middle"},
	})

	require.Len(t, tl.Segments, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{tl.Segments[0].Index, tl.Segments[1].Index, tl.Segments[2].Index})
	assert.Equal(t, "first", tl.Segments[0].Text)
	assert.Equal(t, "later", tl.Segments[2].Text)
	assert.Equal(t, LangEN, tl.Language)
	assert.NotEmpty(t, tl.Fingerprint)
}

func TestNew_FingerprintIgnoresFormatting(t *testing.T) {
	t.Parallel()

	a := New([]Segment{{StartMS: 0, EndMS: 1000, Text: "Hello   World"}})
	b := New([]Segment{{StartMS: 0, EndMS: 1000, Text: "hello world"}})
	c := New([]Segment{{StartMS: 0, EndMS: 1000, Text: "goodbye world"}})

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestNew_FingerprintSensitiveToTiming(t *testing.T) {
	t.Parallel()

	a := New([]Segment{{StartMS: 0, EndMS: 1000, Text: "hello"}})
	b := New([]Segment{{StartMS: 0, EndMS: 1001, Text: "hello"}})

	assert.NotEqual(t, a.Fingerprint, b.Fingerprint)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := New([]Segment{
		{StartMS: 0, EndMS: 1000, Text: "a"},
		{StartMS: 1000, EndMS: 2000, Text: "b"}, // Shared boundary is fine.
	})
	require.NoError(t, valid.Validate())

	inverted := Timeline{Segments: []Segment{{Index: 1, StartMS: 500, EndMS: 500, Text: "x"}}}
	require.ErrorIs(t, inverted.Validate(), ErrSegmentInverted)

	negative := Timeline{Segments: []Segment{{Index: 1, StartMS: -5, EndMS: 500, Text: "x"}}}
	require.ErrorIs(t, negative.Validate(), ErrNegativeOffset)

	overlapping := Timeline{Segments: []Segment{
		{Index: 1, StartMS: 0, EndMS: 1000, Text: "a"},
		{Index: 2, StartMS: 900, EndMS: 2000, Text: "b"},
	}}
	require.ErrorIs(t, overlapping.Validate(), ErrSegmentsOverlap)
}

func TestExtentAndSpeech(t *testing.T) {
	t.Parallel()

	tl := New([]Segment{
		{StartMS: 1000, EndMS: 2000, Text: "a"},
		{StartMS: 5000, EndMS: 7000, Text: "b"},
	})

	ext := tl.Extent()
	assert.Equal(t, int64(1000), ext.Start)
	assert.Equal(t, int64(7000), ext.End)
	assert.Equal(t, int64(3000), tl.SpeechMS())

	empty := Timeline{}
	assert.Equal(t, int64(0), empty.Extent().Len())
}

func TestCopy_DetachesSegments(t *testing.T) {
	t.Parallel()

	orig := New([]Segment{{StartMS: 0, EndMS: 1000, Text: "original"}})

	cp := orig.Copy()
	cp.Segments[0].Text = "mutated"

	assert.Equal(t, "original", orig.Segments[0].Text)
}

func TestRewrittenTimeline_ProvenanceCover(t *testing.T) {
	t.Parallel()

	r := RewrittenTimeline{Segments: []RewrittenSegment{
		{Segment: Segment{Index: 1, Text: "hook"}, Provenance: nil, Transform: TagHook},
		{Segment: Segment{Index: 2, Text: "body"}, Provenance: []int{2, 3}},
		{Segment: Segment{Index: 3, Text: "again"}, Provenance: []int{3, 5}},
	}}

	assert.True(t, r.Segments[0].IsInsertion())
	assert.False(t, r.Segments[1].IsInsertion())
	assert.Equal(t, []int{2, 3, 5}, r.ProvenanceCover())
}

func TestCombinedText(t *testing.T) {
	t.Parallel()

	tl := New([]Segment{
		{StartMS: 0, EndMS: 1000, Text: "line one"},
		{StartMS: 1000, EndMS: 2000, Text: "line two"},
	})

	assert.Equal(t, "line one\nline two", tl.CombinedText())
	assert.Equal(t, 2, len(strings.Split(tl.CombinedText(), "\n")))
}
