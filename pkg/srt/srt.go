// Package srt decodes SubRip subtitle files into timelines and encodes
// timelines back to canonical SRT.
//
// Real-world SRT is messy, so Decode is deliberately tolerant: CRLF or LF,
// UTF-8 or BOM-marked UTF-16, missing cue indices, a missing final blank
// line, and stray duplicate cues all pass. Only defects that would corrupt
// timing or text are fatal.
package srt

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

var (
	// ErrMalformedTimestamp is returned when a cue's timing line cannot be
	// parsed.
	ErrMalformedTimestamp = errors.New("srt: malformed timestamp")

	// ErrInvertedCue is returned when a cue ends at or before its start.
	ErrInvertedCue = errors.New("srt: cue end must be after start")

	// ErrBinaryInput is returned when the input does not look like subtitle
	// text at all.
	ErrBinaryInput = errors.New("srt: input is not text")
)

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
)

// Decode parses SRT data into a Timeline. Empty input yields an empty
// timeline with unknown language, not an error. Fatal defects (malformed
// timing, inverted cues, binary input) return input-kind faults naming the
// offending line.
func Decode(data []byte) (timeline.Timeline, error) {
	text, err := toUTF8(data)
	if err != nil {
		return timeline.Timeline{}, err
	}

	if strings.TrimSpace(text) == "" {
		return timeline.New(nil), nil
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	segments := make([]timeline.Segment, 0, len(lines)/3)

	i := 0
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) == "" {
			i++

			continue
		}

		// Cue index lines are optional and untrusted; the timeline
		// renumbers from scratch.
		if isCueIndex(lines[i]) && i+1 < len(lines) && strings.Contains(lines[i+1], "-->") {
			i++
		}

		lineNo := i + 1

		startMS, endMS, err := parseTiming(lines[i])
		if err != nil {
			return timeline.Timeline{}, faults.E(faults.KindInput,
				fmt.Sprintf("line %d: %q", lineNo, strings.TrimSpace(lines[i])), err)
		}

		if endMS <= startMS {
			return timeline.Timeline{}, faults.E(faults.KindInput,
				fmt.Sprintf("line %d: cue %d..%d ms", lineNo, startMS, endMS), ErrInvertedCue)
		}

		i++

		var cueText []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			cueText = append(cueText, strings.TrimSpace(lines[i]))
			i++
		}

		cue := strings.Join(cueText, "\n")
		if cue == "" {
			// Empty cues carry no narration. Drop and continue.
			continue
		}

		// Consecutive cues with identical text are one utterance split by
		// the subtitler; merge by extending the previous cue.
		if n := len(segments); n > 0 && textutil.Normalize(segments[n-1].Text) == textutil.Normalize(cue) {
			if endMS > segments[n-1].EndMS {
				segments[n-1].EndMS = endMS
			}

			continue
		}

		segments = append(segments, timeline.Segment{
			StartMS: startMS,
			EndMS:   endMS,
			Text:    cue,
		})
	}

	return timeline.New(segments), nil
}

// Encode renders a timeline as canonical SRT: sequential indices, comma
// millisecond separator, CRLF-free.
func Encode(t timeline.Timeline) []byte {
	var buf bytes.Buffer

	for i, s := range t.Segments {
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n\n",
			i+1, formatTimestamp(s.StartMS), formatTimestamp(s.EndMS), s.Text)
	}

	return buf.Bytes()
}

// toUTF8 strips a UTF-8 BOM or transcodes BOM-marked UTF-16, then rejects
// content that still looks binary.
func toUTF8(data []byte) (string, error) {
	var text string

	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		text = decodeUTF16(data[2:], false)
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		text = decodeUTF16(data[2:], true)
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		text = string(data[3:])
	default:
		text = string(data)
	}

	if textutil.IsBinary([]byte(text)) {
		return "", faults.E(faults.KindInput, "binary content detected", ErrBinaryInput)
	}

	return text, nil
}

// decodeUTF16 converts UTF-16 code units to a UTF-8 string. A trailing odd
// byte is dropped.
func decodeUTF16(b []byte, bigEndian bool) string {
	units := make([]uint16, 0, len(b)/2)

	for i := 0; i+1 < len(b); i += 2 {
		if bigEndian {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		} else {
			units = append(units, uint16(b[i+1])<<8|uint16(b[i]))
		}
	}

	return string(utf16.Decode(units))
}

// isCueIndex reports whether the line is a bare cue number.
func isCueIndex(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	_, err := strconv.Atoi(trimmed)

	return err == nil
}

// parseTiming parses "HH:MM:SS,mmm --> HH:MM:SS,mmm". A period millisecond
// separator is accepted; some tools emit it.
func parseTiming(line string) (int64, int64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, ErrMalformedTimestamp
	}

	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}

	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}

// parseTimestamp converts "HH:MM:SS,mmm" to milliseconds.
func parseTimestamp(s string) (int64, error) {
	clock := strings.Split(s, ":")
	if len(clock) != 3 {
		return 0, ErrMalformedTimestamp
	}

	secPart := strings.ReplaceAll(clock[2], ".", ",")

	secMS := strings.Split(secPart, ",")
	if len(secMS) != 2 {
		return 0, ErrMalformedTimestamp
	}

	fields := []string{clock[0], clock[1], secMS[0], secMS[1]}
	values := make([]int64, len(fields))

	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil || v < 0 {
			return 0, ErrMalformedTimestamp
		}

		values[i] = v
	}

	hours, minutes, seconds, millis := values[0], values[1], values[2], values[3]
	if minutes > 59 || seconds > 59 || millis > 999 {
		return 0, ErrMalformedTimestamp
	}

	return hours*msPerHour + minutes*msPerMinute + seconds*msPerSecond + millis, nil
}

// formatTimestamp renders milliseconds as "HH:MM:SS,mmm".
func formatTimestamp(ms int64) string {
	hours := ms / msPerHour
	ms %= msPerHour
	minutes := ms / msPerMinute
	ms %= msPerMinute
	seconds := ms / msPerSecond
	ms %= msPerSecond

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}
