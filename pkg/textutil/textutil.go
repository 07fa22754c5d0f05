// Package textutil provides the text primitives shared by the subtitle
// parser, the reconstruction engine, and the splicing planner: binary
// detection, normalization, script tallies, and sentence/clause splitting.
package textutil

import (
	"bytes"
	"strings"
	"unicode"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// Normalize lowercases s and collapses all whitespace runs to single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// IsCJK reports whether r lies in the CJK Unified Ideographs block.
func IsCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// ScriptTally counts CJK ideographs and ASCII letters in text.
// All other runes are ignored.
func ScriptTally(text string) (cjk, ascii int) {
	for _, r := range text {
		switch {
		case IsCJK(r):
			cjk++
		case r < 128 && unicode.IsLetter(r):
			ascii++
		}
	}

	return cjk, ascii
}

// sentenceEnders terminate a sentence in either script.
var sentenceEnders = map[rune]bool{
	'。': true, '！': true, '？': true, '…': true,
	'.': true, '!': true, '?': true,
}

// clauseBreaks mark splice-safe clause boundaries within a sentence.
var clauseBreaks = map[rune]bool{
	'，': true, '、': true, '；': true, '：': true,
	',': true, ';': true, ':': true,
}

// SplitSentences splits text into sentences on zh/en terminal punctuation.
// Terminators stay attached to their sentence. Text without any terminator
// yields a single sentence.
func SplitSentences(text string) []string {
	return splitKeeping(text, sentenceEnders)
}

// SplitClauses splits a sentence into clauses at splice-safe boundaries
// (commas and their CJK equivalents). Sentence terminators also break.
func SplitClauses(text string) []string {
	all := make(map[rune]bool, len(sentenceEnders)+len(clauseBreaks))
	for r := range sentenceEnders {
		all[r] = true
	}

	for r := range clauseBreaks {
		all[r] = true
	}

	return splitKeeping(text, all)
}

func splitKeeping(text string, breaks map[rune]bool) []string {
	var (
		parts []string
		cur   strings.Builder
	)

	for _, r := range text {
		cur.WriteRune(r)

		if breaks[r] {
			if piece := strings.TrimSpace(cur.String()); piece != "" {
				parts = append(parts, piece)
			}

			cur.Reset()
		}
	}

	if piece := strings.TrimSpace(cur.String()); piece != "" {
		parts = append(parts, piece)
	}

	return parts
}

// Words tokenizes s for set-overlap scoring. Whitespace-delimited tokens are
// words; within a token, each CJK ideograph additionally counts as its own
// word, since CJK text carries no delimiters.
func Words(s string) []string {
	var words []string

	for _, tok := range strings.Fields(strings.ToLower(s)) {
		hasCJK := false

		for _, r := range tok {
			if IsCJK(r) {
				hasCJK = true

				words = append(words, string(r))
			}
		}

		if !hasCJK {
			words = append(words, strings.Trim(tok, ".,!?;:。！？，、；："))
		}
	}

	return words
}

// CharSet returns the set of non-space runes in s, lowercased.
func CharSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))

	for _, r := range strings.ToLower(s) {
		if !unicode.IsSpace(r) {
			set[r] = struct{}{}
		}
	}

	return set
}

// NGrams returns the set of rune n-grams of s after normalization.
// Strings shorter than n yield the whole string as a single gram.
func NGrams(s string, n int) map[string]struct{} {
	runes := []rune(Normalize(s))
	grams := make(map[string]struct{})

	if len(runes) == 0 || n <= 0 {
		return grams
	}

	if len(runes) <= n {
		grams[string(runes)] = struct{}{}

		return grams
	}

	for i := 0; i+n <= len(runes); i++ {
		grams[string(runes[i:i+n])] = struct{}{}
	}

	return grams
}
