// Package lexicons holds the per-language word lists and phrase banks the
// reconstruction pipeline draws on: emotion and conflict lexicons for
// analysis, and the hook/amplifier/suspense/climax/trigger phrases the viral
// transformations splice in.
//
// Banks are immutable after package init. Matching is substring-based for
// CJK entries (no word boundaries in Chinese text) and token-based for
// single ASCII words, so "fight" does not fire inside "fighter".
package lexicons

import (
	"strings"

	"github.com/Sumatoshi-tech/recut/pkg/textutil"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// HookCategory selects the opening hook family by dominant emotion.
type HookCategory string

const (
	HookPositive HookCategory = "positive"
	HookNegative HookCategory = "negative"
	HookIntense  HookCategory = "intense"
	HookNeutral  HookCategory = "neutral"
)

// Level grades amplifier phrases by strength.
type Level string

const (
	LevelHigh       Level = "high"
	LevelMedium     Level = "medium"
	LevelContextual Level = "contextual"
)

// ClimaxStyle selects the climax intensifier family.
type ClimaxStyle string

const (
	ClimaxDramatic    ClimaxStyle = "dramatic"
	ClimaxEmotional   ClimaxStyle = "emotional"
	ClimaxSuspenseful ClimaxStyle = "suspenseful"
)

// Structure marker names used by the arc cue lists. The analysis package
// maps these onto its Marker type.
const (
	CueBeginning   = "beginning"
	CueDevelopment = "development"
	CueClimax      = "climax"
	CueResolution  = "resolution"
)

// Phrase is a candidate insertion with its intensity in [0, 1].
type Phrase struct {
	Text      string
	Intensity float64
}

// Tally counts weighted lexicon hits per semantic axis.
type Tally struct {
	Positive   float64
	Negative   float64
	Intense    float64
	Conflict   float64
	Resolution float64
	Matches    int
}

// Bank is one language's complete lexicon and phrase inventory.
type Bank struct {
	lang timeline.Language

	positive map[string]float64
	negative map[string]float64

	intense    []string
	conflict   []string
	resolution []string

	hooks       map[HookCategory][]Phrase
	amplifiers  map[Level][]string
	suspense    []string
	climax      map[ClimaxStyle][]string
	triggers    []string
	transitions []string
	reversals   []string
	structure   map[string][]string
	transport   []string
	pronouns    []string
	sayVerbs    []string
	kinship     []string
}

// ForLanguage returns the bank for the given language. Unknown falls back to
// English, whose token matching degrades most gracefully on mixed text.
func ForLanguage(lang timeline.Language) *Bank {
	if lang == timeline.LangZH {
		return zhBank
	}

	return enBank
}

// Language returns the language this bank was built for.
func (b *Bank) Language() timeline.Language {
	return b.lang
}

// Hooks returns the hook phrases of a category, strongest intensity first.
func (b *Bank) Hooks(cat HookCategory) []Phrase {
	return b.hooks[cat]
}

// Amplifiers returns the amplifier phrases of a level.
func (b *Bank) Amplifiers(level Level) []string {
	return b.amplifiers[level]
}

// Suspense returns the suspense interjections.
func (b *Bank) Suspense() []string {
	return b.suspense
}

// Climax returns the climax intensifiers of a style.
func (b *Bank) Climax(style ClimaxStyle) []string {
	return b.climax[style]
}

// Triggers returns the engagement trigger phrases.
func (b *Bank) Triggers() []string {
	return b.triggers
}

// Transitions returns the cues that mark an acceptable emotional transition
// between opposite states.
func (b *Bank) Transitions() []string {
	return b.transitions
}

// Reversals returns the cues that mark a narrative reversal.
func (b *Bank) Reversals() []string {
	return b.reversals
}

// StructureCues returns the arc cues for a marker name (CueBeginning etc.).
func (b *Bank) StructureCues(marker string) []string {
	return b.structure[marker]
}

// TransportCues returns words that explain a location change.
func (b *Bank) TransportCues() []string {
	return b.transport
}

// Pronouns returns the personal pronouns used for mention counting.
func (b *Bank) Pronouns() []string {
	return b.pronouns
}

// SayVerbs returns the dialogue verbs that signal an adjacent speaker name.
func (b *Bank) SayVerbs() []string {
	return b.sayVerbs
}

// Kinship returns the family-relation terms used to classify co-mentions.
func (b *Bank) Kinship() []string {
	return b.kinship
}

// ContainsHook reports whether text already carries a hook of the given
// category, so the rewriter can skip a duplicate prepend.
func (b *Bank) ContainsHook(text string, cat HookCategory) bool {
	norm := textutil.Normalize(text)

	for _, p := range b.hooks[cat] {
		if strings.Contains(norm, textutil.Normalize(p.Text)) {
			return true
		}
	}

	return false
}

// ContainsAny reports whether any entry matches text, with the same matching
// rules as Tally.
func (b *Bank) ContainsAny(text string, entries []string) bool {
	norm := textutil.Normalize(text)
	tokens := tokenSet(norm)

	for _, e := range entries {
		if matchCount(norm, tokens, e) > 0 {
			return true
		}
	}

	return false
}

// Tally scores text against every axis lexicon.
func (b *Bank) Tally(text string) Tally {
	norm := textutil.Normalize(text)
	tokens := tokenSet(norm)

	var t Tally

	for word, weight := range b.positive {
		if n := matchCount(norm, tokens, word); n > 0 {
			t.Positive += float64(n) * weight
			t.Matches += n
		}
	}

	for word, weight := range b.negative {
		if n := matchCount(norm, tokens, word); n > 0 {
			t.Negative += float64(n) * weight
			t.Matches += n
		}
	}

	for _, word := range b.intense {
		if n := matchCount(norm, tokens, word); n > 0 {
			t.Intense += float64(n)
			t.Matches += n
		}
	}

	for _, word := range b.conflict {
		if n := matchCount(norm, tokens, word); n > 0 {
			t.Conflict += float64(n)
			t.Matches += n
		}
	}

	for _, word := range b.resolution {
		if n := matchCount(norm, tokens, word); n > 0 {
			t.Resolution += float64(n)
			t.Matches += n
		}
	}

	return t
}

// Sentiment returns a signed polarity score in [-1, 1]: the weighted balance
// of positive and negative lexicon hits. No hits scores 0.
func (b *Bank) Sentiment(text string) float64 {
	t := b.Tally(text)

	total := t.Positive + t.Negative
	if total == 0 {
		return 0
	}

	return (t.Positive - t.Negative) / total
}

// tokenSet builds the ASCII token set for word-boundary matching.
func tokenSet(norm string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(norm) {
		tokens[strings.Trim(w, ".,!?;:\"'()")] = true
	}

	return tokens
}

// matchCount counts occurrences of entry in the normalized text. Single
// ASCII words match whole tokens; everything else (CJK words, multi-word
// phrases) matches as a substring.
func matchCount(norm string, tokens map[string]bool, entry string) int {
	entry = strings.ToLower(entry)

	if isSingleASCIIWord(entry) {
		if tokens[entry] {
			return 1
		}

		return 0
	}

	return strings.Count(norm, entry)
}

func isSingleASCIIWord(s string) bool {
	for _, r := range s {
		if r >= 128 || r == ' ' {
			return false
		}
	}

	return s != ""
}
