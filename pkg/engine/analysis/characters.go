package analysis

import (
	"sort"
	"strings"
	"unicode"

	"github.com/Sumatoshi-tech/recut/pkg/alg/levenshtein"
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// RelationKind classifies a pairwise character relation.
type RelationKind string

const (
	RelationFamily        RelationKind = "family"
	RelationInterpersonal RelationKind = "interpersonal"
	RelationAntagonistic  RelationKind = "antagonistic"
	RelationSupportive    RelationKind = "supportive"
)

// Character is one deduplicated referent with its mention sites.
type Character struct {
	Name     string
	Mentions []int // 1-based segment indices, sorted.
	Pronoun  bool  // Referent known only through pronouns.
}

// Relation is an inferred pairwise relation.
type Relation struct {
	A, B       string
	Kind       RelationKind
	CoMentions int
}

// nameDedupeDistance is the maximum edit distance at which two normalized
// names merge into one character.
const nameDedupeDistance = 1

// maxNameRunes bounds how long a detected CJK name run may be.
const maxNameRunes = 3

// passCharacters extracts named and pronominal referents, deduplicates
// near-identical names, and infers pairwise relations from co-mention
// windows (P3).
func passCharacters(f *Features, tl timeline.Timeline, bank *lexicons.Bank, params Params) {
	mentions := make(map[string][]int)
	pronounOnly := make(map[string]bool)

	for _, seg := range tl.Segments {
		for _, name := range namedMentions(seg.Text, tl.Language, bank) {
			mentions[name] = append(mentions[name], seg.Index)
		}

		for _, p := range bank.Pronouns() {
			if bank.ContainsAny(seg.Text, []string{p}) {
				key := "#" + p
				mentions[key] = append(mentions[key], seg.Index)
				pronounOnly[key] = true
			}
		}
	}

	f.Characters = dedupeCharacters(mentions, pronounOnly)
	f.Relations = inferRelations(f.Characters, tl, bank, params.coMentionWindow())
}

// namedMentions finds candidate proper names in one segment.
//
// English: capitalized tokens that are not sentence-initial, plus any token
// adjacent to a say-verb. Chinese: runs of up to three ideographs directly
// before a say-verb, the conventional subtitle shape for speaker names.
func namedMentions(text string, lang timeline.Language, bank *lexicons.Bank) []string {
	if lang == timeline.LangZH {
		return zhNames(text, bank)
	}

	return enNames(text)
}

func enNames(text string) []string {
	var names []string

	for _, sentence := range textutil.SplitSentences(text) {
		tokens := strings.Fields(sentence)

		for i, tok := range tokens {
			cleaned := strings.Trim(tok, ".,!?;:\"'()")
			if cleaned == "" {
				continue
			}

			first := []rune(cleaned)[0]
			if !unicode.IsUpper(first) {
				continue
			}

			// Sentence-initial capitals are ambiguous; skip them.
			if i == 0 {
				continue
			}

			names = append(names, cleaned)
		}
	}

	return names
}

func zhNames(text string, bank *lexicons.Bank) []string {
	var names []string

	runes := []rune(text)

	for _, verb := range bank.SayVerbs() {
		verbRunes := []rune(verb)

		for i := 0; i+len(verbRunes) <= len(runes); i++ {
			if string(runes[i:i+len(verbRunes)]) != verb {
				continue
			}

			// Collect the ideograph run directly before the verb.
			end := i
			start := end

			for start > 0 && end-start < maxNameRunes && textutil.IsCJK(runes[start-1]) {
				start--
			}

			if candidate := string(runes[start:end]); candidate != "" && !isPronoun(candidate, bank) {
				names = append(names, candidate)
			}
		}
	}

	return names
}

func isPronoun(s string, bank *lexicons.Bank) bool {
	for _, p := range bank.Pronouns() {
		if s == p {
			return true
		}
	}

	return false
}

// dedupeCharacters merges mentions whose normalized names are within edit
// distance one, keeping the most-mentioned spelling.
func dedupeCharacters(mentions map[string][]int, pronounOnly map[string]bool) []Character {
	names := make([]string, 0, len(mentions))
	for name := range mentions {
		names = append(names, name)
	}

	// Most-mentioned first so merge targets keep the common spelling.
	sort.Slice(names, func(i, j int) bool {
		if len(mentions[names[i]]) != len(mentions[names[j]]) {
			return len(mentions[names[i]]) > len(mentions[names[j]])
		}

		return names[i] < names[j]
	})

	lev := &levenshtein.Context{}
	merged := make(map[string]string)

	for i, name := range names {
		if pronounOnly[name] {
			continue
		}

		for j := range i {
			canonical := names[j]
			if pronounOnly[canonical] || merged[canonical] != "" {
				continue
			}

			if lev.Distance(textutil.Normalize(name), textutil.Normalize(canonical)) <= nameDedupeDistance {
				merged[name] = canonical

				break
			}
		}
	}

	byName := make(map[string][]int)

	for name, sites := range mentions {
		target := name
		if canonical, ok := merged[name]; ok {
			target = canonical
		}

		byName[target] = append(byName[target], sites...)
	}

	characters := make([]Character, 0, len(byName))

	for name, sites := range byName {
		sort.Ints(sites)

		characters = append(characters, Character{
			Name:     strings.TrimPrefix(name, "#"),
			Mentions: sites,
			Pronoun:  pronounOnly[name],
		})
	}

	sort.Slice(characters, func(i, j int) bool {
		if len(characters[i].Mentions) != len(characters[j].Mentions) {
			return len(characters[i].Mentions) > len(characters[j].Mentions)
		}

		return characters[i].Name < characters[j].Name
	})

	return characters
}

// inferRelations classifies each co-mentioned pair of named characters by
// the semantics of the segments where they meet.
func inferRelations(characters []Character, tl timeline.Timeline, bank *lexicons.Bank, window int) []Relation {
	named := make([]Character, 0, len(characters))
	for _, c := range characters {
		if !c.Pronoun {
			named = append(named, c)
		}
	}

	segText := make(map[int]string, len(tl.Segments))
	for _, seg := range tl.Segments {
		segText[seg.Index] = seg.Text
	}

	var relations []Relation

	for i := range named {
		for j := i + 1; j < len(named); j++ {
			shared := coMentionSites(named[i].Mentions, named[j].Mentions, window)
			if len(shared) == 0 {
				continue
			}

			relations = append(relations, Relation{
				A:          named[i].Name,
				B:          named[j].Name,
				Kind:       classifyRelation(shared, segText, bank),
				CoMentions: len(shared),
			})
		}
	}

	return relations
}

// coMentionSites returns segment indices where mentions of a and b fall
// within the window of each other.
func coMentionSites(a, b []int, window int) []int {
	seen := make(map[int]bool)

	var sites []int

	for _, ai := range a {
		for _, bi := range b {
			d := ai - bi
			if d < 0 {
				d = -d
			}

			if d <= window {
				site := min(ai, bi)
				if !seen[site] {
					seen[site] = true

					sites = append(sites, site)
				}
			}
		}
	}

	sort.Ints(sites)

	return sites
}

func classifyRelation(sites []int, segText map[int]string, bank *lexicons.Bank) RelationKind {
	var joined strings.Builder

	for _, site := range sites {
		joined.WriteString(segText[site])
		joined.WriteByte('\n')
	}

	text := joined.String()

	if bank.ContainsAny(text, bank.Kinship()) {
		return RelationFamily
	}

	tally := bank.Tally(text)

	switch {
	case tally.Conflict > tally.Positive:
		return RelationAntagonistic
	case tally.Positive > 0 && tally.Positive >= tally.Negative:
		return RelationSupportive
	default:
		return RelationInterpersonal
	}
}
