package lexicons

import "github.com/Sumatoshi-tech/recut/pkg/timeline"

// enBank covers English recap narration. The positive/negative lists stay
// small because the English backends lean on VADER for polarity; these
// entries exist so the stub backend and the fallback scorer stay
// deterministic without it.
var enBank = &Bank{
	lang: timeline.LangEN,

	positive: map[string]float64{
		"happy": 0.7, "joy": 0.8, "love": 0.8, "wonderful": 0.8, "smile": 0.5,
		"success": 0.7, "victory": 0.8, "hope": 0.6, "warm": 0.5, "reunion": 0.8,
		"proud": 0.6, "sweet": 0.6, "relief": 0.6, "laugh": 0.5, "beautiful": 0.6,
	},

	negative: map[string]float64{
		"sad": 0.7, "pain": 0.8, "despair": 1.0, "cry": 0.6, "dead": 0.9,
		"fear": 0.7, "angry": 0.7, "hate": 0.9, "lonely": 0.6,
		"betrayal": 0.9, "lie": 0.6, "broken": 0.7, "lost": 0.5, "cold": 0.4,
	},

	intense: []string{
		"suddenly", "shocking", "unbelievable", "insane", "explosive",
		"devastating", "incredible", "jaw-dropping", "stunned", "drastic",
	},

	conflict: []string{
		"fight", "argument", "conflict", "clash", "confront", "threat",
		"revenge", "enemy", "rival", "quarrel", "feud", "betray",
	},

	resolution: []string{
		"resolve", "forgive", "reconcile", "truth", "reveal", "answer",
		"settle", "closure", "confess", "understand", "reunited",
	},

	hooks: map[HookCategory][]Phrase{
		HookPositive: {
			{Text: "The glow-up in this clip is unreal", Intensity: 0.8},
			{Text: "Wait until you see how this ends!", Intensity: 0.7},
			{Text: "This might be the most wholesome thing today", Intensity: 0.5},
		},
		HookNegative: {
			{Text: "This scene broke everyone watching", Intensity: 0.8},
			{Text: "Nobody expected it to end like this", Intensity: 0.7},
			{Text: "I was not ready for this", Intensity: 0.6},
		},
		HookIntense: {
			{Text: "Do not blink or you'll miss the twist", Intensity: 0.9},
			{Text: "Heads up, this escalates fast", Intensity: 0.8},
			{Text: "The tension here is off the charts", Intensity: 0.7},
		},
		HookNeutral: {
			{Text: "Pay attention to this detail", Intensity: 0.5},
			{Text: "No one saw where this was going", Intensity: 0.5},
			{Text: "It all starts right here", Intensity: 0.4},
		},
	},

	amplifiers: map[Level][]string{
		LevelHigh:       {"and it gets absolutely wild", "then everything explodes"},
		LevelMedium:     {"and here is the surprising part", "what happens next is unexpected"},
		LevelContextual: {"right at that moment", "a second later"},
	},

	suspense: []string{
		"But this is not the whole story",
		"The real twist is still coming",
		"And then everything changed",
	},

	climax: map[ClimaxStyle][]string{
		ClimaxDramatic:    {"This is the moment everything collides", "Every thread snaps at once"},
		ClimaxEmotional:   {"This part hits hard every single time", "Nobody watches this scene dry-eyed"},
		ClimaxSuspenseful: {"The answer lands in three, two, one", "One step from the truth"},
	},

	triggers: []string{
		"Would you have done the same? Tell me below",
		"Whose side are you on? Comment below",
		"Follow for part two",
	},

	transitions: []string{
		"later", "then", "afterwards", "meanwhile", "eventually", "soon", "after a while",
	},

	reversals: []string{
		"but", "however", "suddenly", "until", "except", "turns out", "instead",
	},

	structure: map[string][]string{
		CueBeginning:   {"once", "one day", "it started", "at first", "in the beginning"},
		CueDevelopment: {"then", "later", "gradually", "over time", "meanwhile"},
		CueClimax:      {"finally", "at last", "the moment", "showdown", "everything collides"},
		CueResolution:  {"in the end", "eventually", "ever after", "the truth", "at peace"},
	},

	transport: []string{
		"drive", "drove", "flight", "train", "car", "headed", "arrived",
		"leaving", "on the way", "took off",
	},

	pronouns: []string{"he", "she", "i", "you", "they", "we", "him", "her", "them"},

	sayVerbs: []string{"said", "asked", "shouted", "answered", "whispered", "yelled"},

	kinship: []string{
		"father", "mother", "dad", "mom", "son", "daughter", "brother",
		"sister", "uncle", "aunt", "grandma", "grandpa", "wife", "husband",
	},
}
