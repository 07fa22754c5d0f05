package analysis

// Emotion is a character-level emotional state used by scene annotations and
// the continuity validators.
type Emotion string

const (
	EmotionJoy       Emotion = "joy"
	EmotionSorrow    Emotion = "sorrow"
	EmotionCalm      Emotion = "calm"
	EmotionFury      Emotion = "fury"
	EmotionHope      Emotion = "hope"
	EmotionDespair   Emotion = "despair"
	EmotionAffection Emotion = "affection"
	EmotionHostility Emotion = "hostility"
	EmotionTrust     Emotion = "trust"
	EmotionSuspicion Emotion = "suspicion"
	EmotionNeutral   Emotion = "neutral"
)

// OppositePairs is the authoritative opposite-emotion table. Every validator
// that reasons about emotional whiplash consults this map and nothing else.
var OppositePairs = map[Emotion]Emotion{
	EmotionJoy:       EmotionSorrow,
	EmotionSorrow:    EmotionJoy,
	EmotionCalm:      EmotionFury,
	EmotionFury:      EmotionCalm,
	EmotionHope:      EmotionDespair,
	EmotionDespair:   EmotionHope,
	EmotionAffection: EmotionHostility,
	EmotionHostility: EmotionAffection,
	EmotionTrust:     EmotionSuspicion,
	EmotionSuspicion: EmotionTrust,
}

// AreOpposite reports whether two emotions form an opposite pair.
func AreOpposite(a, b Emotion) bool {
	return OppositePairs[a] == b && b != ""
}
