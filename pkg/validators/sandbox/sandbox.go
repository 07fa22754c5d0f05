// Package sandbox injects known narrative defects into clean annotations.
// It exists for the validator test suites: each injector produces exactly
// the contradiction one validator is built to catch, so detection can be
// asserted against a known ground truth.
package sandbox

import (
	"math/rand"

	"github.com/Sumatoshi-tech/recut/pkg/alg/span"
	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
)

// Defect names one injectable defect class.
type Defect string

const (
	DefectTimeJump       Defect = "time_jump"
	DefectPropTeleport   Defect = "prop_teleport"
	DefectCharacterClone Defect = "character_clone"
	DefectCausalityBreak Defect = "causality_break"
	DefectDialogueMix    Defect = "dialogue_mismatch"
	DefectEmotionFlip    Defect = "emotion_flip"
)

// All lists every defect class the sandbox can inject.
func All() []Defect {
	return []Defect{
		DefectTimeJump,
		DefectPropTeleport,
		DefectCharacterClone,
		DefectCausalityBreak,
		DefectDialogueMix,
		DefectEmotionFlip,
	}
}

// Injector mutates copies of clean annotations. The seed pins which scenes
// are chosen, so a fixed seed reproduces the same defect placement.
type Injector struct {
	rng *rand.Rand
}

// New returns an Injector with a seeded source.
func New(seed int64) *Injector {
	return &Injector{rng: rand.New(rand.NewSource(seed))}
}

// Inject returns a copy of ann carrying the given defect. Annotations with
// too few scenes for the defect are returned unchanged.
func (inj *Injector) Inject(ann analysis.Annotations, defect Defect) analysis.Annotations {
	out := clone(ann)

	switch defect {
	case DefectTimeJump:
		return inj.timeJump(out)
	case DefectPropTeleport:
		return inj.propTeleport(out)
	case DefectCharacterClone:
		return inj.characterClone(out)
	case DefectCausalityBreak:
		return inj.causalityBreak(out)
	case DefectDialogueMix:
		return inj.dialogueMismatch(out)
	case DefectEmotionFlip:
		return inj.emotionFlip(out)
	default:
		return out
	}
}

// timeJump drags a scene's span over its predecessor so the two overlap.
func (inj *Injector) timeJump(ann analysis.Annotations) analysis.Annotations {
	if len(ann.Scenes) < 2 {
		return ann
	}

	i := 1 + inj.rng.Intn(len(ann.Scenes)-1)
	prev := ann.Scenes[i-1]

	width := ann.Scenes[i].Span.Len()
	if width <= 0 {
		width = 1000
	}

	ann.Scenes[i].Span = span.Span{Start: prev.Span.Start + prev.Span.Len()/2, End: prev.Span.End + width}
	ann.Scenes[i].Tags = nil

	return ann
}

// propTeleport plants a prop on one carrier, then moves it to another
// character later with no hand-off in between.
func (inj *Injector) propTeleport(ann analysis.Annotations) analysis.Annotations {
	if len(ann.Scenes) < 2 {
		return ann
	}

	first := inj.rng.Intn(len(ann.Scenes) - 1)
	second := first + 1 + inj.rng.Intn(len(ann.Scenes)-first-1)

	ann.Scenes[first].Props = append(ann.Scenes[first].Props, analysis.PropSighting{
		Name: "planted-prop", Carrier: carrierIn(ann.Scenes[first], "Alice"), Acquired: true,
	})
	ann.Scenes[second].Props = append(ann.Scenes[second].Props, analysis.PropSighting{
		Name: "planted-prop", Carrier: "Stranger",
	})
	ann.Scenes[second].Characters = append(ann.Scenes[second].Characters, "Stranger")
	ann.Scenes[first].Tags = nil
	ann.Scenes[second].Tags = nil

	return ann
}

// characterClone places one character in two overlapping thread events at
// different locations.
func (inj *Injector) characterClone(ann analysis.Annotations) analysis.Annotations {
	if len(ann.Scenes) == 0 {
		return ann
	}

	scene := ann.Scenes[inj.rng.Intn(len(ann.Scenes))]
	name := carrierIn(scene, "Alice")

	ann.Threads = append(ann.Threads,
		analysis.Thread{
			ID:        "sandbox-a",
			Concluded: true,
			Events: []analysis.ThreadEvent{{
				SceneIndex: scene.Index, Character: name, Location: "east-wing", Span: scene.Span,
			}},
		},
		analysis.Thread{
			ID:        "sandbox-b",
			Concluded: true,
			Events: []analysis.ThreadEvent{{
				SceneIndex: scene.Index, Character: name, Location: "west-wing", Span: scene.Span,
			}},
		},
	)

	return ann
}

// causalityBreak declares an effect whose cause plays in a later scene.
func (inj *Injector) causalityBreak(ann analysis.Annotations) analysis.Annotations {
	if len(ann.Scenes) < 2 {
		return ann
	}

	early := ann.Scenes[0].Index
	late := ann.Scenes[len(ann.Scenes)-1].Index

	ann.Events = append(ann.Events,
		analysis.Event{ID: "sandbox-cause", SceneIndex: late, Type: analysis.EventGeneric, Importance: 5},
		analysis.Event{
			ID: "sandbox-effect", SceneIndex: early, Type: analysis.EventGeneric,
			Importance: 5, CauseIDs: []string{"sandbox-cause"},
		},
	)

	return ann
}

// dialogueMismatch puts a modern referent in the mouth of a speaker set
// long before it exists.
func (inj *Injector) dialogueMismatch(ann analysis.Annotations) analysis.Annotations {
	if len(ann.Scenes) == 0 {
		return ann
	}

	i := inj.rng.Intn(len(ann.Scenes))
	ann.Scenes[i].Era = 1850
	ann.Scenes[i].Utterances = append(ann.Scenes[i].Utterances, analysis.Utterance{
		Speaker: carrierIn(ann.Scenes[i], "Alice"),
		Text:    "I saw it on a livestream from my smartphone.",
	})

	return ann
}

// emotionFlip inverts a character's emotion across two adjacent scenes with
// almost no wall time between them.
func (inj *Injector) emotionFlip(ann analysis.Annotations) analysis.Annotations {
	if len(ann.Scenes) < 2 {
		return ann
	}

	i := 1 + inj.rng.Intn(len(ann.Scenes)-1)
	prev, cur := &ann.Scenes[i-1], &ann.Scenes[i]

	name := carrierIn(*prev, "Alice")

	if prev.Emotions == nil {
		prev.Emotions = map[string]analysis.Emotion{}
	}

	if cur.Emotions == nil {
		cur.Emotions = map[string]analysis.Emotion{}
	}

	prev.Emotions[name] = analysis.EmotionJoy
	cur.Emotions[name] = analysis.EmotionSorrow
	cur.Span = span.Span{Start: prev.Span.End + 500, End: prev.Span.End + 500 + cur.Span.Len()}
	cur.Tags = nil

	return ann
}

// carrierIn picks a character present in the scene, or the fallback when
// the scene is empty.
func carrierIn(s analysis.Scene, fallback string) string {
	if len(s.Characters) > 0 {
		return s.Characters[0]
	}

	return fallback
}

// clone deep-copies the annotation slices an injector may touch.
func clone(ann analysis.Annotations) analysis.Annotations {
	out := analysis.Annotations{
		Scenes:    make([]analysis.Scene, len(ann.Scenes)),
		Events:    append([]analysis.Event(nil), ann.Events...),
		Conflicts: append([]analysis.Conflict(nil), ann.Conflicts...),
		Threads:   append([]analysis.Thread(nil), ann.Threads...),
	}

	for i, s := range ann.Scenes {
		cp := s
		cp.Tags = append([]string(nil), s.Tags...)
		cp.Characters = append([]string(nil), s.Characters...)
		cp.Utterances = append([]analysis.Utterance(nil), s.Utterances...)
		cp.Props = append([]analysis.PropSighting(nil), s.Props...)

		if s.Emotions != nil {
			cp.Emotions = make(map[string]analysis.Emotion, len(s.Emotions))
			for k, v := range s.Emotions {
				cp.Emotions[k] = v
			}
		}

		out.Scenes[i] = cp
	}

	return out
}
