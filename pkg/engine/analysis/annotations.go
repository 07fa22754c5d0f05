package analysis

import (
	"fmt"

	"github.com/Sumatoshi-tech/recut/pkg/alg/span"
	"github.com/Sumatoshi-tech/recut/pkg/backend"
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// Scene tags listed here waive continuity checks: a flashback may
// legitimately teleport props and characters.
const (
	SceneTagFlashback = "flashback"
	SceneTagDream     = "dream"
	SceneTagMontage   = "montage"
)

// EventType classifies a narrative event for the causality graph.
type EventType string

const (
	EventProblem    EventType = "problem"
	EventResolution EventType = "resolution"
	EventClue       EventType = "clue"
	EventGeneric    EventType = "generic"
)

// Event is a narrative beat with optional declared causes.
type Event struct {
	ID          string    `json:"id"`
	SceneIndex  int       `json:"scene_index"`
	Type        EventType `json:"type"`
	Description string    `json:"description,omitempty"`
	Characters  []string  `json:"characters,omitempty"`
	CauseIDs    []string  `json:"cause_ids,omitempty"`
	Importance  int       `json:"importance"` // 1..10
}

// PropSighting is one appearance of a tracked prop.
type PropSighting struct {
	Name     string `json:"name"`
	Carrier  string `json:"carrier,omitempty"`
	Acquired bool   `json:"acquired"` // Origin shown or explained here.
	Dropped  bool   `json:"dropped"`  // Hand-off or loss explained here.
}

// Utterance is one speaker turn inside a scene.
type Utterance struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Emotion Emotion `json:"emotion,omitempty"`
}

// Conflict declares a dramatic conflict and how it resolves.
type Conflict struct {
	SceneIndex int    `json:"scene_index"`
	Type       string `json:"type"`      // interpersonal, internal, societal, physical.
	Intensity  string `json:"intensity"` // low, medium, high.
	Method     string `json:"method"`    // Resolution method.
	ThirdParty string `json:"third_party,omitempty"`
}

// ThreadEvent is one beat of a parallel narrative thread.
type ThreadEvent struct {
	SceneIndex int       `json:"scene_index"`
	Character  string    `json:"character,omitempty"`
	Location   string    `json:"location,omitempty"`
	Span       span.Span `json:"span"`
	State      string    `json:"state,omitempty"` // Declared character state.
}

// Thread is one parallel narrative line.
type Thread struct {
	ID         string        `json:"id"`
	Events     []ThreadEvent `json:"events"`
	Concluded  bool          `json:"concluded"`
	Convergent bool          `json:"convergent"` // Merges into another thread instead of concluding.
	Crossovers []string      `json:"crossovers,omitempty"`
}

// Scene is the per-scene annotation record the validators consume. The
// pipeline derives a minimal one per segment; richer productions supply
// their own.
type Scene struct {
	Index    int       `json:"index"`
	Span     span.Span `json:"span"`
	Location string    `json:"location,omitempty"`
	Era      int       `json:"era,omitempty"` // Story year, e.g. 1995.
	Region   string    `json:"region,omitempty"`
	Tags     []string  `json:"tags,omitempty"`

	Characters []string           `json:"characters,omitempty"`
	Emotions   map[string]Emotion `json:"emotions,omitempty"` // Per character.
	Skills     map[string][]string `json:"skills,omitempty"`  // Per character.
	Education  map[string]string  `json:"education,omitempty"`

	Utterances []Utterance    `json:"utterances,omitempty"`
	Props      []PropSighting `json:"props,omitempty"`
	Transport  bool           `json:"transport"` // A travel cue explains a location change.
}

// Tagged reports whether the scene carries the given tag.
func (s Scene) Tagged(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// Annotations is the bundle handed to the validators.
type Annotations struct {
	Scenes    []Scene    `json:"scenes"`
	Events    []Event    `json:"events,omitempty"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
	Threads   []Thread   `json:"threads,omitempty"`
}

// conflictEventThreshold is the conflict-axis score above which a segment
// yields a problem event.
const conflictEventThreshold = 0.3

// Annotate derives scene annotations from the analysis features: one scene
// per segment with its characters, emotions, and transport cue, plus a
// heuristic event stream (problems from conflict spikes, resolutions from
// resolution markers, clues from reversal cues). Callers with real
// screenplay metadata pass their own Annotations instead.
func Annotate(f Features, tl timeline.Timeline) Annotations {
	bank := lexicons.ForLanguage(tl.Language)

	presence := make(map[int][]string)

	for _, c := range f.Characters {
		if c.Pronoun {
			continue
		}

		for _, site := range c.Mentions {
			presence[site] = append(presence[site], c.Name)
		}
	}

	cueBySegment := make(map[int]bool, len(f.TurningPoints))
	for _, tp := range f.TurningPoints {
		if tp.HasCue {
			cueBySegment[tp.Index] = true
		}
	}

	ann := Annotations{Scenes: make([]Scene, 0, len(tl.Segments))}

	var lastProblem string

	for i, seg := range tl.Segments {
		sf := f.Segments[i]
		characters := presence[seg.Index]

		emotions := make(map[string]Emotion, len(characters))
		for _, name := range characters {
			emotions[name] = AxisEmotion(sf.Signals.Dominant, sf.Polarity)
		}

		ann.Scenes = append(ann.Scenes, Scene{
			Index:      seg.Index,
			Span:       seg.Span(),
			Characters: characters,
			Emotions:   emotions,
			Transport:  bank.ContainsAny(seg.Text, bank.TransportCues()),
		})

		ann.Events = append(ann.Events, deriveEvents(seg, sf, characters, cueBySegment[seg.Index], &lastProblem)...)
	}

	return ann
}

func deriveEvents(seg timeline.Segment, sf SegmentFeatures, characters []string, hasCue bool, lastProblem *string) []Event {
	var events []Event

	newEvent := func(kind EventType, importance int, causes []string) Event {
		return Event{
			ID:          fmt.Sprintf("seg%d-%s", seg.Index, kind),
			SceneIndex:  seg.Index,
			Type:        kind,
			Description: seg.Text,
			Characters:  characters,
			CauseIDs:    causes,
			Importance:  importance,
		}
	}

	if sf.Signals.Scores[backend.AxisConflict] >= conflictEventThreshold {
		ev := newEvent(EventProblem, importanceOf(sf), nil)
		events = append(events, ev)
		*lastProblem = ev.ID
	}

	if sf.Marker == MarkerResolution && *lastProblem != "" {
		events = append(events, newEvent(EventResolution, importanceOf(sf), []string{*lastProblem}))
		*lastProblem = ""
	}

	if hasCue {
		events = append(events, newEvent(EventClue, importanceOf(sf), nil))
	}

	return events
}

// importanceOf maps segment intensity onto the 1..10 importance scale.
func importanceOf(sf SegmentFeatures) int {
	imp := int(sf.Signals.Intensity*10) + 1
	if imp > 10 {
		imp = 10
	}

	return imp
}
