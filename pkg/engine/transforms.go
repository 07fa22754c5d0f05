package engine

import (
	"context"
	"math/rand"
	"sort"

	"github.com/Sumatoshi-tech/recut/pkg/backend"
	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// transformer holds the mutable state of one reconstruction attempt. The
// repair loop tweaks its knobs between runs; each run rebuilds the candidate
// from the pristine input, so adjustments never compound on edited text.
type transformer struct {
	tl       timeline.Timeline
	features analysis.Features
	bank     *lexicons.Bank
	rng      *rand.Rand
	opts     Options
	backend  backend.GenerationBackend

	// Repair knobs.
	amplifyThreshold float64
	extraSuspense    bool
	skipReallocation bool
}

// run executes the transformation pipeline T1..T6 in order and returns the
// candidate. The seeded stream is reset first so every run with the same
// knobs produces the same output.
func (tr *transformer) run(_ context.Context) timeline.RewrittenTimeline {
	tr.rng = rand.New(rand.NewSource(tr.opts.Seed))

	if tr.amplifyThreshold == 0 {
		tr.amplifyThreshold = analysis.DefaultAmplifyThreshold
	}

	segs := tr.carrySource()

	style := tr.opts.style()

	if style != StyleMinimal {
		segs = tr.prependHook(segs)
	}

	if style == StyleViral {
		segs = tr.amplify(segs)
		segs = tr.insertSuspense(segs)
		segs = tr.intensifyClimax(segs)
	}

	if style != StyleMinimal {
		segs = tr.appendTrigger(segs)
	}

	segs = tr.reallocate(segs)

	return timeline.RewrittenTimeline{
		Segments:          segs,
		Language:          tr.tl.Language,
		SourceFingerprint: tr.tl.Fingerprint,
	}
}

// adjust tweaks the repair knobs based on the weakest score dimension.
// Returns false when no further adjustment is available.
func (tr *transformer) adjust(score Score) bool {
	switch score.weakest() {
	case dimViralDensity, dimAmplification:
		// More insertions: lower the amplifier gate and double suspense.
		if tr.amplifyThreshold > 0.3 {
			tr.amplifyThreshold -= 0.1

			return true
		}

		if !tr.extraSuspense {
			tr.extraSuspense = true

			return true
		}

		return false
	case dimOriginality, dimStructural:
		// Keep more of the source: stop dropping segments.
		if !tr.skipReallocation {
			tr.skipReallocation = true

			return true
		}

		return false
	case dimLengthGrowth:
		if !tr.extraSuspense {
			tr.extraSuspense = true

			return true
		}

		return false
	default:
		return false
	}
}

// fallbackWrap is the minimal guaranteed-quality output: the untouched
// source wrapped in a hook and a trigger. Used when repair cannot lift the
// score above the fallback floor.
func (tr *transformer) fallbackWrap(_ context.Context) timeline.RewrittenTimeline {
	tr.rng = rand.New(rand.NewSource(tr.opts.Seed))

	segs := tr.carrySource()
	segs = tr.prependHook(segs)
	segs = tr.appendTrigger(segs)

	return timeline.RewrittenTimeline{
		Segments:          segs,
		Language:          tr.tl.Language,
		SourceFingerprint: tr.tl.Fingerprint,
	}
}

// carrySource copies every input segment into the working set untouched.
func (tr *transformer) carrySource() []timeline.RewrittenSegment {
	segs := make([]timeline.RewrittenSegment, len(tr.tl.Segments))

	for i, s := range tr.tl.Segments {
		segs[i] = timeline.RewrittenSegment{
			Segment:    s,
			Provenance: []int{s.Index},
		}
	}

	return segs
}

// prependHook inserts the opening hook line (T1). Skipped when the first
// segment already reads like a hook of the chosen category.
func (tr *transformer) prependHook(segs []timeline.RewrittenSegment) []timeline.RewrittenSegment {
	if len(segs) == 0 {
		return segs
	}

	cat := hookCategory(tr.features.Dominant)

	if tr.bank.ContainsHook(segs[0].Text, cat) {
		return segs
	}

	hook := pickHook(tr.bank.Hooks(cat), tr.features.Intensity)
	if hook.Text == "" {
		return segs
	}

	at := segs[0].StartMS

	opening := timeline.RewrittenSegment{
		Segment: timeline.Segment{
			StartMS: at,
			EndMS:   at,
			Text:    hook.Text,
		},
		Transform: timeline.TagHook,
	}

	return append([]timeline.RewrittenSegment{opening}, segs...)
}

// amplify splices an amplifier phrase into every carried segment whose
// intensity clears the gate (T2). The original text survives verbatim.
func (tr *transformer) amplify(segs []timeline.RewrittenSegment) []timeline.RewrittenSegment {
	intensity := tr.intensityByIndex()

	for i := range segs {
		seg := &segs[i]
		if seg.IsInsertion() {
			continue
		}

		in, ok := intensity[seg.Provenance[0]]
		if !ok || in < tr.amplifyThreshold {
			continue
		}

		phrase := pickPhrase(tr.rng, tr.bank.Amplifiers(amplifierLevel(in)))
		if phrase == "" {
			continue
		}

		seg.Text = backend.ApplyPlan(seg.Text, backend.RewritePlan{
			Splices: []backend.Splice{{AfterClause: 0, Text: phrase}},
		})
		seg.Transform = timeline.TagAmplifier
	}

	return segs
}

// insertSuspense drops suspense beats at the one-third and two-thirds marks
// (T3). Pure insertions; source timelines below the pacing minimum are left
// alone.
func (tr *transformer) insertSuspense(segs []timeline.RewrittenSegment) []timeline.RewrittenSegment {
	if len(tr.tl.Segments) < minSegmentsForPacing {
		return segs
	}

	marks := []int{len(segs) / 3, 2 * len(segs) / 3}
	if tr.extraSuspense {
		marks = append(marks, len(segs)/2)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(marks)))

	for _, at := range marks {
		phrase := pickPhrase(tr.rng, tr.bank.Suspense())
		if phrase == "" {
			continue
		}

		anchor := segs[at].StartMS

		beat := timeline.RewrittenSegment{
			Segment: timeline.Segment{
				StartMS: anchor,
				EndMS:   anchor,
				Text:    phrase,
			},
			Transform: timeline.TagSuspense,
		}

		rest := make([]timeline.RewrittenSegment, 0, len(segs)+1)
		rest = append(rest, segs[:at]...)
		rest = append(rest, beat)
		rest = append(rest, segs[at:]...)
		segs = rest
	}

	return segs
}

// intensifyClimax appends a climax intensifier to the arc's strongest
// segment (T4).
func (tr *transformer) intensifyClimax(segs []timeline.RewrittenSegment) []timeline.RewrittenSegment {
	climaxIdx := tr.features.Arc.ClimaxIndex
	if climaxIdx < 0 {
		return segs
	}

	phrase := pickPhrase(tr.rng, tr.bank.Climax(climaxStyle(tr.features.Dominant)))
	if phrase == "" {
		return segs
	}

	// ClimaxIndex counts source segments; find the carried segment whose
	// provenance leads back to it.
	srcIndex := tr.tl.Segments[climaxIdx].Index

	for i := range segs {
		if segs[i].IsInsertion() || segs[i].Provenance[0] != srcIndex {
			continue
		}

		segs[i].Text = backend.ApplyPlan(segs[i].Text, backend.RewritePlan{Append: phrase})
		segs[i].Transform = timeline.TagClimax

		break
	}

	return segs
}

// appendTrigger adds the engagement bait line at the end (T5), gated on the
// engagement potential of the analyzed features.
func (tr *transformer) appendTrigger(segs []timeline.RewrittenSegment) []timeline.RewrittenSegment {
	if len(segs) == 0 || tr.features.Engagement() <= engagementThreshold {
		return segs
	}

	phrase := pickPhrase(tr.rng, tr.bank.Triggers())
	if phrase == "" {
		return segs
	}

	at := segs[len(segs)-1].EndMS

	return append(segs, timeline.RewrittenSegment{
		Segment: timeline.Segment{
			StartMS: at,
			EndMS:   at,
			Text:    phrase,
		},
		Transform: timeline.TagTrigger,
	})
}

// reallocate drops the least important carried segments until the output
// speech duration fits the target ratio band (T6). Insertions and segments
// touched by earlier transformations are protected, as are the arc's
// beginning and resolution. A timeline at the pacing minimum has nothing to
// spare, so trimming needs strictly more source segments than that.
func (tr *transformer) reallocate(segs []timeline.RewrittenSegment) []timeline.RewrittenSegment {
	if tr.skipReallocation || len(tr.tl.Segments) <= minSegmentsForPacing {
		return segs
	}

	sourceMS := tr.tl.SpeechMS()
	if sourceMS == 0 {
		return segs
	}

	targetMS := int64(tr.opts.targetRatio() * float64(sourceMS))
	floorMS := int64(RatioMin * float64(sourceMS))

	importance := tr.importanceByIndex()
	marker := tr.markerByIndex()

	type drop struct {
		pos        int
		importance float64
	}

	var candidates []drop

	carriedMS := int64(0)

	for i, s := range segs {
		if s.IsInsertion() {
			continue
		}

		carriedMS += s.DurationMS()

		if s.Transform != timeline.TagNone {
			continue
		}

		switch marker[s.Provenance[0]] {
		case analysis.MarkerBeginning, analysis.MarkerResolution, analysis.MarkerClimax:
			continue
		case analysis.MarkerDevelopment, analysis.MarkerNone:
		}

		candidates = append(candidates, drop{pos: i, importance: importance[s.Provenance[0]]})
	}

	if carriedMS <= targetMS {
		return segs
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].importance != candidates[j].importance {
			return candidates[i].importance < candidates[j].importance
		}

		return candidates[i].pos < candidates[j].pos
	})

	dropped := make(map[int]bool)

	for _, c := range candidates {
		if carriedMS <= targetMS {
			break
		}

		next := carriedMS - segs[c.pos].DurationMS()
		if next < floorMS {
			continue
		}

		dropped[c.pos] = true
		carriedMS = next
	}

	if len(dropped) == 0 {
		return segs
	}

	out := make([]timeline.RewrittenSegment, 0, len(segs)-len(dropped))

	for i, s := range segs {
		if dropped[i] {
			continue
		}

		if !s.IsInsertion() && s.Transform == timeline.TagNone {
			s.Transform = timeline.TagReallocated
		}

		out = append(out, s)
	}

	return out
}

// intensityByIndex maps source segment index to analyzed intensity.
func (tr *transformer) intensityByIndex() map[int]float64 {
	m := make(map[int]float64, len(tr.features.Segments))

	for i, f := range tr.features.Segments {
		if i < len(tr.tl.Segments) {
			m[tr.tl.Segments[i].Index] = f.Signals.Intensity
		}
	}

	return m
}

// importanceByIndex maps source segment index to importance.
func (tr *transformer) importanceByIndex() map[int]float64 {
	m := make(map[int]float64, len(tr.features.Segments))

	for i, f := range tr.features.Segments {
		if i < len(tr.tl.Segments) {
			m[tr.tl.Segments[i].Index] = f.Importance
		}
	}

	return m
}

// markerByIndex maps source segment index to its arc marker.
func (tr *transformer) markerByIndex() map[int]analysis.Marker {
	m := make(map[int]analysis.Marker, len(tr.features.Segments))

	for i, f := range tr.features.Segments {
		if i < len(tr.tl.Segments) {
			m[tr.tl.Segments[i].Index] = f.Marker
		}
	}

	return m
}
