// Package backend defines the generation backends the pipeline leases from
// the memory governor: semantic analysis, text rewriting, and sentence
// embedding for one narration language.
//
// Variants differ in quality and declared working-set size. The stub variant
// is fully deterministic and cheap, used by tests and as the fallback when
// no quantized model fits the memory ceiling. All variants are thread-safe
// for Analyze/Rewrite/Embed once Load has returned.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/recut/pkg/textutil"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
	"github.com/Sumatoshi-tech/recut/pkg/units"
)

// Axis is one fixed semantic scoring dimension.
type Axis string

const (
	AxisPositive   Axis = "positive"
	AxisNegative   Axis = "negative"
	AxisIntense    Axis = "intense"
	AxisConflict   Axis = "conflict"
	AxisResolution Axis = "resolution"
)

// Axes lists every scoring axis in canonical order.
var Axes = []Axis{AxisPositive, AxisNegative, AxisIntense, AxisConflict, AxisResolution}

// SemanticSignals is the per-text output of Analyze: a score per axis, the
// dominant axis, and an overall intensity in [0, 1].
type SemanticSignals struct {
	Scores    map[Axis]float64 `json:"scores"`
	Dominant  Axis             `json:"dominant"`
	Intensity float64          `json:"intensity"`
}

// Dominant returns the highest-scoring axis of a score map, breaking ties in
// canonical axis order so results stay deterministic.
func Dominant(scores map[Axis]float64) Axis {
	best := AxisPositive
	bestScore := -1.0

	for _, axis := range Axes {
		if s := scores[axis]; s > bestScore {
			best = axis
			bestScore = s
		}
	}

	return best
}

// Splice is one insertion at a clause boundary: Text goes after the clause
// with the given zero-based index.
type Splice struct {
	AfterClause int
	Text        string
}

// RewritePlan describes the edits Rewrite applies around the original text.
// The original text always survives verbatim: a plan only prepends, appends,
// or splices at clause boundaries.
type RewritePlan struct {
	Prepend string
	Append  string
	Splices []Splice
}

// GenerationBackend is the capability set the pipeline needs from a model.
type GenerationBackend interface {
	// Name identifies the variant (stub, quantized-zh, quantized-en, full).
	Name() string

	// Language is the narration language this backend serves.
	Language() timeline.Language

	// DeclaredSizeBytes is the resident working-set size the governor
	// accounts for this backend.
	DeclaredSizeBytes() int64

	// Analyze scores text along the fixed semantic axes.
	Analyze(ctx context.Context, text string) (SemanticSignals, error)

	// Rewrite applies a plan to text. The original text is always a
	// verbatim substring of the result.
	Rewrite(ctx context.Context, text string, plan RewritePlan) (string, error)

	// Embed returns one normalized embedding vector per input text.
	// Identical texts embed to identical vectors.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Load makes the backend resident. Idempotent.
	Load(ctx context.Context) error

	// Unload releases the backend's working set. Idempotent.
	Unload() error
}

var (
	// ErrNotLoaded is returned when a capability is used before Load.
	ErrNotLoaded = errors.New("backend: not loaded")

	// ErrUnknownVariant is returned by the registry for an unregistered
	// variant name.
	ErrUnknownVariant = errors.New("backend: unknown variant")
)

// Declared working-set sizes per variant. The governor trusts these numbers;
// actual RSS feedback happens through its EMA sampling.
const (
	StubSizeBytes        = 8 * units.MiB
	QuantizedZHSizeBytes = 896 * units.MiB
	QuantizedENSizeBytes = 768 * units.MiB
	FullSizeBytes        = 2560 * units.MiB
)

// Variant names.
const (
	VariantStub        = "stub"
	VariantQuantizedZH = "quantized-zh"
	VariantQuantizedEN = "quantized-en"
	VariantFull        = "full"
)

// Factory constructs an unloaded backend for a language.
type Factory func(lang timeline.Language) GenerationBackend

// Registry maps variant names to factories and picks the preferred variant
// per language. The zero value is unusable; use NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	preferred map[timeline.Language]string
}

// NewRegistry returns a registry with the built-in variants registered and
// the quantized variant preferred per language.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		preferred: make(map[timeline.Language]string),
	}

	r.Register(VariantStub, NewStub)
	r.Register(VariantQuantizedZH, NewQuantizedZH)
	r.Register(VariantQuantizedEN, NewQuantizedEN)
	r.Register(VariantFull, NewFull)

	r.Prefer(timeline.LangZH, VariantQuantizedZH)
	r.Prefer(timeline.LangEN, VariantQuantizedEN)
	r.Prefer(timeline.LangUnknown, VariantStub)

	return r
}

// Register adds or replaces a variant factory.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = factory
}

// Prefer selects the variant the governor loads for a language.
func (r *Registry) Prefer(lang timeline.Language, variant string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.preferred[lang] = variant
}

// Variants returns the registered variant names, sorted.
func (r *Registry) Variants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// New constructs an unloaded backend of the named variant.
func (r *Registry) New(name string, lang timeline.Language) (GenerationBackend, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}

	return factory(lang), nil
}

// ForLanguage constructs the preferred unloaded backend for a language.
// Languages without a preference fall back to the stub variant.
func (r *Registry) ForLanguage(lang timeline.Language) (GenerationBackend, error) {
	r.mu.RLock()
	name, ok := r.preferred[lang]
	r.mu.RUnlock()

	if !ok {
		name = VariantStub
	}

	return r.New(name, lang)
}

// ApplyPlan splices a rewrite plan around the original text. Every variant
// shares it: the model's job here is assembly, the engine decides the edits.
// The engine also calls it directly when no backend is leased.
func ApplyPlan(text string, plan RewritePlan) string {
	out := text

	if len(plan.Splices) > 0 {
		clauses := textutil.SplitClauses(text)

		// Apply in reverse so earlier splice offsets stay valid.
		ordered := make([]Splice, len(plan.Splices))
		copy(ordered, plan.Splices)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].AfterClause > ordered[j].AfterClause
		})

		for _, sp := range ordered {
			at := sp.AfterClause
			if at < 0 {
				at = 0
			}

			if at >= len(clauses) {
				at = len(clauses) - 1
			}

			if at < 0 {
				clauses = []string{sp.Text}

				continue
			}

			rest := make([]string, 0, len(clauses)+1)
			rest = append(rest, clauses[:at+1]...)
			rest = append(rest, sp.Text)
			rest = append(rest, clauses[at+1:]...)
			clauses = rest
		}

		out = joinClauses(clauses)
	}

	if plan.Prepend != "" {
		out = plan.Prepend + out
	}

	if plan.Append != "" {
		out += plan.Append
	}

	return out
}

// joinClauses reassembles clauses split by SplitClauses. The splitter keeps
// trailing punctuation but trims the whitespace after it, so ASCII clause
// boundaries get their separating space back; CJK boundaries never had one.
func joinClauses(clauses []string) string {
	var buf strings.Builder

	for i, c := range clauses {
		if i > 0 && needsSpace(clauses[i-1], c) {
			buf.WriteByte(' ')
		}

		buf.WriteString(c)
	}

	return buf.String()
}

// needsSpace reports whether a space belongs between two rejoined clauses:
// only when the following clause starts with an ASCII rune.
func needsSpace(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}

	r := []rune(next)[0]

	return r < 128
}
