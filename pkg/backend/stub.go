package backend

import (
	"context"
	"sync"

	"github.com/Sumatoshi-tech/recut/pkg/engine/lexicons"
	"github.com/Sumatoshi-tech/recut/pkg/mathutil"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

// Stub is the deterministic lexicon-only backend. It declares a tiny working
// set, loads instantly, and serves any language by falling back to the
// English bank for non-CJK text. Tests and memory-starved runs use it.
type Stub struct {
	lang timeline.Language
	size int64

	mu     sync.Mutex
	loaded bool
}

// NewStub returns an unloaded stub backend for lang.
func NewStub(lang timeline.Language) GenerationBackend {
	return &Stub{lang: lang, size: StubSizeBytes}
}

// NewStubSized returns a stub that declares an arbitrary working-set size.
// Governor tests use it to simulate models that do not fit the ceiling.
func NewStubSized(lang timeline.Language, sizeBytes int64) GenerationBackend {
	return &Stub{lang: lang, size: sizeBytes}
}

// Name implements GenerationBackend.
func (s *Stub) Name() string { return VariantStub }

// Language implements GenerationBackend.
func (s *Stub) Language() timeline.Language { return s.lang }

// DeclaredSizeBytes implements GenerationBackend.
func (s *Stub) DeclaredSizeBytes() int64 { return s.size }

// Load implements GenerationBackend. Idempotent and instant.
func (s *Stub) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true

	return nil
}

// Unload implements GenerationBackend.
func (s *Stub) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false

	return nil
}

func (s *Stub) requireLoaded() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return ErrNotLoaded
	}

	return nil
}

// Analyze implements GenerationBackend with pure lexicon tallies.
func (s *Stub) Analyze(ctx context.Context, text string) (SemanticSignals, error) {
	if err := s.requireLoaded(); err != nil {
		return SemanticSignals{}, err
	}

	if err := ctx.Err(); err != nil {
		return SemanticSignals{}, err
	}

	return lexiconSignals(s.lang, text), nil
}

// Rewrite implements GenerationBackend by assembling the plan's edits.
func (s *Stub) Rewrite(ctx context.Context, text string, plan RewritePlan) (string, error) {
	if err := s.requireLoaded(); err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	return ApplyPlan(text, plan), nil
}

// Embed implements GenerationBackend with hashed bag-of-words vectors.
func (s *Stub) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(texts))

	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vecs[i] = hashedEmbedding(t)
	}

	return vecs, nil
}

// lexiconSignals scores text against the language's lexicon bank and folds
// the tallies into per-axis scores.
func lexiconSignals(lang timeline.Language, text string) SemanticSignals {
	bank := lexicons.ForLanguage(lang)
	tally := bank.Tally(text)

	words := float64(len(textutil.Words(text)))
	if words == 0 {
		words = 1
	}

	scores := map[Axis]float64{
		AxisPositive:   mathutil.Clamp01(tally.Positive / words * lexiconScale),
		AxisNegative:   mathutil.Clamp01(tally.Negative / words * lexiconScale),
		AxisIntense:    mathutil.Clamp01(tally.Intense / words * lexiconScale),
		AxisConflict:   mathutil.Clamp01(tally.Conflict / words * lexiconScale),
		AxisResolution: mathutil.Clamp01(tally.Resolution / words * lexiconScale),
	}

	dominant := Dominant(scores)

	return SemanticSignals{
		Scores:    scores,
		Dominant:  dominant,
		Intensity: scores[dominant],
	}
}

// lexiconScale stretches sparse per-word hit ratios into the [0, 1] band.
// A hit rate of one lexicon match per four words saturates the axis.
const lexiconScale = 4.0
