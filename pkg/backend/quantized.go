package backend

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonreiter/govader"

	"github.com/Sumatoshi-tech/recut/pkg/mathutil"
	"github.com/Sumatoshi-tech/recut/pkg/textutil"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
)

var (
	vaderAnalyzer *govader.SentimentIntensityAnalyzer
	vaderOnce     sync.Once
)

// getVaderAnalyzer lazily builds the shared VADER analyzer. Construction
// parses the bundled lexicon, so it happens once per process.
func getVaderAnalyzer() *govader.SentimentIntensityAnalyzer {
	vaderOnce.Do(func() {
		vaderAnalyzer = govader.NewSentimentIntensityAnalyzer()
	})

	return vaderAnalyzer
}

// loadSettleDelay simulates the residency transition of a quantized model.
// Long enough that races in governor tests surface, short enough for CI.
const loadSettleDelay = 5 * time.Millisecond

// quantized is the shared body of the per-language quantized variants and
// the full model. Scoring strategy is injected; load/unload bookkeeping and
// rewrite assembly are common.
type quantized struct {
	name  string
	lang  timeline.Language
	size  int64
	score func(lang timeline.Language, text string) SemanticSignals

	mu     sync.Mutex
	loaded bool
}

// NewQuantizedZH returns the lexicon-backed Chinese variant.
func NewQuantizedZH(lang timeline.Language) GenerationBackend {
	return &quantized{
		name:  VariantQuantizedZH,
		lang:  lang,
		size:  QuantizedZHSizeBytes,
		score: lexiconSignals,
	}
}

// NewQuantizedEN returns the VADER-backed English variant.
func NewQuantizedEN(lang timeline.Language) GenerationBackend {
	return &quantized{
		name:  VariantQuantizedEN,
		lang:  lang,
		size:  QuantizedENSizeBytes,
		score: vaderSignals,
	}
}

// NewFull returns the blend variant: lexicon axes with VADER polarity on
// English text. Largest declared size, used only when memory allows.
func NewFull(lang timeline.Language) GenerationBackend {
	return &quantized{
		name:  VariantFull,
		lang:  lang,
		size:  FullSizeBytes,
		score: blendSignals,
	}
}

// Name implements GenerationBackend.
func (q *quantized) Name() string { return q.name }

// Language implements GenerationBackend.
func (q *quantized) Language() timeline.Language { return q.lang }

// DeclaredSizeBytes implements GenerationBackend.
func (q *quantized) DeclaredSizeBytes() int64 { return q.size }

// Load implements GenerationBackend. Idempotent: a second Load on a resident
// backend returns immediately.
func (q *quantized) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.loaded {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(loadSettleDelay):
	}

	if q.name == VariantQuantizedEN || q.name == VariantFull {
		// Warm the VADER lexicon during load, not on the first Analyze.
		getVaderAnalyzer()
	}

	q.loaded = true

	return nil
}

// Unload implements GenerationBackend.
func (q *quantized) Unload() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.loaded = false

	return nil
}

func (q *quantized) requireLoaded() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.loaded {
		return ErrNotLoaded
	}

	return nil
}

// Analyze implements GenerationBackend.
func (q *quantized) Analyze(ctx context.Context, text string) (SemanticSignals, error) {
	if err := q.requireLoaded(); err != nil {
		return SemanticSignals{}, err
	}

	if err := ctx.Err(); err != nil {
		return SemanticSignals{}, err
	}

	return q.score(q.lang, text), nil
}

// Rewrite implements GenerationBackend.
func (q *quantized) Rewrite(ctx context.Context, text string, plan RewritePlan) (string, error) {
	if err := q.requireLoaded(); err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	return ApplyPlan(text, plan), nil
}

// Embed implements GenerationBackend.
func (q *quantized) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := q.requireLoaded(); err != nil {
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

// vaderSignals scores English text with VADER polarity plus lexicon tallies
// for the non-polarity axes VADER does not model.
func vaderSignals(lang timeline.Language, text string) SemanticSignals {
	base := lexiconSignals(lang, text)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return base
	}

	sentiment := getVaderAnalyzer().PolarityScores(trimmed)

	base.Scores[AxisPositive] = mathutil.Clamp01(sentiment.Positive)
	base.Scores[AxisNegative] = mathutil.Clamp01(sentiment.Negative)

	// VADER's compound magnitude is a better intensity signal than sparse
	// lexicon hits on English prose.
	intensity := sentiment.Compound
	if intensity < 0 {
		intensity = -intensity
	}

	if intensity > base.Scores[AxisIntense] {
		base.Scores[AxisIntense] = mathutil.Clamp01(intensity)
	}

	base.Dominant = Dominant(base.Scores)
	base.Intensity = base.Scores[base.Dominant]

	return base
}

// blendSignals routes by script: CJK-heavy text scores with the lexicons,
// everything else through VADER.
func blendSignals(lang timeline.Language, text string) SemanticSignals {
	cjk, ascii := textutil.ScriptTally(text)
	if cjk > ascii {
		return lexiconSignals(timeline.LangZH, text)
	}

	return vaderSignals(timeline.LangEN, text)
}
