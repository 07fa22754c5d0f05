// Package governor owns backend residency: it loads generation backends on
// demand, shares resident instances through reference-counted leases, evicts
// idle ones LRU-first, and refuses loads that would break the process memory
// ceiling.
//
// All state lives behind one mutex; Acquire and Release are O(1) except when
// a load happens, and no lock is held across a backend load.
package governor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/recut/pkg/backend"
	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/timeline"
	"github.com/Sumatoshi-tech/recut/pkg/units"
)

var (
	// ErrInsufficientMemory is returned when no eviction can free enough
	// memory for the requested backend. Retriable after backoff.
	ErrInsufficientMemory = errors.New("governor: insufficient memory")

	// ErrBackendLoadFailed is returned when the backend's Load fails.
	// Terminal for the job.
	ErrBackendLoadFailed = errors.New("governor: backend load failed")

	// ErrClosed is returned by Acquire after Close.
	ErrClosed = errors.New("governor: closed")
)

// DefaultCeilingMiB is the default hard resident-memory ceiling.
const DefaultCeilingMiB = 3800

// emaAlpha weights the RSS feedback average. 0.3 reacts within a few
// samples without chasing every GC cycle.
const emaAlpha = 0.3

// Config configures a Governor.
type Config struct {
	// CeilingBytes is the hard resident-memory ceiling. Zero selects the
	// default (3800 MiB).
	CeilingBytes int64

	// Registry supplies the preferred backend variant per language.
	Registry *backend.Registry

	// Logger receives eviction and load events. Nil discards them.
	Logger *slog.Logger
}

// resident tracks one loaded (or loading) backend.
type resident struct {
	backend  backend.GenerationBackend
	refs     int
	lastUsed time.Time
	loading  bool
}

// Governor arbitrates backend residency under the memory ceiling.
type Governor struct {
	mu   sync.Mutex
	cond *sync.Cond

	ceiling  int64
	registry *backend.Registry
	logger   *slog.Logger

	resident  map[timeline.Language]*resident
	accounted int64
	rss       *rssTracker
	closed    bool
}

// New builds a Governor. The registry must not be nil.
func New(cfg Config) *Governor {
	ceiling := cfg.CeilingBytes
	if ceiling <= 0 {
		ceiling = units.MiBToBytes(DefaultCeilingMiB)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	g := &Governor{
		ceiling:  ceiling,
		registry: cfg.Registry,
		logger:   logger,
		resident: make(map[timeline.Language]*resident),
		rss:      newRSSTracker(emaAlpha),
	}
	g.cond = sync.NewCond(&g.mu)

	return g
}

// Lease pins one resident backend. Release is required on every exit path
// and is idempotent.
type Lease struct {
	g    *Governor
	lang timeline.Language
	once sync.Once
}

// Release drops the lease's reference. The backend becomes evictable when
// its last lease is released.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.g.release(l.lang)
	})
}

// Acquire returns a resident backend for lang, loading one if memory
// permits. Concurrent Acquires for the same language share the instance.
// Blocks while another goroutine is loading the same language; cancellation
// unblocks with ctx.Err(). When no eviction can free enough memory the
// retriable ErrInsufficientMemory fault is returned immediately.
func (g *Governor) Acquire(ctx context.Context, lang timeline.Language) (backend.GenerationBackend, *Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// A canceled caller waiting on the cond var needs a wake-up.
	stop := context.AfterFunc(ctx, func() {
		g.mu.Lock()
		g.cond.Broadcast()
		g.mu.Unlock()
	})
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		if g.closed {
			return nil, nil, ErrClosed
		}

		res, ok := g.resident[lang]

		switch {
		case ok && !res.loading:
			res.refs++
			res.lastUsed = time.Now()

			return res.backend, &Lease{g: g, lang: lang}, nil

		case ok && res.loading:
			// Another goroutine is loading this language; share its
			// instance once it lands.
			g.cond.Wait()

			continue
		}

		b, err := g.registry.ForLanguage(lang)
		if err != nil {
			return nil, nil, faults.E(faults.KindInternal, "resolve backend variant", err)
		}

		need := b.DeclaredSizeBytes()
		if !g.makeRoomLocked(need) {
			return nil, nil, faults.E(faults.KindResource,
				fmt.Sprintf("need %d MiB, ceiling %d MiB, resident %d MiB leased",
					need/units.MiB, g.ceiling/units.MiB, g.accounted/units.MiB),
				ErrInsufficientMemory).Retriable()
		}

		return g.loadLocked(ctx, lang, b, need)
	}
}

// loadLocked loads b outside the lock while holding a loading placeholder,
// so concurrent Acquires for the same language wait instead of double
// loading. Called with g.mu held; returns with g.mu held.
func (g *Governor) loadLocked(ctx context.Context, lang timeline.Language, b backend.GenerationBackend, need int64) (backend.GenerationBackend, *Lease, error) {
	res := &resident{backend: b, loading: true}
	g.resident[lang] = res
	g.accounted += need

	g.mu.Unlock()
	loadErr := b.Load(ctx)
	g.mu.Lock()

	if loadErr != nil {
		delete(g.resident, lang)
		g.accounted -= need
		g.cond.Broadcast()

		if errors.Is(loadErr, context.Canceled) || errors.Is(loadErr, context.DeadlineExceeded) {
			return nil, nil, loadErr
		}

		return nil, nil, faults.E(faults.KindResource, "load "+b.Name(), errors.Join(ErrBackendLoadFailed, loadErr))
	}

	res.loading = false
	res.refs = 1
	res.lastUsed = time.Now()
	g.cond.Broadcast()

	g.logger.Info("backend loaded",
		"variant", b.Name(),
		"language", string(lang),
		"declared_mib", need/units.MiB,
		"accounted_mib", g.accounted/units.MiB)

	return b, &Lease{g: g, lang: lang}, nil
}

// makeRoomLocked evicts idle backends LRU-first until need bytes fit under
// the ceiling. Reports whether the load may proceed. Leased and loading
// backends are never evicted.
func (g *Governor) makeRoomLocked(need int64) bool {
	if need > g.ceiling {
		return false
	}

	for g.usageLocked()+need > g.ceiling {
		victim := g.idleLRULocked()
		if victim == timeline.Language("") {
			return false
		}

		g.evictLocked(victim)
	}

	return true
}

// idleLRULocked returns the least recently used language with no leases, or
// the empty language when every resident backend is pinned.
func (g *Governor) idleLRULocked() timeline.Language {
	var (
		oldest     timeline.Language
		oldestUsed time.Time
		found      bool
	)

	for lang, res := range g.resident {
		if res.refs > 0 || res.loading {
			continue
		}

		if !found || res.lastUsed.Before(oldestUsed) {
			oldest = lang
			oldestUsed = res.lastUsed
			found = true
		}
	}

	if !found {
		return timeline.Language("")
	}

	return oldest
}

// evictLocked unloads a resident backend and returns its memory.
func (g *Governor) evictLocked(lang timeline.Language) {
	res := g.resident[lang]
	delete(g.resident, lang)
	g.accounted -= res.backend.DeclaredSizeBytes()

	if err := res.backend.Unload(); err != nil {
		g.logger.Warn("backend unload failed", "variant", res.backend.Name(), "error", err)
	}

	g.logger.Info("backend evicted",
		"variant", res.backend.Name(),
		"language", string(lang),
		"accounted_mib", g.accounted/units.MiB)
}

// usageLocked is the effective resident usage: declared accounting or the
// sampled RSS average, whichever is worse.
func (g *Governor) usageLocked() int64 {
	sampled := g.rss.Smoothed()
	if sampled > g.accounted {
		return sampled
	}

	return g.accounted
}

func (g *Governor) release(lang timeline.Language) {
	g.mu.Lock()
	defer g.mu.Unlock()

	res, ok := g.resident[lang]
	if !ok {
		return
	}

	res.refs--
	res.lastUsed = time.Now()

	if res.refs <= 0 {
		res.refs = 0
		// Idle now; a waiter blocked on memory may proceed after the
		// next Acquire evicts it.
		g.cond.Broadcast()
	}
}

// SampleRSS reads the process RSS once and feeds the smoothing average used
// to throttle future loads. The coordinator calls this between stages.
func (g *Governor) SampleRSS() {
	sample, err := readRSSBytes()
	if err != nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.rss.Observe(sample)
}

// UsageBytes reports the effective resident usage, for metrics.
func (g *Governor) UsageBytes() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.usageLocked()
}

// ResidentCount reports how many backends are resident, for metrics.
func (g *Governor) ResidentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.resident)
}

// Close evicts every idle backend and fails pending Acquires. Leased
// backends stay resident until their leases release; their memory is
// reclaimed then.
func (g *Governor) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true

	for lang, res := range g.resident {
		if res.refs == 0 && !res.loading {
			g.evictLocked(lang)
		}
	}

	g.cond.Broadcast()
}
