package snapshot

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/persist"
)

// AnchorKind classifies an anchor.
type AnchorKind string

const (
	AnchorMilestone AnchorKind = "milestone"
	AnchorReference AnchorKind = "reference"
	AnchorCritical  AnchorKind = "critical"
)

// Valid reports whether k is a known anchor kind.
func (k AnchorKind) Valid() bool {
	switch k {
	case AnchorMilestone, AnchorReference, AnchorCritical:
		return true
	default:
		return false
	}
}

// Anchor importance bounds.
const (
	MinImportance = 1
	MaxImportance = 10
)

// ErrOrphanAnchor marks an anchor whose snapshot is gone from the tree.
var ErrOrphanAnchor = errors.New("snapshot: anchor references a missing node")

// Anchor is an immutable out-of-tree marker pinned to a snapshot id. It
// influences queries, never tree shape.
type Anchor struct {
	ID         string            `json:"id"`
	SnapshotID string            `json:"snapshot_id"`
	Kind       AnchorKind        `json:"kind"`
	Importance int               `json:"importance"`
	Data       map[string]string `json:"data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// AnchorStore persists anchors in their own directory, one JSON file per
// anchor, separate from the version tree's namespace.
type AnchorStore struct {
	mu  sync.RWMutex
	dir string
	now func() time.Time
}

// OpenAnchors loads or initializes an anchor store at dir.
func OpenAnchors(dir string) (*AnchorStore, error) {
	if dir == "" {
		return nil, faults.E(faults.KindInput, "anchor directory not configured", nil)
	}

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return nil, fmt.Errorf("create anchor dir: %w", err)
	}

	return &AnchorStore{dir: dir, now: time.Now}, nil
}

// Put validates and persists a new anchor for the given snapshot, returning
// it with its assigned id.
func (a *AnchorStore) Put(snapshotID string, kind AnchorKind, importance int, data map[string]string) (Anchor, error) {
	if !kind.Valid() {
		return Anchor{}, faults.E(faults.KindInput, fmt.Sprintf("unknown anchor kind %q", kind), nil)
	}

	if importance < MinImportance || importance > MaxImportance {
		return Anchor{}, faults.E(faults.KindInput,
			fmt.Sprintf("anchor importance %d outside [%d, %d]", importance, MinImportance, MaxImportance), nil)
	}

	if snapshotID == "" {
		return Anchor{}, faults.E(faults.KindInput, "anchor needs a snapshot id", nil)
	}

	anchor := Anchor{
		ID:         uuid.NewString(),
		SnapshotID: snapshotID,
		Kind:       kind,
		Importance: importance,
		Data:       data,
		CreatedAt:  a.now().UTC(),
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	err := persist.SaveState(a.dir, anchor.ID, persist.NewJSONCodec(), anchor)
	if err != nil {
		return Anchor{}, fmt.Errorf("write anchor: %w", err)
	}

	return anchor, nil
}

// All returns every anchor, oldest first.
func (a *AnchorStore) All() ([]Anchor, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("read anchor dir: %w", err)
	}

	var anchors []Anchor

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		var anchor Anchor

		err = persist.LoadState(a.dir, strings.TrimSuffix(name, ".json"), persist.NewJSONCodec(), &anchor)
		if err != nil {
			return nil, fmt.Errorf("read anchor %s: %w", name, err)
		}

		anchors = append(anchors, anchor)
	}

	sort.SliceStable(anchors, func(i, j int) bool {
		if !anchors[i].CreatedAt.Equal(anchors[j].CreatedAt) {
			return anchors[i].CreatedAt.Before(anchors[j].CreatedAt)
		}

		return anchors[i].ID < anchors[j].ID
	})

	return anchors, nil
}

// ByKind returns anchors of one kind, oldest first.
func (a *AnchorStore) ByKind(kind AnchorKind) ([]Anchor, error) {
	return a.filter(func(anchor Anchor) bool { return anchor.Kind == kind })
}

// ByPrefix returns anchors whose snapshot id starts with the prefix.
func (a *AnchorStore) ByPrefix(prefix string) ([]Anchor, error) {
	return a.filter(func(anchor Anchor) bool {
		return strings.HasPrefix(anchor.SnapshotID, prefix)
	})
}

// ByAncestry returns anchors pinned to the given snapshot or any of its
// ancestors, using the store's tree.
func (a *AnchorStore) ByAncestry(s *Store, id string) ([]Anchor, error) {
	history, err := s.History(id)
	if err != nil {
		return nil, err
	}

	onPath := make(map[string]bool, len(history))
	for _, n := range history {
		onPath[n.ID] = true
	}

	return a.filter(func(anchor Anchor) bool { return onPath[anchor.SnapshotID] })
}

// Orphans returns anchors whose snapshot no longer exists in the tree.
// They are surfaced, never deleted.
func (a *AnchorStore) Orphans(s *Store) ([]Anchor, error) {
	return a.filter(func(anchor Anchor) bool {
		_, err := s.Get(anchor.SnapshotID)

		return err != nil
	})
}

func (a *AnchorStore) filter(keep func(Anchor) bool) ([]Anchor, error) {
	all, err := a.All()
	if err != nil {
		return nil, err
	}

	var kept []Anchor

	for _, anchor := range all {
		if keep(anchor) {
			kept = append(kept, anchor)
		}
	}

	return kept, nil
}
