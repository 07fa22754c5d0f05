package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/persist"
)

// On-disk layout inside the snapshot directory.
const (
	treeBase     = "tree"
	registryBase = "registry"
	dirPerm      = 0o750
)

// record is the per-node blob file: the node metadata plus the content.
type record struct {
	Node
	Content string `json:"content"`
}

// Options configure a Store.
type Options struct {
	// Dir is the snapshot directory. Created if absent.
	Dir string

	// Secret, when set, adds HMAC-SHA-256 signatures to the tamper
	// registry.
	Secret []byte

	// Gate is the diversity gate. Nil disables near-duplicate tagging.
	Gate *DiversityGate

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// TakeOptions carry the optional fields of a Take.
type TakeOptions struct {
	Description string
	Tags        []string

	// Parent overrides the cursor as the new node's parent.
	Parent string
}

// Store is the content-addressed version store. Tree and registry mutations
// serialize under the store mutex; readers share it, and no blob or
// embedding I/O happens while it is held.
type Store struct {
	mu sync.RWMutex

	dir      string
	secret   []byte
	gate     *DiversityGate
	logger   *slog.Logger
	now      func() time.Time
	tree     *Tree
	registry Registry
}

// Open loads or initializes a store in opts.Dir.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, faults.E(faults.KindInput, "snapshot directory not configured", nil)
	}

	err := os.MkdirAll(opts.Dir, dirPerm)
	if err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	s := &Store{
		dir:      opts.Dir,
		secret:   opts.Secret,
		gate:     opts.Gate,
		logger:   opts.Logger,
		now:      opts.Now,
		tree:     NewTree(),
		registry: Registry{},
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.now == nil {
		s.now = time.Now
	}

	err = persist.LoadState(s.dir, treeBase, persist.NewJSONCodec(), s.tree)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load snapshot tree: %w", err)
	}

	s.tree.reindex()

	err = persist.LoadState(s.dir, registryBase, persist.NewJSONCodec(), &s.registry)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load tamper registry: %w", err)
	}

	return s, nil
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Len()
}

// Cursor returns the current node id, empty for a fresh store.
func (s *Store) Cursor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Cursor
}

// Take appends a snapshot of content as a child of the cursor (or of
// opts.Parent) and moves the cursor to it. The diversity gate may tag the
// node near_duplicate; it never rejects.
func (s *Store) Take(ctx context.Context, content, op string, kind Kind, opts TakeOptions) (Node, error) {
	if !kind.Valid() {
		return Node{}, faults.E(faults.KindInput, fmt.Sprintf("unknown snapshot kind %q", kind), nil)
	}

	// Pin the parent and the candidate leaves under the read lock; the
	// expensive work, embedding and the blob write, runs unlocked.
	s.mu.RLock()

	parentID := opts.Parent
	if parentID == "" {
		parentID = s.tree.Cursor
	}

	if parentID != "" {
		if _, ok := s.tree.Get(parentID); !ok {
			s.mu.RUnlock()

			return Node{}, faults.E(faults.KindInput, fmt.Sprintf("parent %q", parentID), ErrNotFound)
		}
	}

	leaves := s.tree.Leaves()

	s.mu.RUnlock()

	tags := append([]string(nil), opts.Tags...)

	match, dup, err := s.checkDiversity(ctx, content, leaves)
	if err != nil {
		return Node{}, err
	}

	if dup {
		tags = append(tags, TagNearDuplicate)

		s.logger.Warn("snapshot is a near duplicate",
			slog.String("of", match.ID),
			slog.Float64("similarity", match.Similarity))
	}

	createdAt := s.now().UTC()

	node := Node{
		ParentID:    parentID,
		Kind:        kind,
		Operation:   op,
		Description: opts.Description,
		Tags:        tags,
		CreatedAt:   createdAt,
		ContentHash: hashContent(content),
	}
	node.ID = newNodeID(node.ContentHash, parentID, createdAt, op)

	blob, err := json.MarshalIndent(record{Node: node, Content: content}, "", "  ")
	if err != nil {
		return Node{}, fmt.Errorf("encode snapshot blob: %w", err)
	}

	err = renameio.WriteFile(s.blobPath(node.ID), blob, 0o600)
	if err != nil {
		return Node{}, fmt.Errorf("write snapshot blob: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != "" {
		if _, ok := s.tree.Get(parentID); !ok {
			// The parent went away while the blob was being written.
			_ = os.Remove(s.blobPath(node.ID))

			return Node{}, faults.E(faults.KindInput, fmt.Sprintf("parent %q", parentID), ErrNotFound)
		}
	}

	s.tree.add(node)
	s.tree.Cursor = node.ID
	s.registry[node.ID] = newRegistryEntry(blob, s.secret)

	err = s.persistIndexes()
	if err != nil {
		return Node{}, err
	}

	return node, nil
}

// checkDiversity reads the candidate blobs and runs the gate against them.
// Runs without the store lock: candidate reads and embedding can be slow.
func (s *Store) checkDiversity(ctx context.Context, content string, leaves []Node) (Match, bool, error) {
	if s.gate == nil {
		return Match{}, false, nil
	}

	if len(leaves) > s.gate.K {
		leaves = leaves[:s.gate.K]
	}

	candidates := make([]Candidate, 0, len(leaves))

	for _, leaf := range leaves {
		rec, err := s.readRecord(leaf.ID)
		if err != nil {
			return Match{}, false, err
		}

		candidates = append(candidates, Candidate{ID: leaf.ID, Content: rec.Content})
	}

	return s.gate.Check(ctx, content, candidates)
}

// Restore loads the content of a snapshot, verifies it against the stored
// content hash, and moves the cursor to it.
func (s *Store) Restore(idOrPrefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.tree.Resolve(idOrPrefix)
	if err != nil {
		return "", faults.E(faults.KindInput, "restore", err)
	}

	rec, err := s.readRecord(node.ID)
	if err != nil {
		return "", err
	}

	if hashContent(rec.Content) != node.ContentHash {
		return "", faults.E(faults.KindIntegrity,
			fmt.Sprintf("snapshot %s content does not match its recorded hash", node.ID), nil)
	}

	s.tree.Cursor = node.ID

	err = s.persistIndexes()
	if err != nil {
		return "", err
	}

	return rec.Content, nil
}

// Branch snapshots the content of fromID as a new child of fromID: a
// convenience for taking an identical take on an explicit parent.
func (s *Store) Branch(ctx context.Context, fromID, op string, kind Kind) (Node, error) {
	s.mu.RLock()
	node, err := s.tree.Resolve(fromID)

	if err != nil {
		s.mu.RUnlock()

		return Node{}, faults.E(faults.KindInput, "branch", err)
	}

	rec, err := s.readRecord(node.ID)
	s.mu.RUnlock()

	if err != nil {
		return Node{}, err
	}

	return s.Take(ctx, rec.Content, op, kind, TakeOptions{
		Parent:      node.ID,
		Description: fmt.Sprintf("branch of %s", node.ID),
	})
}

// History returns the root→node path. An empty id means the cursor.
func (s *Store) History(idOrPrefix string) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := idOrPrefix
	if id == "" {
		id = s.tree.Cursor
	}

	node, err := s.tree.Resolve(id)
	if err != nil {
		return nil, faults.E(faults.KindInput, "history", err)
	}

	return s.tree.Path(node.ID)
}

// List returns snapshots most recent first, optionally filtered by kind,
// capped at limit when positive.
func (s *Store) List(kind Kind, limit int) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]Node, 0, len(s.tree.Nodes))

	for i := len(s.tree.Nodes) - 1; i >= 0; i-- {
		n := s.tree.Nodes[i]
		if kind != "" && n.Kind != kind {
			continue
		}

		nodes = append(nodes, n)

		if limit > 0 && len(nodes) == limit {
			break
		}
	}

	return nodes
}

// Get returns a node by id or unique prefix.
func (s *Store) Get(idOrPrefix string) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, err := s.tree.Resolve(idOrPrefix)
	if err != nil {
		return Node{}, faults.E(faults.KindInput, "get", err)
	}

	return node, nil
}

// Delete removes a snapshot: leaf-only unless recursive, never the cursor.
// Blobs and registry entries go with the nodes.
func (s *Store) Delete(idOrPrefix string, recursive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.tree.Resolve(idOrPrefix)
	if err != nil {
		return faults.E(faults.KindInput, "delete", err)
	}

	removed, err := s.tree.remove(node.ID, recursive)
	if err != nil {
		return faults.E(faults.KindInput, "delete", err)
	}

	for _, id := range removed {
		delete(s.registry, id)

		rmErr := os.Remove(s.blobPath(id))
		if rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("could not remove snapshot blob",
				slog.String("id", id), slog.Any("error", rmErr))
		}
	}

	return s.persistIndexes()
}

// persistIndexes writes tree.json and registry.json. Callers hold mu.
func (s *Store) persistIndexes() error {
	err := persist.SaveState(s.dir, treeBase, persist.NewJSONCodec(), s.tree)
	if err != nil {
		return fmt.Errorf("write snapshot tree: %w", err)
	}

	err = persist.SaveState(s.dir, registryBase, persist.NewJSONCodec(), s.registry)
	if err != nil {
		return fmt.Errorf("write tamper registry: %w", err)
	}

	return nil
}

func (s *Store) blobPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) readRecord(id string) (record, error) {
	var rec record

	err := persist.LoadState(s.dir, id, persist.NewJSONCodec(), &rec)
	if err != nil {
		return record{}, faults.E(faults.KindIntegrity,
			fmt.Sprintf("snapshot blob %s", id), err)
	}

	return rec, nil
}
