package snapshot

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when no node matches an id or prefix.
	ErrNotFound = errors.New("snapshot: node not found")

	// ErrAmbiguousPrefix is returned when a prefix matches several nodes.
	ErrAmbiguousPrefix = errors.New("snapshot: ambiguous id prefix")

	// ErrNotLeaf is returned when a non-recursive delete targets an inner
	// node.
	ErrNotLeaf = errors.New("snapshot: node has children")

	// ErrCursorDelete is returned when a delete would remove the cursor.
	ErrCursorDelete = errors.New("snapshot: cannot delete the current cursor")
)

// Tree is the arena-backed version tree: nodes reference each other by id,
// never by pointer, so the whole structure serializes as-is. The index maps
// are rebuilt after load.
type Tree struct {
	Nodes  []Node `json:"nodes"`
	Cursor string `json:"cursor,omitempty"`

	byID     map[string]int
	children map[string][]string
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	t := &Tree{}
	t.reindex()

	return t
}

// reindex rebuilds the id and child maps from the arena.
func (t *Tree) reindex() {
	t.byID = make(map[string]int, len(t.Nodes))
	t.children = make(map[string][]string, len(t.Nodes))

	for i, n := range t.Nodes {
		t.byID[n.ID] = i

		if n.ParentID != "" {
			t.children[n.ParentID] = append(t.children[n.ParentID], n.ID)
		}
	}
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Get returns the node with the exact id.
func (t *Tree) Get(id string) (Node, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Node{}, false
	}

	return t.Nodes[i], true
}

// Resolve returns the node matching an exact id or a unique id prefix.
func (t *Tree) Resolve(idOrPrefix string) (Node, error) {
	if idOrPrefix == "" {
		return Node{}, fmt.Errorf("empty id: %w", ErrNotFound)
	}

	if n, ok := t.Get(idOrPrefix); ok {
		return n, nil
	}

	var found []Node

	for _, n := range t.Nodes {
		if strings.HasPrefix(n.ID, idOrPrefix) {
			found = append(found, n)
		}
	}

	switch len(found) {
	case 0:
		return Node{}, fmt.Errorf("%q: %w", idOrPrefix, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return Node{}, fmt.Errorf("%q matches %d nodes: %w", idOrPrefix, len(found), ErrAmbiguousPrefix)
	}
}

// add appends a node. The caller has already checked the parent exists.
func (t *Tree) add(n Node) {
	t.Nodes = append(t.Nodes, n)
	t.byID[n.ID] = len(t.Nodes) - 1

	if n.ParentID != "" {
		t.children[n.ParentID] = append(t.children[n.ParentID], n.ID)
	}
}

// Path returns the root→node chain for the given id.
func (t *Tree) Path(id string) ([]Node, error) {
	n, ok := t.Get(id)
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrNotFound)
	}

	var reversed []Node

	for {
		reversed = append(reversed, n)

		if n.ParentID == "" {
			break
		}

		parent, ok := t.Get(n.ParentID)
		if !ok {
			return nil, fmt.Errorf("parent %q of %q: %w", n.ParentID, n.ID, ErrNotFound)
		}

		n = parent
	}

	path := make([]Node, len(reversed))
	for i, node := range reversed {
		path[len(path)-1-i] = node
	}

	return path, nil
}

// IsLeaf reports whether the node has no children.
func (t *Tree) IsLeaf(id string) bool {
	return len(t.children[id]) == 0
}

// Leaves returns all leaf nodes, most recent first.
func (t *Tree) Leaves() []Node {
	var leaves []Node

	for _, n := range t.Nodes {
		if t.IsLeaf(n.ID) {
			leaves = append(leaves, n)
		}
	}

	sort.SliceStable(leaves, func(i, j int) bool {
		return leaves[i].CreatedAt.After(leaves[j].CreatedAt)
	})

	return leaves
}

// CommonAncestor returns the nearest node on both root-paths.
func (t *Tree) CommonAncestor(a, b string) (Node, error) {
	pathA, err := t.Path(a)
	if err != nil {
		return Node{}, err
	}

	pathB, err := t.Path(b)
	if err != nil {
		return Node{}, err
	}

	onA := make(map[string]bool, len(pathA))
	for _, n := range pathA {
		onA[n.ID] = true
	}

	for i := len(pathB) - 1; i >= 0; i-- {
		if onA[pathB[i].ID] {
			return pathB[i], nil
		}
	}

	return Node{}, fmt.Errorf("no common ancestor of %q and %q: %w", a, b, ErrNotFound)
}

// Subtree returns the ids of the node and all its descendants.
func (t *Tree) Subtree(id string) []string {
	ids := []string{id}

	for i := 0; i < len(ids); i++ {
		ids = append(ids, t.children[ids[i]]...)
	}

	return ids
}

// remove deletes a node, leaf-only unless recursive, never the cursor or
// any node above it. Returns the removed ids.
func (t *Tree) remove(id string, recursive bool) ([]string, error) {
	if _, ok := t.Get(id); !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrNotFound)
	}

	if !recursive && !t.IsLeaf(id) {
		return nil, fmt.Errorf("%q: %w", id, ErrNotLeaf)
	}

	doomed := t.Subtree(id)

	for _, d := range doomed {
		if d == t.Cursor {
			return nil, fmt.Errorf("%q: %w", t.Cursor, ErrCursorDelete)
		}
	}

	dead := make(map[string]bool, len(doomed))
	for _, d := range doomed {
		dead[d] = true
	}

	kept := t.Nodes[:0]

	for _, n := range t.Nodes {
		if !dead[n.ID] {
			kept = append(kept, n)
		}
	}

	t.Nodes = kept
	t.reindex()

	return doomed, nil
}
