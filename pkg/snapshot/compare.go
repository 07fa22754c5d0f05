package snapshot

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/recut/pkg/faults"
)

// FieldChange describes one metadata field that differs between two nodes.
type FieldChange struct {
	Field string `json:"field"`
	A     string `json:"a"`
	B     string `json:"b"`
}

// Comparison is the result of comparing two snapshots.
type Comparison struct {
	A              string        `json:"a"`
	B              string        `json:"b"`
	CommonAncestor string        `json:"common_ancestor,omitempty"`
	Fields         []FieldChange `json:"fields,omitempty"`

	// Content diff summary over blob lines.
	LinesAdded   int     `json:"lines_added"`
	LinesRemoved int     `json:"lines_removed"`
	Similarity   float64 `json:"similarity"`
}

// Compare resolves both snapshots, finds their nearest common ancestor,
// and summarizes how their metadata and content differ.
func (s *Store) Compare(aID, bID string) (Comparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, err := s.tree.Resolve(aID)
	if err != nil {
		return Comparison{}, faults.E(faults.KindInput, "compare", err)
	}

	b, err := s.tree.Resolve(bID)
	if err != nil {
		return Comparison{}, faults.E(faults.KindInput, "compare", err)
	}

	cmp := Comparison{A: a.ID, B: b.ID, Fields: fieldChanges(a, b)}

	ancestor, err := s.tree.CommonAncestor(a.ID, b.ID)
	if err == nil {
		cmp.CommonAncestor = ancestor.ID
	}

	recA, err := s.readRecord(a.ID)
	if err != nil {
		return Comparison{}, err
	}

	recB, err := s.readRecord(b.ID)
	if err != nil {
		return Comparison{}, err
	}

	cmp.LinesAdded, cmp.LinesRemoved = lineChanges(recA.Content, recB.Content)
	cmp.Similarity = lineDiffRatio(recA.Content, recB.Content)

	return cmp, nil
}

// fieldChanges lists the metadata fields that differ.
func fieldChanges(a, b Node) []FieldChange {
	var changes []FieldChange

	add := func(field, va, vb string) {
		if va != vb {
			changes = append(changes, FieldChange{Field: field, A: va, B: vb})
		}
	}

	add("kind", string(a.Kind), string(b.Kind))
	add("operation", a.Operation, b.Operation)
	add("description", a.Description, b.Description)
	add("content_hash", a.ContentHash, b.ContentHash)

	return changes
}

// lineChanges counts lines only in b (added) and only in a (removed).
func lineChanges(a, b string) (added, removed int) {
	dmp := diffmatchpatch.New()

	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += lineCount(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += lineCount(d.Text)
		case diffmatchpatch.DiffEqual:
		}
	}

	return added, removed
}
