// Package snapshot stores every accepted pipeline output in a
// content-addressed version tree: nodes are append-only, ids are derived
// from content, and a cursor tracks the version the next take descends
// from. The store enforces a diversity gate on new takes, keeps a tamper
// registry over all persisted blobs, and carries out-of-tree anchors.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Kind classifies how a snapshot relates to its parent.
type Kind string

const (
	KindLinear       Kind = "linear"
	KindExperimental Kind = "experimental"
	KindRestructured Kind = "restructured"
	KindOptimized    Kind = "optimized"
	KindCustom       Kind = "custom"
)

// Valid reports whether k is a known node kind.
func (k Kind) Valid() bool {
	switch k {
	case KindLinear, KindExperimental, KindRestructured, KindOptimized, KindCustom:
		return true
	default:
		return false
	}
}

// TagNearDuplicate marks a take whose similarity to a recent leaf reached
// the diversity threshold. The take is stored regardless.
const TagNearDuplicate = "near_duplicate"

// idHexLen is the length of a node id: the first 16 hex chars of the
// canonical-record SHA-256, long enough to be unique and short enough to
// type.
const idHexLen = 16

// Node is one version in the tree. Content lives in the node's blob file;
// the tree index carries only the metadata.
type Node struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parent_id,omitempty"`
	Kind        Kind      `json:"kind"`
	Operation   string    `json:"operation"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ContentHash string    `json:"content_hash"`
}

// Tagged reports whether the node carries the given tag.
func (n Node) Tagged(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// newNodeID derives a node id from the canonical record fields. Two takes
// of identical content still differ through parent and creation time.
func newNodeID(contentHash, parentID string, createdAt time.Time, op string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%s",
		contentHash, parentID, createdAt.UnixNano(), op)))

	return hex.EncodeToString(h[:])[:idHexLen]
}

// hashContent returns the hex SHA-256 of a blob's content.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))

	return hex.EncodeToString(sum[:])
}
