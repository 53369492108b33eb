package tree

import (
	"context"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// SubtreeSource yields the descendant subtree of a node (children at any
// depth, the node itself excluded).
type SubtreeSource interface {
	Subtree(ctx context.Context, rootID string) ([]model.TreeNode, error)
}

// Snapshot is a SubtreeSource over a node list the caller already holds:
// descendants are selected by ancestry, no catalog round trip.
type Snapshot []model.TreeNode

// Subtree filters the snapshot down to the descendants of rootID.
func (s Snapshot) Subtree(_ context.Context, rootID string) ([]model.TreeNode, error) {
	var out []model.TreeNode
	for _, n := range s {
		if n.ID == rootID {
			continue
		}
		if n.InSubtree(rootID) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Find returns the first snapshot node matching the predicate, or nil.
func (s Snapshot) Find(match func(*model.TreeNode) bool) *model.TreeNode {
	for i := range s {
		if match(&s[i]) {
			return &s[i]
		}
	}
	return nil
}

// Catalog is a SubtreeSource that fetches recursively from the provider.
type Catalog struct {
	Provider Provider
}

// Subtree fetches the full descendant subtree from the catalog.
func (c Catalog) Subtree(ctx context.Context, rootID string) ([]model.TreeNode, error) {
	return c.Provider.GetHeirs(ctx, rootID, true, true)
}

// SourceFor selects the subtree source: the snapshot when one was supplied,
// otherwise a recursive catalog fetch.
func SourceFor(snapshot []model.TreeNode, provider Provider) SubtreeSource {
	if snapshot != nil {
		return Snapshot(snapshot)
	}
	return Catalog{Provider: provider}
}
