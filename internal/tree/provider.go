package tree

import (
	"context"
	"fmt"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// Provider is the read surface of the instrument catalog the resolvers
// consume. Implementations must be safe for concurrent reads.
type Provider interface {
	// Get fetches a single node. A missing node returns (nil, nil).
	Get(ctx context.Context, id string) (*model.TreeNode, error)

	// GetHeirs lists children of a node; recursive descends into abstract
	// folders, full requests complete attribute records.
	GetHeirs(ctx context.Context, id string, recursive, full bool) ([]model.TreeNode, error)

	// UUIDByPath resolves an ordered list of node names, root first, to the
	// ID of the last one. Returns "" when the path does not exist.
	UUIDByPath(ctx context.Context, names ...string) (string, error)

	// GetExchanges returns the catalog's exchange list.
	GetExchanges(ctx context.Context) ([]model.Exchange, error)
}

// UUIDByPath walks a flat tree snapshot level by level and resolves a name
// path to a node ID. Returns "" when any segment is missing. A segment
// matching more than one node is an error: the caller's path is ambiguous
// and no guess would be right.
func UUIDByPath(nodes []model.TreeNode, names []string) (string, error) {
	var result, parent string
	for level, name := range names {
		var matches []model.TreeNode
		for _, n := range nodes {
			if len(n.Path) != level+1 || n.Name != name {
				continue
			}
			if parent != "" && n.Path[level-1] != parent {
				continue
			}
			matches = append(matches, n)
		}
		switch len(matches) {
		case 0:
			return "", nil
		case 1:
			result = matches[0].ID
			parent = result
		default:
			return "", fmt.Errorf("ambiguous path %v: node %q has %d matches", names, name, len(matches))
		}
	}
	return result, nil
}
