package sdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/the-livingstone/sdb-options/internal/model"
	"github.com/the-livingstone/sdb-options/internal/tree"
)

// defaultFields are always requested on partial reads; the resolvers cannot
// work without them.
var defaultFields = []string{"_id", "name", "isAbstract", "path"}

// IsUUID reports whether s is a well-formed catalog node ID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Get fetches a single node by ID. A missing node returns (nil, nil).
func (c *Client) Get(ctx context.Context, id string) (*model.TreeNode, error) {
	if !IsUUID(id) {
		return nil, fmt.Errorf("get node: %q is not a node id", id)
	}
	var node model.TreeNode
	if err := c.get(ctx, "/instruments/"+id, nil, &node); err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	return &node, nil
}

// GetTree fetches the skeleton of the whole instrument tree: id, name, path
// and isAbstract for every node, plus any extra fields requested.
func (c *Client) GetTree(ctx context.Context, extraFields ...string) ([]model.TreeNode, error) {
	query := url.Values{}
	query.Set("fields", strings.Join(mergeFields(extraFields), ","))

	var nodes []model.TreeNode
	if err := c.get(ctx, "/instruments", query, &nodes); err != nil {
		return nil, fmt.Errorf("get tree: %w", err)
	}
	return nodes, nil
}

// GetHeirs lists the children of a node. With recursive set it descends into
// abstract child folders; with full set nodes come back with all attributes
// instead of the skeleton fields.
func (c *Client) GetHeirs(ctx context.Context, id string, recursive, full bool) ([]model.TreeNode, error) {
	if !IsUUID(id) {
		return nil, fmt.Errorf("get heirs: %q is not a node id", id)
	}
	query := url.Values{}
	query.Set("parentId", id)
	if !full {
		query.Set("fields", strings.Join(defaultFields, ","))
	}

	var heirs []model.TreeNode
	if err := c.get(ctx, "/instruments", query, &heirs); err != nil {
		return nil, fmt.Errorf("get heirs of %s: %w", id, err)
	}

	if recursive {
		for _, h := range heirs {
			if !h.IsAbstract {
				continue
			}
			deeper, err := c.GetHeirs(ctx, h.ID, true, full)
			if err != nil {
				return nil, err
			}
			heirs = append(heirs, deeper...)
		}
	}
	return heirs, nil
}

// UUIDByPath resolves an ordered list of node names, root first, to the ID of
// the last node. Returns "" when any segment is missing; an ambiguous segment
// is an error.
func (c *Client) UUIDByPath(ctx context.Context, names ...string) (string, error) {
	nodes, err := c.GetTree(ctx)
	if err != nil {
		return "", err
	}
	return tree.UUIDByPath(nodes, names)
}

// GetExchanges returns the catalog's exchange list.
func (c *Client) GetExchanges(ctx context.Context) ([]model.Exchange, error) {
	var exchanges []model.Exchange
	if err := c.get(ctx, "/exchanges", nil, &exchanges); err != nil {
		return nil, fmt.Errorf("get exchanges: %w", err)
	}
	return exchanges, nil
}

// WriteResult is the catalog's response to a create or update.
type WriteResult struct {
	ID          string `json:"_id"`
	Revision    string `json:"_rev"`
	Message     string `json:"message,omitempty"`
	Description any    `json:"description,omitempty"`
}

// Create posts a new node and returns its assigned ID and revision.
func (c *Client) Create(ctx context.Context, node *model.TreeNode) (*WriteResult, error) {
	var res WriteResult
	if err := c.post(ctx, "/instruments", node, &res); err != nil {
		return nil, fmt.Errorf("create node %s: %w", node.Name, err)
	}
	return &res, nil
}

// Update posts changes to an existing node.
func (c *Client) Update(ctx context.Context, node *model.TreeNode) (*WriteResult, error) {
	if node.ID == "" {
		return nil, fmt.Errorf("update node %s: no id", node.Name)
	}
	var res WriteResult
	if err := c.post(ctx, "/instruments/"+node.ID, node, &res); err != nil {
		return nil, fmt.Errorf("update node %s: %w", node.ID, err)
	}
	return &res, nil
}

func mergeFields(extra []string) []string {
	fields := append([]string(nil), defaultFields...)
	for _, f := range extra {
		seen := false
		for _, d := range fields {
			if d == f {
				seen = true
				break
			}
		}
		if !seen {
			fields = append(fields, f)
		}
	}
	return fields
}
