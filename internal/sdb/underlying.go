package sdb

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// GetBySymbolID fetches a single node by its exante ID. A missing symbol
// returns (nil, nil).
func (c *Client) GetBySymbolID(ctx context.Context, symbolID string) (*model.TreeNode, error) {
	query := url.Values{}
	query.Set("symbolId_regexp", "^"+regexp.QuoteMeta(symbolID)+"$")

	var nodes []model.TreeNode
	if err := c.get(ctx, "/instruments", query, &nodes); err != nil {
		return nil, fmt.Errorf("get symbol %s: %w", symbolID, err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodes[0], nil
}

// ResolveUnderlying checks that a future exists in the catalog and does not
// expire before the option that references it, then returns the reference to
// store on the contract.
func (c *Client) ResolveUnderlying(ctx context.Context, symbolID string, expiration time.Time) (*model.UnderlyingRef, error) {
	node, err := c.GetBySymbolID(ctx, symbolID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("underlying %s is not in the catalog", symbolID)
	}
	if node.Expiry != nil && node.Expiry.ToTime().Before(expiration) {
		return nil, fmt.Errorf("underlying %s expires before the option", symbolID)
	}
	return &model.UnderlyingRef{ID: symbolID, Type: "symbolId"}, nil
}
