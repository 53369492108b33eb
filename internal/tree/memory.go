package tree

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// Memory is an in-memory Provider backed by a flat node list. It serves as
// an offline snapshot of a catalog subtree and as the fixture provider in
// tests. Reads return deep copies, so callers may mutate results freely.
type Memory struct {
	mu        sync.RWMutex
	nodes     []*model.TreeNode
	exchanges []model.Exchange
}

// NewMemory creates an empty in-memory catalog with a root folder.
func NewMemory() *Memory {
	m := &Memory{}
	root := &model.TreeNode{
		ID:         uuid.NewString(),
		Name:       model.RootName,
		IsAbstract: true,
	}
	root.Path = []string{root.ID}
	m.nodes = append(m.nodes, root)
	return m
}

// Root returns the ID of the root folder.
func (m *Memory) Root() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[0].ID
}

// SetExchanges replaces the exchange list.
func (m *Memory) SetExchanges(exchanges []model.Exchange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges = append([]model.Exchange(nil), exchanges...)
}

// Add inserts a node under the given parent, minting an ID when the node has
// none, and returns the stored copy.
func (m *Memory) Add(parentID string, node *model.TreeNode) (*model.TreeNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent := m.lookup(parentID)
	if parent == nil {
		return nil, fmt.Errorf("add %s: parent %s not found", node.Name, parentID)
	}
	stored := node.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Path = append(append([]string(nil), parent.Path...), stored.ID)
	m.nodes = append(m.nodes, stored)
	return stored.Clone(), nil
}

// MustAdd is Add for fixture construction; it panics on a bad parent.
func (m *Memory) MustAdd(parentID string, node *model.TreeNode) *model.TreeNode {
	stored, err := m.Add(parentID, node)
	if err != nil {
		panic(err)
	}
	return stored
}

// Get fetches a node by ID. A missing node returns (nil, nil).
func (m *Memory) Get(_ context.Context, id string) (*model.TreeNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n := m.lookup(id); n != nil {
		return n.Clone(), nil
	}
	return nil, nil
}

// GetHeirs lists children of a node. The full flag is accepted for interface
// parity; in-memory nodes are always complete.
func (m *Memory) GetHeirs(_ context.Context, id string, recursive, _ bool) ([]model.TreeNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.TreeNode
	for _, n := range m.nodes {
		if n.ID == id {
			continue
		}
		if recursive {
			if n.InSubtree(id) {
				out = append(out, *n.Clone())
			}
		} else if n.Parent() == id {
			out = append(out, *n.Clone())
		}
	}
	return out, nil
}

// UUIDByPath resolves a name path against the stored tree.
func (m *Memory) UUIDByPath(_ context.Context, names ...string) (string, error) {
	return UUIDByPath(m.snapshot(), names)
}

// GetExchanges returns the configured exchange list.
func (m *Memory) GetExchanges(_ context.Context) ([]model.Exchange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Exchange(nil), m.exchanges...), nil
}

// Nodes returns a snapshot copy of the whole tree.
func (m *Memory) Nodes() []model.TreeNode {
	return m.snapshot()
}

func (m *Memory) snapshot() []model.TreeNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.TreeNode, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, *n.Clone())
	}
	return out
}

// lookup must be called with the lock held.
func (m *Memory) lookup(id string) *model.TreeNode {
	for _, n := range m.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
