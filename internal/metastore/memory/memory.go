// Package memory provides an in-memory metastore.Store. It is used by tests
// and works for single-process deployments where durability is not needed.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docvault/internal/metastore"
	"docvault/internal/model"
)

// NodeStore keeps node documents in a map guarded by a RWMutex. Nodes are
// copied on the way in and out so callers can't mutate stored state through
// shared pointers.
type NodeStore struct {
	mu    sync.RWMutex
	nodes map[string]*model.Node
}

// NewNodeStore creates an empty in-memory node store.
func NewNodeStore() *NodeStore {
	return &NodeStore{nodes: make(map[string]*model.Node)}
}

var _ metastore.Store = (*NodeStore)(nil)

func clone(n *model.Node) *model.Node {
	c := *n
	if n.Children != nil {
		c.Children = append([]string(nil), n.Children...)
	}
	if n.Extra != nil {
		c.Extra = make(map[string]any, len(n.Extra))
		for k, v := range n.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Get loads the node stored under id.
func (s *NodeStore) Get(ctx context.Context, id string) (*model.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, metastore.ErrNotFound)
	}
	return clone(n), nil
}

// Put stores the node under id.
func (s *NodeStore) Put(ctx context.Context, id string, node *model.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[id] = clone(node)
	return nil
}

// Delete removes the node stored under id.
func (s *NodeStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
	return nil
}

// Exists reports whether a node is stored under id.
func (s *NodeStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok, nil
}

// AllDocuments returns every document node, ordered by name.
func (s *NodeStore) AllDocuments(ctx context.Context) ([]*model.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*model.Node, 0)
	for _, n := range s.nodes {
		if n.Kind == model.KindDocument {
			docs = append(docs, clone(n))
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Name != docs[j].Name {
			return docs[i].Name < docs[j].Name
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}
