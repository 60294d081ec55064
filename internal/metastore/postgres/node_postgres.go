package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"docvault/internal/metastore"
	"docvault/internal/model"
)

// NodeStore is a PostgreSQL implementation of metastore.Store. Nodes are
// stored as JSONB documents keyed by their opaque id; the store knows nothing
// about the hierarchy beyond the one documents filter backing AllDocuments.
type NodeStore struct {
	db *sql.DB
}

// NewNodeStore creates a new PostgreSQL-backed node store.
func NewNodeStore(db *sql.DB) *NodeStore {
	return &NodeStore{db: db}
}

var _ metastore.Store = (*NodeStore)(nil)

// Get loads the node document stored under id.
func (s *NodeStore) Get(ctx context.Context, id string) (*model.Node, error) {
	const q = `SELECT doc FROM nodes WHERE id = $1`
	var raw []byte
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %s: %w", id, metastore.ErrNotFound)
		}
		return nil, err
	}
	var n model.Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode node %s: %w", id, err)
	}
	return &n, nil
}

// Put upserts the node document under id.
func (s *NodeStore) Put(ctx context.Context, id string, node *model.Node) error {
	raw, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("encode node %s: %w", id, err)
	}
	const q = `
		INSERT INTO nodes (id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`
	_, err = s.db.ExecContext(ctx, q, id, raw)
	return err
}

// Delete removes the node document under id. Deleting a missing id is not an
// error.
func (s *NodeStore) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM nodes WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// Exists reports whether a node document is stored under id.
func (s *NodeStore) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM nodes WHERE id = $1)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AllDocuments returns every document node, ordered by name. This is the
// single backend query the engine's query pass-through translates to.
func (s *NodeStore) AllDocuments(ctx context.Context) ([]*model.Node, error) {
	const q = `
		SELECT doc FROM nodes
		WHERE doc->>'kind' = 'document'
		ORDER BY doc->>'name', id
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := make([]*model.Node, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var n model.Node
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("decode node document: %w", err)
		}
		nodes = append(nodes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}
