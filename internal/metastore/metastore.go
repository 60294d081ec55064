// Package metastore defines the metadata store client: opaque key -> node
// document CRUD plus the deterministic id derivation used by the hierarchy.
// Implementations live in subpackages (postgres, memory).
package metastore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"docvault/internal/model"
)

// ErrNotFound is returned when no node exists under the requested id.
var ErrNotFound = errors.New("node not found")

// Store is the narrow contract the repository engine consumes.
type Store interface {
	// Get loads the node stored under id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*model.Node, error)

	// Put stores the node under id, overwriting any previous value.
	Put(ctx context.Context, id string, node *model.Node) error

	// Delete removes the node stored under id. Deleting a missing id is not
	// an error.
	Delete(ctx context.Context, id string) error

	// Exists reports whether a node is stored under id.
	Exists(ctx context.Context, id string) (bool, error)

	// AllDocuments returns every document node in the store. It backs the
	// single hardcoded query translation; there is no general query support.
	AllDocuments(ctx context.Context) ([]*model.Node, error)
}

// ComputeID derives a child's id from its parent node and its name.
//
// The id is the URL-safe base64 encoding of the child's full path, so it is
// a pure function of the node's location: distinct full paths can never
// collide, and moving a node would require recomputing the ids of its whole
// subtree (move/rename is deliberately unsupported).
func ComputeID(parent *model.Node, name string) string {
	parentPath := "/"
	if !parent.IsRoot() {
		parentPath = parent.Path + parent.Name + "/"
	}
	return base64.RawURLEncoding.EncodeToString([]byte(parentPath + name))
}

// DecodePath reverses ComputeID, returning the full path encoded in an id.
// The root id is a constant, not an encoded path, and is handled explicitly.
func DecodePath(id string) (string, error) {
	if id == model.RootNodeID {
		return "/", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", fmt.Errorf("malformed node id %q: %w", id, err)
	}
	return string(raw), nil
}

// ParentPath returns the slash-terminated path a child of parent would carry
// in its Path field.
func ParentPath(parent *model.Node) string {
	if parent.IsRoot() {
		return "/"
	}
	return parent.Path + parent.Name + "/"
}
