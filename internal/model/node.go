package model

import (
	"strings"
	"time"
)

// RootNodeID is the fixed, well-known id of the repository's top-level
// folder. Every collaborator that addresses the root uses this constant;
// it is never derived from a path.
const RootNodeID = "@root@"

// Kind discriminates the two node flavors in the hierarchy.
type Kind string

const (
	KindFolder   Kind = "folder"
	KindDocument Kind = "document"
)

// Well-known property query names used by the engine and the catalog.
const (
	PropertyID               = "id"
	PropertyTypeID           = "typeId"
	PropertyName             = "name"
	PropertyDescription      = "description"
	PropertyCreatedBy        = "createdBy"
	PropertyCreationDate     = "creationDate"
	PropertyLastModifiedBy   = "lastModifiedBy"
	PropertyModificationDate = "lastModificationDate"
	PropertyParentID         = "parentId"
	PropertyPath             = "path"
	PropertyContentType      = "contentType"
	PropertyFileName         = "fileName"
	PropertyContentLength    = "contentLength"
)

// Node is the unit of the hierarchy: a Folder or a Document.
// This is a pure domain model; it is what the metadata store serializes.
// The binary payload of a Document is NOT embedded here; it lives in the
// storage backend under the same id.
type Node struct {
	ID     string `json:"id"`
	TypeID string `json:"type_id"`
	Kind   Kind   `json:"kind"`
	Name   string `json:"name"`

	// Path is the slash-terminated path of the parent folder, not including
	// this node's own name. Combined with Name it yields the full path.
	Path     string `json:"path"`
	ParentID string `json:"parent_id,omitempty"`

	// Children holds the ordered child node ids. Present only on folders and
	// the sole source of truth for folder contents.
	Children []string `json:"children,omitempty"`

	CreatedBy        string `json:"created_by"`
	LastModifiedBy   string `json:"last_modified_by"`
	CreatedAtMillis  int64  `json:"created_at"`
	ModifiedAtMillis int64  `json:"modified_at"`

	// Document-only attributes describing the external binary payload.
	ContentType   string `json:"content_type,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	ContentLength int64  `json:"content_length,omitempty"`

	// Extra holds catalog-defined properties outside the fixed fields above
	// (e.g. description), validated against the type schema at create time.
	Extra map[string]any `json:"properties,omitempty"`
}

// IsRoot reports whether the node is the repository root.
func (n *Node) IsRoot() bool {
	return n.ID == RootNodeID
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// FullPath returns the node's complete path, slash-terminated for the root.
func (n *Node) FullPath() string {
	if n.IsRoot() {
		return "/"
	}
	return n.Path + n.Name
}

// CreatedAt exposes the creation timestamp as a calendar value.
func (n *Node) CreatedAt() time.Time {
	return time.UnixMilli(n.CreatedAtMillis).UTC()
}

// ModifiedAt exposes the last-modification timestamp as a calendar value.
func (n *Node) ModifiedAt() time.Time {
	return time.UnixMilli(n.ModifiedAtMillis).UTC()
}

// ValidName reports whether name is usable as a node name: non-empty and
// free of path-separator characters.
func ValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`)
}
