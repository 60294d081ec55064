package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"docvault/internal/auth"
	"docvault/internal/catalog"
	"docvault/internal/metastore"
	"docvault/internal/model"
	"docvault/internal/storage"
)

// allDocumentsQuery is the only statement the query pass-through accepts.
// This is a placeholder, not a query engine: the literal maps to one backend
// query and everything else is rejected.
const allDocumentsQuery = "SELECT * FROM document"

// ContentUpload carries an incoming document payload.
type ContentUpload struct {
	Reader   io.Reader
	Size     int64
	MIMEType string
}

// ChildrenResult is a page of a folder's resolved children.
type ChildrenResult struct {
	Items        []*Object `json:"items"`
	HasMoreItems bool      `json:"has_more_items"`
}

// Engine is the repository engine: it orchestrates node lifecycle, property
// compilation and filtering, permission checks, hierarchy maintenance and
// content-stream assembly over the metadata store and the storage backend.
//
// All dependencies are injected at construction; there are no package-level
// singletons. Calls execute synchronously on the caller's goroutine.
//
// Known limitation: a folder's child list is maintained by read-modify-write
// of the parent node without an optimistic-concurrency token, so two
// concurrent creates under the same parent can race and one insertion can be
// lost (last writer wins on the parent node). This matches the source
// system's behavior and is deliberately not fixed here.
type Engine struct {
	store   metastore.Store
	backend storage.Backend
	catalog catalog.Catalog
	users   *auth.Table

	skippedResolutions atomic.Int64
	logEnc             *json.Encoder
}

// New constructs an Engine with explicit dependencies.
func New(store metastore.Store, backend storage.Backend, cat catalog.Catalog, users *auth.Table) *Engine {
	return &Engine{
		store:   store,
		backend: backend,
		catalog: cat,
		users:   users,
		logEnc:  json.NewEncoder(os.Stdout),
	}
}

// Init bootstraps the repository: the root folder node is created under its
// well-known id if it does not exist yet.
func (e *Engine) Init(ctx context.Context) error {
	exists, err := e.store.Exists(ctx, model.RootNodeID)
	if err != nil {
		return fmt.Errorf("%w: check root node: %v", ErrStorage, err)
	}
	if exists {
		return nil
	}
	now := time.Now().UnixMilli()
	root := &model.Node{
		ID:               model.RootNodeID,
		TypeID:           "folder",
		Kind:             model.KindFolder,
		Name:             "",
		Path:             "/",
		Children:         []string{},
		CreatedBy:        "system",
		LastModifiedBy:   "system",
		CreatedAtMillis:  now,
		ModifiedAtMillis: now,
	}
	if err := e.store.Put(ctx, model.RootNodeID, root); err != nil {
		return fmt.Errorf("%w: create root node: %v", ErrStorage, err)
	}
	return nil
}

// CheckUser validates the calling user against the permission table and
// returns the user's read-only flag. A user absent from the table cannot use
// the repository at all; a read-only user cannot perform writes.
func (e *Engine) CheckUser(ctx context.Context, user string, writeRequired bool) (readOnly bool, err error) {
	readOnly, ok := e.users.Lookup(user)
	if !ok {
		return false, fmt.Errorf("%w: unknown user %q", ErrPermissionDenied, user)
	}
	if writeRequired && readOnly {
		return true, fmt.Errorf("%w: user %q is read-only", ErrPermissionDenied, user)
	}
	return readOnly, nil
}

// CreateFolder creates a folder under parentID and returns the new node id.
func (e *Engine) CreateFolder(ctx context.Context, user string, props map[string]any, parentID string) (string, error) {
	if _, err := e.CheckUser(ctx, user, true); err != nil {
		return "", err
	}

	def, err := e.resolveType(props, model.KindFolder)
	if err != nil {
		return "", err
	}
	name, extra, err := validateProperties(def, props)
	if err != nil {
		return "", err
	}

	parent, err := e.loadParentFolder(ctx, parentID)
	if err != nil {
		return "", err
	}

	newID := metastore.ComputeID(parent, name)
	if slices.Contains(parent.Children, newID) {
		return "", fmt.Errorf("%w: %q already exists under %s", ErrNameConstraint, name, parent.ID)
	}

	now := time.Now().UnixMilli()
	node := &model.Node{
		ID:               newID,
		TypeID:           def.ID,
		Kind:             model.KindFolder,
		Name:             name,
		Path:             metastore.ParentPath(parent),
		ParentID:         parent.ID,
		Children:         []string{},
		CreatedBy:        user,
		LastModifiedBy:   user,
		CreatedAtMillis:  now,
		ModifiedAtMillis: now,
		Extra:            extra,
	}
	if err := e.store.Put(ctx, newID, node); err != nil {
		return "", fmt.Errorf("%w: persist folder node: %v", ErrStorage, err)
	}

	if err := e.appendChild(ctx, parent, newID, user); err != nil {
		// The child node is already persisted; a failed parent update leaves
		// it dangling. Known consistency gap, surfaced rather than repaired.
		return "", err
	}
	return newID, nil
}

// CreateDocument creates a document under parentID, optionally writing its
// content stream through the storage backend, and returns the new node id.
// On a content-write failure, the already-persisted document node is removed
// again before the storage error is surfaced.
func (e *Engine) CreateDocument(ctx context.Context, user string, props map[string]any, parentID string, upload *ContentUpload, versioningState string) (string, error) {
	if _, err := e.CheckUser(ctx, user, true); err != nil {
		return "", err
	}
	if versioningState != "" && versioningState != "none" {
		return "", fmt.Errorf("%w: versioning state %q is not supported", ErrInvalidArgument, versioningState)
	}

	def, err := e.resolveType(props, model.KindDocument)
	if err != nil {
		return "", err
	}
	name, extra, err := validateProperties(def, props)
	if err != nil {
		return "", err
	}

	parent, err := e.loadParentFolder(ctx, parentID)
	if err != nil {
		return "", err
	}

	newID := metastore.ComputeID(parent, name)
	if slices.Contains(parent.Children, newID) {
		return "", fmt.Errorf("%w: %q already exists under %s", ErrNameConstraint, name, parent.ID)
	}

	now := time.Now().UnixMilli()
	node := &model.Node{
		ID:               newID,
		TypeID:           def.ID,
		Kind:             model.KindDocument,
		Name:             name,
		Path:             metastore.ParentPath(parent),
		ParentID:         parent.ID,
		CreatedBy:        user,
		LastModifiedBy:   user,
		CreatedAtMillis:  now,
		ModifiedAtMillis: now,
		FileName:         name,
		Extra:            extra,
	}
	if upload != nil {
		node.ContentLength = upload.Size
		node.ContentType = upload.MIMEType
		if node.ContentType == "" {
			node.ContentType = "application/octet-stream"
		}
	}

	if err := e.store.Put(ctx, newID, node); err != nil {
		return "", fmt.Errorf("%w: persist document node: %v", ErrStorage, err)
	}

	if upload != nil {
		if err := e.backend.Write(ctx, newID, upload.Reader, upload.Size); err != nil {
			// Compensating rollback: remove the node that was just persisted.
			if delErr := e.store.Delete(ctx, newID); delErr != nil {
				return "", fmt.Errorf("%w: content write failed: %v; rollback delete failed: %v", ErrStorage, err, delErr)
			}
			return "", fmt.Errorf("%w: content write failed: %v", ErrStorage, err)
		}
	}

	if err := e.appendChild(ctx, parent, newID, user); err != nil {
		return "", err
	}
	return newID, nil
}

// DeleteObject deletes a node: it is unlinked from its parent's child list
// first, then its metadata is removed, and for documents the backend content
// as well. Metadata and content deletion failures are reported independently.
func (e *Engine) DeleteObject(ctx context.Context, user, id string) error {
	if _, err := e.CheckUser(ctx, user, true); err != nil {
		return err
	}

	node, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
		}
		return fmt.Errorf("%w: load node %s: %v", ErrStorage, id, err)
	}
	if node.IsRoot() {
		return fmt.Errorf("%w: the root folder cannot be deleted", ErrConstraint)
	}
	if node.IsFolder() && len(node.Children) > 0 {
		return fmt.Errorf("%w: folder %s is not empty", ErrConstraint, id)
	}

	parent, err := e.store.Get(ctx, node.ParentID)
	if err != nil {
		return fmt.Errorf("%w: load parent %s: %v", ErrStorage, node.ParentID, err)
	}
	idx := slices.Index(parent.Children, id)
	if idx < 0 {
		// Referential-integrity check: the node claims this parent but the
		// parent's child list does not know it.
		return fmt.Errorf("%w: node %s is not listed in parent %s", ErrStorage, id, parent.ID)
	}
	parent.Children = slices.Delete(parent.Children, idx, idx+1)
	parent.LastModifiedBy = user
	parent.ModifiedAtMillis = time.Now().UnixMilli()
	if err := e.store.Put(ctx, parent.ID, parent); err != nil {
		return fmt.Errorf("%w: update parent %s: %v", ErrStorage, parent.ID, err)
	}

	metaErr := e.store.Delete(ctx, id)
	var contentErr error
	if node.Kind == model.KindDocument {
		if err := e.backend.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrContentNotFound) {
			contentErr = err
		}
	}
	switch {
	case metaErr != nil && contentErr != nil:
		return fmt.Errorf("%w: delete metadata: %v; delete content: %v", ErrStorage, metaErr, contentErr)
	case metaErr != nil:
		return fmt.Errorf("%w: delete metadata: %v", ErrStorage, metaErr)
	case contentErr != nil:
		return fmt.Errorf("%w: delete content: %v", ErrStorage, contentErr)
	}
	return nil
}

// GetObject returns the compiled, filtered property set of a node.
func (e *Engine) GetObject(ctx context.Context, user, id string, filter []string) (*Object, error) {
	if _, err := e.CheckUser(ctx, user, false); err != nil {
		return nil, err
	}
	node, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
		}
		return nil, fmt.Errorf("%w: load node %s: %v", ErrStorage, id, err)
	}
	return e.compileProperties(node, filter), nil
}

// GetChildren resolves a folder's child list to compiled property sets.
// Children that fail to resolve are skipped (counted, not errored); paging
// with skipCount/maxItems applies to the resolved list, and HasMoreItems is
// set when maxItems truncates it. maxItems <= 0 means no limit.
func (e *Engine) GetChildren(ctx context.Context, user, folderID string, filter []string, maxItems, skipCount int) (*ChildrenResult, error) {
	if _, err := e.CheckUser(ctx, user, false); err != nil {
		return nil, err
	}
	folder, err := e.store.Get(ctx, folderID)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, folderID)
		}
		return nil, fmt.Errorf("%w: load node %s: %v", ErrStorage, folderID, err)
	}
	if !folder.IsFolder() {
		return nil, fmt.Errorf("%w: %s is not a folder", ErrObjectNotFound, folderID)
	}

	resolved := make([]*Object, 0, len(folder.Children))
	for _, childID := range folder.Children {
		child, err := e.store.Get(ctx, childID)
		if err != nil {
			// A dangling child id is treated as "not indexed", not an error.
			e.skippedResolutions.Add(1)
			e.logEvent(map[string]any{
				"component": "engine",
				"event":     "child_resolution_skipped",
				"folder_id": folderID,
				"child_id":  childID,
				"error":     err.Error(),
			})
			continue
		}
		resolved = append(resolved, e.compileProperties(child, filter))
	}

	if skipCount < 0 {
		skipCount = 0
	}
	if skipCount > len(resolved) {
		skipCount = len(resolved)
	}
	page := resolved[skipCount:]
	hasMore := false
	if maxItems > 0 && len(page) > maxItems {
		page = page[:maxItems]
		hasMore = true
	}
	return &ChildrenResult{Items: page, HasMoreItems: hasMore}, nil
}

// GetObjectParents returns the compiled parent of a node; the root has none.
func (e *Engine) GetObjectParents(ctx context.Context, user, id string, filter []string) ([]*Object, error) {
	if _, err := e.CheckUser(ctx, user, false); err != nil {
		return nil, err
	}
	node, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
		}
		return nil, fmt.Errorf("%w: load node %s: %v", ErrStorage, id, err)
	}
	if node.IsRoot() {
		return []*Object{}, nil
	}
	parent, err := e.store.Get(ctx, node.ParentID)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			return nil, fmt.Errorf("%w: parent %s", ErrObjectNotFound, node.ParentID)
		}
		return nil, fmt.Errorf("%w: load parent %s: %v", ErrStorage, node.ParentID, err)
	}
	return []*Object{e.compileProperties(parent, filter)}, nil
}

// GetContentStream returns a document's payload, clipped to the optional
// byte offset/length. Any storage failure surfaces as ObjectNotFound.
func (e *Engine) GetContentStream(ctx context.Context, user, id string, offset, length *int64) (*storage.ContentStream, error) {
	if _, err := e.CheckUser(ctx, user, false); err != nil {
		return nil, err
	}
	node, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
		}
		return nil, fmt.Errorf("%w: load node %s: %v", ErrStorage, id, err)
	}
	cs, err := e.backend.Read(ctx, id, offset, length, node.FileName)
	if err != nil {
		return nil, fmt.Errorf("%w: content of %s: %v", ErrObjectNotFound, id, err)
	}
	if cs.MIMEType == "" {
		cs.MIMEType = node.ContentType
	}
	return cs, nil
}

// Query is a pass-through for exactly one literal statement selecting all
// documents. Any other input is rejected; this is not a query engine.
func (e *Engine) Query(ctx context.Context, user, statement string) ([]*Object, error) {
	if _, err := e.CheckUser(ctx, user, false); err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(statement), allDocumentsQuery) {
		return nil, fmt.Errorf("%w: unsupported query %q", ErrInvalidArgument, statement)
	}
	docs, err := e.store.AllDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query documents: %v", ErrStorage, err)
	}
	out := make([]*Object, 0, len(docs))
	for _, d := range docs {
		out = append(out, e.compileProperties(d, nil))
	}
	return out, nil
}

// SkippedResolutions returns how many child ids failed to resolve during
// listings since the engine was constructed.
func (e *Engine) SkippedResolutions() int64 {
	return e.skippedResolutions.Load()
}

// Stats reports what the storage backend currently holds.
func (e *Engine) Stats(ctx context.Context) (storage.Stats, error) {
	return e.backend.Stats(ctx)
}

// resolveType extracts the type id property and validates it against the
// catalog, requiring the given base kind.
func (e *Engine) resolveType(props map[string]any, want model.Kind) (*catalog.TypeDefinition, error) {
	typeID, _ := props[model.PropertyTypeID].(string)
	if typeID == "" {
		typeID = string(want)
	}
	def, err := e.catalog.Definition(typeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	if def.Kind != want {
		return nil, fmt.Errorf("%w: type %q is not a %s type", ErrConstraint, typeID, want)
	}
	return def, nil
}

// loadParentFolder loads and validates the parent of a create operation.
func (e *Engine) loadParentFolder(ctx context.Context, parentID string) (*model.Node, error) {
	parent, err := e.store.Get(ctx, parentID)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			return nil, fmt.Errorf("%w: parent %s", ErrObjectNotFound, parentID)
		}
		return nil, fmt.Errorf("%w: load parent %s: %v", ErrStorage, parentID, err)
	}
	if !parent.IsFolder() {
		return nil, fmt.Errorf("%w: parent %s is not a folder", ErrObjectNotFound, parentID)
	}
	return parent, nil
}

// appendChild links a freshly created node into its parent's child list.
// This is a plain read-modify-write on the already-loaded parent; see the
// Engine doc comment for the concurrency caveat.
func (e *Engine) appendChild(ctx context.Context, parent *model.Node, childID, user string) error {
	parent.Children = append(parent.Children, childID)
	parent.LastModifiedBy = user
	parent.ModifiedAtMillis = time.Now().UnixMilli()
	if err := e.store.Put(ctx, parent.ID, parent); err != nil {
		return fmt.Errorf("%w: update parent %s children: %v", ErrStorage, parent.ID, err)
	}
	return nil
}

// logUnknownFilter records a requested filter name that matches no property.
func (e *Engine) logUnknownFilter(nodeID, queryName string) {
	e.logEvent(map[string]any{
		"component": "engine",
		"event":     "unknown_filter_property",
		"node_id":   nodeID,
		"property":  queryName,
	})
}

// logEvent writes one JSON log line to stdout.
func (e *Engine) logEvent(fields map[string]any) {
	fields["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	if err := e.logEnc.Encode(fields); err != nil {
		log.Printf("failed to encode log event: %v", err)
	}
}
