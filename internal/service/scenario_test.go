package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"docvault/internal/auth"
	"docvault/internal/catalog"
	"docvault/internal/metastore/memory"
	"docvault/internal/model"
	"docvault/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Drives a full document lifecycle against the in-memory metadata store and a
// real filesystem backend: no mocks, real bytes.
func TestEngine_Lifecycle(t *testing.T) {
	ctx := context.Background()

	store := memory.NewNodeStore()
	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	engine := New(store, backend, catalog.NewStatic(), testUsers())

	require.NoError(t, engine.Init(ctx))
	// Init is idempotent.
	require.NoError(t, engine.Init(ctx))

	root, err := engine.GetObject(ctx, "alice", model.RootNodeID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.RootNodeID, root.Info.ID)

	folderID, err := engine.CreateFolder(ctx, "alice",
		map[string]any{model.PropertyName: "docs"}, model.RootNodeID)
	require.NoError(t, err)

	rootChildren, err := engine.GetChildren(ctx, "alice", model.RootNodeID, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, rootChildren.Items, 1)
	assert.Equal(t, folderID, rootChildren.Items[0].Info.ID)

	docID, err := engine.CreateDocument(ctx, "alice",
		map[string]any{model.PropertyName: "a.txt"}, folderID,
		&ContentUpload{Reader: strings.NewReader("hello"), Size: 5, MIMEType: "text/plain"},
		"none")
	require.NoError(t, err)

	// Ids derive from the path, so the same path always maps to the same id.
	again, err := engine.GetObject(ctx, "alice", docID, nil)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", again.Info.Name)
	assert.Equal(t, folderID, again.Info.ParentID)

	t.Run("full content stream", func(t *testing.T) {
		cs, err := engine.GetContentStream(ctx, "alice", docID, nil, nil)
		require.NoError(t, err)
		defer cs.Close()

		data, err := io.ReadAll(cs.Reader)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
		assert.Equal(t, int64(5), cs.Length)
		assert.Equal(t, "text/plain", cs.MIMEType)
		assert.False(t, cs.Partial)
	})

	t.Run("byte range", func(t *testing.T) {
		offset, length := int64(2), int64(3)
		cs, err := engine.GetContentStream(ctx, "alice", docID, &offset, &length)
		require.NoError(t, err)
		defer cs.Close()

		data, err := io.ReadAll(cs.Reader)
		require.NoError(t, err)
		assert.Equal(t, "llo", string(data))
		assert.True(t, cs.Partial)
	})

	t.Run("listing and parents", func(t *testing.T) {
		res, err := engine.GetChildren(ctx, "bob", folderID, nil, 0, 0)
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, docID, res.Items[0].Info.ID)

		parents, err := engine.GetObjectParents(ctx, "bob", docID, nil)
		require.NoError(t, err)
		require.Len(t, parents, 1)
		assert.Equal(t, folderID, parents[0].Info.ID)
	})

	t.Run("query returns the document", func(t *testing.T) {
		out, err := engine.Query(ctx, "bob", "SELECT * FROM document")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, docID, out[0].Info.ID)
	})

	t.Run("sequential siblings both present", func(t *testing.T) {
		id2, err := engine.CreateDocument(ctx, "alice",
			map[string]any{model.PropertyName: "b.txt"}, folderID,
			&ContentUpload{Reader: strings.NewReader("world"), Size: 5}, "")
		require.NoError(t, err)

		res, err := engine.GetChildren(ctx, "alice", folderID, nil, 0, 0)
		require.NoError(t, err)
		assert.Len(t, res.Items, 2)

		require.NoError(t, engine.DeleteObject(ctx, "alice", id2))
	})

	t.Run("read-only user reads but cannot write", func(t *testing.T) {
		_, err := engine.GetObject(ctx, "bob", docID, nil)
		assert.NoError(t, err)

		_, err = engine.CreateFolder(ctx, "bob",
			map[string]any{model.PropertyName: "nope"}, model.RootNodeID)
		assert.ErrorIs(t, err, ErrPermissionDenied)

		assert.ErrorIs(t, engine.DeleteObject(ctx, "bob", docID), ErrPermissionDenied)
	})

	t.Run("folder with children resists deletion", func(t *testing.T) {
		assert.ErrorIs(t, engine.DeleteObject(ctx, "alice", folderID), ErrConstraint)
	})

	t.Run("delete document then folder", func(t *testing.T) {
		require.NoError(t, engine.DeleteObject(ctx, "alice", docID))

		res, err := engine.GetChildren(ctx, "alice", folderID, nil, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, res.Items)

		exists, err := store.Exists(ctx, docID)
		require.NoError(t, err)
		assert.False(t, exists)
		exists, err = backend.Exists(ctx, docID)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = engine.GetContentStream(ctx, "alice", docID, nil, nil)
		assert.ErrorIs(t, err, ErrObjectNotFound)

		require.NoError(t, engine.DeleteObject(ctx, "alice", folderID))
	})
}

// A second create under the same parent with the same name must collide even
// though the first node was written by a different call.
func TestEngine_DuplicateNameAcrossKinds(t *testing.T) {
	ctx := context.Background()

	store := memory.NewNodeStore()
	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	engine := New(store, backend, catalog.NewStatic(), testUsers())
	require.NoError(t, engine.Init(ctx))

	_, err = engine.CreateFolder(ctx, "alice",
		map[string]any{model.PropertyName: "report"}, model.RootNodeID)
	require.NoError(t, err)

	_, err = engine.CreateDocument(ctx, "alice",
		map[string]any{model.PropertyName: "report"}, model.RootNodeID, nil, "")
	assert.ErrorIs(t, err, ErrNameConstraint)
}

func TestEngine_ParsedUserTable(t *testing.T) {
	ctx := context.Background()

	tab, err := auth.Parse("alice:rw,bob:ro")
	require.NoError(t, err)

	store := memory.NewNodeStore()
	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	engine := New(store, backend, catalog.NewStatic(), tab)
	require.NoError(t, engine.Init(ctx))

	_, err = engine.CreateFolder(ctx, "alice",
		map[string]any{model.PropertyName: "docs"}, model.RootNodeID)
	assert.NoError(t, err)

	_, err = engine.GetObject(ctx, "mallory", model.RootNodeID, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
