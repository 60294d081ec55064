package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docvault/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) Backend {
	t.Helper()
	b, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	return b
}

func ptr(v int64) *int64 { return &v }

func TestLocal_WriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newLocal(t)

	require.NoError(t, b.Write(ctx, "id1", strings.NewReader("hello world"), 11))

	cs, err := b.Read(ctx, "id1", nil, nil, "a.txt")
	require.NoError(t, err)
	defer cs.Close()

	data, err := io.ReadAll(cs.Reader)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, int64(11), cs.Length)
	assert.Equal(t, "a.txt", cs.FileName)
	assert.False(t, cs.Partial)
}

func TestLocal_WriteExisting(t *testing.T) {
	ctx := context.Background()
	b := newLocal(t)

	require.NoError(t, b.Write(ctx, "id1", strings.NewReader("one"), 3))
	err := b.Write(ctx, "id1", strings.NewReader("two"), 3)
	assert.ErrorIs(t, err, ErrContentExists)
}

func TestLocal_WriteSizeMismatch(t *testing.T) {
	ctx := context.Background()
	b := newLocal(t)

	err := b.Write(ctx, "id1", strings.NewReader("abc"), 5)
	assert.Error(t, err)

	// The partial file must not linger.
	ok, err := b.Exists(ctx, "id1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocal_ReadRange(t *testing.T) {
	ctx := context.Background()
	b := newLocal(t)

	require.NoError(t, b.Write(ctx, "id1", strings.NewReader("hello world"), 11))

	tests := []struct {
		name   string
		offset *int64
		length *int64
		want   string
	}{
		{"offset and length", ptr(2), ptr(3), "llo"},
		{"offset only", ptr(6), nil, "world"},
		{"length only", nil, ptr(5), "hello"},
		{"length past end is clipped", ptr(6), ptr(100), "world"},
		{"offset past end yields empty", ptr(50), nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := b.Read(ctx, "id1", tt.offset, tt.length, "a.txt")
			require.NoError(t, err)
			defer cs.Close()

			data, err := io.ReadAll(cs.Reader)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
			assert.Equal(t, int64(len(tt.want)), cs.Length)
			assert.True(t, cs.Partial)
		})
	}
}

func TestLocal_ReadMissing(t *testing.T) {
	ctx := context.Background()
	b := newLocal(t)

	_, err := b.Read(ctx, "nope", nil, nil, "a.txt")
	assert.ErrorIs(t, err, ErrContentNotFound)
}

func TestLocal_ReadEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewLocal(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), nil, 0o644))

	_, err = b.Read(ctx, "empty", nil, nil, "a.txt")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestLocal_Delete(t *testing.T) {
	ctx := context.Background()
	b := newLocal(t)

	require.NoError(t, b.Write(ctx, "id1", strings.NewReader("data"), 4))
	require.NoError(t, b.Delete(ctx, "id1"))

	ok, err := b.Exists(ctx, "id1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, b.Delete(ctx, "id1"), ErrContentNotFound)
}

// An empty file counts as "no content" and is therefore refused by Delete.
// Surprising, but part of the backend contract.
func TestLocal_DeleteEmptyFileRefused(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewLocal(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), nil, 0o644))

	assert.ErrorIs(t, b.Delete(ctx, "empty"), ErrEmptyContent)

	// The file is still there.
	_, statErr := os.Stat(filepath.Join(dir, "empty"))
	assert.NoError(t, statErr)
}

func TestLocal_DeleteNonRegularRefused(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewLocal(dir)
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	assert.Error(t, b.Delete(ctx, "sub"))
}

func TestLocal_Stats(t *testing.T) {
	ctx := context.Background()
	b := newLocal(t)

	require.NoError(t, b.Write(ctx, "id1", strings.NewReader("hello"), 5))
	require.NoError(t, b.Write(ctx, "id2", strings.NewReader("world!"), 6))

	st, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Objects)
	assert.Equal(t, int64(11), st.TotalBytes)
}

func TestNew_Dispatch(t *testing.T) {
	b, err := New(config.StorageConfig{Backend: "local", Path: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, b.ID())

	_, err = New(config.StorageConfig{Backend: "local"})
	assert.Error(t, err)

	_, err = New(config.StorageConfig{Backend: "tape"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
