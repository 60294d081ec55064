package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// localBackend stores content as files under a root directory, using the
// (filesystem-safe) node id as the file name.
type localBackend struct {
	root string
}

// NewLocal creates a filesystem-backed storage backend rooted at root,
// creating the directory if needed.
func NewLocal(root string) (Backend, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage: path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: create root directory: %w", err)
	}
	return &localBackend{root: root}, nil
}

func (b *localBackend) ID() string { return BackendLocal }

func (b *localBackend) path(id string) string {
	return filepath.Join(b.root, id)
}

// Write stores the content under id. Unlike the object-storage backend,
// writing over existing content fails with ErrContentExists.
func (b *localBackend) Write(ctx context.Context, id string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(b.path(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("content %s: %w", id, ErrContentExists)
		}
		return fmt.Errorf("create content file: %w", err)
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(b.path(id))
		return fmt.Errorf("write content %s: %w", id, err)
	}
	if size >= 0 && written != size {
		_ = os.Remove(b.path(id))
		return fmt.Errorf("write content %s: wrote %d bytes, expected %d", id, written, size)
	}
	return nil
}

// Read opens the content file and clips it to the requested byte range by
// seeking, without buffering the object.
func (b *localBackend) Read(ctx context.Context, id string, offset, length *int64, fileName string) (*ContentStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(b.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content %s: %w", id, ErrContentNotFound)
		}
		return nil, fmt.Errorf("open content %s: %w", id, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat content %s: %w", id, err)
	}
	if info.Size() == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("content %s: %w", id, ErrEmptyContent)
	}

	start, n := clipRange(info.Size(), offset, length)
	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("seek content %s: %w", id, err)
		}
	}

	var reader io.ReadCloser = f
	partial := offset != nil || length != nil
	if partial {
		reader = &limitReadCloser{Reader: io.LimitReader(f, n), closer: f}
	}
	return &ContentStream{
		FileName: fileName,
		Length:   n,
		Partial:  partial,
		Reader:   reader,
	}, nil
}

// Delete removes the content file. A target that is not a regular file or
// has zero length is refused: an empty file counts as "no content" and is
// therefore not deletable.
func (b *localBackend) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(b.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("content %s: %w", id, ErrContentNotFound)
		}
		return fmt.Errorf("stat content %s: %w", id, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("content %s: not a regular file", id)
	}
	if info.Size() == 0 {
		return fmt.Errorf("content %s: %w", id, ErrEmptyContent)
	}
	if err := os.Remove(b.path(id)); err != nil {
		return fmt.Errorf("delete content %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a content file is present under id.
func (b *localBackend) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(b.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat content %s: %w", id, err)
	}
	return true, nil
}

// Stats walks the root directory counting regular files and their bytes.
func (b *localBackend) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := filepath.WalkDir(b.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		st.Objects++
		st.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("walk storage root: %w", err)
	}
	return st, nil
}

// limitReadCloser bounds reads to a byte range while closing the underlying
// file handle.
type limitReadCloser struct {
	io.Reader
	closer io.Closer
}

func (l *limitReadCloser) Close() error {
	return l.closer.Close()
}
