package storage

import (
	"context"
	"errors"
	"io"
)

// Package storage contains the pluggable binary storage backend the
// repository engine writes document payloads through. Two backends exist:
// local filesystem and S3-compatible object storage (MinIO). The backend is
// selected once at repository initialization via the configuration
// discriminator; it is never re-dispatched per call.

// Backend discriminator values accepted by the factory.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

var (
	// ErrContentExists indicates content is already present under the id.
	// Only the local backend returns it on Write; the object-storage backend
	// overwrites instead. Callers treat existence checks as their own guard,
	// so the asymmetry is part of the contract.
	ErrContentExists = errors.New("content already exists")

	// ErrContentNotFound indicates no content is stored under the id.
	ErrContentNotFound = errors.New("content not found")

	// ErrEmptyContent indicates the stored object has zero length. The local
	// backend treats an empty file as "no content", which also makes it not
	// deletable.
	ErrEmptyContent = errors.New("content is empty")

	// ErrUnknownBackend indicates an unrecognized storage discriminator.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// ContentStream is the result of a backend read: the payload reader plus the
// metadata callers need to serve it. Partial is true when a byte offset or
// length was applied, signaling that Content-Range semantics apply.
type ContentStream struct {
	FileName string
	MIMEType string
	Length   int64
	Partial  bool
	Reader   io.ReadCloser
}

// Close releases the underlying reader.
func (c *ContentStream) Close() error {
	if c.Reader == nil {
		return nil
	}
	return c.Reader.Close()
}

// Stats summarizes what a backend currently holds.
type Stats struct {
	Objects    int64 `json:"objects"`
	TotalBytes int64 `json:"total_bytes"`
}

// Backend is the capability interface for binary content storage.
type Backend interface {
	// ID returns the backend discriminator ("local" or "s3").
	ID() string

	// Write stores size bytes from r under id.
	Write(ctx context.Context, id string, r io.Reader, size int64) error

	// Read returns the content under id, clipped to the optional byte
	// offset/length without loading the whole object when avoidable.
	// fileName is carried through onto the returned stream for display.
	Read(ctx context.Context, id string, offset, length *int64, fileName string) (*ContentStream, error)

	// Delete removes the content under id.
	Delete(ctx context.Context, id string) error

	// Exists reports whether content is stored under id.
	Exists(ctx context.Context, id string) (bool, error)

	// Stats reports the object count and total bytes held by the backend.
	Stats(ctx context.Context) (Stats, error)
}

// clipRange resolves the effective start and length for a range read over an
// object of totalSize bytes.
func clipRange(totalSize int64, offset, length *int64) (start, n int64) {
	if offset != nil {
		start = *offset
	}
	if start > totalSize {
		start = totalSize
	}
	n = totalSize - start
	if length != nil && *length < n {
		n = *length
	}
	return start, n
}
