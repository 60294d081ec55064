package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docvault/internal/config"
)

// minioBackend implements Backend against an S3-compatible object store
// (MinIO, AWS S3, etc.). Objects live under a folder prefix inside one
// bucket. It is safe for concurrent use by multiple goroutines.
//
// Unlike the local backend, Write overwrites existing content; callers that
// need create-once semantics do their own Exists check first.
type minioBackend struct {
	client *minio.Client
	bucket string
	folder string
}

// NewMinIO creates an object-storage backend backed by MinIO. It validates
// connectivity and ensures the bucket exists (creates it if missing).
func NewMinIO(cfg config.MinIOConfig) (Backend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	b := &minioBackend{client: cli, bucket: cfg.Bucket, folder: cfg.Folder}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure bucket exists.
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return b, nil
}

func (b *minioBackend) ID() string { return BackendS3 }

func (b *minioBackend) key(id string) string {
	return path.Join(b.folder, id)
}

// Write uploads the content using streaming I/O. Existing content under the
// same id is overwritten.
func (b *minioBackend) Write(ctx context.Context, id string, r io.Reader, size int64) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.key(id), r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", id, err)
	}
	return nil
}

// Read stats the object, then downloads it with an HTTP Range header when a
// byte offset or length is requested, so partial reads never transfer the
// whole object.
func (b *minioBackend) Read(ctx context.Context, id string, offset, length *int64, fileName string) (*ContentStream, error) {
	key := b.key(id)

	st, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("content %s: %w", id, ErrContentNotFound)
		}
		return nil, fmt.Errorf("stat object %s: %w", id, err)
	}
	if st.Size == 0 {
		return nil, fmt.Errorf("content %s: %w", id, ErrEmptyContent)
	}

	start, n := clipRange(st.Size, offset, length)
	partial := offset != nil || length != nil

	opts := minio.GetObjectOptions{}
	if partial && n > 0 {
		if err := opts.SetRange(start, start+n-1); err != nil {
			return nil, fmt.Errorf("range for object %s: %w", id, err)
		}
	}

	obj, err := b.client.GetObject(ctx, b.bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", id, err)
	}

	var reader io.ReadCloser = obj
	if partial && n == 0 {
		_ = obj.Close()
		reader = io.NopCloser(bytes.NewReader(nil))
	}
	return &ContentStream{
		FileName: fileName,
		MIMEType: st.ContentType,
		Length:   n,
		Partial:  partial,
		Reader:   reader,
	}, nil
}

// Delete removes the object under id.
func (b *minioBackend) Delete(ctx context.Context, id string) error {
	if err := b.client.RemoveObject(ctx, b.bucket, b.key(id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", id, err)
	}
	return nil
}

// Exists reports whether an object is stored under id.
func (b *minioBackend) Exists(ctx context.Context, id string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucket, b.key(id), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", id, err)
	}
	return true, nil
}

// Stats lists every object under the folder prefix. The client pages through
// the listing with continuation markers internally, looping until no more
// pages remain.
func (b *minioBackend) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	prefix := b.folder
	if prefix != "" {
		prefix += "/"
	}
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return Stats{}, fmt.Errorf("list objects: %w", obj.Err)
		}
		st.Objects++
		st.TotalBytes += obj.Size
	}
	return st, nil
}
