// Package storage uploads files to an S3-compatible object store and
// builds their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Default bucket names.
const (
	BucketCarImages     = "car-images"
	BucketFinancingDocs = "financing-docs"
	BucketBlogImages    = "blog-images"
)

// DefaultMaxFileSize applies to buckets without an explicit limit (5 MiB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

var (
	// ErrFileTooLarge is returned before any network call when a file
	// exceeds its bucket's limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyFile is returned for zero-byte uploads.
	ErrEmptyFile = errors.New("file is empty")
)

// Client is the subset of *minio.Client the uploader needs.
type Client interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucket, policy string) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// NewMinioClient connects to an S3-compatible endpoint with static credentials.
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", endpoint, err)
	}
	return client, nil
}

// Options configures an Uploader.
type Options struct {
	// PublicBaseURL prefixes every object URL, e.g. "http://localhost:9000".
	PublicBaseURL string
	// MaxSizes holds per-bucket size limits in bytes.
	MaxSizes map[string]int64
	Limiter  *Limiter
}

// File is an upload candidate.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Object is a stored file.
type Object struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
}

// Uploader stores files in buckets that it creates on first use.
type Uploader struct {
	client  Client
	baseURL string
	sizes   map[string]int64
	limiter *Limiter

	mu    sync.Mutex
	ready map[string]bool
}

// NewUploader wraps client.
func NewUploader(client Client, opts Options) *Uploader {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxConcurrentUploads, DefaultMaxWaitTime)
	}
	sizes := make(map[string]int64, len(opts.MaxSizes))
	for b, n := range opts.MaxSizes {
		sizes[b] = n
	}
	return &Uploader{
		client:  client,
		baseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		sizes:   sizes,
		limiter: limiter,
		ready:   make(map[string]bool),
	}
}

// Limiter returns the upload limiter, for shutdown draining.
func (u *Uploader) Limiter() *Limiter {
	return u.limiter
}

// MaxSize returns the size limit for bucket.
func (u *Uploader) MaxSize(bucket string) int64 {
	if n, ok := u.sizes[bucket]; ok && n > 0 {
		return n
	}
	return DefaultMaxFileSize
}

// CheckSize validates a file size against the bucket limit without any I/O.
func (u *Uploader) CheckSize(bucket string, size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if limit := u.MaxSize(bucket); size > limit {
		return fmt.Errorf("%w: maximum size is %s", ErrFileTooLarge, formatBytes(limit))
	}
	return nil
}

// Upload stores f under "<prefix>/<uuid><ext>" and returns its public URL.
// Re-uploading the same file creates a new object.
func (u *Uploader) Upload(ctx context.Context, bucket, prefix string, f File) (*Object, error) {
	if err := u.CheckSize(bucket, f.Size); err != nil {
		return nil, err
	}

	u.ensureBucket(ctx, bucket)

	key := ObjectKey(prefix, f.Name)

	if err := u.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer u.limiter.Release()

	opts := minio.PutObjectOptions{ContentType: f.ContentType}
	if f.Name != "" {
		opts.UserMetadata = map[string]string{"original-filename": path.Base(f.Name)}
	}
	info, err := u.client.PutObject(ctx, bucket, key, f.Body, f.Size, opts)
	if err != nil {
		return nil, fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}

	slog.Debug("object uploaded", "bucket", bucket, "key", key, "size", info.Size)

	return &Object{
		Bucket: bucket,
		Key:    key,
		URL:    u.URL(bucket, key),
		Size:   f.Size,
	}, nil
}

// Remove deletes an object. Empty keys are ignored.
func (u *Uploader) Remove(ctx context.Context, bucket, key string) error {
	if key == "" {
		return nil
	}
	if err := u.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s/%s: %w", bucket, key, err)
	}
	return nil
}

// URL builds the public URL of an object.
func (u *Uploader) URL(bucket, key string) string {
	return u.baseURL + "/" + bucket + "/" + key
}

// ensureBucket creates bucket with a public-read policy the first time it
// is used. Failures are logged and retried on the next upload.
func (u *Uploader) ensureBucket(ctx context.Context, bucket string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.ready[bucket] {
		return
	}

	exists, err := u.client.BucketExists(ctx, bucket)
	if err != nil {
		slog.Warn("bucket check failed", "bucket", bucket, "error", err)
		return
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			slog.Warn("bucket creation failed", "bucket", bucket, "error", err)
			return
		}
		if err := u.client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
			slog.Warn("bucket policy failed", "bucket", bucket, "error", err)
		}
		slog.Info("bucket created", "bucket", bucket)
	}
	u.ready[bucket] = true
}

// ObjectKey returns "<prefix>/<uuid><ext>" with the extension lower-cased.
func ObjectKey(prefix, name string) string {
	key := uuid.New().String() + strings.ToLower(filepath.Ext(name))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},`+
		`"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

func formatBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%.1f MB", float64(n)/mb)
}
