package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/images"
	"github.com/JonMunkholm/dealership/internal/metrics"
	"github.com/JonMunkholm/dealership/internal/notify"
	"github.com/JonMunkholm/dealership/internal/storage"
)

// NotifyTimeout bounds best-effort notification delivery.
var NotifyTimeout = 10 * time.Second

// ObjectStore uploads and removes stored files.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, prefix string, f storage.File) (*storage.Object, error)
	Remove(ctx context.Context, bucket, key string) error
}

// Deps are the collaborators of a Service. Notifier and Metrics are optional.
type Deps struct {
	Listings  domain.ListingRepository
	Images    domain.ImageRepository
	Financing domain.FinancingRepository
	Blog      domain.BlogRepository
	Audit     domain.AuditRepository
	Objects   ObjectStore
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
}

// Options tunes a Service.
type Options struct {
	ImageBucket string
	BlogBucket  string
	MaxImages   int
}

// Service provides the business logic for listings, financing requests,
// blog posts and the audit log.
type Service struct {
	listings  domain.ListingRepository
	images    domain.ImageRepository
	financing domain.FinancingRepository
	blog      domain.BlogRepository
	audit     domain.AuditRepository
	objects   ObjectStore
	notifier  notify.Notifier
	metrics   *metrics.Metrics

	imageBucket string
	blogBucket  string
	maxImages   int

	now func() time.Time
}

// NewService creates a new Service instance.
func NewService(deps Deps, opts Options) *Service {
	if opts.ImageBucket == "" {
		opts.ImageBucket = storage.BucketCarImages
	}
	if opts.BlogBucket == "" {
		opts.BlogBucket = storage.BucketBlogImages
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = images.DefaultMaxImages
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		listings:    deps.Listings,
		images:      deps.Images,
		financing:   deps.Financing,
		blog:        deps.Blog,
		audit:       deps.Audit,
		objects:     deps.Objects,
		notifier:    notifier,
		metrics:     deps.Metrics,
		imageBucket: opts.ImageBucket,
		blogBucket:  opts.BlogBucket,
		maxImages:   opts.MaxImages,
		now:         time.Now,
	}
}

// removeObject deletes a stored file, logging failures.
func (s *Service) removeObject(ctx context.Context, bucket, key string) {
	if key == "" {
		return
	}
	if err := s.objects.Remove(ctx, bucket, key); err != nil {
		slog.Warn("object not removed", "bucket", bucket, "key", key, "error", err)
	}
}

// notifyContext detaches notification delivery from the request so a client
// disconnect does not cancel it.
func notifyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), NotifyTimeout)
}
