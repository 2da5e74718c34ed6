package domain

import (
	"context"
	"time"
)

// ListingRepository persists vehicle listings and their feature rows.
type ListingRepository interface {
	CreateListing(ctx context.Context, l *VehicleListing) error
	UpdateListing(ctx context.Context, l *VehicleListing) error
	GetListing(ctx context.Context, id string) (*VehicleListing, error)
	ListListings(ctx context.Context, f ListingFilter) ([]VehicleListing, int, error)
	SetListingStatus(ctx context.Context, id string, status ListingStatus) error
	SetListingFeatured(ctx context.Context, id string, featured bool) error
	DeleteListing(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) error
	IncrementContactCount(ctx context.Context, id string) error

	// ReplaceFeatures deletes every feature row of the listing and inserts
	// tags, in one transaction.
	ReplaceFeatures(ctx context.Context, listingID string, tags []FeatureTag) error
	ListFeatures(ctx context.Context, listingID string) ([]FeatureTag, error)

	// RecordSync stores the saga state of a listing's child writes.
	RecordSync(ctx context.Context, id string, state SyncState, pending []FeatureTag, syncErr string) error
	// ListStale returns listings whose sync_updated_at is older than before
	// and that still have child writes to retry: every listing awaiting
	// children, and listings needing repair with pending features recorded.
	ListStale(ctx context.Context, before time.Time, limit int) ([]VehicleListing, error)
}

// ImageRepository persists listing images.
type ImageRepository interface {
	ListImages(ctx context.Context, listingID string) ([]VehicleImage, error)
	GetImage(ctx context.Context, id string) (*VehicleImage, error)
	// InsertImage stores img. When img.Primary is set, any previous primary
	// of the same listing is demoted in the same transaction.
	InsertImage(ctx context.Context, img *VehicleImage) error
	DeleteImage(ctx context.Context, id string) error
	SetPrimaryImage(ctx context.Context, listingID, imageID string) error
}

// FinancingRepository persists financing requests.
type FinancingRepository interface {
	CreateFinancing(ctx context.Context, req *FinancingRequest) error
	GetFinancing(ctx context.Context, id string) (*FinancingRequest, error)
	ListFinancing(ctx context.Context, f FinancingFilter) ([]FinancingRequest, int, error)
	SetFinancingStatus(ctx context.Context, id string, status RequestStatus) error
	DeleteFinancing(ctx context.Context, id string) error
}

// BlogRepository persists blog posts.
type BlogRepository interface {
	CreatePost(ctx context.Context, p *BlogPost) error
	UpdatePost(ctx context.Context, p *BlogPost) error
	GetPost(ctx context.Context, id string) (*BlogPost, error)
	ListPosts(ctx context.Context, limit, offset int) ([]BlogPost, int, error)
	DeletePost(ctx context.Context, id string) error
}

// AuditRepository persists admin audit entries.
type AuditRepository interface {
	InsertAudit(ctx context.Context, e *AuditEntry) error
	ListAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}
