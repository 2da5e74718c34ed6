// Package domain holds the dealership entities, their status vocabularies and
// the repository contracts the persistence layer implements.
package domain

import "time"

// ListingStatus is the lifecycle state of a vehicle listing.
type ListingStatus string

const (
	ListingPending ListingStatus = "pending"
	ListingActive  ListingStatus = "active"
)

// Valid reports whether s is a known listing status.
func (s ListingStatus) Valid() bool {
	return s == ListingPending || s == ListingActive
}

// SyncState tracks the child writes (features, images) of a listing.
// A listing row is committed before its children, so the state records
// whether that second phase finished.
type SyncState string

const (
	SyncComplete         SyncState = "complete"
	SyncAwaitingChildren SyncState = "awaiting_children"
	SyncNeedsRepair      SyncState = "needs_repair"
)

// VehicleListing is a vehicle advertisement.
type VehicleListing struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Brand         string        `json:"brand"`
	Model         string        `json:"model"`
	Year          int           `json:"year"`
	Price         float64       `json:"price"`
	Color         string        `json:"color"`
	Transmission  string        `json:"transmission"`
	Mileage       int           `json:"mileage"`
	Description   string        `json:"description"`
	ContactNumber string        `json:"contact_number"`
	Status        ListingStatus `json:"status"`
	Featured      bool          `json:"featured"`
	ViewCount     int           `json:"view_count"`
	ContactCount  int           `json:"contact_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	SyncState       SyncState    `json:"sync_state"`
	PendingFeatures []FeatureTag `json:"pending_features,omitempty"`
	SyncError       string       `json:"sync_error,omitempty"`
	SyncUpdatedAt   time.Time    `json:"sync_updated_at"`

	Images   []VehicleImage `json:"images,omitempty"`
	Features []FeatureTag   `json:"features,omitempty"`
}

// PrimaryImage returns the listing's cover image, if loaded and flagged.
func (l *VehicleListing) PrimaryImage() *VehicleImage {
	for i := range l.Images {
		if l.Images[i].Primary {
			return &l.Images[i]
		}
	}
	return nil
}

// VehicleImage is a photo attached to a listing.
// ListingID is empty until the listing row exists.
type VehicleImage struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id,omitempty"`
	URL        string    `json:"url"`
	StorageKey string    `json:"-"`
	Primary    bool      `json:"is_primary"`
	CreatedAt  time.Time `json:"created_at"`
}

// VehicleFeature links a feature tag to a listing.
type VehicleFeature struct {
	ID        string     `json:"id"`
	ListingID string     `json:"listing_id"`
	Feature   FeatureTag `json:"feature"`
}

// ListingFilter narrows listing queries. Zero values mean "no constraint".
type ListingFilter struct {
	Status       ListingStatus
	SyncState    SyncState
	Brand        string
	Model        string
	Transmission string
	Query        string
	MinYear      int
	MaxYear      int
	MinPrice     float64
	MaxPrice     float64
	FeaturedOnly bool
	Page         int
	PageSize     int
}

// Offset returns the row offset for the filter's page.
func (f ListingFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the page size clamped to 1..100 (default 20).
func (f ListingFilter) Limit() int {
	switch {
	case f.PageSize <= 0:
		return 20
	case f.PageSize > 100:
		return 100
	default:
		return f.PageSize
	}
}
