package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/images"
	"github.com/JonMunkholm/dealership/internal/notify"
)

// ValidationError carries per-field problems of a rejected input.
type ValidationError struct {
	Err    error
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ListingInput is the editable part of a listing.
type ListingInput struct {
	Title         string   `json:"title"`
	Brand         string   `json:"brand"`
	Model         string   `json:"model"`
	Year          int      `json:"year"`
	Price         float64  `json:"price"`
	Color         string   `json:"color"`
	Transmission  string   `json:"transmission"`
	Mileage       int      `json:"mileage"`
	Description   string   `json:"description"`
	ContactNumber string   `json:"contact_number"`
	Features      []string `json:"features"`
}

// validate checks the input and returns the parsed feature tags.
func (in *ListingInput) validate(maxYear int) ([]domain.FeatureTag, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)

	fields := make(map[string]string)
	if in.Title == "" {
		fields["title"] = "Title is required"
	}
	if in.Brand == "" {
		fields["brand"] = "Brand is required"
	}
	if in.Model == "" {
		fields["model"] = "Model is required"
	}
	if in.Year < 1900 || in.Year > maxYear {
		fields["year"] = fmt.Sprintf("Year must be between 1900 and %d", maxYear)
	}
	if in.Price < 0 {
		fields["price"] = "Price cannot be negative"
	}
	if in.Mileage < 0 {
		fields["mileage"] = "Mileage cannot be negative"
	}

	tags, err := domain.ParseFeatures(in.Features)
	if err != nil {
		fields["features"] = err.Error()
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Err: domain.ErrInvalidListingData, Fields: fields}
	}
	return tags, nil
}

func (in *ListingInput) apply(l *domain.VehicleListing) {
	l.Title = in.Title
	l.Brand = in.Brand
	l.Model = in.Model
	l.Year = in.Year
	l.Price = in.Price
	l.Color = strings.TrimSpace(in.Color)
	l.Transmission = strings.TrimSpace(in.Transmission)
	l.Mileage = in.Mileage
	l.Description = strings.TrimSpace(in.Description)
	l.ContactNumber = in.ContactNumber
}

// ImageChanges lists the image edits submitted with a listing form.
type ImageChanges struct {
	// Add holds new files; a file with Primary set becomes the cover.
	Add []images.PendingFile
	// Remove holds ids of stored images to delete.
	Remove []string
}

// ListingResult reports the outcome of a listing write. Warnings describe
// child writes that failed without failing the request.
type ListingResult struct {
	Listing  *domain.VehicleListing `json:"listing"`
	Images   []images.Entry         `json:"images"`
	Uploaded []string               `json:"uploaded"`
	Warnings []string               `json:"warnings,omitempty"`
}

// CreateListing inserts a pending listing, then writes its features and
// uploads its images. Only the row insert is fatal.
func (s *Service) CreateListing(ctx context.Context, in ListingInput, changes ImageChanges) (*ListingResult, error) {
	tags, err := in.validate(s.now().Year() + 1)
	if err != nil {
		releaseAll(changes.Add)
		return nil, err
	}

	mgr := images.NewManager(nil, s.objects, s.images, images.Options{Bucket: s.imageBucket, MaxImages: s.maxImages})
	if _, err := mgr.Add(changes.Add...); err != nil {
		releaseAll(changes.Add)
		return nil, err
	}

	listing := &domain.VehicleListing{
		Status:          domain.ListingPending,
		SyncState:       domain.SyncAwaitingChildren,
		PendingFeatures: tags,
	}
	in.apply(listing)

	if err := s.listings.CreateListing(ctx, listing); err != nil {
		releaseAll(changes.Add)
		return nil, fmt.Errorf("create listing: %w", err)
	}

	slog.Info("listing created", "listing_id", listing.ID, "title", listing.Title)
	s.metrics.ListingCreated()

	result := s.syncChildren(ctx, listing, tags, mgr)

	s.recordAudit(ctx, domain.AuditListingCreate, EntityListing, listing.ID, map[string]any{
		"title":      listing.Title,
		"images":     len(result.Uploaded),
		"sync_state": listing.SyncState,
	})

	nctx, cancel := notifyContext(ctx)
	defer cancel()
	if err := s.notifier.ListingCreated(nctx, notify.ListingEvent{
		ListingID: listing.ID,
		Title:     listing.Title,
		Brand:     listing.Brand,
		Model:     listing.Model,
		Year:      listing.Year,
		Price:     listing.Price,
		CreatedAt: listing.CreatedAt,
	}); err != nil {
		slog.Warn("listing notification failed", "listing_id", listing.ID, "error", err)
	}

	return result, nil
}

// UpdateListing overwrites the listing row, replaces its features and applies
// image changes. Only the row update is fatal.
func (s *Service) UpdateListing(ctx context.Context, id string, in ListingInput, changes ImageChanges) (*ListingResult, error) {
	tags, err := in.validate(s.now().Year() + 1)
	if err != nil {
		releaseAll(changes.Add)
		return nil, err
	}

	listing, err := s.listings.GetListing(ctx, id)
	if err != nil {
		releaseAll(changes.Add)
		return nil, err
	}

	kept := 0
	for _, img := range listing.Images {
		if !contains(changes.Remove, img.ID) {
			kept++
		}
	}
	if kept+len(changes.Add) > s.maxImages {
		releaseAll(changes.Add)
		return nil, fmt.Errorf("%w: a listing can have at most %d images", images.ErrTooManyImages, s.maxImages)
	}

	in.apply(listing)
	if err := s.listings.UpdateListing(ctx, listing); err != nil {
		releaseAll(changes.Add)
		return nil, fmt.Errorf("update listing: %w", err)
	}

	if err := s.listings.RecordSync(ctx, listing.ID, domain.SyncAwaitingChildren, tags, ""); err != nil {
		slog.Warn("listing sync state not recorded", "listing_id", listing.ID, "error", err)
	}

	mgr := images.NewManager(listing.Images, s.objects, s.images, images.Options{Bucket: s.imageBucket, MaxImages: s.maxImages})

	var removeErrs []string
	for _, imgID := range changes.Remove {
		if err := mgr.Remove(ctx, imgID); err != nil {
			slog.Warn("listing image not removed", "listing_id", listing.ID, "image_id", imgID, "error", err)
			removeErrs = append(removeErrs, fmt.Sprintf("image %s was not removed: %v", imgID, err))
		}
	}
	if _, err := mgr.Add(changes.Add...); err != nil {
		// Failed removals can leave the list over the cap.
		releaseAll(changes.Add)
		removeErrs = append(removeErrs, err.Error())
	}

	result := s.syncChildren(ctx, listing, tags, mgr)
	result.Warnings = append(removeErrs, result.Warnings...)

	s.recordAudit(ctx, domain.AuditListingUpdate, EntityListing, listing.ID, map[string]any{
		"title":          listing.Title,
		"images_added":   len(result.Uploaded),
		"images_removed": len(changes.Remove),
		"sync_state":     listing.SyncState,
	})

	return result, nil
}

// syncChildren runs the second phase of a listing write and records the
// resulting sync state on the row.
func (s *Service) syncChildren(ctx context.Context, listing *domain.VehicleListing, tags []domain.FeatureTag, mgr *images.Manager) *ListingResult {
	result := &ListingResult{Listing: listing}

	state := domain.SyncComplete
	var pending []domain.FeatureTag
	var syncErrs []string

	if err := s.listings.ReplaceFeatures(ctx, listing.ID, tags); err != nil {
		slog.Error("listing features not saved", "listing_id", listing.ID, "features", len(tags), "error", err)
		state = domain.SyncAwaitingChildren
		pending = tags
		syncErrs = append(syncErrs, syncErrFeatures+err.Error())
		result.Warnings = append(result.Warnings, "The vehicle was saved but its features were not. They will be retried automatically.")
	} else {
		listing.Features = tags
	}

	urls, err := mgr.UploadPending(ctx, listing.ID)
	result.Uploaded = urls
	if err != nil {
		state = domain.SyncNeedsRepair
		syncErrs = append(syncErrs, syncErrImages+err.Error())
		result.Warnings = append(result.Warnings, "Some images were not uploaded: "+err.Error())
	}
	result.Images = mgr.Entries()

	listing.Images = listing.Images[:0]
	for _, e := range result.Images {
		if e.ID != "" {
			listing.Images = append(listing.Images, domain.VehicleImage{
				ID:        e.ID,
				ListingID: listing.ID,
				URL:       e.URL,
				Primary:   e.Primary,
			})
		}
	}

	syncErr := strings.Join(syncErrs, "; ")
	if err := s.listings.RecordSync(ctx, listing.ID, state, pending, syncErr); err != nil {
		slog.Error("listing sync state not recorded", "listing_id", listing.ID, "state", state, "error", err)
	}
	listing.SyncState = state
	listing.PendingFeatures = pending
	listing.SyncError = syncErr

	if state != domain.SyncComplete {
		slog.Warn("listing saved with incomplete children",
			"listing_id", listing.ID,
			"sync_state", state,
			"sync_error", syncErr,
		)
	}
	return result
}

// GetListing returns any listing, for admins.
func (s *Service) GetListing(ctx context.Context, id string) (*domain.VehicleListing, error) {
	return s.listings.GetListing(ctx, id)
}

// ListListings returns listings of any status, for admins.
func (s *Service) ListListings(ctx context.Context, f domain.ListingFilter) ([]domain.VehicleListing, int, error) {
	return s.listings.ListListings(ctx, f)
}

// ListPublicListings returns active listings only.
func (s *Service) ListPublicListings(ctx context.Context, f domain.ListingFilter) ([]domain.VehicleListing, int, error) {
	f.Status = domain.ListingActive
	f.SyncState = ""
	return s.listings.ListListings(ctx, f)
}

// ViewListing returns an active listing and counts the view.
func (s *Service) ViewListing(ctx context.Context, id string) (*domain.VehicleListing, error) {
	listing, err := s.activeListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.listings.IncrementViewCount(ctx, id); err != nil {
		slog.Warn("view not counted", "listing_id", id, "error", err)
	} else {
		listing.ViewCount++
	}
	return listing, nil
}

// ContactListing counts a contact and returns the seller's number.
func (s *Service) ContactListing(ctx context.Context, id string) (string, error) {
	listing, err := s.activeListing(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.listings.IncrementContactCount(ctx, id); err != nil {
		slog.Warn("contact not counted", "listing_id", id, "error", err)
	}
	return listing.ContactNumber, nil
}

func (s *Service) activeListing(ctx context.Context, id string) (*domain.VehicleListing, error) {
	listing, err := s.listings.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.Status != domain.ListingActive {
		return nil, domain.ErrListingNotFound
	}
	return listing, nil
}

// ApproveListing publishes a pending listing.
func (s *Service) ApproveListing(ctx context.Context, id string) error {
	if err := s.listings.SetListingStatus(ctx, id, domain.ListingActive); err != nil {
		return err
	}
	s.recordAudit(ctx, domain.AuditListingApprove, EntityListing, id, nil)
	return nil
}

// RejectListing permanently deletes a listing.
func (s *Service) RejectListing(ctx context.Context, id string) error {
	if err := s.deleteListing(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, domain.AuditListingReject, EntityListing, id, nil)
	return nil
}

// DeleteListing permanently deletes a listing and its image objects.
func (s *Service) DeleteListing(ctx context.Context, id string) error {
	if err := s.deleteListing(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, domain.AuditListingDelete, EntityListing, id, nil)
	return nil
}

func (s *Service) deleteListing(ctx context.Context, id string) error {
	imgs, err := s.images.ListImages(ctx, id)
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	if err := s.listings.DeleteListing(ctx, id); err != nil {
		return err
	}
	for _, img := range imgs {
		s.removeObject(ctx, s.imageBucket, img.StorageKey)
	}
	slog.Info("listing deleted", "listing_id", id, "images", len(imgs))
	return nil
}

// SetFeatured toggles the featured flag.
func (s *Service) SetFeatured(ctx context.Context, id string, featured bool) error {
	if err := s.listings.SetListingFeatured(ctx, id, featured); err != nil {
		return err
	}
	s.recordAudit(ctx, domain.AuditListingFeatured, EntityListing, id, map[string]any{"featured": featured})
	return nil
}

// DeleteImage removes one stored image: row first, then object.
func (s *Service) DeleteImage(ctx context.Context, imageID string) error {
	img, err := s.images.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if err := s.images.DeleteImage(ctx, imageID); err != nil {
		return err
	}
	s.removeObject(ctx, s.imageBucket, img.StorageKey)
	s.recordAudit(ctx, domain.AuditImageDelete, EntityImage, imageID, map[string]any{"listing_id": img.ListingID})
	return nil
}

// SetPrimaryImage makes imageID the cover of its listing.
func (s *Service) SetPrimaryImage(ctx context.Context, listingID, imageID string) error {
	if err := s.images.SetPrimaryImage(ctx, listingID, imageID); err != nil {
		return err
	}
	s.recordAudit(ctx, domain.AuditImagePrimary, EntityImage, imageID, map[string]any{"listing_id": listingID})
	return nil
}

func releaseAll(files []images.PendingFile) {
	for _, f := range files {
		if f.Release != nil {
			f.Release()
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err is a rejected input.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
