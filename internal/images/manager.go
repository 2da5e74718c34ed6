// Package images manages the photo list of one vehicle listing: existing
// images loaded from the database plus pending files waiting for upload.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/storage"
	"github.com/google/uuid"
)

// DefaultMaxImages is the per-listing image cap.
const DefaultMaxImages = 10

var (
	// ErrTooManyImages rejects a whole batch that would exceed the cap.
	ErrTooManyImages = errors.New("too many images")
	// ErrEntryNotFound is returned for unknown entry keys.
	ErrEntryNotFound = errors.New("image entry not found")
)

// ObjectStore uploads and removes image objects.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, prefix string, f storage.File) (*storage.Object, error)
	Remove(ctx context.Context, bucket, key string) error
}

// Repository persists image rows.
type Repository interface {
	InsertImage(ctx context.Context, img *domain.VehicleImage) error
	DeleteImage(ctx context.Context, id string) error
}

// PendingFile is a selected file that has not been uploaded yet.
type PendingFile struct {
	Name        string
	Size        int64
	ContentType string
	// Primary flags the file as the cover image.
	Primary bool
	// Open returns the file contents. It may be called once per upload attempt.
	Open func() (io.ReadCloser, error)
	// Release frees the underlying handle. Optional.
	Release func()
}

// Entry is one image in the manager, either stored or pending.
type Entry struct {
	Key       string `json:"key"`
	ID        string `json:"id,omitempty"`
	URL       string `json:"url,omitempty"`
	Preview   string `json:"preview,omitempty"`
	Primary   bool   `json:"is_primary"`
	Uploading bool   `json:"uploading"`
	Error     string `json:"error,omitempty"`

	storageKey string
	file       *PendingFile
}

// Pending reports whether the entry still needs uploading.
func (e Entry) Pending() bool {
	return e.ID == "" && e.file != nil
}

// Options configures a Manager.
type Options struct {
	Bucket    string
	MaxImages int
}

// Manager holds the image list of one listing. It is driven by a single
// request at a time and is not safe for concurrent use.
type Manager struct {
	objects ObjectStore
	repo    Repository
	bucket  string
	max     int
	entries []*Entry
}

// NewManager starts from the listing's stored images.
func NewManager(existing []domain.VehicleImage, objects ObjectStore, repo Repository, opts Options) *Manager {
	if opts.MaxImages <= 0 {
		opts.MaxImages = DefaultMaxImages
	}
	if opts.Bucket == "" {
		opts.Bucket = storage.BucketCarImages
	}
	m := &Manager{
		objects: objects,
		repo:    repo,
		bucket:  opts.Bucket,
		max:     opts.MaxImages,
	}
	for _, img := range existing {
		m.entries = append(m.entries, &Entry{
			Key:        img.ID,
			ID:         img.ID,
			URL:        img.URL,
			Primary:    img.Primary,
			storageKey: img.StorageKey,
		})
	}
	return m
}

// Entries returns a snapshot of the list.
func (m *Manager) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = *e
	}
	return out
}

// Len returns the number of entries.
func (m *Manager) Len() int {
	return len(m.entries)
}

// Max returns the image cap.
func (m *Manager) Max() int {
	return m.max
}

// Add appends files as pending entries. If the batch would push the list
// past the cap, nothing is added. A flagged file takes the flag from other
// pending entries only; the stored cover keeps it until the upload succeeds.
func (m *Manager) Add(files ...PendingFile) ([]string, error) {
	if len(m.entries)+len(files) > m.max {
		return nil, fmt.Errorf("%w: a listing can have at most %d images", ErrTooManyImages, m.max)
	}
	keys := make([]string, 0, len(files))
	for i := range files {
		f := files[i]
		e := &Entry{
			Key:     uuid.New().String(),
			Preview: f.Name,
			file:    &f,
		}
		if f.Primary {
			for _, other := range m.entries {
				if other.Pending() {
					other.Primary = false
				}
			}
			e.Primary = true
		}
		m.entries = append(m.entries, e)
		keys = append(keys, e.Key)
	}
	return keys, nil
}

// Remove drops an entry. Stored images are deleted from the database and the
// object store first; on failure the entry stays. Pending entries are
// released locally.
func (m *Manager) Remove(ctx context.Context, key string) error {
	idx := m.index(key)
	if idx < 0 {
		return ErrEntryNotFound
	}
	e := m.entries[idx]

	if e.ID != "" {
		if err := m.repo.DeleteImage(ctx, e.ID); err != nil {
			return fmt.Errorf("delete image %s: %w", e.ID, err)
		}
		if err := m.objects.Remove(ctx, m.bucket, e.storageKey); err != nil {
			slog.Warn("image object not removed", "image_id", e.ID, "key", e.storageKey, "error", err)
		}
	} else if e.file != nil && e.file.Release != nil {
		e.file.Release()
	}

	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	return nil
}

// MarkPrimary flags the entry as the cover image and clears the flag on
// every other entry.
func (m *Manager) MarkPrimary(key string) error {
	idx := m.index(key)
	if idx < 0 {
		return ErrEntryNotFound
	}
	m.setPrimary(idx)
	return nil
}

func (m *Manager) setPrimary(idx int) {
	for i, e := range m.entries {
		e.Primary = i == idx
	}
}

// UploadPending uploads pending entries one at a time and returns the URLs
// that succeeded. A pending entry is stored as primary when it was flagged,
// or when it is the first successful upload while no entry is primary.
// Failures are recorded on their entries and joined into the returned error;
// the loop always runs to the end.
func (m *Manager) UploadPending(ctx context.Context, listingID string) ([]string, error) {
	var (
		urls []string
		errs []error
	)

	for _, e := range m.entries {
		if !e.Pending() {
			continue
		}
		e.Uploading = true
		e.Error = ""

		primary := e.Primary || !m.hasPrimary()

		img, err := m.uploadOne(ctx, listingID, e, primary)
		e.Uploading = false
		if err != nil {
			e.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", e.Preview, err))
			slog.Warn("image upload failed", "listing_id", listingID, "file", e.Preview, "error", err)
			continue
		}

		if img.Primary {
			for _, other := range m.entries {
				other.Primary = false
			}
		}
		e.ID = img.ID
		e.Key = img.ID
		e.URL = img.URL
		e.Preview = ""
		e.Primary = img.Primary
		e.storageKey = img.StorageKey
		if e.file.Release != nil {
			e.file.Release()
		}
		e.file = nil
		urls = append(urls, img.URL)
	}

	return urls, errors.Join(errs...)
}

func (m *Manager) uploadOne(ctx context.Context, listingID string, e *Entry, primary bool) (*domain.VehicleImage, error) {
	body, err := e.file.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer body.Close()

	obj, err := m.objects.Upload(ctx, m.bucket, listingID, storage.File{
		Name:        e.file.Name,
		Size:        e.file.Size,
		ContentType: e.file.ContentType,
		Body:        body,
	})
	if err != nil {
		return nil, err
	}

	img := &domain.VehicleImage{
		ListingID:  listingID,
		URL:        obj.URL,
		StorageKey: obj.Key,
		Primary:    primary,
	}
	if err := m.repo.InsertImage(ctx, img); err != nil {
		if rmErr := m.objects.Remove(ctx, m.bucket, obj.Key); rmErr != nil {
			slog.Warn("orphaned image object", "key", obj.Key, "error", rmErr)
		}
		return nil, fmt.Errorf("save image: %w", err)
	}
	return img, nil
}

// hasPrimary reports whether a stored or uploaded entry is primary.
// A pending entry flagged by the user also counts.
func (m *Manager) hasPrimary() bool {
	for _, e := range m.entries {
		if e.Primary {
			return true
		}
	}
	return false
}

func (m *Manager) index(key string) int {
	for i, e := range m.entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}
