package core

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/images"
	"github.com/JonMunkholm/dealership/internal/notify"
	"github.com/JonMunkholm/dealership/internal/storage"
	"github.com/stretchr/testify/mock"
)

type MockListingRepo struct {
	mock.Mock
}

func (m *MockListingRepo) CreateListing(ctx context.Context, l *domain.VehicleListing) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockListingRepo) UpdateListing(ctx context.Context, l *domain.VehicleListing) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockListingRepo) GetListing(ctx context.Context, id string) (*domain.VehicleListing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleListing), args.Error(1)
}

func (m *MockListingRepo) ListListings(ctx context.Context, f domain.ListingFilter) ([]domain.VehicleListing, int, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]domain.VehicleListing)
	return list, args.Int(1), args.Error(2)
}

func (m *MockListingRepo) SetListingStatus(ctx context.Context, id string, status domain.ListingStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockListingRepo) SetListingFeatured(ctx context.Context, id string, featured bool) error {
	return m.Called(ctx, id, featured).Error(0)
}

func (m *MockListingRepo) DeleteListing(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockListingRepo) IncrementViewCount(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockListingRepo) IncrementContactCount(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockListingRepo) ReplaceFeatures(ctx context.Context, id string, tags []domain.FeatureTag) error {
	return m.Called(ctx, id, tags).Error(0)
}

func (m *MockListingRepo) ListFeatures(ctx context.Context, id string) ([]domain.FeatureTag, error) {
	args := m.Called(ctx, id)
	tags, _ := args.Get(0).([]domain.FeatureTag)
	return tags, args.Error(1)
}

func (m *MockListingRepo) RecordSync(ctx context.Context, id string, state domain.SyncState, pending []domain.FeatureTag, syncErr string) error {
	return m.Called(ctx, id, state, pending, syncErr).Error(0)
}

func (m *MockListingRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]domain.VehicleListing, error) {
	args := m.Called(ctx, before, limit)
	list, _ := args.Get(0).([]domain.VehicleListing)
	return list, args.Error(1)
}

type MockImageRepo struct {
	mock.Mock
}

func (m *MockImageRepo) ListImages(ctx context.Context, listingID string) ([]domain.VehicleImage, error) {
	args := m.Called(ctx, listingID)
	imgs, _ := args.Get(0).([]domain.VehicleImage)
	return imgs, args.Error(1)
}

func (m *MockImageRepo) GetImage(ctx context.Context, id string) (*domain.VehicleImage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleImage), args.Error(1)
}

func (m *MockImageRepo) InsertImage(ctx context.Context, img *domain.VehicleImage) error {
	err := m.Called(ctx, img.URL, img.Primary).Error(0)
	if err == nil {
		img.ID = "img:" + img.URL
	}
	return err
}

func (m *MockImageRepo) DeleteImage(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockImageRepo) SetPrimaryImage(ctx context.Context, listingID, imageID string) error {
	return m.Called(ctx, listingID, imageID).Error(0)
}

type MockFinancingRepo struct {
	mock.Mock
}

func (m *MockFinancingRepo) CreateFinancing(ctx context.Context, req *domain.FinancingRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockFinancingRepo) GetFinancing(ctx context.Context, id string) (*domain.FinancingRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinancingRequest), args.Error(1)
}

func (m *MockFinancingRepo) ListFinancing(ctx context.Context, f domain.FinancingFilter) ([]domain.FinancingRequest, int, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]domain.FinancingRequest)
	return list, args.Int(1), args.Error(2)
}

func (m *MockFinancingRepo) SetFinancingStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockFinancingRepo) DeleteFinancing(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockBlogRepo struct {
	mock.Mock
}

func (m *MockBlogRepo) CreatePost(ctx context.Context, p *domain.BlogPost) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockBlogRepo) UpdatePost(ctx context.Context, p *domain.BlogPost) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockBlogRepo) GetPost(ctx context.Context, id string) (*domain.BlogPost, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BlogPost), args.Error(1)
}

func (m *MockBlogRepo) ListPosts(ctx context.Context, limit, offset int) ([]domain.BlogPost, int, error) {
	args := m.Called(ctx, limit, offset)
	list, _ := args.Get(0).([]domain.BlogPost)
	return list, args.Int(1), args.Error(2)
}

func (m *MockBlogRepo) DeletePost(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// fakeAudit records entries instead of mocking them; most tests only check
// what was written.
type fakeAudit struct {
	entries []domain.AuditEntry
}

func (f *fakeAudit) InsertAudit(_ context.Context, e *domain.AuditEntry) error {
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAudit) ListAudit(context.Context, domain.AuditFilter) ([]domain.AuditEntry, error) {
	return f.entries, nil
}

func (f *fakeAudit) actions() []domain.AuditAction {
	out := make([]domain.AuditAction, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action
	}
	return out
}

type MockObjects struct {
	mock.Mock
}

func (m *MockObjects) Upload(ctx context.Context, bucket, prefix string, f storage.File) (*storage.Object, error) {
	args := m.Called(ctx, bucket, prefix, f.Name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Object), args.Error(1)
}

func (m *MockObjects) Remove(ctx context.Context, bucket, key string) error {
	return m.Called(ctx, bucket, key).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) FinancingSubmitted(ctx context.Context, e notify.FinancingEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockNotifier) ListingCreated(ctx context.Context, e notify.ListingEvent) error {
	return m.Called(ctx, e).Error(0)
}

type fixture struct {
	listings  *MockListingRepo
	images    *MockImageRepo
	financing *MockFinancingRepo
	blog      *MockBlogRepo
	audit     *fakeAudit
	objects   *MockObjects
	notifier  *MockNotifier
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		listings:  &MockListingRepo{},
		images:    &MockImageRepo{},
		financing: &MockFinancingRepo{},
		blog:      &MockBlogRepo{},
		audit:     &fakeAudit{},
		objects:   &MockObjects{},
		notifier:  &MockNotifier{},
	}
	f.svc = NewService(Deps{
		Listings:  f.listings,
		Images:    f.images,
		Financing: f.financing,
		Blog:      f.blog,
		Audit:     f.audit,
		Objects:   f.objects,
		Notifier:  f.notifier,
	}, Options{})
	f.svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func pendingFile(name string) images.PendingFile {
	return images.PendingFile{
		Name:        name,
		Size:        3,
		ContentType: "image/jpeg",
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("img")), nil },
	}
}

func carObject(name string) *storage.Object {
	return &storage.Object{Bucket: storage.BucketCarImages, Key: "car-1/" + name, URL: "http://s3/car-images/car-1/" + name}
}
