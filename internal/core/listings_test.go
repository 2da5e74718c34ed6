package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/dealership/internal/auth"
	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/images"
	"github.com/JonMunkholm/dealership/internal/notify"
	"github.com/JonMunkholm/dealership/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validInput() ListingInput {
	return ListingInput{
		Title:         "Civic EXL 2020",
		Brand:         "Honda",
		Model:         "Civic",
		Year:          2020,
		Price:         115000,
		Transmission:  "automatic",
		Mileage:       32000,
		ContactNumber: "+55 11 99999-0000",
		Features:      []string{"GPS", "airbag"},
	}
}

func expectCreate(f *fixture) {
	f.listings.On("CreateListing", mock.Anything, mock.MatchedBy(func(l *domain.VehicleListing) bool {
		return l.Status == domain.ListingPending &&
			l.SyncState == domain.SyncAwaitingChildren &&
			len(l.PendingFeatures) == 2
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.VehicleListing).ID = "car-1"
	}).Return(nil)
	f.notifier.On("ListingCreated", mock.Anything, mock.MatchedBy(func(e notify.ListingEvent) bool {
		return e.ListingID == "car-1"
	})).Return(nil)
}

func TestCreateListing_AllChildrenSucceed(t *testing.T) {
	f := newFixture()
	expectCreate(f)
	tags := []domain.FeatureTag{domain.FeatureGPS, domain.FeatureAirbag}
	f.listings.On("ReplaceFeatures", mock.Anything, "car-1", tags).Return(nil)
	f.objects.On("Upload", mock.Anything, storage.BucketCarImages, "car-1", "a.jpg").Return(carObject("a.jpg"), nil)
	f.objects.On("Upload", mock.Anything, storage.BucketCarImages, "car-1", "b.jpg").Return(carObject("b.jpg"), nil)
	f.images.On("InsertImage", mock.Anything, carObject("a.jpg").URL, true).Return(nil)
	f.images.On("InsertImage", mock.Anything, carObject("b.jpg").URL, false).Return(nil)
	f.listings.On("RecordSync", mock.Anything, "car-1", domain.SyncComplete, []domain.FeatureTag(nil), "").Return(nil)

	res, err := f.svc.CreateListing(context.Background(), validInput(), ImageChanges{
		Add: []images.PendingFile{pendingFile("a.jpg"), pendingFile("b.jpg")},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SyncComplete, res.Listing.SyncState)
	assert.Equal(t, tags, res.Listing.Features)
	assert.Len(t, res.Uploaded, 2)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Listing.Images, 2)
	assert.True(t, res.Listing.Images[0].Primary)
	assert.False(t, res.Listing.Images[1].Primary)
	assert.Equal(t, []domain.AuditAction{domain.AuditListingCreate}, f.audit.actions())
	f.listings.AssertExpectations(t)
	f.images.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestCreateListing_FeatureFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	expectCreate(f)
	tags := []domain.FeatureTag{domain.FeatureGPS, domain.FeatureAirbag}
	f.listings.On("ReplaceFeatures", mock.Anything, "car-1", tags).Return(errors.New("db down"))
	f.listings.On("RecordSync", mock.Anything, "car-1", domain.SyncAwaitingChildren, tags,
		mock.MatchedBy(func(s string) bool { return strings.Contains(s, "features: db down") })).Return(nil)

	res, err := f.svc.CreateListing(context.Background(), validInput(), ImageChanges{})

	require.NoError(t, err)
	assert.Equal(t, "car-1", res.Listing.ID)
	assert.Equal(t, domain.ListingPending, res.Listing.Status)
	assert.Empty(t, res.Listing.Features)
	assert.Equal(t, domain.SyncAwaitingChildren, res.Listing.SyncState)
	assert.Len(t, res.Warnings, 1)
	f.listings.AssertExpectations(t)
}

func TestCreateListing_ImageFailureNeedsRepair(t *testing.T) {
	f := newFixture()
	expectCreate(f)
	f.listings.On("ReplaceFeatures", mock.Anything, "car-1", mock.Anything).Return(nil)
	f.objects.On("Upload", mock.Anything, storage.BucketCarImages, "car-1", "a.jpg").Return(nil, errors.New("s3 unavailable"))
	f.objects.On("Upload", mock.Anything, storage.BucketCarImages, "car-1", "b.jpg").Return(carObject("b.jpg"), nil)
	f.images.On("InsertImage", mock.Anything, carObject("b.jpg").URL, true).Return(nil)
	f.listings.On("RecordSync", mock.Anything, "car-1", domain.SyncNeedsRepair, []domain.FeatureTag(nil),
		mock.MatchedBy(func(s string) bool { return strings.Contains(s, "s3 unavailable") })).Return(nil)

	res, err := f.svc.CreateListing(context.Background(), validInput(), ImageChanges{
		Add: []images.PendingFile{pendingFile("a.jpg"), pendingFile("b.jpg")},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SyncNeedsRepair, res.Listing.SyncState)
	assert.Equal(t, []string{carObject("b.jpg").URL}, res.Uploaded)
	require.Len(t, res.Images, 2)
	assert.Contains(t, res.Images[0].Error, "s3 unavailable")
	assert.True(t, res.Images[1].Primary)
	f.listings.AssertExpectations(t)
}

func TestCreateListing_TooManyImagesRejectedBeforeInsert(t *testing.T) {
	f := newFixture()
	files := make([]images.PendingFile, 11)
	released := 0
	for i := range files {
		files[i] = pendingFile("x.jpg")
		files[i].Release = func() { released++ }
	}

	_, err := f.svc.CreateListing(context.Background(), validInput(), ImageChanges{Add: files})

	assert.ErrorIs(t, err, images.ErrTooManyImages)
	assert.Equal(t, 11, released)
	f.listings.AssertNotCalled(t, "CreateListing", mock.Anything, mock.Anything)
}

func TestCreateListing_InvalidInput(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Title = "  "
	in.Year = 2031
	in.Features = []string{"jetpack"}

	_, err := f.svc.CreateListing(context.Background(), in, ImageChanges{})

	require.ErrorIs(t, err, domain.ErrInvalidListingData)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "year")
	assert.Contains(t, ve.Fields, "features")
	assert.True(t, IsValidationError(err))
}

func TestCreateListing_InsertFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.listings.On("CreateListing", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	_, err := f.svc.CreateListing(context.Background(), validInput(), ImageChanges{})

	require.Error(t, err)
	assert.Equal(t, "DB004", MapError(err).Code)
	f.listings.AssertNotCalled(t, "ReplaceFeatures", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.audit.entries)
}

func TestUpdateListing_RemovesAndAddsImages(t *testing.T) {
	f := newFixture()
	existing := &domain.VehicleListing{
		ID:     "car-1",
		Status: domain.ListingActive,
		Images: []domain.VehicleImage{
			{ID: "i1", URL: "http://s3/i1.jpg", StorageKey: "car-1/i1.jpg", Primary: true},
			{ID: "i2", URL: "http://s3/i2.jpg", StorageKey: "car-1/i2.jpg"},
		},
	}
	tags := []domain.FeatureTag{domain.FeatureGPS, domain.FeatureAirbag}
	f.listings.On("GetListing", mock.Anything, "car-1").Return(existing, nil)
	f.listings.On("UpdateListing", mock.Anything, existing).Return(nil)
	f.listings.On("RecordSync", mock.Anything, "car-1", domain.SyncAwaitingChildren, tags, "").Return(nil).Once()
	f.listings.On("ReplaceFeatures", mock.Anything, "car-1", tags).Return(nil)
	f.images.On("DeleteImage", mock.Anything, "i1").Return(nil)
	f.objects.On("Remove", mock.Anything, storage.BucketCarImages, "car-1/i1.jpg").Return(nil)
	f.objects.On("Upload", mock.Anything, storage.BucketCarImages, "car-1", "new.jpg").Return(carObject("new.jpg"), nil)
	f.images.On("InsertImage", mock.Anything, carObject("new.jpg").URL, true).Return(nil)
	f.listings.On("RecordSync", mock.Anything, "car-1", domain.SyncComplete, []domain.FeatureTag(nil), "").Return(nil).Once()

	res, err := f.svc.UpdateListing(context.Background(), "car-1", validInput(), ImageChanges{
		Add:    []images.PendingFile{pendingFile("new.jpg")},
		Remove: []string{"i1"},
	})

	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Listing.Images, 2)
	assert.Equal(t, "i2", res.Listing.Images[0].ID)
	assert.True(t, res.Listing.Images[1].Primary)
	assert.Equal(t, "Civic EXL 2020", res.Listing.Title)
	assert.Equal(t, domain.ListingActive, res.Listing.Status)
	f.listings.AssertExpectations(t)
	f.images.AssertExpectations(t)
	f.objects.AssertExpectations(t)
}

func TestUpdateListing_CapCountsRemovals(t *testing.T) {
	f := newFixture()
	existing := &domain.VehicleListing{ID: "car-1"}
	for i := 0; i < 9; i++ {
		existing.Images = append(existing.Images, domain.VehicleImage{ID: string(rune('a' + i))})
	}
	f.listings.On("GetListing", mock.Anything, "car-1").Return(existing, nil)

	_, err := f.svc.UpdateListing(context.Background(), "car-1", validInput(), ImageChanges{
		Add: []images.PendingFile{pendingFile("1.jpg"), pendingFile("2.jpg")},
	})

	assert.ErrorIs(t, err, images.ErrTooManyImages)
	f.listings.AssertNotCalled(t, "UpdateListing", mock.Anything, mock.Anything)
}

func TestDeleteListing_RemovesObjects(t *testing.T) {
	f := newFixture()
	f.images.On("ListImages", mock.Anything, "car-1").Return([]domain.VehicleImage{
		{ID: "i1", StorageKey: "car-1/i1.jpg"},
		{ID: "i2", StorageKey: "car-1/i2.jpg"},
	}, nil)
	f.listings.On("DeleteListing", mock.Anything, "car-1").Return(nil)
	f.objects.On("Remove", mock.Anything, storage.BucketCarImages, "car-1/i1.jpg").Return(nil)
	f.objects.On("Remove", mock.Anything, storage.BucketCarImages, "car-1/i2.jpg").Return(errors.New("gone"))

	require.NoError(t, f.svc.RejectListing(context.Background(), "car-1"))

	f.objects.AssertExpectations(t)
	assert.Equal(t, []domain.AuditAction{domain.AuditListingReject}, f.audit.actions())
}

func TestDeleteListing_NotFound(t *testing.T) {
	f := newFixture()
	f.images.On("ListImages", mock.Anything, "nope").Return([]domain.VehicleImage{}, nil)
	f.listings.On("DeleteListing", mock.Anything, "nope").Return(domain.ErrListingNotFound)

	err := f.svc.DeleteListing(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrListingNotFound)
	assert.Empty(t, f.audit.entries)
}

func TestViewListing(t *testing.T) {
	t.Run("pending listings are hidden", func(t *testing.T) {
		f := newFixture()
		f.listings.On("GetListing", mock.Anything, "car-1").Return(&domain.VehicleListing{ID: "car-1", Status: domain.ListingPending}, nil)

		_, err := f.svc.ViewListing(context.Background(), "car-1")

		assert.ErrorIs(t, err, domain.ErrListingNotFound)
		f.listings.AssertNotCalled(t, "IncrementViewCount", mock.Anything, mock.Anything)
	})

	t.Run("active listings count a view", func(t *testing.T) {
		f := newFixture()
		f.listings.On("GetListing", mock.Anything, "car-1").Return(&domain.VehicleListing{ID: "car-1", Status: domain.ListingActive, ViewCount: 4}, nil)
		f.listings.On("IncrementViewCount", mock.Anything, "car-1").Return(nil)

		l, err := f.svc.ViewListing(context.Background(), "car-1")

		require.NoError(t, err)
		assert.Equal(t, 5, l.ViewCount)
	})
}

func TestContactListing(t *testing.T) {
	f := newFixture()
	f.listings.On("GetListing", mock.Anything, "car-1").Return(&domain.VehicleListing{
		ID: "car-1", Status: domain.ListingActive, ContactNumber: "+55 11 5555-0000",
	}, nil)
	f.listings.On("IncrementContactCount", mock.Anything, "car-1").Return(errors.New("rpc failed"))

	number, err := f.svc.ContactListing(context.Background(), "car-1")

	require.NoError(t, err)
	assert.Equal(t, "+55 11 5555-0000", number)
}

func TestListPublicListings_ForcesActive(t *testing.T) {
	f := newFixture()
	f.listings.On("ListListings", mock.Anything, mock.MatchedBy(func(lf domain.ListingFilter) bool {
		return lf.Status == domain.ListingActive && lf.Brand == "Honda"
	})).Return([]domain.VehicleListing{{ID: "car-1"}}, 1, nil)

	list, total, err := f.svc.ListPublicListings(context.Background(), domain.ListingFilter{
		Status: domain.ListingPending,
		Brand:  "Honda",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
}

func TestApproveListing_AuditCarriesSession(t *testing.T) {
	f := newFixture()
	f.listings.On("SetListingStatus", mock.Anything, "car-1", domain.ListingActive).Return(nil)

	ctx := WithClientInfo(context.Background(), "203.0.113.7", "curl/8.0")
	ctx = auth.WithSession(ctx, &auth.Session{ID: "sess-1", Username: "admin"})

	require.NoError(t, f.svc.ApproveListing(ctx, "car-1"))

	require.Len(t, f.audit.entries, 1)
	e := f.audit.entries[0]
	assert.Equal(t, domain.AuditListingApprove, e.Action)
	assert.Equal(t, EntityListing, e.Entity)
	assert.Equal(t, "car-1", e.EntityID)
	assert.Equal(t, "sess-1", e.SessionID)
	assert.Equal(t, "admin", e.Username)
	assert.Equal(t, "203.0.113.7", e.IPAddress)
	assert.Equal(t, "curl/8.0", e.UserAgent)
}

func TestDeleteImage_RowBeforeObject(t *testing.T) {
	f := newFixture()
	var order []string
	f.images.On("GetImage", mock.Anything, "i1").Return(&domain.VehicleImage{ID: "i1", ListingID: "car-1", StorageKey: "car-1/i1.jpg"}, nil)
	f.images.On("DeleteImage", mock.Anything, "i1").Run(func(mock.Arguments) { order = append(order, "row") }).Return(nil)
	f.objects.On("Remove", mock.Anything, storage.BucketCarImages, "car-1/i1.jpg").Run(func(mock.Arguments) { order = append(order, "object") }).Return(nil)

	require.NoError(t, f.svc.DeleteImage(context.Background(), "i1"))
	assert.Equal(t, []string{"row", "object"}, order)
}
