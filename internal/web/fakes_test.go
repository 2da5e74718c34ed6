package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/dealership/internal/auth"
	"github.com/JonMunkholm/dealership/internal/config"
	"github.com/JonMunkholm/dealership/internal/core"
	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/storage"
	"github.com/JonMunkholm/dealership/internal/wizard"
)

// memRepo implements every repository contract in memory.
type memRepo struct {
	mu        sync.Mutex
	seq       int
	listings  map[string]*domain.VehicleListing
	images    map[string]*domain.VehicleImage
	financing map[string]*domain.FinancingRequest
	posts     map[string]*domain.BlogPost
	audit     []domain.AuditEntry

	failFinancing error
}

func newMemRepo() *memRepo {
	return &memRepo{
		listings:  make(map[string]*domain.VehicleListing),
		images:    make(map[string]*domain.VehicleImage),
		financing: make(map[string]*domain.FinancingRequest),
		posts:     make(map[string]*domain.BlogPost),
	}
}

func (m *memRepo) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memRepo) CreateListing(_ context.Context, l *domain.VehicleListing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.nextID("car")
	l.CreatedAt = time.Now()
	cp := *l
	m.listings[l.ID] = &cp
	return nil
}

func (m *memRepo) UpdateListing(_ context.Context, l *domain.VehicleListing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[l.ID]; !ok {
		return domain.ErrListingNotFound
	}
	cp := *l
	m.listings[l.ID] = &cp
	return nil
}

func (m *memRepo) GetListing(_ context.Context, id string) (*domain.VehicleListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	cp := *l
	cp.Images = nil
	for _, img := range m.images {
		if img.ListingID == id {
			cp.Images = append(cp.Images, *img)
		}
	}
	return &cp, nil
}

func (m *memRepo) ListListings(_ context.Context, f domain.ListingFilter) ([]domain.VehicleListing, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.VehicleListing
	for _, l := range m.listings {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.SyncState != "" && l.SyncState != f.SyncState {
			continue
		}
		if f.Brand != "" && !strings.EqualFold(l.Brand, f.Brand) {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memRepo) SetListingStatus(_ context.Context, id string, status domain.ListingStatus) error {
	return m.withListing(id, func(l *domain.VehicleListing) { l.Status = status })
}

func (m *memRepo) SetListingFeatured(_ context.Context, id string, featured bool) error {
	return m.withListing(id, func(l *domain.VehicleListing) { l.Featured = featured })
}

func (m *memRepo) DeleteListing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[id]; !ok {
		return domain.ErrListingNotFound
	}
	delete(m.listings, id)
	for imgID, img := range m.images {
		if img.ListingID == id {
			delete(m.images, imgID)
		}
	}
	return nil
}

func (m *memRepo) IncrementViewCount(_ context.Context, id string) error {
	return m.withListing(id, func(l *domain.VehicleListing) { l.ViewCount++ })
}

func (m *memRepo) IncrementContactCount(_ context.Context, id string) error {
	return m.withListing(id, func(l *domain.VehicleListing) { l.ContactCount++ })
}

func (m *memRepo) ReplaceFeatures(_ context.Context, id string, tags []domain.FeatureTag) error {
	return m.withListing(id, func(l *domain.VehicleListing) { l.Features = tags })
}

func (m *memRepo) ListFeatures(ctx context.Context, id string) ([]domain.FeatureTag, error) {
	l, err := m.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.Features, nil
}

func (m *memRepo) RecordSync(_ context.Context, id string, state domain.SyncState, pending []domain.FeatureTag, syncErr string) error {
	return m.withListing(id, func(l *domain.VehicleListing) {
		l.SyncState = state
		l.PendingFeatures = pending
		l.SyncError = syncErr
		l.SyncUpdatedAt = time.Now()
	})
}

func (m *memRepo) ListStale(_ context.Context, before time.Time, limit int) ([]domain.VehicleListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.VehicleListing
	for _, l := range m.listings {
		retry := l.SyncState == domain.SyncAwaitingChildren ||
			(l.SyncState == domain.SyncNeedsRepair && len(l.PendingFeatures) > 0)
		if retry && l.SyncUpdatedAt.Before(before) && len(out) < limit {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memRepo) withListing(id string, fn func(*domain.VehicleListing)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return domain.ErrListingNotFound
	}
	fn(l)
	return nil
}

func (m *memRepo) ListImages(_ context.Context, listingID string) ([]domain.VehicleImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.VehicleImage
	for _, img := range m.images {
		if img.ListingID == listingID {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (m *memRepo) GetImage(_ context.Context, id string) (*domain.VehicleImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	cp := *img
	return &cp, nil
}

func (m *memRepo) InsertImage(_ context.Context, img *domain.VehicleImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if img.Primary {
		for _, other := range m.images {
			if other.ListingID == img.ListingID {
				other.Primary = false
			}
		}
	}
	img.ID = m.nextID("img")
	cp := *img
	m.images[img.ID] = &cp
	return nil
}

func (m *memRepo) DeleteImage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[id]; !ok {
		return domain.ErrImageNotFound
	}
	delete(m.images, id)
	return nil
}

func (m *memRepo) SetPrimaryImage(_ context.Context, listingID, imageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[imageID]
	if !ok || img.ListingID != listingID {
		return domain.ErrImageNotFound
	}
	for _, other := range m.images {
		if other.ListingID == listingID {
			other.Primary = other.ID == imageID
		}
	}
	return nil
}

func (m *memRepo) CreateFinancing(_ context.Context, req *domain.FinancingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFinancing != nil {
		return m.failFinancing
	}
	req.ID = m.nextID("fin")
	cp := *req
	m.financing[req.ID] = &cp
	return nil
}

func (m *memRepo) GetFinancing(_ context.Context, id string) (*domain.FinancingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.financing[id]
	if !ok {
		return nil, domain.ErrFinancingNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memRepo) ListFinancing(_ context.Context, f domain.FinancingFilter) ([]domain.FinancingRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FinancingRequest
	for _, req := range m.financing {
		if f.Status == "" || req.Status == f.Status {
			out = append(out, *req)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) SetFinancingStatus(_ context.Context, id string, status domain.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.financing[id]
	if !ok {
		return domain.ErrFinancingNotFound
	}
	req.Status = status
	return nil
}

func (m *memRepo) DeleteFinancing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.financing[id]; !ok {
		return domain.ErrFinancingNotFound
	}
	delete(m.financing, id)
	return nil
}

func (m *memRepo) CreatePost(_ context.Context, p *domain.BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID("post")
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *memRepo) UpdatePost(_ context.Context, p *domain.BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; !ok {
		return domain.ErrPostNotFound
	}
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *memRepo) GetPost(_ context.Context, id string) (*domain.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) ListPosts(_ context.Context, limit, offset int) ([]domain.BlogPost, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BlogPost
	for _, p := range m.posts {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *memRepo) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return domain.ErrPostNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memRepo) InsertAudit(_ context.Context, e *domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.nextID("audit")
	m.audit = append(m.audit, *e)
	return nil
}

func (m *memRepo) ListAudit(_ context.Context, f domain.AuditFilter) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range m.audit {
		if f.Action == "" || e.Action == f.Action {
			out = append(out, e)
		}
	}
	return out, nil
}

// memObjects stores uploads in memory.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func (o *memObjects) Upload(_ context.Context, bucket, prefix string, f storage.File) (*storage.Object, error) {
	if f.Size <= 0 {
		return nil, storage.ErrEmptyFile
	}
	if f.Size > storage.DefaultMaxFileSize {
		return nil, storage.ErrFileTooLarge
	}
	data, err := io.ReadAll(f.Body)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	key := storage.ObjectKey(prefix, f.Name)
	o.objects[bucket+"/"+key] = data
	return &storage.Object{Bucket: bucket, Key: key, URL: "http://objects.test/" + bucket + "/" + key, Size: f.Size}, nil
}

func (o *memObjects) Remove(_ context.Context, bucket, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, bucket+"/"+key)
	o.removed = append(o.removed, bucket+"/"+key)
	return nil
}

const testPassword = "correct horse battery staple"

type testServer struct {
	*Server
	repo    *memRepo
	objects *memObjects
	http    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	repo := newMemRepo()
	objects := &memObjects{objects: make(map[string][]byte)}
	svc := core.NewService(core.Deps{
		Listings:  repo,
		Images:    repo,
		Financing: repo,
		Blog:      repo,
		Audit:     repo,
		Objects:   objects,
	}, core.Options{MaxImages: cfg.Upload.MaxImages})

	validator, err := wizard.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	wiz := wizard.New(wizard.NewMemoryStore(t.Context(), time.Hour), validator, objects, svc, cfg.Storage.DocumentBucket)

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	authenticator := auth.New(auth.Options{
		Username:     "admin",
		PasswordHash: hash,
		Secret:       "0123456789abcdef0123456789abcdef",
		TTL:          time.Hour,
	}, auth.NewMemorySessionStore())

	srv := NewServer(Deps{Service: svc, Wizard: wiz, Auth: authenticator}, cfg)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})
	return &testServer{Server: srv, repo: repo, objects: objects, http: ts}
}

// seedListing stores a listing directly.
func (ts *testServer) seedListing(status domain.ListingStatus) *domain.VehicleListing {
	l := &domain.VehicleListing{
		Title:         "Civic EXL",
		Brand:         "Honda",
		Model:         "Civic",
		Year:          2020,
		Price:         98000,
		ContactNumber: "+55 11 99999-0000",
		Status:        status,
		SyncState:     domain.SyncComplete,
	}
	ts.repo.CreateListing(context.Background(), l)
	return l
}

func (ts *testServer) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := ts.http.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
