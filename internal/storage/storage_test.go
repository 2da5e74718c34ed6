package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu       sync.Mutex
	buckets  map[string]bool
	objects  map[string][]byte
	policies map[string]string
	puts     int
	existErr error
	putErr   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		buckets:  make(map[string]bool),
		objects:  make(map[string][]byte),
		policies: make(map[string]string),
	}
}

func (f *fakeClient) BucketExists(_ context.Context, bucket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existErr != nil {
		return false, f.existErr
	}
	return f.buckets[bucket], nil
}

func (f *fakeClient) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucket] = true
	return nil
}

func (f *fakeClient) SetBucketPolicy(_ context.Context, bucket, policy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[bucket] = policy
	return nil
}

func (f *fakeClient) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+key] = data
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (f *fakeClient) RemoveObject(_ context.Context, bucket, key string, _ minio.RemoveObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+key)
	return nil
}

func TestUpload_StoresObjectAndBuildsURL(t *testing.T) {
	client := newFakeClient()
	u := NewUploader(client, Options{PublicBaseURL: "http://localhost:9000/"})

	obj, err := u.Upload(context.Background(), BucketFinancingDocs, "incomeProof", File{
		Name: "Holerite.PDF",
		Size: 4,
		Body: strings.NewReader("data"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(obj.Key, "incomeProof/"))
	assert.True(t, strings.HasSuffix(obj.Key, ".pdf"), "extension is lower-cased")
	assert.Equal(t, "http://localhost:9000/financing-docs/"+obj.Key, obj.URL)
	assert.Equal(t, []byte("data"), client.objects[BucketFinancingDocs+"/"+obj.Key])
	assert.True(t, client.buckets[BucketFinancingDocs], "bucket created lazily")
	assert.Contains(t, client.policies[BucketFinancingDocs], "arn:aws:s3:::financing-docs/*")
}

func TestUpload_TooLargeMakesNoNetworkCall(t *testing.T) {
	client := newFakeClient()
	u := NewUploader(client, Options{})

	_, err := u.Upload(context.Background(), BucketFinancingDocs, "", File{
		Name: "big.pdf",
		Size: DefaultMaxFileSize + 1,
		Body: strings.NewReader(""),
	})

	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.Contains(t, err.Error(), "5 MB")
	assert.Equal(t, 0, client.puts)
	assert.Empty(t, client.buckets, "bucket must not be touched")
}

func TestUpload_PerBucketLimit(t *testing.T) {
	u := NewUploader(newFakeClient(), Options{MaxSizes: map[string]int64{BucketCarImages: 10 * 1024 * 1024}})

	assert.NoError(t, u.CheckSize(BucketCarImages, 8*1024*1024))
	assert.ErrorIs(t, u.CheckSize(BucketFinancingDocs, 8*1024*1024), ErrFileTooLarge)
	assert.ErrorIs(t, u.CheckSize(BucketCarImages, 0), ErrEmptyFile)
}

func TestUpload_SameFileTwiceCreatesTwoObjects(t *testing.T) {
	client := newFakeClient()
	u := NewUploader(client, Options{})
	ctx := context.Background()

	a, err := u.Upload(ctx, BucketCarImages, "", File{Name: "car.jpg", Size: 1, Body: strings.NewReader("x")})
	require.NoError(t, err)
	b, err := u.Upload(ctx, BucketCarImages, "", File{Name: "car.jpg", Size: 1, Body: strings.NewReader("x")})
	require.NoError(t, err)

	assert.NotEqual(t, a.Key, b.Key)
	assert.Len(t, client.objects, 2)
}

func TestUpload_PutErrorIsReturned(t *testing.T) {
	client := newFakeClient()
	client.putErr = errors.New("connection reset")
	u := NewUploader(client, Options{})

	_, err := u.Upload(context.Background(), BucketCarImages, "", File{Name: "a.png", Size: 1, Body: strings.NewReader("x")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 0, u.Limiter().Active(), "slot released on failure")
}

func TestUpload_BucketCheckFailureIsBestEffort(t *testing.T) {
	client := newFakeClient()
	client.existErr = errors.New("access denied")
	u := NewUploader(client, Options{})

	_, err := u.Upload(context.Background(), BucketBlogImages, "", File{Name: "c.webp", Size: 1, Body: strings.NewReader("x")})

	require.NoError(t, err)
	assert.Equal(t, 1, client.puts)
}

func TestRemove(t *testing.T) {
	client := newFakeClient()
	u := NewUploader(client, Options{})
	ctx := context.Background()

	obj, err := u.Upload(ctx, BucketCarImages, "", File{Name: "a.jpg", Size: 1, Body: strings.NewReader("x")})
	require.NoError(t, err)

	require.NoError(t, u.Remove(ctx, BucketCarImages, obj.Key))
	assert.Empty(t, client.objects)
	assert.NoError(t, u.Remove(ctx, BucketCarImages, ""))
}

func TestObjectKey(t *testing.T) {
	assert.Regexp(t, `^[0-9a-f-]{36}\.jpeg$`, ObjectKey("", "photo.JPEG"))
	assert.Regexp(t, `^docs/[0-9a-f-]{36}$`, ObjectKey("/docs/", "noext"))
}
