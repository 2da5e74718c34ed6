package core

import (
	"context"

	"github.com/JonMunkholm/dealership/internal/metrics"
	"github.com/JonMunkholm/dealership/internal/storage"
)

// InstrumentObjects counts uploads of objects in m. A nil m returns objects
// unchanged.
func InstrumentObjects(objects ObjectStore, m *metrics.Metrics) ObjectStore {
	if m == nil {
		return objects
	}
	return &countingStore{ObjectStore: objects, metrics: m}
}

type countingStore struct {
	ObjectStore
	metrics *metrics.Metrics
}

func (c *countingStore) Upload(ctx context.Context, bucket, prefix string, f storage.File) (*storage.Object, error) {
	obj, err := c.ObjectStore.Upload(ctx, bucket, prefix, f)
	c.metrics.Upload(bucket, err)
	return obj, err
}
