package gateway

import (
	"context"
	"sync"
)

// AssetRepository is the gateway's read-only view of the media asset catalog.
// The catalog itself is owned by the upload/content-management collaborators.
type AssetRepository interface {
	// GetByID returns the asset with the given id, or ErrAssetNotFound.
	GetByID(ctx context.Context, id string) (*MediaAsset, error)

	// ReadyCount returns the number of assets in ready status. Used for
	// metrics.
	ReadyCount(ctx context.Context) (int, error)
}

// InMemoryAssetRepository is a concurrency-safe in-memory AssetRepository,
// used in tests and local development.
type InMemoryAssetRepository struct {
	mu     sync.RWMutex
	assets map[string]MediaAsset
}

// NewInMemoryAssetRepository constructs a new empty in-memory repository.
func NewInMemoryAssetRepository() *InMemoryAssetRepository {
	return &InMemoryAssetRepository{assets: make(map[string]MediaAsset)}
}

// Put stores or replaces an asset.
func (r *InMemoryAssetRepository) Put(a MediaAsset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[a.ID] = a
}

// GetByID implements AssetRepository.GetByID.
func (r *InMemoryAssetRepository) GetByID(_ context.Context, id string) (*MediaAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assets[id]
	if !ok {
		return nil, ErrAssetNotFound
	}
	return &a, nil
}

// ReadyCount implements AssetRepository.ReadyCount.
func (r *InMemoryAssetRepository) ReadyCount(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.assets {
		if a.Status == StatusReady {
			n++
		}
	}
	return n, nil
}
