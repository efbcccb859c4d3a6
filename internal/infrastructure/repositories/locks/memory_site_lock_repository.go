package locks

import (
	"context"
	"sync"

	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// MemorySiteLockRepository serializes work per site inside one process.
type MemorySiteLockRepository struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

var _ repositories.SiteLockRepository = (*MemorySiteLockRepository)(nil)

// NewMemorySiteLockRepository creates a new MemorySiteLockRepository.
func NewMemorySiteLockRepository() *MemorySiteLockRepository {
	return &MemorySiteLockRepository{slots: make(map[string]chan struct{})}
}

func (it *MemorySiteLockRepository) slot(siteID string) chan struct{} {
	it.mu.Lock()
	defer it.mu.Unlock()
	slot, ok := it.slots[siteID]
	if !ok {
		slot = make(chan struct{}, 1)
		it.slots[siteID] = slot
	}
	return slot
}

func (it *MemorySiteLockRepository) Lock(ctx context.Context, siteID string) (func(), error) {
	slot := it.slot(siteID)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}
