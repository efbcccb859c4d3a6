//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"sync"

	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// SpySiteLockRepository is a keyed mutex that records lock traffic.
type SpySiteLockRepository struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	LockErr error

	Acquired []string
	Released []string
}

var _ repositories.SiteLockRepository = (*SpySiteLockRepository)(nil)

func (s *SpySiteLockRepository) Lock(ctx context.Context, siteID string) (func(), error) {
	s.mu.Lock()
	if s.LockErr != nil {
		s.mu.Unlock()
		return nil, s.LockErr
	}
	if s.locks == nil {
		s.locks = map[string]*sync.Mutex{}
	}
	lock, ok := s.locks[siteID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[siteID] = lock
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock.Lock()

	s.mu.Lock()
	s.Acquired = append(s.Acquired, siteID)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.Released = append(s.Released, siteID)
			s.mu.Unlock()
			lock.Unlock()
		})
	}, nil
}

// Balanced reports whether every acquired lock was released.
func (s *SpySiteLockRepository) Balanced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Acquired) == len(s.Released)
}
