//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"strings"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// StubRobotsPolicy disallows the given path prefixes, or the whole origin.
type StubRobotsPolicy struct {
	DisallowAll bool
	Disallowed  []string
}

func (p StubRobotsPolicy) AllowsOrigin() bool { return !p.DisallowAll }

func (p StubRobotsPolicy) Allows(path string) bool {
	if p.DisallowAll {
		return false
	}
	for _, prefix := range p.Disallowed {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// StubRobotsRepository returns a fixed policy and records fetched origins.
type StubRobotsRepository struct {
	Policy  entities.RobotsPolicy
	Fetched []string
}

var _ repositories.RobotsRepository = (*StubRobotsRepository)(nil)

func (s *StubRobotsRepository) Fetch(_ context.Context, origin string) entities.RobotsPolicy {
	s.Fetched = append(s.Fetched, origin)
	if s.Policy == nil {
		return entities.AllowAllPolicy{}
	}
	return s.Policy
}
