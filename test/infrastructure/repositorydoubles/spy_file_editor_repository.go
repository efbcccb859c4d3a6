//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"strings"
	"sync"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// SpyFileEditorRepository records applied fixes. When Repos is set, the edit is applied
// to the working tree of the fake repository for the directory.
type SpyFileEditorRepository struct {
	mu sync.Mutex

	Repos *FakeVCSFactory
	// FailPaths makes Apply fail for the listed fix paths.
	FailPaths map[string]error

	Applied []entities.Fix
	Dirs    []string
}

var _ repositories.FileEditorRepository = (*SpyFileEditorRepository)(nil)

func (s *SpyFileEditorRepository) Apply(ctx context.Context, dir string, fix entities.Fix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailPaths[fix.Path]; ok {
		return err
	}
	if s.Repos != nil {
		repo := s.Repos.Repo(dir)
		current, _ := repo.WorkingFile(fix.Path)
		next := fix.Changes.Modified
		if fix.Changes.Original != "" {
			if !strings.Contains(current, fix.Changes.Original) {
				return entities.ErrOriginalNotFound
			}
			next = strings.Replace(current, fix.Changes.Original, fix.Changes.Modified, 1)
		}
		if err := repo.WriteFile(ctx, fix.Path, []byte(next)); err != nil {
			return err
		}
	}
	s.Applied = append(s.Applied, fix)
	s.Dirs = append(s.Dirs, dir)
	return nil
}
