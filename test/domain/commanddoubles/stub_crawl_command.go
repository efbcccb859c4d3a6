//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// StubCrawlCommand is a stub implementation of commands.Crawl.
type StubCrawlCommand struct {
	Result *entities.CrawlResult
	Err    error

	Calls []entities.CrawlOptions
}

var _ commands.Crawl = (*StubCrawlCommand)(nil)

func (s *StubCrawlCommand) Execute(_ context.Context, opts entities.CrawlOptions) (*entities.CrawlResult, error) {
	s.Calls = append(s.Calls, opts)
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result == nil {
		return &entities.CrawlResult{SeedURL: opts.SeedURL, Pages: []entities.PageReport{}}, nil
	}
	return s.Result, nil
}
