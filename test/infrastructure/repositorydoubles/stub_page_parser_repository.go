//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// StubPageParserRepository returns canned signals and links per page URL. Unknown pages
// parse to DefaultSignals with no links.
type StubPageParserRepository struct {
	Links          map[string][]string
	Signals        map[string]entities.PageSignals
	DefaultSignals entities.PageSignals
	ParseErr       error
}

var _ repositories.PageParserRepository = (*StubPageParserRepository)(nil)

func (s *StubPageParserRepository) Parse(pageURL, _ string) (*entities.ParsedPage, error) {
	if s.ParseErr != nil {
		return nil, s.ParseErr
	}
	signals, ok := s.Signals[pageURL]
	if !ok {
		signals = s.DefaultSignals
	}
	return &entities.ParsedPage{Signals: signals, Links: s.Links[pageURL]}, nil
}
