//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// SpyFixGeneratorRepository returns configured fixes and records the issues it received.
type SpyFixGeneratorRepository struct {
	Fixes []entities.Fix
	Err   error

	Sites  []entities.Site
	Issues [][]entities.SiteIssue
}

var _ repositories.FixGeneratorRepository = (*SpyFixGeneratorRepository)(nil)

func (s *SpyFixGeneratorRepository) Name() string { return "spy" }

func (s *SpyFixGeneratorRepository) Generate(
	_ context.Context,
	site entities.Site,
	issues []entities.SiteIssue,
) ([]entities.Fix, error) {
	s.Sites = append(s.Sites, site)
	s.Issues = append(s.Issues, issues)
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]entities.Fix(nil), s.Fixes...), nil
}

// StubVerifierRepository returns a configured verification result.
type StubVerifierRepository struct {
	Result *entities.VerificationResult
	Err    error

	SiteRequests []entities.VerificationRequest
	FixRequests  []entities.Fix
}

var _ repositories.VerifierRepository = (*StubVerifierRepository)(nil)

func (s *StubVerifierRepository) Name() string { return "stub" }

func (s *StubVerifierRepository) VerifySite(
	_ context.Context,
	request entities.VerificationRequest,
) (*entities.VerificationResult, error) {
	s.SiteRequests = append(s.SiteRequests, request)
	return s.result()
}

func (s *StubVerifierRepository) VerifyFix(
	_ context.Context,
	_ entities.Site,
	fix entities.Fix,
) (*entities.VerificationResult, error) {
	s.FixRequests = append(s.FixRequests, fix)
	return s.result()
}

func (s *StubVerifierRepository) result() (*entities.VerificationResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result == nil {
		return &entities.VerificationResult{Success: true, Metrics: map[string]float64{}}, nil
	}
	return s.Result, nil
}
