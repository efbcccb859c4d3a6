package verifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

var errNoSiteURL = errors.New("site has no URL to verify against")

// SiteCrawler runs one crawl.
type SiteCrawler interface {
	Execute(ctx context.Context, opts entities.CrawlOptions) (*entities.CrawlResult, error)
}

// CrawlVerifierRepository verifies fixes by crawling the site again and comparing scores.
type CrawlVerifierRepository struct {
	settings *entities.Settings
	crawler  SiteCrawler
}

var _ repositories.VerifierRepository = (*CrawlVerifierRepository)(nil)

// NewCrawlVerifierRepository creates a new CrawlVerifierRepository.
func NewCrawlVerifierRepository(settings *entities.Settings, crawler SiteCrawler) *CrawlVerifierRepository {
	return &CrawlVerifierRepository{settings: settings, crawler: crawler}
}

func (it *CrawlVerifierRepository) Name() string { return entities.VerifierCrawl }

// VerifySite succeeds when the average page score did not drop below the baseline. Without a
// baseline it succeeds when every page could be loaded.
func (it *CrawlVerifierRepository) VerifySite(
	ctx context.Context,
	request entities.VerificationRequest,
) (*entities.VerificationResult, error) {
	seed := request.Site.URL
	if request.Baseline != nil && request.Baseline.SeedURL != "" {
		seed = request.Baseline.SeedURL
	}
	current, err := it.crawl(ctx, seed, request.Baseline)
	if err != nil {
		return nil, err
	}

	currentScore := entities.AverageScore(current.Pages)
	failed := failedPages(current.Pages)
	result := &entities.VerificationResult{
		Metrics: map[string]float64{
			"currentScore": currentScore,
			"pages":        float64(len(current.Pages)),
			"failedPages":  float64(failed),
		},
		VerifiedIssues: make([]entities.VerifiedIssue, 0, len(request.Fixes)),
	}

	if request.Baseline != nil {
		baselineScore := entities.AverageScore(request.Baseline.Pages)
		result.Metrics["baselineScore"] = baselineScore
		result.Success = currentScore >= baselineScore
		result.Details = fmt.Sprintf("average score %.1f -> %.1f over %d pages", baselineScore, currentScore, len(current.Pages))
	} else {
		result.Success = failed == 0
		result.Details = fmt.Sprintf("average score %.1f over %d pages, %d failed", currentScore, len(current.Pages), failed)
	}

	for _, fix := range request.Fixes {
		result.VerifiedIssues = append(result.VerifiedIssues, verifyIssue(fix, request.Baseline, current))
	}

	logger.Infof("Verification of site %q: success=%t (%s)", request.SiteID, result.Success, result.Details)
	return result, nil
}

// VerifyFix crawls the site and checks that the issue the fix targets is gone from its page.
// The page is located by the index encoded in the issue id.
func (it *CrawlVerifierRepository) VerifyFix(
	ctx context.Context,
	site entities.Site,
	fix entities.Fix,
) (*entities.VerificationResult, error) {
	current, err := it.crawl(ctx, site.URL, nil)
	if err != nil {
		return nil, err
	}
	verified := verifyIssue(fix, current, current)
	return &entities.VerificationResult{
		Success:        verified.Fixed,
		Metrics:        map[string]float64{"currentScore": entities.AverageScore(current.Pages)},
		VerifiedIssues: []entities.VerifiedIssue{verified},
		Details:        fmt.Sprintf("issue %s fixed=%t", fix.IssueID, verified.Fixed),
	}, nil
}

func (it *CrawlVerifierRepository) crawl(
	ctx context.Context,
	seed string,
	baseline *entities.CrawlResult,
) (*entities.CrawlResult, error) {
	if seed == "" {
		return nil, errNoSiteURL
	}
	opts := it.settings.CrawlOptions(seed)
	if baseline != nil && len(baseline.Pages) > 0 {
		opts.MaxPages = len(baseline.Pages)
		deepest := 0
		for _, page := range baseline.Pages {
			deepest = max(deepest, page.Depth)
		}
		opts.MaxDepth = max(opts.MaxDepth, deepest)
	}
	result, err := it.crawler.Execute(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("verification crawl failed: %w", err)
	}
	return result, nil
}

// verifyIssue resolves "<pageIndex>-<code>" against the reference crawl and reports whether
// that page in the current crawl is free of the issue code.
func verifyIssue(fix entities.Fix, reference, current *entities.CrawlResult) entities.VerifiedIssue {
	verified := entities.VerifiedIssue{IssueID: fix.IssueID, FixID: fix.ID}
	if reference == nil {
		reference = current
	}

	rawIndex, code, found := strings.Cut(fix.IssueID, "-")
	if !found {
		return verified
	}
	index, err := strconv.Atoi(rawIndex)
	if err != nil || index < 0 || index >= len(reference.Pages) {
		return verified
	}
	page, ok := current.FindPage(reference.Pages[index].URL)
	if !ok || page.Failed() {
		return verified
	}
	verified.Fixed = !page.Analysis.HasIssue(code)
	return verified
}

func failedPages(pages []entities.PageReport) int {
	failed := 0
	for _, page := range pages {
		if page.Failed() {
			failed++
		}
	}
	return failed
}
