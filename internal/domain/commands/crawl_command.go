package commands

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/seoremedy/internal/infrastructure/repositories"
)

// Crawl is the interface for the bounded site crawl.
type Crawl interface {
	Execute(ctx context.Context, opts entities.CrawlOptions) (*entities.CrawlResult, error)
}

// CrawlCommand visits a site breadth-first from a seed URL, within page and depth budgets,
// and analyzes every visited page. Queue, visited set and results belong to a single
// Execute call, so one command may serve concurrent crawls.
type CrawlCommand struct {
	settings *entities.Settings
	browsers *infraRepos.BrowserRegistry
	parser   repositories.PageParserRepository
	robots   repositories.RobotsRepository
	metrics  repositories.MetricsRepository
	now      func() time.Time
}

// NewCrawlCommand creates a new CrawlCommand.
func NewCrawlCommand(
	settings *entities.Settings,
	browsers *infraRepos.BrowserRegistry,
	parser repositories.PageParserRepository,
	robots repositories.RobotsRepository,
	metrics repositories.MetricsRepository,
) *CrawlCommand {
	return &CrawlCommand{
		settings: settings,
		browsers: browsers,
		parser:   parser,
		robots:   robots,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type crawlItem struct {
	url   string
	depth int
}

type pageOutcome struct {
	report entities.PageReport
	links  []string
}

// Execute crawls from opts.SeedURL. Unset budgets fall back to the crawler settings.
func (it *CrawlCommand) Execute(ctx context.Context, opts entities.CrawlOptions) (*entities.CrawlResult, error) {
	opts = it.withDefaults(opts)
	seed, err := entities.ParseCrawlURL(opts.SeedURL)
	if err != nil {
		return nil, err
	}
	origin := entities.Origin(seed)

	policy := it.robots.Fetch(ctx, origin)
	if !policy.AllowsOrigin() {
		return nil, fmt.Errorf("%w: %s", entities.ErrCrawlDisallowed, origin)
	}

	browser, err := it.browsers.Get(opts.Browser)
	if err != nil {
		return nil, err
	}
	session, err := browser.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s browser session: %w", browser.Name(), err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warnf("Failed to close %s browser session: %v", browser.Name(), closeErr)
		}
	}()

	started := it.now()
	result := &entities.CrawlResult{SeedURL: seed.String(), StartedAt: started, Pages: []entities.PageReport{}}
	filter := entities.NewLinkFilter(origin, it.settings.Crawler.DenyList)

	seedKey, _ := entities.VisitKey(seed.String())
	queue := []crawlItem{{url: seed.String(), depth: 0}}
	discovered := map[string]struct{}{seedKey: {}}

	logger.Infof("Crawling %s (max %d pages, depth %d, concurrency %d, browser %s)",
		seed, opts.MaxPages, opts.MaxDepth, opts.Concurrency, browser.Name())

	for len(queue) > 0 && len(result.Pages) < opts.MaxPages {
		if err = ctx.Err(); err != nil {
			return nil, fmt.Errorf("crawl of %s interrupted after %d page(s): %w", origin, len(result.Pages), err)
		}

		var wave []crawlItem
		budget := min(opts.Concurrency, opts.MaxPages-len(result.Pages))
		for len(queue) > 0 && len(wave) < budget {
			item := queue[0]
			queue = queue[1:]
			if item.depth > opts.MaxDepth || !allowedByRobots(policy, item.url) {
				logger.Debugf("Skipping %s", item.url)
				continue
			}
			wave = append(wave, item)
		}
		if len(wave) == 0 {
			continue
		}

		outcomes := make([]pageOutcome, len(wave))
		var group errgroup.Group
		group.SetLimit(opts.Concurrency)
		for i, item := range wave {
			group.Go(func() error {
				outcomes[i] = it.visit(ctx, session, item, opts.NavigationTimeout)
				return nil
			})
		}
		_ = group.Wait()

		for _, outcome := range outcomes {
			result.Pages = append(result.Pages, outcome.report)
			if outcome.report.Depth >= opts.MaxDepth {
				continue
			}
			for _, link := range filter.FilterLinks(outcome.links) {
				key, keyErr := entities.VisitKey(link)
				if keyErr != nil {
					continue
				}
				if _, seen := discovered[key]; seen {
					continue
				}
				discovered[key] = struct{}{}
				queue = append(queue, crawlItem{url: link, depth: outcome.report.Depth + 1})
			}
		}
	}

	result.FinishedAt = it.now()
	it.metrics.CrawlFinished(len(result.Pages), result.FinishedAt.Sub(started))
	logger.Infof("Crawled %d page(s) of %s, average score %.1f",
		len(result.Pages), origin, entities.AverageScore(result.Pages))
	return result, nil
}

// visit navigates to one page and analyzes it. Failures become failed reports.
func (it *CrawlCommand) visit(
	ctx context.Context,
	session repositories.BrowserSession,
	item crawlItem,
	timeout time.Duration,
) pageOutcome {
	started := time.Now()
	report := entities.PageReport{URL: item.url, Depth: item.depth, Timestamp: it.now()}

	page, err := session.Navigate(ctx, item.url, timeout)
	if err != nil {
		logger.Warnf("Navigation to %s failed: %v", item.url, err)
		report.Error = err.Error()
		report.Analysis = entities.FailedAnalysis(err)
		it.metrics.PageCrawled("failed", time.Since(started))
		return pageOutcome{report: report}
	}
	report.StatusCode = page.StatusCode

	base := page.FinalURL
	if base == "" {
		base = item.url
	}
	parsed, err := it.parser.Parse(base, page.HTML)
	if err != nil {
		logger.Warnf("Parsing %s failed: %v", item.url, err)
		report.Error = err.Error()
		report.Analysis = entities.FailedAnalysis(err)
		it.metrics.PageCrawled("failed", time.Since(started))
		return pageOutcome{report: report}
	}

	parsed.Signals.LoadTime = page.LoadTime
	report.Signals = parsed.Signals
	report.Analysis = entities.Analyze(parsed.Signals)
	it.metrics.PageCrawled("ok", time.Since(started))
	logger.Debugf("Visited %s (depth %d, status %d, score %d)",
		item.url, item.depth, page.StatusCode, report.Analysis.Score)
	return pageOutcome{report: report, links: parsed.Links}
}

func (it *CrawlCommand) withDefaults(opts entities.CrawlOptions) entities.CrawlOptions {
	defaults := it.settings.CrawlOptions(opts.SeedURL)
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaults.MaxPages
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = defaults.MaxDepth
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(1, defaults.Concurrency)
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = defaults.NavigationTimeout
	}
	return opts
}

func allowedByRobots(policy entities.RobotsPolicy, rawURL string) bool {
	parsed, err := entities.ParseCrawlURL(rawURL)
	if err != nil {
		return false
	}
	return policy.Allows(parsed.RequestURI())
}
