package repositories

import (
	"fmt"

	"go.uber.org/dig"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	domainRepos "github.com/rios0rios0/seoremedy/internal/domain/repositories"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/browser"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/editor"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/generator"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/git"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/locks"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/metrics"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/parser"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/robots"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/verifier"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register concrete repositories
	constructors := []any{
		git.NewExecRunner,
		git.NewVCSFactory,
		metrics.NewPrometheusMetricsRepository,
		editor.NewFileEditorRepository,
		robots.NewRobotsRepository,
		parser.NewPageParserRepository,
		generator.NewExecFixGeneratorRepository,
		verifier.NewCrawlVerifierRepository,
		newSiteLockRepository,
	}
	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Register browser registry with all backend factories
	if err := container.Provide(func(settings *entities.Settings) *BrowserRegistry {
		reg := NewBrowserRegistry(settings.Crawler)
		reg.Register(entities.BrowserChromedp, browser.NewChromedpBrowserRepository)
		reg.Register(entities.BrowserHTTP, browser.NewHTTPBrowserRepository)
		return reg
	}); err != nil {
		return err
	}

	// Register fix generator and verifier registries
	if err := container.Provide(func(exec *generator.ExecFixGeneratorRepository) *FixGeneratorRegistry {
		reg := NewFixGeneratorRegistry()
		reg.Register(exec)
		return reg
	}); err != nil {
		return err
	}
	if err := container.Provide(func(crawl *verifier.CrawlVerifierRepository) *VerifierRegistry {
		reg := NewVerifierRegistry()
		reg.Register(crawl)
		return reg
	}); err != nil {
		return err
	}

	// Bind interfaces to implementations
	if err := container.Provide(func(impl *git.ExecRunner) git.CommandRunner {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *git.VCSFactory) domainRepos.VCSFactory {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *metrics.PrometheusMetricsRepository) domainRepos.MetricsRepository {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *editor.FileEditorRepository) domainRepos.FileEditorRepository {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *robots.RobotsRepository) domainRepos.RobotsRepository {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *parser.PageParserRepository) domainRepos.PageParserRepository {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(reg *FixGeneratorRegistry) (domainRepos.FixGeneratorRepository, error) {
		return reg.Get(entities.GeneratorExec)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		reg *VerifierRegistry,
		settings *entities.Settings,
	) (domainRepos.VerifierRepository, error) {
		return reg.Get(settings.Verifier.Backend)
	}); err != nil {
		return err
	}

	return nil
}

// newSiteLockRepository selects the lock backend from the settings.
func newSiteLockRepository(settings *entities.Settings) (domainRepos.SiteLockRepository, error) {
	switch settings.Lock.Backend {
	case entities.LockMemory, "":
		return locks.NewMemorySiteLockRepository(), nil
	case entities.LockRedis:
		client := locks.NewRedisClient(settings.Lock)
		return locks.NewRedisSiteLockRepository(client, settings.Lock), nil
	default:
		return nil, fmt.Errorf("unknown lock backend: %q", settings.Lock.Backend)
	}
}
