package internal

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/controllers"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/verifier"
)

// RegisterProviders registers all internal providers with the DIG container.
// The entry point must provide *entities.Settings beforehand.
func RegisterProviders(container *dig.Container) error {
	// Register all layers (bottom-up: infrastructure repos -> domain entities -> domain commands -> controllers)
	if err := repositories.RegisterProviders(container); err != nil {
		return err
	}
	if err := entities.RegisterProviders(container); err != nil {
		return err
	}
	if err := commands.RegisterProviders(container); err != nil {
		return err
	}
	if err := controllers.RegisterProviders(container); err != nil {
		return err
	}

	// The crawl verifier re-crawls through the crawl command
	if err := container.Provide(func(crawl commands.Crawl) verifier.SiteCrawler {
		return crawl
	}); err != nil {
		return err
	}

	// Register the main app internal
	if err := container.Provide(NewAppInternal); err != nil {
		return err
	}

	return nil
}
