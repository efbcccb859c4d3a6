package commands

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all command providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register command constructors
	if err := container.Provide(NewChangeTrackingCommand); err != nil {
		return err
	}
	if err := container.Provide(NewCrawlCommand); err != nil {
		return err
	}
	if err := container.Provide(NewPipelineCommand); err != nil {
		return err
	}

	// Bind interfaces to implementations
	if err := container.Provide(func(impl *ChangeTrackingCommand) ChangeTracking {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *CrawlCommand) Crawl {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *PipelineCommand) Pipeline {
		return impl
	}); err != nil {
		return err
	}

	return nil
}
