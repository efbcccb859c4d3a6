package repositories

import (
	"fmt"
	"sort"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	domainRepos "github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// BrowserFactory builds a BrowserRepository from the crawler settings.
type BrowserFactory func(settings entities.CrawlerSettings) domainRepos.BrowserRepository

// BrowserRegistry manages the available browser backends.
type BrowserRegistry struct {
	settings  entities.CrawlerSettings
	factories map[string]BrowserFactory
}

// NewBrowserRegistry creates an empty registry bound to the crawler settings.
func NewBrowserRegistry(settings entities.CrawlerSettings) *BrowserRegistry {
	return &BrowserRegistry{
		settings:  settings,
		factories: make(map[string]BrowserFactory),
	}
}

// Register adds a backend factory under the given name (e.g. "chromedp").
func (r *BrowserRegistry) Register(name string, factory BrowserFactory) {
	r.factories[name] = factory
}

// Get returns the named backend, or the configured default when name is empty.
func (r *BrowserRegistry) Get(name string) (domainRepos.BrowserRepository, error) {
	if name == "" {
		name = r.settings.Browser
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown browser backend: %q", name)
	}
	return factory(r.settings), nil
}

// Names returns the registered backend names in sorted order.
func (r *BrowserRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
