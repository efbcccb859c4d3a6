package repositories

import (
	"fmt"
	"sort"

	domainRepos "github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// FixGeneratorRegistry manages all registered fix generator implementations.
type FixGeneratorRegistry struct {
	generators map[string]domainRepos.FixGeneratorRepository
}

// NewFixGeneratorRegistry creates an empty fix generator registry.
func NewFixGeneratorRegistry() *FixGeneratorRegistry {
	return &FixGeneratorRegistry{
		generators: make(map[string]domainRepos.FixGeneratorRepository),
	}
}

// Register adds a generator under its name.
func (r *FixGeneratorRegistry) Register(g domainRepos.FixGeneratorRepository) {
	r.generators[g.Name()] = g
}

// Get returns the generator with the given name.
func (r *FixGeneratorRegistry) Get(name string) (domainRepos.FixGeneratorRepository, error) {
	generator, ok := r.generators[name]
	if !ok {
		return nil, fmt.Errorf("unknown fix generator: %q", name)
	}
	return generator, nil
}

// Names returns the registered generator names in sorted order.
func (r *FixGeneratorRegistry) Names() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
