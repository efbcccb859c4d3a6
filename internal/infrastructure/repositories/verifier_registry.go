package repositories

import (
	"fmt"
	"sort"

	domainRepos "github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// VerifierRegistry manages all registered verifier implementations.
type VerifierRegistry struct {
	verifiers map[string]domainRepos.VerifierRepository
}

// NewVerifierRegistry creates an empty verifier registry.
func NewVerifierRegistry() *VerifierRegistry {
	return &VerifierRegistry{
		verifiers: make(map[string]domainRepos.VerifierRepository),
	}
}

// Register adds a verifier under its name.
func (r *VerifierRegistry) Register(v domainRepos.VerifierRepository) {
	r.verifiers[v.Name()] = v
}

// Get returns the verifier with the given name.
func (r *VerifierRegistry) Get(name string) (domainRepos.VerifierRepository, error) {
	verifier, ok := r.verifiers[name]
	if !ok {
		return nil, fmt.Errorf("unknown verifier backend: %q", name)
	}
	return verifier, nil
}

// Names returns the registered verifier names in sorted order.
func (r *VerifierRegistry) Names() []string {
	names := make([]string, 0, len(r.verifiers))
	for name := range r.verifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
