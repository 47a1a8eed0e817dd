package providers

import (
	"fmt"
	"sort"
	"strings"
)

// Registry manages the vision providers a glyph classifier can use
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry holding the given providers
func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
	}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

// Register adds a provider to the registry
func (r *Registry) Register(provider Provider) {
	r.providers[strings.ToLower(provider.Name())] = provider
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	provider, exists := r.providers[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("provider %s not found (available: %s)", name, strings.Join(r.List(), ", "))
	}
	return provider, nil
}

// List returns all available provider names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasProvider checks if a provider is registered
func (r *Registry) HasProvider(name string) bool {
	_, exists := r.providers[strings.ToLower(name)]
	return exists
}
