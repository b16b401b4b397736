package extractor

import (
	"fmt"
	"sort"
	"strings"

	"invox/internal/port"
)

// Registry resolves an opaque model selector to a registered extraction
// provider. The selector is the provider name; an empty selector falls back
// to the default provider.
type Registry struct {
	defaultName string
	providers   map[string]port.Extractor
}

// NewRegistry creates an empty registry with the given default provider name.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		defaultName: defaultName,
		providers:   map[string]port.Extractor{},
	}
}

// Register adds a provider under the given name, replacing any previous one.
func (r *Registry) Register(name string, e port.Extractor) {
	r.providers[strings.ToLower(name)] = e
}

// Resolve returns the provider for selector, or the default provider when
// selector is empty.
func (r *Registry) Resolve(selector string) (port.Extractor, error) {
	name := strings.ToLower(strings.TrimSpace(selector))
	if name == "" {
		name = r.defaultName
	}
	e, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown extraction provider: %s (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return e, nil
}

// Names returns the registered provider names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
