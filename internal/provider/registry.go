package provider

import (
	"strings"

	"github.com/smallbiznis/billingpulse/internal/provider/domain"
)

// Registry resolves a provider name to the factory that builds its client.
type Registry struct {
	factories map[string]domain.ClientFactory
}

func NewRegistry(factories ...domain.ClientFactory) *Registry {
	registry := &Registry{factories: map[string]domain.ClientFactory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		name := normalize(factory.Provider())
		if name == "" {
			continue
		}
		registry.factories[name] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[normalize(name)]
	return ok
}

func (r *Registry) NewClient(name string, cfg domain.ClientConfig) (domain.Client, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	factory, ok := r.factories[normalize(name)]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return factory.NewClient(cfg)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
