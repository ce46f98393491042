package ai

// Registry resolves a Provider by name, falling back to a default when the
// request names no provider or an unknown one.
type Registry struct {
	providers map[string]Provider
	fallback  Provider
}

// NewRegistry builds a registry. The fallback must be one of the given
// providers.
func NewRegistry(fallback Provider, providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
		fallback:  fallback,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// ForName returns the provider registered under name, or the fallback.
func (r *Registry) ForName(name string) Provider {
	if p, ok := r.providers[name]; ok {
		return p
	}
	return r.fallback
}
