// Package lookup resolves "which provider serves capability K at location L"
// outside of the transaction model. Providers are consulted in a fixed,
// documented order: specific providers for the key first, in registration
// order, then fallback providers in registration order. A location-keyed
// cache memoizes resolutions and is invalidated by lifecycle signals.
package lookup

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNilProvider indicates a nil provider was passed to Register.
var ErrNilProvider = errors.New("lookup: provider must not be nil")

// Provider resolves an instance for a key at a location. Returning ok ==
// false defers to the next provider in the chain.
type Provider[K comparable, P any] interface {
	Provide(key K, location any) (P, bool)
	// Metadata describes the provider for selector filtering. May be nil.
	Metadata() map[string]any
}

// ProviderFunc adapts a function plus optional metadata to Provider.
type ProviderFunc[K comparable, P any] struct {
	Fn   func(key K, location any) (P, bool)
	Meta map[string]any
}

// Provide implements Provider.
func (p ProviderFunc[K, P]) Provide(key K, location any) (P, bool) {
	if p.Fn == nil {
		var zero P
		return zero, false
	}
	return p.Fn(key, location)
}

// Metadata implements Provider.
func (p ProviderFunc[K, P]) Metadata() map[string]any { return p.Meta }

// Registry maps a type-tag key to an ordered list of providers, plus a
// separate ordered list of fallback providers. Registration order is kept as
// slices, never as map iteration, so tie-breaking stays deterministic.
type Registry[K comparable, P any] struct {
	mu        sync.RWMutex
	providers map[K][]Provider[K, P]
	fallbacks []Provider[K, P]
}

// NewRegistry constructs an empty registry.
func NewRegistry[K comparable, P any]() *Registry[K, P] {
	return &Registry[K, P]{providers: make(map[K][]Provider[K, P])}
}

// Register appends a provider to the ordered list for key.
func (r *Registry[K, P]) Register(key K, provider Provider[K, P]) error {
	if provider == nil {
		return fmt.Errorf("%w: key %v", ErrNilProvider, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providers == nil {
		r.providers = make(map[K][]Provider[K, P])
	}
	r.providers[key] = append(r.providers[key], provider)
	return nil
}

// RegisterFallback appends a provider to the ordered fallback list consulted
// after every specific provider declined.
func (r *Registry[K, P]) RegisterFallback(provider Provider[K, P]) error {
	if provider == nil {
		return ErrNilProvider
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, provider)
	return nil
}

// Find resolves an instance for key at location, or ok == false when every
// provider declined.
func (r *Registry[K, P]) Find(key K, location any) (P, bool) {
	for _, provider := range r.chain(key) {
		if instance, ok := provider.Provide(key, location); ok {
			return instance, true
		}
	}
	var zero P
	return zero, false
}

// FindWhere resolves like Find but only consults providers whose metadata
// satisfies the selector. A nil selector matches everything.
func (r *Registry[K, P]) FindWhere(key K, location any, selector Selector) (P, bool, error) {
	var zero P
	for _, provider := range r.chain(key) {
		if selector != nil {
			matched, err := selector.Match(provider.Metadata())
			if err != nil {
				return zero, false, err
			}
			if !matched {
				continue
			}
		}
		if instance, ok := provider.Provide(key, location); ok {
			return instance, true, nil
		}
	}
	return zero, false, nil
}

// chain returns a snapshot of the consultation order for key.
func (r *Registry[K, P]) chain(key K) []Provider[K, P] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := make([]Provider[K, P], 0, len(r.providers[key])+len(r.fallbacks))
	chain = append(chain, r.providers[key]...)
	chain = append(chain, r.fallbacks...)
	return chain
}

// Providers returns a copy of the ordered provider list for key.
func (r *Registry[K, P]) Providers(key K) []Provider[K, P] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider[K, P], len(r.providers[key]))
	copy(out, r.providers[key])
	return out
}

// Fallbacks returns a copy of the ordered fallback list.
func (r *Registry[K, P]) Fallbacks() []Provider[K, P] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider[K, P], len(r.fallbacks))
	copy(out, r.fallbacks)
	return out
}
