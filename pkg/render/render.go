// Package render maps resources to display data: name, tooltip lines, icon
// and color. It only reads resource identity and never participates in
// transactions. Handlers are registered per resource kind; registering a
// second handler for the same kind is an error, not a silent override.
package render

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultColor is the color reported when neither a handler nor a fallback
// provides one.
const DefaultColor uint32 = 0xFFFFFFFF

// ErrDuplicateHandler indicates a handler is already registered for a kind.
var ErrDuplicateHandler = errors.New("render: duplicate handler registration")

// Handler produces display data for the resources of one kind.
type Handler[T any] interface {
	DisplayName(resource T) string
	// Tooltip returns extra lines appended after the display name.
	Tooltip(resource T) []string
	Icon(resource T) string
	Color(resource T) uint32
}

// Registry resolves display data for resources, consulting the kind's
// handler first and falling back to a generic, kind-derived presentation.
type Registry[K comparable, T any] struct {
	mu       sync.RWMutex
	kindOf   func(T) K
	handlers map[K]Handler[T]
	fallback Handler[T]
}

// RegistryOption configures a Registry.
type RegistryOption[K comparable, T any] func(*Registry[K, T])

// WithFallback sets the handler consulted when a kind has no registration,
// before the generic presentation applies.
func WithFallback[K comparable, T any](handler Handler[T]) RegistryOption[K, T] {
	return func(r *Registry[K, T]) {
		r.fallback = handler
	}
}

// NewRegistry constructs a registry deriving each resource's kind with
// kindOf.
func NewRegistry[K comparable, T any](kindOf func(T) K, opts ...RegistryOption[K, T]) (*Registry[K, T], error) {
	if kindOf == nil {
		return nil, fmt.Errorf("render: kind function must not be nil")
	}
	r := &Registry[K, T]{
		kindOf:   kindOf,
		handlers: make(map[K]Handler[T]),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Register stores handler for kind, guarding against duplicates.
func (r *Registry[K, T]) Register(kind K, handler Handler[T]) error {
	if handler == nil {
		return fmt.Errorf("render: handler for kind %v is nil", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("%w: kind %v", ErrDuplicateHandler, kind)
	}
	r.handlers[kind] = handler
	return nil
}

// Handler returns the handler registered for kind.
func (r *Registry[K, T]) Handler(kind K) (Handler[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[kind]
	return handler, ok
}

func (r *Registry[K, T]) handlerFor(resource T) (Handler[T], bool) {
	return r.Handler(r.kindOf(resource))
}

// DisplayName returns the handler's name, or a kind-derived one.
func (r *Registry[K, T]) DisplayName(resource T) string {
	if handler, ok := r.handlerFor(resource); ok {
		return handler.DisplayName(resource)
	}
	if r.fallback != nil {
		return r.fallback.DisplayName(resource)
	}
	return fmt.Sprintf("%v", r.kindOf(resource))
}

// Tooltip returns the display name followed by any handler lines. With
// advanced enabled, the kind tag is appended as a final line.
func (r *Registry[K, T]) Tooltip(resource T, advanced bool) []string {
	lines := []string{r.DisplayName(resource)}
	if handler, ok := r.handlerFor(resource); ok {
		lines = append(lines, handler.Tooltip(resource)...)
	} else if r.fallback != nil {
		lines = append(lines, r.fallback.Tooltip(resource)...)
	}
	if advanced {
		lines = append(lines, fmt.Sprintf("%v", r.kindOf(resource)))
	}
	return lines
}

// Icon returns the handler's icon, the fallback's, or the empty string.
func (r *Registry[K, T]) Icon(resource T) string {
	if handler, ok := r.handlerFor(resource); ok {
		return handler.Icon(resource)
	}
	if r.fallback != nil {
		return r.fallback.Icon(resource)
	}
	return ""
}

// Color returns the handler's color, the fallback's, or DefaultColor.
func (r *Registry[K, T]) Color(resource T) uint32 {
	if handler, ok := r.handlerFor(resource); ok {
		return handler.Color(resource)
	}
	if r.fallback != nil {
		return r.fallback.Color(resource)
	}
	return DefaultColor
}
