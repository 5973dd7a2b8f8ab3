package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind names the lifecycle occurrences this hub distributes.
type Kind string

const (
	// KindAvailable signals that a backing object appeared at a location.
	KindAvailable Kind = "available"
	// KindUnavailable signals that a backing object disappeared from a
	// location.
	KindUnavailable Kind = "unavailable"
	// KindCommitted signals that a storage change became durable through an
	// outermost commit.
	KindCommitted Kind = "committed"
)

// Event describes one lifecycle occurrence. Location is the identity the
// consumers key on; caches invalidate by location, never by transaction.
type Event struct {
	ID         string
	Kind       Kind
	Source     string
	Location   any
	Metadata   map[string]any
	OccurredAt time.Time
}

// NewEvent builds an event with a fresh identity and timestamp.
func NewEvent(kind Kind, location any) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Location:   location,
		OccurredAt: time.Now(),
	}
}

// Hook receives normalized lifecycle events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. Events without a kind or location are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Kind == "" || normalized.Location == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent clones metadata and fills in identity and timestamp when
// missing, so hooks can retain events without aliasing caller state.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Source = strings.TrimSpace(event.Source)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.ID == "" {
		normalized.ID = uuid.NewString()
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
