package lifecycle

import (
	"context"
	"errors"
	"testing"
)

func TestHooksFanOutAndJoinErrors(t *testing.T) {
	var seen []Event
	failure := errors.New("sink down")

	hooks := Hooks{
		HookFunc(func(_ context.Context, event Event) error {
			seen = append(seen, event)
			return nil
		}),
		HookFunc(func(context.Context, Event) error {
			return failure
		}),
	}

	err := hooks.Notify(context.Background(), NewEvent(KindAvailable, "tank-a"))
	if !errors.Is(err, failure) {
		t.Fatalf("expected joined failure, got %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("healthy hook must still be notified, got %d events", len(seen))
	}
	if seen[0].ID == "" || seen[0].OccurredAt.IsZero() {
		t.Fatalf("event must be normalized, got %+v", seen[0])
	}
}

func TestHooksDropIncompleteEvents(t *testing.T) {
	called := false
	hooks := Hooks{HookFunc(func(context.Context, Event) error {
		called = true
		return nil
	})}

	if err := hooks.Notify(context.Background(), Event{Kind: KindAvailable}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if called {
		t.Fatal("events without a location must be dropped")
	}
}

func TestNormalizeEventClonesMetadata(t *testing.T) {
	meta := map[string]any{"amount": int64(3)}
	event := NormalizeEvent(Event{Kind: KindCommitted, Location: "tank-a", Metadata: meta})
	meta["amount"] = int64(9)
	if event.Metadata["amount"] != int64(3) {
		t.Fatalf("metadata must be cloned, got %v", event.Metadata["amount"])
	}
}

func TestEmitterAppliesDefaults(t *testing.T) {
	var got Event
	hooks := Hooks{HookFunc(func(_ context.Context, event Event) error {
		got = event
		return nil
	})}

	emitter := NewEmitter(hooks, Config{Enabled: true})
	if err := emitter.Emit(context.Background(), NewEvent(KindUnavailable, "tank-b")); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if got.Source != "transfer" {
		t.Fatalf("expected default source, got %q", got.Source)
	}

	disabled := NewEmitter(hooks, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatal("emitter must honor Enabled: false")
	}
}
