package lookup

import (
	"context"
	"testing"

	"github.com/goliatone/go-transfer/pkg/lifecycle"
)

type world struct {
	kinds    map[string]string
	resolved int
}

func (w *world) keyAt(location string) (string, bool) {
	kind, ok := w.kinds[location]
	return kind, ok
}

func (w *world) registry() *Registry[string, *probe] {
	reg := NewRegistry[string, *probe]()
	reg.Register("tank", ProviderFunc[string, *probe]{
		Fn: func(_ string, location any) (*probe, bool) {
			w.resolved++
			return &probe{name: location.(string)}, true
		},
	})
	return reg
}

func TestCacheMemoizesUntilInvalidated(t *testing.T) {
	w := &world{kinds: map[string]string{"loc-1": "tank"}}
	cache := NewCache[string, string, *probe](w.registry(), w.keyAt)

	if _, ok := cache.Get("loc-1"); !ok {
		t.Fatal("expected resolution")
	}
	if _, ok := cache.Get("loc-1"); !ok {
		t.Fatal("expected cached resolution")
	}
	if w.resolved != 1 {
		t.Fatalf("expected a single registry consultation, got %d", w.resolved)
	}

	cache.Invalidate("loc-1")
	cache.Get("loc-1")
	if w.resolved != 2 {
		t.Fatalf("invalidation must force re-resolution, got %d", w.resolved)
	}
}

func TestCacheInvalidatesOnBothLifecycleSignals(t *testing.T) {
	w := &world{kinds: map[string]string{"loc-1": "tank"}}
	cache := NewCache[string, string, *probe](w.registry(), w.keyAt)
	hook := cache.Hook()

	for _, kind := range []lifecycle.Kind{lifecycle.KindAvailable, lifecycle.KindUnavailable} {
		cache.Get("loc-1")
		if cache.Len() != 1 {
			t.Fatalf("expected one entry before %s", kind)
		}
		if err := hook(context.Background(), lifecycle.NewEvent(kind, "loc-1")); err != nil {
			t.Fatalf("hook: %v", err)
		}
		if cache.Len() != 0 {
			t.Fatalf("%s signal must evict the entry", kind)
		}
	}

	// commit events do not evict
	cache.Get("loc-1")
	hook(context.Background(), lifecycle.NewEvent(lifecycle.KindCommitted, "loc-1"))
	if cache.Len() != 1 {
		t.Fatal("committed signal must not evict")
	}
}

func TestCacheDetectsChangedKey(t *testing.T) {
	w := &world{kinds: map[string]string{"loc-1": "tank"}}
	cache := NewCache[string, string, *probe](w.registry(), w.keyAt)

	cache.Get("loc-1")
	// the backing object changed type; the memoized pair is stale
	w.kinds["loc-1"] = "barrel"
	if _, ok := cache.Get("loc-1"); ok {
		t.Fatal("no provider serves barrels; the stale entry must not be returned")
	}
}

func TestCacheDropsEntryWhenLocationEmpties(t *testing.T) {
	w := &world{kinds: map[string]string{"loc-1": "tank"}}
	cache := NewCache[string, string, *probe](w.registry(), w.keyAt)

	cache.Get("loc-1")
	delete(w.kinds, "loc-1")
	if _, ok := cache.Get("loc-1"); ok {
		t.Fatal("an emptied location must resolve to nothing")
	}
	if cache.Len() != 0 {
		t.Fatal("the stale entry must be dropped")
	}
}

func TestCacheBoundedEviction(t *testing.T) {
	w := &world{kinds: map[string]string{"a": "tank", "b": "tank", "c": "tank"}}
	cache := NewCache[string, string, *probe](w.registry(), w.keyAt,
		WithCacheLimit[string, string, *probe](2))

	cache.Get("a")
	cache.Get("b")
	cache.Get("c")
	if cache.Len() != 2 {
		t.Fatalf("expected bound of 2 entries, got %d", cache.Len())
	}
	resolved := w.resolved
	cache.Get("a") // evicted as oldest, must resolve again
	if w.resolved != resolved+1 {
		t.Fatal("oldest entry should have been evicted")
	}
}
