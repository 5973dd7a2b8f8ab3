package lookup

import "sync"

// Selector decides whether a provider's metadata matches a filter
// expression. Engines must be safe for concurrent use and treat nil
// metadata as an empty map.
type Selector interface {
	Match(metadata map[string]any) (bool, error)
}

// ProgramCache stores compiled selector programs keyed by expression
// strings, shared between engines.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MapProgramCache is a minimal ProgramCache for tests and single-process
// embedders.
type MapProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMapProgramCache constructs an empty program cache.
func NewMapProgramCache() *MapProgramCache {
	return &MapProgramCache{programs: make(map[string]any)}
}

// Get implements ProgramCache.
func (c *MapProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	program, ok := c.programs[key]
	return program, ok
}

// Set implements ProgramCache.
func (c *MapProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.programs == nil {
		c.programs = make(map[string]any)
	}
	c.programs[key] = value
}

func metadataOrEmpty(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	return metadata
}

func matchResult(engine, expr string, value any) (bool, error) {
	matched, ok := value.(bool)
	if !ok {
		return false, &SelectorError{
			Engine: engine,
			Expr:   expr,
			Err:    errNotBoolean(value),
		}
	}
	return matched, nil
}
