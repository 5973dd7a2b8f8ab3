//go:build js_eval

package lookup

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsSelector matches provider metadata using goja. Metadata is bound as the
// global `meta` object: `meta.tier === "fast"`.
type jsSelector struct {
	expression string
	cache      ProgramCache
}

// NewJSSelector compiles expression into the JS selector engine.
func NewJSSelector(expression string, opts ...JSSelectorOption) (Selector, error) {
	if expression == "" {
		return nil, wrapSelectorError("js", "", fmt.Errorf("expression must not be empty"))
	}
	cfg := applyJSSelectorOptions(opts)
	s := &jsSelector{expression: expression, cache: cfg.cache}
	if _, err := s.loadOrCompile(); err != nil {
		return nil, err
	}
	return s, nil
}

// Match implements Selector.
func (s *jsSelector) Match(metadata map[string]any) (bool, error) {
	metadata = metadataOrEmpty(metadata)
	program, err := s.loadOrCompile()
	if err != nil {
		return false, err
	}
	vm := goja.New()
	vm.Set("meta", metadata)
	value, err := vm.RunProgram(program)
	if err != nil {
		return false, wrapSelectorError("js", s.expression, err)
	}
	return matchResult("js", s.expression, value.Export())
}

func (s *jsSelector) loadOrCompile() (*goja.Program, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(s.expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", s.wrapExpression(), false)
	if err != nil {
		return nil, wrapSelectorError("js", s.expression, err)
	}
	if s.cache != nil {
		s.cache.Set(s.expression, program)
	}
	return program, nil
}

func (s *jsSelector) wrapExpression() string {
	return fmt.Sprintf("(function(){ return (%s); })()", s.expression)
}

func jsSelectorAvailable() bool {
	return true
}
