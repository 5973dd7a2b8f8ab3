package lookup

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
)

// CELSelectorOption configures the CEL selector.
type CELSelectorOption func(*celSelector)

// CELWithProgramCache wires a ProgramCache into the CEL selector.
func CELWithProgramCache(cache ProgramCache) CELSelectorOption {
	return func(s *celSelector) {
		s.cache = cache
	}
}

// celSelector matches provider metadata using cel-go. Metadata is bound as
// the single `meta` variable: `meta.tier == "fast"`.
type celSelector struct {
	expression string
	cache      ProgramCache
}

// NewCELSelector compiles expression into the CEL selector engine.
func NewCELSelector(expression string, opts ...CELSelectorOption) (Selector, error) {
	if expression == "" {
		return nil, wrapSelectorError("cel", "", fmt.Errorf("expression must not be empty"))
	}
	s := &celSelector{expression: expression}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if _, err := s.loadOrCompile(); err != nil {
		return nil, err
	}
	return s, nil
}

// Match implements Selector.
func (s *celSelector) Match(metadata map[string]any) (bool, error) {
	metadata = metadataOrEmpty(metadata)
	program, err := s.loadOrCompile()
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{"meta": metadata})
	if err != nil {
		return false, wrapSelectorError("cel", s.expression, err)
	}
	return matchResult("cel", s.expression, out.Value())
}

func (s *celSelector) loadOrCompile() (celgo.Program, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(s.expression); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := celgo.NewEnv(
		celgo.Variable("meta", celgo.MapType(celgo.StringType, celgo.DynType)),
	)
	if err != nil {
		return nil, wrapSelectorError("cel", s.expression, err)
	}
	ast, issues := env.Compile(s.expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapSelectorError("cel", s.expression, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, wrapSelectorError("cel", s.expression, err)
	}
	if s.cache != nil {
		s.cache.Set(s.expression, program)
	}
	return program, nil
}
