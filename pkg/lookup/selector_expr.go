package lookup

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprSelectorOption configures an expr selector instance.
type ExprSelectorOption func(*exprSelector)

// ExprWithProgramCache wires a ProgramCache into the expr selector.
func ExprWithProgramCache(cache ProgramCache) ExprSelectorOption {
	return func(s *exprSelector) {
		s.cache = cache
	}
}

// exprSelector matches provider metadata using github.com/expr-lang/expr.
// Metadata keys are bound directly into the environment alongside a "meta"
// map, so both `tier == "fast"` and `meta.tier == "fast"` work.
type exprSelector struct {
	expression string
	cache      ProgramCache
}

// NewExprSelector compiles expression into the default selector engine.
func NewExprSelector(expression string, opts ...ExprSelectorOption) (Selector, error) {
	if expression == "" {
		return nil, wrapSelectorError("expr", "", fmt.Errorf("expression must not be empty"))
	}
	s := &exprSelector{expression: expression}
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
func (s *exprSelector) Match(metadata map[string]any) (bool, error) {
	metadata = metadataOrEmpty(metadata)
	program, err := s.loadOrCompile()
	if err != nil {
		return false, err
	}
	result, err := exprlang.Run(program, s.environment(metadata))
	if err != nil {
		return false, wrapSelectorError("expr", s.expression, err)
	}
	return matchResult("expr", s.expression, result)
}

func (s *exprSelector) loadOrCompile() (*exprvm.Program, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(s.expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	program, err := exprlang.Compile(s.expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, wrapSelectorError("expr", s.expression, err)
	}
	if s.cache != nil {
		s.cache.Set(s.expression, program)
	}
	return program, nil
}

func (s *exprSelector) environment(metadata map[string]any) map[string]any {
	env := map[string]any{
		"meta": metadata,
	}
	for key, value := range metadata {
		env[key] = value
	}
	return env
}
