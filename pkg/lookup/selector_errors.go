package lookup

import (
	"errors"
	"fmt"
)

// SelectorError captures engine metadata alongside the originating error.
type SelectorError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *SelectorError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("lookup: %s selector %s: %v", e.Engine, describeExpression(e.Expr), e.Err)
}

func (e *SelectorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func errNotBoolean(value any) error {
	return fmt.Errorf("expression must evaluate to a boolean, got %T", value)
}

func wrapSelectorError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}

	var selErr *SelectorError
	if errors.As(err, &selErr) {
		if selErr.Engine == "" {
			selErr.Engine = engine
		}
		if selErr.Expr == "" {
			selErr.Expr = expr
		}
		return selErr
	}

	return &SelectorError{
		Engine: engine,
		Expr:   expr,
		Err:    err,
	}
}
