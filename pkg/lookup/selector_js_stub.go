//go:build !js_eval

package lookup

import "fmt"

// NewJSSelector is unavailable without the js_eval build tag.
func NewJSSelector(expression string, opts ...JSSelectorOption) (Selector, error) {
	_ = applyJSSelectorOptions(opts)
	return nil, wrapSelectorError("js", expression, fmt.Errorf("js selector requires the js_eval build tag"))
}

func jsSelectorAvailable() bool {
	return false
}
