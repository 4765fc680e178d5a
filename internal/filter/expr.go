package filter

import (
	"fmt"

	"github.com/dop251/goja"
)

// compileExpr builds a predicate from a JavaScript boolean expression.
// The cell is bound to `value` as a string; empty cells are also exposed as
// `isEmpty`. Each predicate owns its runtime, so it must not be shared
// across goroutines.
func compileExpr(src string) (Predicate, error) {
	prog, err := goja.Compile("filter", "("+src+")", true)
	if err != nil {
		return nil, fmt.Errorf("compile expr: %w", err)
	}

	vm := goja.New()
	return func(value string) (bool, error) {
		if err := vm.Set("value", value); err != nil {
			return false, err
		}
		if err := vm.Set("isEmpty", value == ""); err != nil {
			return false, err
		}
		res, err := vm.RunProgram(prog)
		if err != nil {
			return false, fmt.Errorf("eval %q on %q: %w", src, value, err)
		}
		return res.ToBoolean(), nil
	}, nil
}
