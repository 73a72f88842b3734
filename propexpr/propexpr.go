// Package propexpr evaluates the small boolean expressions used by
// scenario property definitions ("counter == 0"), using go.starlark.net as
// the expression language in place of the teacher's own bytecode VM (see
// DESIGN.md for why the vm/interp engine itself was not reused here).
package propexpr

import (
	"fmt"

	"go.starlark.net/starlark"
)

// Expr is a compiled property expression, evaluated against an observed
// binding of names to values each time a scenario wants to check it.
type Expr struct {
	src string
}

// Compile wraps src as an Expr. Compilation is lazy: syntax errors surface
// the first time Eval is called, matching starlark.Eval's own behaviour.
func Compile(src string) *Expr { return &Expr{src: src} }

func (e *Expr) String() string { return e.src }

// Eval evaluates the expression against bindings and reports its truth
// value. Bindings are plain Go values; only the subset starlark can
// represent (nil, bool, integers, float64, string) is supported.
func (e *Expr) Eval(bindings map[string]any) (bool, error) {
	env := make(starlark.StringDict, len(bindings))
	for name, v := range bindings {
		sv, err := toStarlark(v)
		if err != nil {
			return false, fmt.Errorf("propexpr: binding %q: %w", name, err)
		}
		env[name] = sv
	}

	thread := &starlark.Thread{Name: "propexpr"}
	val, err := starlark.Eval(thread, "<property>", e.src, env)
	if err != nil {
		return false, fmt.Errorf("propexpr: evaluating %q: %w", e.src, err)
	}
	return bool(val.Truth()), nil
}

func toStarlark(v any) (starlark.Value, error) {
	switch x := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(x), nil
	case int:
		return starlark.MakeInt(x), nil
	case int64:
		return starlark.MakeInt64(x), nil
	case float64:
		return starlark.Float(x), nil
	case string:
		return starlark.String(x), nil
	default:
		return nil, fmt.Errorf("unsupported binding type %T", v)
	}
}
