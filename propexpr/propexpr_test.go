package propexpr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvalSimpleComparison(t *testing.T) {
	e := Compile("counter == 0")
	ok, err := e.Eval(map[string]any{"counter": 0})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Eval(map[string]any{"counter": 1})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEvalBooleanCombination(t *testing.T) {
	e := Compile("a and not b")
	ok, err := e.Eval(map[string]any{"a": true, "b": false})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvalRejectsUnsupportedBindingType(t *testing.T) {
	e := Compile("x == nil")
	_, err := e.Eval(map[string]any{"x": struct{}{}})
	require.Error(t, err)
}

func TestEvalSyntaxErrorIsWrapped(t *testing.T) {
	e := Compile("(((")
	_, err := e.Eval(nil)
	require.Error(t, err)
}
