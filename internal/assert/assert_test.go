package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotNil(t *testing.T) {
	var nilPtr *int
	var nilFunc func()
	var nilMap map[string]int

	require.Panics(t, func() { NotNil(nil, "value") })
	require.Panics(t, func() { NotNil(nilPtr, "ptr") })
	require.Panics(t, func() { NotNil(nilFunc, "func") })
	require.Panics(t, func() { NotNil(nilMap, "map") })

	n := 1
	require.NotPanics(t, func() { NotNil(&n, "ptr") })
	require.NotPanics(t, func() { NotNil(n, "int") })
}

func TestNotEmptyStr(t *testing.T) {
	require.PanicsWithValue(t, "expected name to be non-empty", func() { NotEmptyStr("", "name") })
	require.NotPanics(t, func() { NotEmptyStr("x", "name") })
}
