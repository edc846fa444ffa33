// Package assert panics on violated invariants, it is meant for constructor
// arguments that can only be wrong through a programming mistake.
package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics if value is nil, including typed nil pointers, maps, funcs, etc.
func NotNil(value any, name string) {
	if value == nil {
		panic(fmt.Sprintf("expected %s to be not nil", name))
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			panic(fmt.Sprintf("expected %s to be not nil", name))
		}
	}
}

func NotEmptyStr(str string, name string) {
	if str == "" {
		panic(fmt.Sprintf("expected %s to be non-empty", name))
	}
}
