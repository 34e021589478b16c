// Package validation enforces constructor contracts. Its helpers panic: a
// missing dependency is a programmer error, not a runtime condition.
package validation

import (
	"fmt"
	"reflect"
	"strings"
)

// AssertNotNil panics if v is nil, including typed nil pointers, maps,
// slices, funcs and channels wrapped in an interface.
//
//	validation.AssertNotNil(pool, "database pool")
func AssertNotNil(v any, name string) {
	if isNil(v) {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}

// AssertNotEmpty panics if s is blank.
func AssertNotEmpty(s, name string) {
	if strings.TrimSpace(s) == "" {
		panic(fmt.Sprintf("critical error: %s cannot be empty", name))
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
