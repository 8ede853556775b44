// Package invariant provides lightweight contract checks in the style the
// rest of this repository calls into: Precondition/Postcondition/Invariant
// panic with a formatted message on violation, and NotNil guards against a
// nil interface/pointer reaching a function that assumes one. These are
// fatal by design — a violated invariant means the caller or the engine
// itself has a bug, not a recoverable runtime condition.
package invariant

import (
	"fmt"
	"reflect"
)

// Precondition panics if cond is false. Use at the top of a function to
// state what callers must guarantee before calling it.
func Precondition(cond bool, format string, args ...any) {
	if !cond {
		panic("precondition violated: " + fmt.Sprintf(format, args...))
	}
}

// Postcondition panics if cond is false. Use before returning to state what
// the function itself guarantees to its caller.
func Postcondition(cond bool, format string, args ...any) {
	if !cond {
		panic("postcondition violated: " + fmt.Sprintf(format, args...))
	}
}

// Invariant panics if cond is false. Use mid-function for conditions that
// must hold regardless of caller or return path (e.g. exhaustive switches).
func Invariant(cond bool, format string, args ...any) {
	if !cond {
		panic("invariant violated: " + fmt.Sprintf(format, args...))
	}
}

// NotNil panics if v is a nil interface value or a nil pointer/map/slice
// held in one. name is used to identify the argument in the panic message.
func NotNil(v any, name string) {
	if v == nil {
		panic("invariant violated: " + name + " must not be nil")
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			panic("invariant violated: " + name + " must not be nil")
		}
	}
}
