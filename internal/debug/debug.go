// Package debug holds assertions that are only compiled in with the
// storedebug build tag.
package debug

import "fmt"

// Assert panics with the formatted message when cond is false and debug
// assertions are enabled.
func Assert(cond bool, format string, args ...any) {
	if !Enabled || cond {
		return
	}
	panic(fmt.Sprintf(format, args...))
}
