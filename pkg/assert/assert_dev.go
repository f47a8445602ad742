//go:build !release

// Package assert holds internal invariant checks. A failed check means the storage engine itself is
// broken, not that a caller misused it, so it panics instead of returning an error. Release builds
// compile the checks away.
package assert

import "fmt"

// That panics with the formatted message when cond is false.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf("invariant violated: "+format, args...))
	}
}

// Enabled reports whether invariant checks are compiled in.
func Enabled() bool { return true }
