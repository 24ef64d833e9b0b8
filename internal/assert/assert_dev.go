//go:build !release

// Package assert provides a cheap internal-invariant check that panics in
// development builds and is compiled away under the "release" build tag.
package assert

import "fmt"

// That panics with the formatted message if cond is false. It is used to
// guard internal invariants (e.g. a swap-and-pop leaving index_to_row
// inconsistent) that should never fail if the rest of the package is
// correct — not for validating caller input, which returns an error instead.
func That(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
