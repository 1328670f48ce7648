//go:build !qcgc_debug

package qcgc

// assert is a no-op in release builds; see assert_debug.go.
func assert(cond bool, msg string) {}
