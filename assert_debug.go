//go:build qcgc_debug

package qcgc

import "github.com/pkg/errors"

// assert panics with a wrapped message when cond is false. Compiled
// in only under the qcgc_debug build tag (spec §7: "Invariant
// violation (debug builds only)"); release builds assume the
// embedder's trace callback and this package's own bookkeeping are
// correct.
func assert(cond bool, msg string) {
	if !cond {
		panic(errors.Errorf("qcgc: invariant violation: %s", msg))
	}
}
