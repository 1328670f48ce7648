// Error handling design (spec §7). Sentinel errors are wrapped with
// github.com/pkg/errors at call boundaries and checked with
// errors.Is, grounded on moby-moby/errdefs's causal-wrapping idiom.
package qcgc

import "github.com/pkg/errors"

var (
	// ErrOutOfMemory is returned by Allocate when every allocator
	// path is exhausted, including after a forced collection. The
	// collector's own state remains consistent; phase may be PAUSE
	// or MARK (spec §7).
	ErrOutOfMemory = errors.New("qcgc: out of memory")

	// ErrNotInitialized is returned by any public API call made
	// before Initialize or after Destroy.
	ErrNotInitialized = errors.New("qcgc: collector not initialized")

	// ErrAlreadyInitialized is returned by Initialize when called
	// twice without an intervening Destroy.
	ErrAlreadyInitialized = errors.New("qcgc: collector already initialized")

	// ErrInvalidWeakrefTarget is returned by RegisterWeakref when the
	// holder is prebuilt or a huge block (disallowed by spec §4.5),
	// or when the slot's current target is not a live, registered
	// object.
	ErrInvalidWeakrefTarget = errors.New("qcgc: invalid weak reference registration")

	// ErrUnknownRef is returned by Write when given a Ref the
	// collector has no record of.
	ErrUnknownRef = errors.New("qcgc: unknown object reference")
)
