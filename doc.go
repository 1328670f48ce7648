// Package qcgc implements a quasi-concurrent, incrementally-marking,
// non-moving, mark-and-sweep garbage collector for embedding inside a
// single-threaded language runtime.
//
// The collector manages heap objects on behalf of a mutator running on
// one logical thread. It reclaims unreachable objects, tracks weak
// references, and allocates from fixed-size arenas plus a side table
// for huge objects. Object tracing (walking an object's outgoing
// references) is supplied by the embedder through the Tracer
// interface; this package never interprets an object's payload
// itself.
//
// A *Collector is not safe for concurrent use by multiple goroutines
// without external synchronization: the algorithm assumes a single
// mutator thread of control (see the package's design notes), and the
// internal locking only guards against accidental concurrent misuse,
// not a supported usage mode.
package qcgc
