package qcgc

// VisitFunc is invoked by a Tracer once per outgoing reference of the
// object being traced. The collector supplies push_object (spec §4.1)
// as the visitor.
type VisitFunc func(target Ref)

// Tracer is the embedder-supplied object-tracing contract (spec §1:
// out of scope for the CORE, referenced only by contract). Given an
// object, Trace must invoke visit once for every outgoing reference
// the object holds. Trace must not mutate the heap: it runs during
// marking, which assumes a read-only view of the object graph (spec
// §5c).
type Tracer interface {
	Trace(obj Ref, visit VisitFunc)
}

// TracerFunc adapts a plain function to the Tracer interface.
type TracerFunc func(obj Ref, visit VisitFunc)

func (f TracerFunc) Trace(obj Ref, visit VisitFunc) { f(obj, visit) }
