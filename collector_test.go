package qcgc

import (
	"testing"

	"gotest.tools/v3/assert"
)

// fakeGraph is a minimal embedder: a map from Ref to its outgoing
// references, driven entirely by the test.
type fakeGraph struct {
	edges map[Ref][]Ref
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{edges: make(map[Ref][]Ref)}
}

func (g *fakeGraph) Trace(obj Ref, visit VisitFunc) {
	for _, target := range g.edges[obj] {
		visit(target)
	}
}

func (g *fakeGraph) link(from, to Ref) {
	g.edges[from] = append(g.edges[from], to)
}

func newTestCollector(t *testing.T, tracer Tracer) *Collector {
	t.Helper()
	c := New()
	cfg := DefaultConfig()
	cfg.ShadowStackSize = 64
	assert.NilError(t, c.Initialize(cfg, tracer))
	t.Cleanup(func() { _ = c.Destroy() })
	return c
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, PhasePause.String(), "pause")
	assert.Equal(t, PhaseMark.String(), "mark")
	assert.Equal(t, PhaseCollect.String(), "collect")
	assert.Equal(t, Phase(99).String(), "invalid-phase")
}

func TestCollectReclaimsUnreachable(t *testing.T) {
	graph := newFakeGraph()
	c := newTestCollector(t, graph)

	root, err := c.Allocate(16)
	assert.NilError(t, err)
	assert.NilError(t, c.ShadowStackPush(root))

	kept, err := c.Allocate(16)
	assert.NilError(t, err)
	assert.NilError(t, c.Write(root))
	graph.link(root, kept)

	garbage, err := c.Allocate(16)
	assert.NilError(t, err)

	c.Collect()

	assert.Equal(t, c.GetMarkColor(root), ColorWhite)
	assert.Equal(t, c.GetMarkColor(kept), ColorWhite)
	assert.Equal(t, c.GetMarkColor(garbage), ColorInvalid)
}

func TestGetMarkColorUnknownRef(t *testing.T) {
	c := newTestCollector(t, newFakeGraph())
	assert.Equal(t, c.GetMarkColor(Ref(0xdeadbeef)), ColorInvalid)
}

func TestIncrementalMarkReachesCollectWhenDrained(t *testing.T) {
	graph := newFakeGraph()
	c := newTestCollector(t, graph)

	root, err := c.Allocate(16)
	assert.NilError(t, err)
	assert.NilError(t, c.ShadowStackPush(root))

	c.mark(true)
	assert.Equal(t, c.phase, PhaseCollect)
	assert.Equal(t, c.grayTotal, 0)
}

func TestSliceSizeClampsToMinimum(t *testing.T) {
	c := newTestCollector(t, newFakeGraph())
	c.cfg.IncMarkMin = 32

	assert.Equal(t, c.sliceSize(10, false), 10) // non-incremental: full backlog
	assert.Equal(t, c.sliceSize(10, true), 10)  // half(5) < min(32), and min(32) > backlog(10): clamp to backlog
	assert.Equal(t, c.sliceSize(100, true), 50) // half(50) >= min(32): use half
}
