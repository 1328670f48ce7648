package qcgc

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestAllocateSmallReturnsDistinctRefs(t *testing.T) {
	c := newTestCollector(t, newFakeGraph())

	a, err := c.Allocate(32)
	assert.NilError(t, err)
	b, err := c.Allocate(32)
	assert.NilError(t, err)

	assert.Assert(t, a != b)
	assert.Equal(t, arenaBaseOf(a), arenaBaseOf(b)) // same bump arena
}

func TestAllocateHugeIsArenaAligned(t *testing.T) {
	c := newTestCollector(t, newFakeGraph())
	cfg := c.cfg

	ref, err := c.Allocate(uintptr(1)<<cfg.LargeAllocExp + 1)
	assert.NilError(t, err)

	rec, ok := c.classify(ref)
	assert.Assert(t, ok)
	assert.Assert(t, rec.huge)
	assert.Equal(t, arenaBaseOf(ref), ref)
}

func TestAllocateTriggersMajorCollectionPastThreshold(t *testing.T) {
	c := New()
	cfg := DefaultConfig()
	cfg.ShadowStackSize = 64
	cfg.MajorThreshold = 1 // force a collection on the first allocation after any bytes are counted
	assert.NilError(t, c.Initialize(cfg, newFakeGraph()))
	t.Cleanup(func() { _ = c.Destroy() })

	_, err := c.Allocate(16)
	assert.NilError(t, err)
	_, err = c.Allocate(16)
	assert.NilError(t, err)

	assert.Equal(t, c.phase, PhasePause) // collectLocked always ends back in PAUSE
	assert.Assert(t, c.bytesSinceCollection <= 16)
}

func TestFindFreeRunSkipsNonFreeCells(t *testing.T) {
	a := newTestArena(t)
	idx := headerCell + 1
	a.setBlocktypeRun(idx, 2, Black) // occupy two cells

	run, ok := a.findFreeRun(3)
	assert.Assert(t, ok)
	assert.Equal(t, run, idx+2) // first free run starts right after the occupied cells
}

func TestCommitAllocationUpdatesFreeCells(t *testing.T) {
	a := newTestArena(t)
	before := a.freeCells

	c := New()
	ref := c.commitAllocation(a, headerCell+1, 2, 20)
	assert.Equal(t, a.freeCells, before-2)

	rec, ok := c.records[ref]
	assert.Assert(t, ok)
	assert.Equal(t, rec.size, uintptr(20))
	assert.Equal(t, rec.arena, a)
}
