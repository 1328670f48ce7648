package qcgc

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestHugeBlockTableAllocateIsArenaAligned(t *testing.T) {
	tab := newHugeBlockTable()
	ref, err := tab.allocate(arenaSize + 1)
	assert.NilError(t, err)
	defer func() { _ = tab.sweep() }()

	assert.Assert(t, tab.isHuge(ref))
	assert.Equal(t, arenaBaseOf(ref), ref)
}

func TestHugeBlockMarkAndTest(t *testing.T) {
	tab := newHugeBlockTable()
	ref, err := tab.allocate(arenaSize)
	assert.NilError(t, err)
	defer func() { tab.entries[ref].marked = true; _ = tab.sweep() }()

	assert.Assert(t, tab.markAndTest(ref))  // first call transitions, returns true
	assert.Assert(t, !tab.markAndTest(ref)) // already marked, returns false
	assert.Assert(t, tab.isMarked(ref))
}

func TestHugeBlockSweepFreesUnmarkedKeepsMarked(t *testing.T) {
	tab := newHugeBlockTable()
	survivor, err := tab.allocate(arenaSize)
	assert.NilError(t, err)
	casualty, err := tab.allocate(arenaSize)
	assert.NilError(t, err)

	tab.markAndTest(survivor)

	freed := tab.sweep()
	assert.Equal(t, len(freed), 1)
	assert.Equal(t, freed[0], casualty)

	assert.Assert(t, tab.isHuge(survivor))
	assert.Assert(t, !tab.isHuge(casualty))
	assert.Assert(t, !tab.isMarked(survivor)) // mark cleared for next cycle

	_ = tab.sweep() // survivor now unmarked; clean it up
}
