package qcgc

import (
	"testing"

	"gotest.tools/v3/assert"
)

func newTestArena(t *testing.T) *Arena {
	t.Helper()
	a, err := newArena()
	assert.NilError(t, err)
	t.Cleanup(func() { _ = a.release() })
	return a
}

func TestNewArenaInitializesFree(t *testing.T) {
	a := newTestArena(t)
	assert.Equal(t, a.bitmap[headerCell], Extent)
	for i := headerCell + 1; i < cellsPerArena; i++ {
		assert.Equal(t, a.bitmap[i], Free)
	}
	assert.Equal(t, a.freeCells, cellsPerArena-1)
	assert.Equal(t, a.bumpCursor, headerCell+1)
}

func TestArenaRefOfCellRoundTrip(t *testing.T) {
	a := newTestArena(t)
	ref := a.refOfCell(5)
	assert.Equal(t, arenaBaseOf(ref), Ref(a.base))
}

func TestCellsFor(t *testing.T) {
	tests := map[string]struct {
		size     uintptr
		expected int
	}{
		"zero":          {size: 0, expected: 1},
		"one-byte":      {size: 1, expected: 1},
		"exact-cell":    {size: cellSize, expected: 1},
		"one-over-cell": {size: cellSize + 1, expected: 2},
		"three-cells":   {size: cellSize * 3, expected: 3},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, cellsFor(tc.size), tc.expected)
		})
	}
}

func TestSetBlocktypeRunTagsInteriorExtent(t *testing.T) {
	a := newTestArena(t)
	idx := headerCell + 1
	a.setBlocktypeRun(idx, 4, White)
	assert.Equal(t, a.bitmap[idx], White)
	assert.Equal(t, a.bitmap[idx+1], Extent)
	assert.Equal(t, a.bitmap[idx+2], Extent)
	assert.Equal(t, a.bitmap[idx+3], Extent)
}

func TestArenaSweepReclaimsWhiteKeepsBlack(t *testing.T) {
	a := newTestArena(t)
	idx := headerCell + 1

	// A 3-cell survivor (BLACK) followed by a 2-cell casualty (WHITE).
	a.setBlocktypeRun(idx, 3, Black)
	a.setBlocktypeRun(idx+3, 2, White)

	entirelyFree := a.sweep()
	assert.Assert(t, !entirelyFree)

	assert.Equal(t, a.bitmap[idx], White) // survivor reset, unmarked
	assert.Equal(t, a.bitmap[idx+1], Extent)
	assert.Equal(t, a.bitmap[idx+2], Extent)
	assert.Equal(t, a.bitmap[idx+3], Free) // casualty reclaimed
	assert.Equal(t, a.bitmap[idx+4], Free) // its EXTENT tail coalesced too
}

func TestArenaSweepEntirelyFree(t *testing.T) {
	a := newTestArena(t)
	idx := headerCell + 1
	a.setBlocktypeRun(idx, 2, White)

	entirelyFree := a.sweep()
	assert.Assert(t, entirelyFree)
	assert.Equal(t, a.freeCells, cellsPerArena-1)
}

func TestArenaBaseOf(t *testing.T) {
	a := newTestArena(t)
	ref := Ref(a.base + 3*cellSize)
	assert.Equal(t, arenaBaseOf(ref), Ref(a.base))
	assert.Equal(t, arenaBaseOf(Ref(a.base)), Ref(a.base))
}
