// Arena bookkeeping. See malloc.go (allocator.go in this port) for the
// allocation-strategy overview.
//
// spec §1 lists "arena low-level primitives" (address-to-arena
// rounding, blocktype bitmap read/write, per-arena sweep) as external
// collaborators the CORE assumes exist and are correct. This file is
// a concrete, intentionally simple implementation of that contract:
// a fixed-size, power-of-two aligned region obtained from the OS via
// mmap (grounded on mheap.go's sysAlloc), with cell 0 reserved as the
// arena's own header so that a normal object's Ref is never
// arena-aligned — which is what lets arenaBase(ref) == ref identify a
// huge block unambiguously (spec §3).
package qcgc

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// arenaSizeExp is log2(arena size in bytes).
	arenaSizeExp = 20 // 1 MiB arenas
	arenaSize    = 1 << arenaSizeExp
	arenaMask    = arenaSize - 1

	// cellSize is the smallest addressable allocation unit within
	// an arena.
	cellSize     = 16
	cellsPerArena = arenaSize / cellSize

	// headerCell is reserved for the arena's own bookkeeping and is
	// never handed out to an allocation. Its index is arena-aligned
	// (offset 0), which is exactly the address huge blocks use to
	// identify themselves, so a real object must never start there.
	headerCell = 0
)

// Arena is a fixed-size aligned region holding many cell-sized slots.
// It owns a per-cell blocktype bitmap and its own gray work-list, and
// is either a member of the collector's live-arena set or its
// free-arena pool.
type Arena struct {
	base uintptr // address identity of this arena; always arenaSize-aligned
	mem  []byte  // backing pages, mmap'd at base

	bitmap []Blocktype // len == cellsPerArena; bitmap[headerCell] unused

	gray *grayStack // per-arena gray work-list

	bumpCursor     int // next untried cell index for bump allocation
	freeCells      int // cells currently FREE and reachable by the allocator
	largestFreeRun int // largest contiguous run of free cells, in cells

	inFreePool bool
}

// newArena mmaps a fresh arenaSize-aligned region and initializes its
// bitmap to all-FREE (save the reserved header cell). FREE, not
// WHITE, is the steady state of a cell nothing has ever been
// allocated into: WHITE is reserved for a live-but-unmarked object,
// so the allocator must never mistake one for free space (spec §3).
func newArena() (*Arena, error) {
	base, mem, err := mmapAligned(arenaSize, arenaSize)
	if err != nil {
		return nil, errors.Wrap(err, "qcgc: allocate arena")
	}
	a := &Arena{
		base:       base,
		mem:        mem,
		bitmap:     make([]Blocktype, cellsPerArena),
		gray:       newGrayStack(),
		bumpCursor: headerCell + 1,
	}
	for i := headerCell + 1; i < cellsPerArena; i++ {
		a.bitmap[i] = Free
	}
	a.bitmap[headerCell] = Extent
	a.freeCells = cellsPerArena - 1
	a.largestFreeRun = a.freeCells
	return a, nil
}

// release unmaps the arena's backing pages. Destroy calls it for every
// live and pooled arena; until then an emptied arena stays in the
// free-arena pool for reuse rather than being unmapped (see
// SPEC_FULL.md's arena-pool-sizing supplement).
func (a *Arena) release() error {
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return err
}

// refOfCell returns the Ref naming the start of the given cell.
func (a *Arena) refOfCell(idx int) Ref {
	return Ref(a.base + uintptr(idx)*cellSize)
}

// cellsFor returns the number of cells needed to hold size bytes,
// rounded up, minimum one.
func cellsFor(size uintptr) int {
	n := int((size + cellSize - 1) / cellSize)
	if n < 1 {
		n = 1
	}
	return n
}

// blocktypeAt reads the bitmap at idx.
func (a *Arena) blocktypeAt(idx int) Blocktype { return a.bitmap[idx] }

// setBlocktypeRun writes bt into the start cell idx and EXTENT into
// the n-1 cells after it. EXTENT marks "interior cell of a multi-cell
// object" regardless of that object's color, so it is always the
// interior tag here — whether idx is being freshly allocated (WHITE)
// or promoted to scanned (BLACK).
func (a *Arena) setBlocktypeRun(idx, n int, bt Blocktype) {
	a.bitmap[idx] = bt
	for i := 1; i < n; i++ {
		a.bitmap[idx+i] = Extent
	}
}

// arenaBaseOf rounds ref down to its containing arena's base address.
// Exposed for diagnostics and for huge-block identification by raw
// address math, grounded on spec §3's arena_base(ptr) contract.
func arenaBaseOf(ref Ref) Ref {
	return Ref(uintptr(ref) &^ uintptr(arenaMask))
}

// sweep flips BLACK start cells back to WHITE (the object survived
// and is reset, unmarked, for the next cycle), flips WHITE start
// cells to FREE (the object was never reached this cycle and is
// reclaimed), and folds any EXTENT cell trailing a reclaimed object
// into FREE too, coalescing adjacent free runs. It reports whether
// the arena is now entirely free.
func (a *Arena) sweep() (entirelyFree bool) {
	free, largest, run := 0, 0, 0
	allFree := true
	objectAlive := false // true while scanning the EXTENT tail of a surviving object
	for i := headerCell + 1; i < cellsPerArena; i++ {
		switch a.bitmap[i] {
		case Black:
			a.bitmap[i] = White
			objectAlive = true
			allFree = false
			run = 0
		case White:
			a.bitmap[i] = Free
			objectAlive = false
			free++
			run++
		case Free:
			objectAlive = false
			free++
			run++
		case Extent:
			if objectAlive {
				allFree = false
				run = 0
			} else {
				a.bitmap[i] = Free
				free++
				run++
			}
		}
		if run > largest {
			largest = run
		}
	}
	a.freeCells = free
	a.largestFreeRun = largest
	a.bumpCursor = headerCell + 1
	return allFree
}

func (a *Arena) String() string {
	return fmt.Sprintf("arena@%#x{free=%d largestRun=%d}", a.base, a.freeCells, a.largestFreeRun)
}

// mmapAligned maps size bytes from an anonymous, zero-filled mapping
// such that the returned base address is a multiple of align. It
// over-maps and trims the slack on either side, the standard trick
// also used by mheap.go's sysReserveAligned.
func mmapAligned(size, align int) (uintptr, []byte, error) {
	full, err := unix.Mmap(-1, 0, size+align, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, nil, errors.Wrap(err, "mmap")
	}
	base := uintptr(unsafe.Pointer(&full[0]))
	aligned := (base + uintptr(align) - 1) &^ (uintptr(align) - 1)
	lead := int(aligned - base)

	if lead > 0 {
		if err := unix.Munmap(full[:lead]); err != nil {
			return 0, nil, errors.Wrap(err, "munmap lead")
		}
	}
	trailStart := lead + size
	if trailStart < len(full) {
		if err := unix.Munmap(full[trailStart:]); err != nil {
			return 0, nil, errors.Wrap(err, "munmap trail")
		}
	}
	region := full[lead : lead+size : lead+size]
	return aligned, region, nil
}
