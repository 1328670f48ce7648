package qcgc

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// hugeBlockEntry tracks one individually-mapped huge object. Liveness
// (the mark bit) for huge blocks is tracked here, not in a blocktype
// bitmap (spec §3); a huge block's GRAY flag lives in its
// objectRecord header like any other object's.
type hugeBlockEntry struct {
	mem    []byte
	size   uintptr
	marked bool
}

// hugeBlockTable is the side table of all live huge blocks, keyed by
// their arena-aligned base address.
type hugeBlockTable struct {
	entries map[Ref]*hugeBlockEntry
}

func newHugeBlockTable() *hugeBlockTable {
	return &hugeBlockTable{entries: make(map[Ref]*hugeBlockEntry)}
}

// allocate maps a fresh arena-aligned region of at least size bytes
// and registers it, unmarked.
func (t *hugeBlockTable) allocate(size uintptr) (Ref, error) {
	mapped := alignUp(size, arenaSize)
	base, mem, err := mmapAligned(int(mapped), arenaSize)
	if err != nil {
		return NullRef, errors.Wrapf(ErrOutOfMemory, "qcgc: allocate huge block: %v", err)
	}
	ref := Ref(base)
	t.entries[ref] = &hugeBlockEntry{mem: mem, size: size}
	return ref, nil
}

// isHuge reports whether ref names a live huge block.
func (t *hugeBlockTable) isHuge(ref Ref) bool {
	_, ok := t.entries[ref]
	return ok
}

// markAndTest marks ref live, returning true iff this call was the
// one that transitioned it from unmarked to marked (spec §4.1
// push_object).
func (t *hugeBlockTable) markAndTest(ref Ref) bool {
	e, ok := t.entries[ref]
	if !ok {
		return false
	}
	if e.marked {
		return false
	}
	e.marked = true
	return true
}

// isMarked reports the current mark bit without mutating it, used by
// the write barrier's re-queue check (spec §4.2 step 6).
func (t *hugeBlockTable) isMarked(ref Ref) bool {
	e, ok := t.entries[ref]
	return ok && e.marked
}

// sweep frees every unmarked huge block and clears all marks,
// returning the freed refs so the caller can drop their records.
func (t *hugeBlockTable) sweep() []Ref {
	var freed []Ref
	for ref, e := range t.entries {
		if !e.marked {
			_ = unix.Munmap(e.mem)
			delete(t.entries, ref)
			freed = append(freed, ref)
			continue
		}
		e.marked = false
	}
	return freed
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}
