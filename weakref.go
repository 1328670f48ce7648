// Weak-reference bag (spec §3, §4.5).
//
// Grounded on mfixalloc.go's free-list splice idiom, adapted from a
// linked free list to a swap-with-last removal over a slice: bag
// entries are plain value structs rather than heap objects with their
// own headers, so there is nothing to thread a link pointer through.
package qcgc

type weakEntry struct {
	holder Ref
	slot   *Ref
}

// weakrefBag is the growable set of (holder, slot-address) pairs
// registered via RegisterWeakref.
type weakrefBag struct {
	entries []weakEntry
}

func newWeakrefBag() *weakrefBag {
	return &weakrefBag{}
}

func (b *weakrefBag) add(holder Ref, slot *Ref) {
	b.entries = append(b.entries, weakEntry{holder: holder, slot: slot})
}

// removeAt drops entries[i] in O(1) by swapping with the last entry.
func (b *weakrefBag) removeAt(i int) {
	last := len(b.entries) - 1
	b.entries[i] = b.entries[last]
	b.entries = b.entries[:last]
}

func (b *weakrefBag) len() int { return len(b.entries) }

// updateWeakrefs runs the post-sweep pass of spec §4.5. It must run
// after sweep has already flipped blocktypes, so WHITE/BLACK mean
// "survived this cycle" and EXTENT/FREE mean "collected."
func (c *Collector) updateWeakrefs() {
	for i := 0; i < c.weak.len(); {
		e := c.weak.entries[i]

		holderRec, ok := c.classify(e.holder)
		if !ok || c.isDead(e.holder, holderRec) {
			c.weak.removeAt(i)
			continue
		}

		target := *e.slot
		if target == NullRef {
			c.weak.removeAt(i)
			continue
		}
		targetRec, ok := c.classify(target)
		if !ok {
			*e.slot = NullRef
			c.weak.removeAt(i)
			continue
		}
		if c.isDead(target, targetRec) {
			*e.slot = NullRef
			c.weak.removeAt(i)
			continue
		}
		i++
	}
}

// isDead reports whether rec's blocktype is EXTENT or FREE, i.e. the
// object it once named was not part of this cycle's surviving set.
// A prebuilt record is never dead; a huge block is dead once it is
// gone from the huge-block table.
func (c *Collector) isDead(ref Ref, rec *objectRecord) bool {
	if rec.prebuilt {
		return false
	}
	if rec.huge {
		return !c.huge.isHuge(ref)
	}
	bt := c.blocktypeOf(rec)
	return bt == Extent || bt == Free
}
