// Write barrier (spec §4.2).
//
// Grounded on Go-zh-go.old/src/runtime/mbarrier.go's gcmarkwb_m
// phase-switch shape, with the holder/target roles inverted: this is
// an insertion-style barrier that re-grays the object being WRITTEN
// TO (the holder), not the pointer value being stored, per spec §4.2.
package qcgc

// Write must be called before the mutator stores a reference into any
// field of holder. It is the collector's only hook into mutator
// stores; it must never be invoked from within a Tracer callback
// (spec §5c).
func (c *Collector) Write(holder Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	return c.writeLocked(holder)
}

func (c *Collector) writeLocked(holder Ref) error {
	rec, ok := c.classify(holder)
	if !ok {
		return ErrUnknownRef
	}

	if rec.header.gray() {
		return nil // idempotent fast-path
	}
	rec.header.setGray()

	if rec.prebuilt && !rec.header.prebuiltReg() {
		rec.header.setPrebuiltReg()
		c.prebuiltRoots = append(c.prebuiltRoots, holder)
	}

	if c.phase == PhasePause {
		return nil
	}
	c.phase = PhaseMark

	switch {
	case rec.prebuilt:
		c.generalGray.push(holder)
		c.grayTotal++
	case rec.huge:
		if c.huge.isMarked(holder) {
			c.generalGray.push(holder)
			c.grayTotal++
		}
	default:
		if c.blocktypeOf(rec) == Black {
			rec.arena.gray.push(holder)
			c.grayTotal++
		}
		// Still WHITE: either already queued light-gray elsewhere or
		// reachable through its own root; no re-queue needed.
	}
	return nil
}
