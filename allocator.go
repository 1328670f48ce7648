// Allocation entrypoint (spec §4.3) and the bump/fit/large allocator
// (spec §9). Grounded on malloc.go's mallocgc threshold-check-then-
// dispatch sequence and mfixalloc.go's free-list splice.
//
// spec §9 records an open question about whether the source's
// fragmentation heuristic should actually gate allocator choice; this
// port honors it faithfully (see DESIGN.md): sweep() sets preferBump,
// and allocate tries the preferred strategy first, falling back to
// the other, instead of always trying fit first.
package qcgc

// Allocate returns a fresh object reference of the given size, or
// ErrOutOfMemory if every allocator path is exhausted (spec §4.3).
func (c *Collector) Allocate(size uintptr) (Ref, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return NullRef, ErrNotInitialized
	}
	return c.allocateLocked(size)
}

func (c *Collector) allocateLocked(size uintptr) (Ref, error) {
	c.logAllocateStart(size)

	if c.bytesSinceCollection > c.cfg.MajorThreshold {
		c.collectLocked()
	} else if c.bytesSinceIncMark > c.cfg.IncMarkThreshold {
		c.mark(true)
	}

	var (
		ref Ref
		err error
	)
	if size <= uintptr(1)<<c.cfg.LargeAllocExp {
		ref, err = c.allocateSmall(size)
	} else {
		ref, err = c.allocateHuge(size)
	}
	if err != nil {
		return NullRef, err
	}

	c.bytesSinceCollection += size
	c.bytesSinceIncMark += size
	c.reportMetrics()
	c.logAllocateDone(ref, size)
	return ref, nil
}

// allocateSmall dispatches to bump or fit per the strategy flag last
// set by sweep, falling back to the other on failure.
func (c *Collector) allocateSmall(size uintptr) (Ref, error) {
	n := cellsFor(size)

	tryBump := func() (Ref, bool) { return c.bumpAllocate(n, size) }
	tryFit := func() (Ref, bool) { return c.fitAllocate(n, size) }

	var ref Ref
	var ok bool
	if c.preferBump {
		if ref, ok = tryBump(); !ok {
			ref, ok = tryFit()
		}
	} else {
		if ref, ok = tryFit(); !ok {
			ref, ok = tryBump()
		}
	}
	if !ok {
		return NullRef, ErrOutOfMemory
	}
	return ref, nil
}

// bumpAllocate serves n cells from the current arena's bump cursor,
// acquiring a fresh arena if none is current or the current one is
// exhausted.
func (c *Collector) bumpAllocate(n int, size uintptr) (Ref, bool) {
	if c.currentArena == nil || c.currentArena.bumpCursor+n > cellsPerArena {
		a, ok := c.acquireArena()
		if !ok {
			return NullRef, false
		}
		c.currentArena = a
	}
	a := c.currentArena
	if a.bumpCursor+n > cellsPerArena {
		return NullRef, false
	}
	idx := a.bumpCursor
	a.bumpCursor += n
	return c.commitAllocation(a, idx, n, size), true
}

// fitAllocate scans every live arena's bitmap for the first run of n
// contiguous FREE cells. This is a straightforward first-fit search;
// the CORE does not specify a particular free-list structure for fit,
// only that it "may return null" for the caller to fall back to bump.
func (c *Collector) fitAllocate(n int, size uintptr) (Ref, bool) {
	for _, a := range c.liveArenas {
		if idx, ok := a.findFreeRun(n); ok {
			return c.commitAllocation(a, idx, n, size), true
		}
	}
	return NullRef, false
}

func (a *Arena) findFreeRun(n int) (int, bool) {
	run := 0
	for i := headerCell + 1; i < cellsPerArena; i++ {
		if a.bitmap[i] == Free {
			run++
			if run == n {
				return i - n + 1, true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

func (c *Collector) commitAllocation(a *Arena, idx, n int, size uintptr) Ref {
	a.setBlocktypeRun(idx, n, White)
	a.freeCells -= n
	ref := a.refOfCell(idx)
	c.records[ref] = &objectRecord{size: size, arena: a, cellIndex: idx}
	return ref
}

// acquireArena pops an arena from the free pool, or maps a fresh one.
// It refuses to grow the arena system past cfg.MaxArenas (spec §9's
// arena-pool supplement): a zero or negative MaxArenas is treated as
// unbounded.
func (c *Collector) acquireArena() (*Arena, bool) {
	if n := len(c.freeArenas); n > 0 {
		a := c.freeArenas[n-1]
		c.freeArenas = c.freeArenas[:n-1]
		a.inFreePool = false
		c.liveArenas = append(c.liveArenas, a)
		return a, true
	}
	if c.cfg.MaxArenas > 0 && len(c.liveArenas)+len(c.freeArenas) >= c.cfg.MaxArenas {
		return nil, false
	}
	a, err := newArena()
	if err != nil {
		return nil, false
	}
	c.liveArenas = append(c.liveArenas, a)
	return a, true
}

// allocateHuge maps the object outside the arena system and registers
// it in the huge-block table (spec §4.3 step 3's large/huge path).
func (c *Collector) allocateHuge(size uintptr) (Ref, error) {
	ref, err := c.huge.allocate(size)
	if err != nil {
		return NullRef, err
	}
	assert(arenaBaseOf(ref) == ref, "huge block base is not arena-aligned")
	c.records[ref] = &objectRecord{size: size, huge: true}
	return ref, nil
}
