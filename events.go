// Event log (spec §6). Opaque to the CORE's correctness: purely a
// diagnostics feed, implemented with structured logging grounded on
// moby-moby's pervasive logrus.WithField(s) idiom.
package qcgc

import "github.com/sirupsen/logrus"

func (c *Collector) logMarkStart(incremental bool) {
	c.log.WithFields(logrus.Fields{
		"incremental": incremental,
		"gray_total":  c.grayTotal,
	}).Debug("qcgc: mark start")
}

func (c *Collector) logMarkDone(incremental bool) {
	c.log.WithFields(logrus.Fields{
		"incremental": incremental,
		"gray_total":  c.grayTotal,
	}).Debug("qcgc: mark done")
}

func (c *Collector) logSweepStart() {
	c.log.WithField("arena_count", len(c.liveArenas)).Debug("qcgc: sweep start")
}

func (c *Collector) logSweepDone() {
	c.log.WithFields(logrus.Fields{
		"free_cells":         c.freeCells,
		"largest_free_block": c.largestFreeBlock,
	}).Debug("qcgc: sweep done")
}

func (c *Collector) logAllocateStart(size uintptr) {
	if !c.cfg.LogAllocations {
		return
	}
	c.log.WithField("size", size).Trace("qcgc: allocate start")
}

func (c *Collector) logAllocateDone(ref Ref, size uintptr) {
	if !c.cfg.LogAllocations {
		return
	}
	c.log.WithFields(logrus.Fields{"ref": ref, "size": size}).Trace("qcgc: allocate done")
}
