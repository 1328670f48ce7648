// Collector state machine (spec §4.1). Grounded on
// Go-zh-go.old/src/runtime/mgc.go's phase-machine shape, simplified
// from Go's STW/concurrent phase set down to spec §4.1's three
// synchronous phases (PAUSE, MARK, COLLECT), and on mgcwork.go's
// drain-loop shape for the mark slice itself.
package qcgc

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Phase is one of the collector's three synchronous states.
type Phase int

const (
	PhasePause Phase = iota
	PhaseMark
	PhaseCollect
)

func (p Phase) String() string {
	switch p {
	case PhasePause:
		return "pause"
	case PhaseMark:
		return "mark"
	case PhaseCollect:
		return "collect"
	default:
		return "invalid-phase"
	}
}

// Collector is the CORE's global state, instantiated explicitly
// rather than kept in package globals (spec §9: "gate it behind an
// explicit initialize/destroy pair and avoid hidden static
// constructors"). The mutex below guards against accidental
// concurrent misuse by an embedder; it is not part of the CORE's
// concurrency model, which assumes one logical mutator thread (spec
// §5).
type Collector struct {
	mu sync.Mutex

	cfg    Config
	tracer Tracer
	log    *logrus.Entry

	metrics *metricsSet

	phase                Phase
	bytesSinceCollection uintptr
	bytesSinceIncMark    uintptr
	freeCells            int
	largestFreeBlock     int
	preferBump           bool

	totalCollections uint64
	totalBytesSwept  uint64

	liveArenas   []*Arena
	freeArenas   []*Arena
	currentArena *Arena

	generalGray *grayStack
	grayTotal   int

	huge *hugeBlockTable
	weak *weakrefBag

	prebuiltRoots []Ref

	shadow *ShadowStack

	records map[Ref]*objectRecord

	initialized bool
}

// New constructs a Collector. It is not yet usable until Initialize
// succeeds.
func New() *Collector {
	return &Collector{
		log:     logrus.NewEntry(logrus.StandardLogger()),
		records: make(map[Ref]*objectRecord),
	}
}

// SetLogger overrides the collector's logger, which otherwise defaults
// to the standard logrus logger. Intended for embedders (such as
// cmd/qcgcdemo) that want collection events folded into their own
// logging configuration.
func (c *Collector) SetLogger(log *logrus.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = logrus.NewEntry(log)
}

// classify looks up ref's bookkeeping record. ok is false for
// NullRef or any ref the collector has never seen.
func (c *Collector) classify(ref Ref) (*objectRecord, bool) {
	if ref == NullRef {
		return nil, false
	}
	rec, ok := c.records[ref]
	return rec, ok
}

// blocktypeOf returns the current blocktype for a normal (non-huge,
// non-prebuilt) heap object.
func (c *Collector) blocktypeOf(rec *objectRecord) Blocktype {
	return rec.arena.blocktypeAt(rec.cellIndex)
}

// GetMarkColor is the diagnostic of spec §6. It returns ColorInvalid
// for an unknown ref.
func (c *Collector) GetMarkColor(ref Ref) MarkColor {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.classify(ref)
	if !ok {
		return ColorInvalid
	}
	if rec.prebuilt {
		// Prebuilt objects are always considered reachable (I5);
		// they behave like a scanned black object for diagnostic
		// purposes, gray bit aside.
		if rec.header.gray() {
			return ColorDarkGray
		}
		return ColorBlack
	}
	if rec.huge {
		marked := c.huge.isMarked(ref)
		bt := White
		if marked {
			bt = Black
		}
		return markColorOf(bt, rec.header.gray())
	}
	return markColorOf(c.blocktypeOf(rec), rec.header.gray())
}

// mark runs mark(incremental) per spec §4.1.
func (c *Collector) mark(incremental bool) {
	if c.phase == PhaseCollect {
		return
	}
	c.bytesSinceIncMark = 0

	if c.phase == PhasePause {
		c.phase = PhaseMark
		c.logMarkStart(incremental)
		for _, root := range c.shadow.roots() {
			c.pushObject(root)
		}
		for _, p := range c.prebuiltRoots {
			c.grayPush(p)
		}
	}

	for {
		c.markPass(incremental)
		if incremental || c.grayTotal == 0 {
			break
		}
	}

	if c.grayTotal == 0 {
		c.phase = PhaseCollect
		c.logMarkDone(incremental)
	}
	if incremental && c.metrics != nil {
		c.metrics.incMarkSlicesComplete.Inc()
	}
	c.reportMetrics()
}

// markPass drains up to N entries from the general-purpose stack and
// then, with the same N policy, from every live arena's stack. N is
// the full backlog for a non-incremental pass, or
// min(size, max(size/2, IncMarkMin)) for an incremental one (spec
// §4.1 step 4).
func (c *Collector) markPass(incremental bool) {
	c.drain(c.generalGray, incremental)
	for _, a := range c.liveArenas {
		c.drain(a.gray, incremental)
	}
}

func (c *Collector) sliceSize(n int, incremental bool) int {
	if !incremental {
		return n
	}
	half := n / 2
	if half < c.cfg.IncMarkMin {
		half = c.cfg.IncMarkMin
	}
	if half > n {
		half = n
	}
	return half
}

func (c *Collector) drain(stack *grayStack, incremental bool) {
	n := c.sliceSize(stack.len(), incremental)
	for i := 0; i < n; i++ {
		ref, ok := stack.pop()
		if !ok {
			return
		}
		c.popObject(ref)
	}
}

// grayPush is the "push onto the general-purpose stack and mark GRAY"
// step used by prebuilt-root scanning at the start of a mark cycle.
func (c *Collector) grayPush(ref Ref) {
	rec, ok := c.classify(ref)
	if !ok {
		return
	}
	rec.header.setGray()
	c.generalGray.push(ref)
	c.grayTotal++
}

// pushObject is the grayer passed to the trace callback (spec §4.1
// push_object).
func (c *Collector) pushObject(o Ref) {
	rec, ok := c.classify(o)
	if !ok {
		return
	}
	if rec.huge {
		if c.huge.markAndTest(o) {
			rec.header.setGray()
			c.generalGray.push(o)
			c.grayTotal++
		}
		return
	}
	if rec.prebuilt {
		return
	}
	if c.blocktypeOf(rec) == White {
		rec.header.setGray()
		rec.arena.setBlocktypeRun(rec.cellIndex, cellsFor(rec.size), Black)
		rec.arena.gray.push(o)
		c.grayTotal++
	}
}

// popObject clears GRAY and visits the object's outgoing references,
// using pushObject as the grayer (spec §4.1 pop_object).
func (c *Collector) popObject(o Ref) {
	rec, ok := c.classify(o)
	if !ok {
		return
	}
	assert(rec.header.gray(), "popObject: object is not GRAY")
	rec.header.clearGray()
	c.grayTotal--
	if c.tracer != nil {
		c.tracer.Trace(o, c.pushObject)
	}
}

// sweep runs sweep() per spec §4.1. Precondition: phase is COLLECT
// and every gray work-list is empty.
func (c *Collector) sweep() {
	assert(c.phase == PhaseCollect, "sweep: phase is not COLLECT")
	assert(c.grayTotal == 0, "sweep: gray work-lists not drained")

	c.logSweepStart()

	var bytesSwept uintptr
	for _, freedRef := range c.huge.sweep() {
		if rec, ok := c.records[freedRef]; ok {
			bytesSwept += rec.size
		}
		delete(c.records, freedRef)
	}

	c.freeCells = 0
	c.largestFreeBlock = 0

	var stillLive []*Arena
	for _, a := range c.liveArenas {
		if a == c.currentArena {
			// The bump arena is swept like any other, but it stays
			// live and keeps its bump cursor: Arena.sweep rewinds the
			// cursor, and rewinding the arena still being bumped
			// would hand out cells that hold survivors.
			cursor := a.bumpCursor
			a.sweep()
			a.bumpCursor = cursor
			stillLive = append(stillLive, a)
			c.freeCells += a.freeCells
			if a.largestFreeRun > c.largestFreeBlock {
				c.largestFreeBlock = a.largestFreeRun
			}
			continue
		}
		entirelyFree := a.sweep()
		if entirelyFree {
			a.inFreePool = true
			c.freeArenas = append(c.freeArenas, a)
			continue
		}
		stillLive = append(stillLive, a)
		c.freeCells += a.freeCells
		if a.largestFreeRun > c.largestFreeBlock {
			c.largestFreeBlock = a.largestFreeRun
		}
	}
	c.liveArenas = stillLive

	c.phase = PhasePause
	c.preferBump = c.freeCells < 2*c.largestFreeBlock

	// The weak-reference pass runs while dead objects' records are
	// still present: it tells survivors from casualties by blocktype
	// (EXTENT/FREE means the arena already reclaimed the cell),
	// exactly as spec §4.5 describes. Only after it has run do we
	// drop bookkeeping for whatever it found dead.
	c.updateWeakrefs()
	bytesSwept += c.dropDeadRecords()

	c.totalCollections++
	c.totalBytesSwept += uint64(bytesSwept)

	c.logSweepDone()
	if c.metrics != nil {
		c.metrics.collectionsCompleted.Inc()
	}
	c.reportMetrics()
}

// dropDeadRecords removes bookkeeping for every arena-backed object
// whose start cell now reads FREE, i.e. sweep reclaimed it this cycle,
// and returns the total bytes reclaimed.
func (c *Collector) dropDeadRecords() uintptr {
	var freed uintptr
	for ref, rec := range c.records {
		if rec.arena != nil && c.blocktypeOf(rec) == Free {
			freed += uintptr(cellsFor(rec.size)) * cellSize
			delete(c.records, ref)
		}
	}
	return freed
}

// CollectionStats is a point-in-time snapshot of the collector's
// cumulative lifetime counters (SPEC_FULL.md's collection-statistics
// supplement).
type CollectionStats struct {
	// CollectionsCompleted is the number of full collections run since
	// Initialize.
	CollectionsCompleted uint64
	// BytesSwept is the total size of every object reclaimed by sweep
	// since Initialize, huge blocks included.
	BytesSwept uint64
}

// Stats returns a snapshot of the collector's cumulative counters.
func (c *Collector) Stats() CollectionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CollectionStats{
		CollectionsCompleted: c.totalCollections,
		BytesSwept:           c.totalBytesSwept,
	}
}

// Collect runs a full collection: mark to completion, then sweep,
// then resets the major-collection byte counter (spec §4.1 collect()).
func (c *Collector) Collect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collectLocked()
}

func (c *Collector) collectLocked() {
	c.mark(false)
	c.sweep()
	c.bytesSinceCollection = 0
}
