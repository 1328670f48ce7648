// Public API (spec §6). Thin wrappers over *Collector, grounded on
// malloc.go's mallocgc as the allocation entrypoint shape.
package qcgc

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Initialize brings up the collector: stores the given configuration,
// maps the shadow stack, and records the embedder's Tracer. It must be
// called before any other method, and paired with Destroy; after
// Destroy it may be called again.
func (c *Collector) Initialize(cfg Config, tracer Tracer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return ErrAlreadyInitialized
	}

	c.cfg = cfg
	c.tracer = tracer
	c.metrics = newMetricsSet(cfg.Registerer)
	c.generalGray = newGrayStack()
	c.huge = newHugeBlockTable()
	c.weak = newWeakrefBag()
	c.records = make(map[Ref]*objectRecord)
	c.phase = PhasePause
	c.preferBump = true
	c.totalCollections, c.totalBytesSwept = 0, 0

	shadow, err := newShadowStack(cfg.ShadowStackSize, c.log)
	if err != nil {
		return err
	}
	c.shadow = shadow
	c.initialized = true
	c.log.WithFields(logrus.Fields{
		"major_threshold":   cfg.MajorThreshold,
		"incmark_threshold": cfg.IncMarkThreshold,
	}).Info("qcgc: initialized")
	return nil
}

// Destroy tears the collector down: restores the shadow stack's guard
// page and releases every mapped region. The Collector is unusable
// afterward unless Initialize is called again.
func (c *Collector) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	var firstErr error
	if err := c.shadow.destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, a := range append(append([]*Arena{}, c.liveArenas...), c.freeArenas...) {
		if err := a.release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, e := range c.huge.entries {
		if err := unix.Munmap(e.mem); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.liveArenas = nil
	c.freeArenas = nil
	c.currentArena = nil
	c.records = nil
	c.initialized = false
	c.log.Info("qcgc: destroyed")
	return firstErr
}

// ShadowStackPush publishes ref as a root. If the collector is
// mid-cycle, pushing also grays ref so a root appearing after marking
// started is not missed (spec §4.4).
func (c *Collector) ShadowStackPush(ref Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	if c.phase != PhasePause {
		c.phase = PhaseMark
		c.pushObject(ref)
	}
	return c.shadow.push(ref)
}

// ShadowStackPop pops and returns the most recently pushed root.
func (c *Collector) ShadowStackPop() (Ref, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return NullRef, ErrNotInitialized
	}
	return c.shadow.pop()
}

// RegisterPrebuilt declares ref as a statically-allocated object
// living outside the arena system (spec §3's PREBUILT bit). This has
// no direct counterpart in spec §6's public API list, but is
// necessary plumbing: the embedder must tell the collector which
// addresses are prebuilt before the first Write touches them.
func (c *Collector) RegisterPrebuilt(ref Ref, size uintptr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	c.records[ref] = &objectRecord{size: size, prebuilt: true}
	return nil
}

// RegisterWeakref registers (holder, slotAddress) per spec §4.5.
// holder must not be prebuilt or a huge block, and *slotAddress must
// currently designate a valid, non-prebuilt-ignored object.
func (c *Collector) RegisterWeakref(holder Ref, slotAddress *Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	holderRec, ok := c.classify(holder)
	if !ok || holderRec.prebuilt || holderRec.huge {
		return ErrInvalidWeakrefTarget
	}
	target := *slotAddress
	targetRec, ok := c.classify(target)
	if !ok {
		return ErrInvalidWeakrefTarget
	}
	if targetRec.prebuilt {
		// Prebuilt targets never die; nothing to track (spec §4.5).
		return nil
	}
	c.weak.add(holder, slotAddress)
	return nil
}
