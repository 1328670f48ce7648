package qcgc

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestWeakrefBagAddRemove(t *testing.T) {
	bag := newWeakrefBag()
	var slotA, slotB, slotC Ref

	bag.add(Ref(1), &slotA)
	bag.add(Ref(2), &slotB)
	bag.add(Ref(3), &slotC)
	assert.Equal(t, bag.len(), 3)

	bag.removeAt(1) // swap-with-last drops slotB, slotC moves into its place
	assert.Equal(t, bag.len(), 2)
	assert.Equal(t, bag.entries[1].holder, Ref(3))
}

func TestRegisterWeakrefAndSurvive(t *testing.T) {
	graph := newFakeGraph()
	c := newTestCollector(t, graph)

	holder, err := c.Allocate(16)
	assert.NilError(t, err)
	assert.NilError(t, c.ShadowStackPush(holder))

	target, err := c.Allocate(16)
	assert.NilError(t, err)
	assert.NilError(t, c.Write(holder))
	graph.link(holder, target)

	var slot Ref = target
	assert.NilError(t, c.RegisterWeakref(holder, &slot))

	c.Collect()

	assert.Equal(t, slot, target) // target survived via the strong edge: slot untouched
	assert.Equal(t, c.weak.len(), 1)
}

func TestRegisterWeakrefClearedWhenTargetDies(t *testing.T) {
	graph := newFakeGraph()
	c := newTestCollector(t, graph)

	holder, err := c.Allocate(16)
	assert.NilError(t, err)
	assert.NilError(t, c.ShadowStackPush(holder))

	target, err := c.Allocate(16) // never linked: dies this cycle
	assert.NilError(t, err)

	var slot Ref = target
	assert.NilError(t, c.RegisterWeakref(holder, &slot))

	c.Collect()

	assert.Equal(t, slot, NullRef)
	assert.Equal(t, c.weak.len(), 0)
}

func TestRegisterWeakrefRemovedWhenHolderDies(t *testing.T) {
	graph := newFakeGraph()
	c := newTestCollector(t, graph)

	target, err := c.Allocate(16)
	assert.NilError(t, err)
	assert.NilError(t, c.ShadowStackPush(target))

	holder, err := c.Allocate(16) // not rooted: dies this cycle
	assert.NilError(t, err)

	var slot Ref = target
	assert.NilError(t, c.RegisterWeakref(holder, &slot))

	c.Collect()

	assert.Equal(t, c.weak.len(), 0)
}

func TestRegisterWeakrefRejectsPrebuiltHolder(t *testing.T) {
	c := newTestCollector(t, newFakeGraph())
	holder := Ref(0x1000)
	assert.NilError(t, c.RegisterPrebuilt(holder, 16))

	target, err := c.Allocate(16)
	assert.NilError(t, err)

	var slot Ref = target
	err = c.RegisterWeakref(holder, &slot)
	assert.ErrorIs(t, err, ErrInvalidWeakrefTarget)
}
