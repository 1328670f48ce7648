package qcgc

import (
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"
)

func newTestShadowStack(t *testing.T, capacity int) *ShadowStack {
	t.Helper()
	s, err := newShadowStack(capacity, logrus.NewEntry(logrus.StandardLogger()))
	assert.NilError(t, err)
	t.Cleanup(func() { _ = s.destroy() })
	return s
}

func TestShadowStackPushPopOrder(t *testing.T) {
	s := newTestShadowStack(t, 16)

	assert.NilError(t, s.push(Ref(0x10)))
	assert.NilError(t, s.push(Ref(0x20)))
	assert.Equal(t, s.len(), 2)

	ref, err := s.pop()
	assert.NilError(t, err)
	assert.Equal(t, ref, Ref(0x20))

	ref, err = s.pop()
	assert.NilError(t, err)
	assert.Equal(t, ref, Ref(0x10))

	assert.Equal(t, s.len(), 0)
}

func TestShadowStackPopUnderflow(t *testing.T) {
	s := newTestShadowStack(t, 16)
	_, err := s.pop()
	assert.ErrorIs(t, err, ErrShadowStackUnderflow)
}

func TestShadowStackRoots(t *testing.T) {
	s := newTestShadowStack(t, 16)
	assert.NilError(t, s.push(Ref(0x1)))
	assert.NilError(t, s.push(Ref(0x2)))
	assert.NilError(t, s.push(Ref(0x3)))

	roots := s.roots()
	assert.DeepEqual(t, roots, []Ref{0x1, 0x2, 0x3})
}
