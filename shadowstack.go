// Shadow-stack root protocol (spec §4.4, §9).
//
// The stack proper and its trailing guard page share one mmap'd,
// page-aligned region, grounded on mmap.go's raw page-mapping role
// (carried forward here via golang.org/x/sys/unix rather than the
// teacher's internal sysMmap wrapper) and on signal_unix.go's
// fault-classification shape. Spec §9 explicitly sanctions either
// replicating the OS trap or substituting a portable capacity check;
// this port replicates the trap (a real PROT_NONE page, so a push at
// capacity costs nothing extra until it actually overflows) and uses
// runtime/debug.SetPanicOnFault, Go's own portable hook for turning an
// unexpected memory fault into a recoverable *runtime.Error, as the
// substitute for installing a raw SIGSEGV handler.
package qcgc

import (
	"runtime/debug"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

var slotSize = int(unsafe.Sizeof(Ref(0)))

// ErrShadowStackUnderflow is returned by Pop on an empty stack.
var ErrShadowStackUnderflow = errors.New("qcgc: shadow stack underflow")

// ShadowStack is the mutator-managed root container: a contiguous
// address range with a base pointer, a top pointer, and a guard page
// mapped immediately past the logical end.
type ShadowStack struct {
	mem      []byte // capacity slots, page-rounded
	guard    []byte // one page, PROT_NONE while live
	base     uintptr
	capacity int
	top      int
	log      *logrus.Entry
}

// newShadowStack maps capacity slots plus a trailing guard page.
func newShadowStack(capacity int, log *logrus.Entry) (*ShadowStack, error) {
	pageSize := unix.Getpagesize()
	dataBytes := alignUpInt(capacity*slotSize, pageSize)

	region, err := unix.Mmap(-1, 0, dataBytes+pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrap(err, "qcgc: map shadow stack")
	}
	data := region[:dataBytes]
	guard := region[dataBytes:]
	if err := unix.Mprotect(guard, unix.PROT_NONE); err != nil {
		_ = unix.Munmap(region)
		return nil, errors.Wrap(err, "qcgc: protect guard page")
	}
	debug.SetPanicOnFault(true)
	return &ShadowStack{
		mem:      data,
		guard:    guard,
		base:     uintptr(unsafe.Pointer(&data[0])),
		capacity: dataBytes / slotSize,
		log:      log,
	}, nil
}

// push stores ref at the top of the stack and advances. An overflow
// push lands on the guard page and faults; the fault is converted
// into a fatal diagnostic, matching spec §7's "not recoverable"
// classification for shadow-stack overflow.
func (s *ShadowStack) push(ref Ref) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("top", s.top).WithField("capacity", s.capacity).
				Fatalf("qcgc: shadow stack overflow: %v", r)
		}
	}()
	slot := (*Ref)(unsafe.Pointer(s.base + uintptr(s.top)*uintptr(slotSize)))
	*slot = ref
	s.top++
	return nil
}

// pop decrements the top pointer and returns the popped value.
func (s *ShadowStack) pop() (Ref, error) {
	if s.top == 0 {
		return NullRef, ErrShadowStackUnderflow
	}
	s.top--
	slot := (*Ref)(unsafe.Pointer(s.base + uintptr(s.top)*uintptr(slotSize)))
	return *slot, nil
}

// roots returns every currently-pushed root, base to top.
func (s *ShadowStack) roots() []Ref {
	out := make([]Ref, s.top)
	for i := 0; i < s.top; i++ {
		slot := (*Ref)(unsafe.Pointer(s.base + uintptr(i)*uintptr(slotSize)))
		out[i] = *slot
	}
	return out
}

func (s *ShadowStack) len() int { return s.top }

// destroy restores the guard page to read/write before freeing the
// whole mapping, per spec §4.4.
func (s *ShadowStack) destroy() error {
	if err := unix.Mprotect(s.guard, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return errors.Wrap(err, "qcgc: unprotect guard page")
	}
	// mem and guard are adjacent slices of one mapping; reconstruct
	// it for a single Munmap call.
	region := unsafe.Slice((*byte)(unsafe.Pointer(s.base)), len(s.mem)+len(s.guard))
	return unix.Munmap(region)
}

func alignUpInt(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}
