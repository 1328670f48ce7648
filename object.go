package qcgc

// Ref identifies a managed object by its address. The zero Ref never
// designates a live object.
type Ref uintptr

// NullRef is the address of no object.
const NullRef Ref = 0

// Flag is the object header's flag word. Bit layout matches the
// CORE's header contract: GRAY, PREBUILT, PREBUILT_REGISTERED, plus
// room for embedder payload bits above flagReservedBits.
type Flag uint32

const (
	// FlagGray marks an object present on a gray work-list or
	// mid-transition between colors.
	FlagGray Flag = 1 << iota
	// FlagPrebuilt marks a statically-allocated object living
	// outside the arena system.
	FlagPrebuilt
	// FlagPrebuiltRegistered marks a prebuilt object that has been
	// appended to the prebuilt-root list at least once.
	FlagPrebuiltRegistered

	flagReservedBits
)

// ObjectHeader is the flag word carried by every managed object.
type ObjectHeader struct {
	flags Flag
}

func (h *ObjectHeader) gray() bool           { return h.flags&FlagGray != 0 }
func (h *ObjectHeader) setGray()             { h.flags |= FlagGray }
func (h *ObjectHeader) clearGray()           { h.flags &^= FlagGray }
func (h *ObjectHeader) prebuilt() bool       { return h.flags&FlagPrebuilt != 0 }
func (h *ObjectHeader) prebuiltReg() bool    { return h.flags&FlagPrebuiltRegistered != 0 }
func (h *ObjectHeader) setPrebuiltReg()      { h.flags |= FlagPrebuiltRegistered }

// Blocktype is the per-cell side tag stored in an arena's blocktype
// bitmap. It is meaningless for prebuilt objects and huge blocks,
// which are tracked by other means (see spec §3).
type Blocktype uint8

const (
	// White is reachable-unknown before marking, or free-reusable
	// after sweep depending on phase.
	White Blocktype = iota
	// Black is reachable (scanned, or queued to be).
	Black
	// Free is definitely free after sweep.
	Free
	// Extent is an interior cell of a multi-cell object; never a
	// block start.
	Extent
)

func (b Blocktype) String() string {
	switch b {
	case White:
		return "white"
	case Black:
		return "black"
	case Free:
		return "free"
	case Extent:
		return "extent"
	default:
		return "invalid-blocktype"
	}
}

// MarkColor is the tricolor abstraction derived from (blocktype, GRAY)
// per spec §3, exposed to the embedder as a read-only diagnostic.
type MarkColor int

const (
	ColorWhite MarkColor = iota
	ColorLightGray
	ColorDarkGray
	ColorBlack
	ColorInvalid
)

func (c MarkColor) String() string {
	switch c {
	case ColorWhite:
		return "white"
	case ColorLightGray:
		return "light-gray"
	case ColorDarkGray:
		return "dark-gray"
	case ColorBlack:
		return "black"
	default:
		return "invalid"
	}
}

// markColorOf derives the tricolor abstraction from a blocktype and
// the GRAY flag, per spec §3's table. Any combination other than the
// four listed is invalid.
func markColorOf(bt Blocktype, gray bool) MarkColor {
	switch {
	case bt == White && !gray:
		return ColorWhite
	case bt == White && gray:
		return ColorLightGray
	case bt == Black && !gray:
		return ColorBlack
	case bt == Black && gray:
		return ColorDarkGray
	default:
		return ColorInvalid
	}
}

// objectRecord is the collector's private bookkeeping for a single
// Ref. It never holds embedder payload: the embedder is responsible
// for its own mapping from Ref back to application data, and supplies
// outgoing-reference traversal through the Tracer contract.
type objectRecord struct {
	header    ObjectHeader
	size      uintptr
	arena     *Arena // nil for huge blocks and prebuilt objects
	cellIndex int    // valid iff arena != nil
	huge      bool
	prebuilt  bool
}
