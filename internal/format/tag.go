package format

import "github.com/DmitriyKolesnikM8O/arenakit/internal/buf"

// Boundary-tag block descriptor.
//
// Descriptor layout (little-endian):
//
//	Offset  Size  Description
//	0x00    8     Size word. Bit 0 => occupied. The remaining bits hold the
//	              total block size in bytes, descriptor included. Block sizes
//	              are kept even so the low bit is free for the flag.
//	0x08    8     Descriptor offset of the previous block, NilOff when none.
//	0x10    8     Descriptor offset of the next block, NilOff when none.
//	0x18    ...   Payload.
type Tag struct {
	Size     int  // Total block size including the descriptor
	Occupied bool // True when the block is allocated
	Prev     uint64
	Next     uint64
}

const (
	// TagDescSize is the size of the boundary-tag descriptor.
	TagDescSize = 24

	// TagMinPayload is the smallest payload worth splitting a remainder
	// block for.
	TagMinPayload = 4

	// NilOff marks the absence of a linked neighbour in descriptor link
	// fields. Offset 0 is a valid block address, so zero cannot serve.
	NilOff = ^uint64(0)

	occupiedBit = 1
)

// ReadTag decodes the boundary-tag descriptor at off. Returns ok = false
// when the descriptor does not fit within b.
func ReadTag(b []byte, off int) (Tag, bool) {
	raw, ok := buf.Slice(b, off, TagDescSize)
	if !ok {
		return Tag{}, false
	}
	sizeWord := buf.U64LE(raw)
	return Tag{
		Size:     int(sizeWord &^ occupiedBit),
		Occupied: sizeWord&occupiedBit != 0,
		Prev:     buf.U64LE(raw[8:]),
		Next:     buf.U64LE(raw[16:]),
	}, true
}

// WriteTag encodes t at off. Returns false when the descriptor does not fit.
func WriteTag(b []byte, off int, t Tag) bool {
	raw, ok := buf.Slice(b, off, TagDescSize)
	if !ok {
		return false
	}
	sizeWord := uint64(t.Size) &^ occupiedBit
	if t.Occupied {
		sizeWord |= occupiedBit
	}
	buf.PutU64LE(raw, sizeWord)
	buf.PutU64LE(raw[8:], t.Prev)
	buf.PutU64LE(raw[16:], t.Next)
	return true
}
