package format

import "github.com/DmitriyKolesnikM8O/arenakit/internal/buf"

// Sorted-list block descriptor. Every block, free or occupied, carries one;
// only free blocks participate in the free list.
//
// Descriptor layout (little-endian):
//
//	Offset  Size  Description
//	0x00    8     Descriptor offset of the next free block, NilOff when none.
//	              Dormant while the block is occupied.
//	0x08    8     Payload size in bytes, descriptor excluded.
//	0x10    ...   Payload.
type ListNode struct {
	NextFree uint64
	Size     int // Payload size, descriptor excluded
}

// ListNodeSize is the size of the sorted-list descriptor.
const ListNodeSize = 16

// ReadListNode decodes the descriptor at off. Returns ok = false when the
// descriptor does not fit within b.
func ReadListNode(b []byte, off int) (ListNode, bool) {
	raw, ok := buf.Slice(b, off, ListNodeSize)
	if !ok {
		return ListNode{}, false
	}
	return ListNode{
		NextFree: buf.U64LE(raw),
		Size:     int(buf.U64LE(raw[8:])),
	}, true
}

// WriteListNode encodes n at off. Returns false when the descriptor does not fit.
func WriteListNode(b []byte, off int, n ListNode) bool {
	raw, ok := buf.Slice(b, off, ListNodeSize)
	if !ok {
		return false
	}
	buf.PutU64LE(raw, n.NextFree)
	buf.PutU64LE(raw[8:], uint64(n.Size))
	return true
}
