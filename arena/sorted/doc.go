// Package sorted implements the sorted-free-list arena allocator.
//
// # Layout
//
// The arena is a sequence of blocks in address order. Every block, free or
// occupied, starts with a 16-byte descriptor holding the next-free link and
// the payload size (descriptor excluded); the link is dormant while the
// block is occupied. The free list threads only the free blocks in strictly
// ascending address order, headed from the allocator itself.
//
// # Allocation
//
// Requests round up to the payload alignment, then the free list is walked
// under the current fit mode. When the selected block has slack for another
// descriptor, the request is carved off the front and the remainder is
// linked into the free list in the original block's place; otherwise the
// whole block is unlinked. Allocate(0) rounds up to one alignment quantum
// and succeeds.
//
// # Deallocation
//
// Deallocate validates the reference against the inline block sequence,
// locates the address-ordered insertion point in the free list, inserts the
// block and coalesces it with the previous and next free blocks whenever
// they are byte-adjacent.
//
// # Introspection
//
// Blocks reports (size, occupied) per block in address order; sizes are
// payload sizes, descriptors excluded, and occupancy is determined by free
// list membership.
package sorted
