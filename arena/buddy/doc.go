// Package buddy implements the buddy-system arena allocator.
//
// # Layout
//
// The arena is a pool of exactly 1<<K bytes. Every block starts with a
// single metadata byte packing the occupancy flag (bit 0) and the block
// order k (bits 1-7); a block of order k spans 1<<k bytes, metadata
// included, and is aligned to 1<<k within the pool. No free list is kept:
// blocks are enumerated by walking the pool and jumping by each block's
// size.
//
// # Allocation
//
// A request of n bytes needs a block order covering n plus the
// back-reference word and the metadata byte, clamped to the minimum order.
// The pool walk selects a free block of sufficient order under the current
// fit mode, then halves it until the target order is reached; each halving
// releases the upper half as the new block's free buddy. The start of the
// allocated payload stores the block's own metadata offset so Deallocate
// can recover the block from a payload reference; the user region begins
// after that word.
//
// # Deallocation
//
// Deallocate reads the back-reference word, validates it against the
// reference and the block's alignment, clears the occupancy flag and
// merges the block with its buddy - the block whose pool offset differs
// only in bit k - as long as the buddy is free and of equal order, keeping
// the resulting block at the lower offset.
//
// # Introspection
//
// Blocks reports (1<<order, occupied) per block in pool order.
package buddy
