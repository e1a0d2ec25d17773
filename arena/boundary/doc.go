// Package boundary implements the boundary-tag arena allocator.
//
// # Layout
//
// The arena is a chain of variable-sized blocks. Every block starts with a
// 24-byte descriptor carrying the block size (descriptor included, low bit
// reserved for the occupancy flag) and doubly-linked neighbour offsets; the
// payload follows immediately. At construction the arena holds exactly one
// free block spanning the whole region.
//
// # Allocation
//
// Allocate walks the chain and selects a free block of sufficient size
// under the current fit mode. When the selected block leaves enough room
// for another descriptor plus a minimal payload, the remainder is split off
// as a new free block and linked after the selection. Allocate(0) produces
// a degenerate descriptor-only block, so distinct zero-sized allocations
// still receive distinct references.
//
// # Deallocation
//
// Deallocate recovers the descriptor preceding the reference, validates
// that it addresses a real block, clears the occupancy flag, then absorbs a
// free forward neighbour and merges into a free backward neighbour, so no
// two adjacent blocks are ever left free.
//
// # Introspection
//
// Blocks reports (size, occupied) per block in address order; sizes include
// the descriptor, so a snapshot always sums to the arena size.
package boundary
