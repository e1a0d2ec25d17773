// Package arena defines the shared surface of the arenakit allocators.
//
// # Overview
//
// An arenakit allocator manages a single contiguous byte region (the arena)
// obtained once from an Upstream provider at construction. User requests of
// arbitrary size are sub-allocated from the arena; the arena is returned to
// the upstream on Close. Three bookkeeping schemes are provided as sibling
// packages:
//
//   - arena/boundary: doubly-linked chain of variable-sized blocks carrying
//     size+occupancy tags, with first/best/worst fit and neighbour
//     coalescing on free.
//   - arena/buddy: power-of-two block pool with logarithmic splitting and
//     constant-time buddy coalescing.
//   - arena/sorted: address-ordered singly-linked free list with the same
//     fit modes and adjacent-block coalescing.
//
// # References
//
// Allocations are addressed by a Ref - the payload offset within the arena -
// paired with a []byte window aliasing the payload:
//
//	a, err := boundary.New(1 << 20)
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	ref, data, err := a.Allocate(256)
//	if err != nil {
//	    return err
//	}
//	copy(data, payload)
//
//	// Later, return the block to the arena.
//	err = a.Deallocate(ref)
//
// # Fit modes
//
// All schemes select among qualifying free blocks under a runtime-switchable
// FitMode: FirstFit takes the lowest-addressed fit, BestFit the tightest,
// WorstFit the largest. Ties break toward the lowest address.
//
// # Introspection
//
// Blocks() returns a snapshot of every block in address order, built while
// the allocator's lock is held, so tests and tools observe a consistent
// block map. FreeBytes() and Stats() expose accounting in the same way.
//
// # Thread safety
//
// Every allocator instance owns one mutex; Allocate, Deallocate, SetFitMode
// and Blocks hold it for the whole operation, so all mutations on one
// instance are totally ordered. Distinct instances are independent.
//
// # Logging
//
// Allocators accept an optional *slog.Logger. When present, construction and
// teardown, every allocation attempt and outcome, split and coalesce events,
// fit-mode changes and a block snapshot after each mutation are emitted.
// LevelTrace and LevelCritical extend slog's levels to the six-level
// contract used throughout.
package arena
