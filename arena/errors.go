package arena

import "errors"

var (
	// ErrExhausted indicates that no free block satisfies the request under
	// the current fit mode.
	ErrExhausted = errors.New("arena: no free block large enough")

	// ErrInvalidPointer indicates a Deallocate reference outside the arena
	// payload or not at a valid block boundary.
	ErrInvalidPointer = errors.New("arena: bad block reference")

	// ErrDoubleFree indicates a Deallocate of a block already marked free.
	ErrDoubleFree = errors.New("arena: block already free")

	// ErrInvalidSize indicates construction with a size below the scheme's
	// minimum headroom.
	ErrInvalidSize = errors.New("arena: size too small")

	// ErrUpstream indicates that arena acquisition or release failed.
	ErrUpstream = errors.New("arena: upstream failure")

	// ErrClosed indicates an operation on an allocator whose arena has been
	// released.
	ErrClosed = errors.New("arena: allocator closed")
)
