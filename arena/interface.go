package arena

// MemoryResource is the uniform allocate/deallocate contract shared by the
// three allocator schemes.
type MemoryResource interface {
	// Allocate reserves n bytes and returns the payload reference plus a
	// slice window over the payload.
	Allocate(n int) (Ref, []byte, error)

	// Deallocate returns a previously allocated block to the arena.
	Deallocate(ref Ref) error

	// Close releases the arena back to the upstream provider. Subsequent
	// operations fail with ErrClosed.
	Close() error
}

// FitModeSetter is implemented by allocators whose block selection policy is
// switchable at runtime.
type FitModeSetter interface {
	FitMode() FitMode
	SetFitMode(FitMode)
}

// BlockIntrospection exposes a consistent read-only view of the block map
// for tests and tooling.
type BlockIntrospection interface {
	// Blocks returns a snapshot of every block in address order. A closed
	// allocator yields an empty snapshot.
	Blocks() []BlockInfo

	// FreeBytes reports the total size of free blocks.
	FreeBytes() int
}
