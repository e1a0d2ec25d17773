//go:build linux || darwin

package arena

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapUpstream acquires arenas from anonymous private mappings instead of
// the Go heap, keeping large arenas out of the garbage collector's working
// set. The zero value is ready to use.
type MmapUpstream struct{}

// Acquire maps an anonymous read-write region of at least size bytes.
// Mappings are page-aligned, which satisfies any align up to the page size.
func (MmapUpstream) Acquire(size, align int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrUpstream, size)
	}
	if size == 0 {
		return []byte{}, nil
	}
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %v", ErrUpstream, err)
	}
	return region[:size], nil
}

// Release unmaps a region previously returned by Acquire.
func (MmapUpstream) Release(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := unix.Munmap(region[:cap(region)]); err != nil {
		return fmt.Errorf("%w: munmap: %v", ErrUpstream, err)
	}
	return nil
}
