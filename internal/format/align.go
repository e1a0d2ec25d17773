package format

// Alignment utilities for arena descriptor layouts. Boundary-tag and
// sorted-list arena sizes round up to 8-byte boundaries, and sorted-list
// requests round the same way so its payloads stay 8-aligned. Boundary-tag
// requests round only to an even size and buddy payloads start 9 bytes into
// their block, so those two schemes do not keep payloads 8-aligned.

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

const (
	// Alignment is the natural alignment of arena payloads, in bytes.
	Alignment = 8

	alignmentMask = Alignment - 1
)

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + alignmentMask) & ^alignmentMask
}

// AlignUp returns n aligned up to the next multiple of align.
// align must be a power of two.
func AlignUp[T constraints.Integer](n, align T) T {
	return (n + align - 1) & ^(align - 1)
}

// Log2Ceil returns the smallest k such that 1<<k >= n. Log2Ceil(0) = 0.
func Log2Ceil(n uint64) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len64(n - 1))
}
