package main

import (
	"fmt"
	"math/bits"
	"math/rand"
	"strings"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
	"github.com/DmitriyKolesnikM8O/arenakit/arena/boundary"
	"github.com/DmitriyKolesnikM8O/arenakit/arena/buddy"
	"github.com/DmitriyKolesnikM8O/arenakit/arena/sorted"
)

// allocator is the composed capability surface the tools drive.
type allocator interface {
	arena.MemoryResource
	arena.FitModeSetter
	arena.BlockIntrospection
}

var schemes = []string{"boundary", "buddy", "sorted"}

// openAllocator constructs the named scheme sized to at least size bytes.
// The buddy pool rounds up to the next power of two.
func openAllocator(scheme string, size int, opts ...arena.Option) (allocator, error) {
	switch scheme {
	case "boundary":
		return boundary.New(size, opts...)
	case "buddy":
		order := bits.Len(uint(size - 1))
		return buddy.New(order, opts...)
	case "sorted":
		return sorted.New(size, opts...)
	default:
		return nil, fmt.Errorf("unknown scheme %q (want one of %s)", scheme, strings.Join(schemes, ", "))
	}
}

// workloadResult aggregates what a run did to an allocator.
type workloadResult struct {
	Ops       int
	Allocs    int
	Frees     int
	Failed    int
	LiveRefs  int
	FreeBytes int
	Blocks    []arena.BlockInfo
}

// runWorkload drives a seeded allocate/free mix: roughly 60% allocations of
// up to maxReq bytes, the rest frees of a random live block.
func runWorkload(a allocator, seed int64, ops, maxReq int) workloadResult {
	rng := rand.New(rand.NewSource(seed))
	live := make([]arena.Ref, 0, 128)
	res := workloadResult{Ops: ops}

	for i := 0; i < ops; i++ {
		if len(live) == 0 || rng.Intn(100) < 60 {
			res.Allocs++
			ref, _, err := a.Allocate(rng.Intn(maxReq + 1))
			if err != nil {
				res.Failed++
				continue
			}
			live = append(live, ref)
		} else {
			res.Frees++
			idx := rng.Intn(len(live))
			if err := a.Deallocate(live[idx]); err != nil {
				res.Failed++
				continue
			}
			live = append(live[:idx], live[idx+1:]...)
		}
	}

	res.LiveRefs = len(live)
	res.FreeBytes = a.FreeBytes()
	res.Blocks = a.Blocks()
	return res
}

// renderBlockMap draws the snapshot as one character per scale bytes:
// '#' runs for occupied blocks, '.' runs for free ones.
func renderBlockMap(blocks []arena.BlockInfo, width int) string {
	total := arena.TotalSize(blocks)
	if total == 0 || width <= 0 {
		return ""
	}

	var sb strings.Builder
	for _, b := range blocks {
		cells := b.Size * width / total
		if cells == 0 {
			cells = 1
		}
		ch := byte('.')
		if b.Occupied {
			ch = '#'
		}
		for i := 0; i < cells; i++ {
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// fragmentation reports the largest free block as a share of total free
// space; 1 means a single free run, lower values mean scattered holes.
func fragmentation(blocks []arena.BlockInfo) float64 {
	totalFree := 0
	largest := 0
	for _, b := range blocks {
		if b.Occupied {
			continue
		}
		totalFree += b.Size
		if b.Size > largest {
			largest = b.Size
		}
	}
	if totalFree == 0 {
		return 1
	}
	return float64(largest) / float64(totalFree)
}
