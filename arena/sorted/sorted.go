package sorted

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
	"github.com/DmitriyKolesnikM8O/arenakit/internal/format"
)

// minArenaSize is the smallest arena that holds one descriptor plus one
// alignment quantum of payload.
const minArenaSize = format.ListNodeSize + format.Alignment

// Allocator is a sorted-free-list allocator over a single fixed arena.
// All methods are safe for concurrent use.
type Allocator struct {
	mu    sync.Mutex
	mem   []byte // block sequence; nil once closed
	head  uint64 // descriptor offset of the first free block, NilOff when none
	up    arena.Upstream
	log   *slog.Logger
	fit   arena.FitMode
	stats arena.Stats
}

var (
	_ arena.MemoryResource     = (*Allocator)(nil)
	_ arena.FitModeSetter      = (*Allocator)(nil)
	_ arena.BlockIntrospection = (*Allocator)(nil)
)

// New constructs an allocator managing size bytes of block space. Size is
// rounded up to the payload alignment; the whole region starts as one free
// block. Fails with arena.ErrInvalidSize when size cannot hold a single
// minimal block.
func New(size int, opts ...arena.Option) (*Allocator, error) {
	cfg := arena.ApplyOptions(opts)

	arena.Log(cfg.Logger, slog.LevelDebug, "sorted: constructing", "size", size, "fit", cfg.Fit.String())

	if size < minArenaSize {
		arena.Log(cfg.Logger, slog.LevelError, "sorted: arena size too small", "size", size, "min", minArenaSize)
		return nil, fmt.Errorf("sorted: %d bytes below minimum %d: %w", size, minArenaSize, arena.ErrInvalidSize)
	}
	size = format.Align8(size)

	mem, err := cfg.Upstream.Acquire(size, format.Alignment)
	if err != nil {
		arena.Log(cfg.Logger, slog.LevelError, "sorted: arena acquisition failed", "size", size, "err", err)
		return nil, fmt.Errorf("sorted: acquire arena: %w", err)
	}

	format.WriteListNode(mem, 0, format.ListNode{
		NextFree: format.NilOff,
		Size:     size - format.ListNodeSize,
	})

	a := &Allocator{
		mem:  mem,
		head: 0,
		up:   cfg.Upstream,
		log:  cfg.Logger,
		fit:  cfg.Fit,
	}
	arena.Log(a.log, slog.LevelDebug, "sorted: constructed", "arena", size)
	return a, nil
}

// Allocate reserves n bytes and returns the payload reference plus a slice
// window over the payload. Requests round up to the payload alignment;
// Allocate(0) rounds up to one quantum.
func (a *Allocator) Allocate(n int) (arena.Ref, []byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.AllocCalls++
	if a.mem == nil {
		a.stats.AllocFailed++
		return arena.NilRef, nil, arena.ErrClosed
	}
	if n < 0 {
		a.stats.AllocFailed++
		return arena.NilRef, nil, fmt.Errorf("sorted: negative size %d: %w", n, arena.ErrInvalidSize)
	}

	arena.Log(a.log, slog.LevelDebug, "sorted: allocate", "size", n, "fit", a.fit.String())

	need := format.Align8(n)
	if need == 0 {
		need = format.Alignment
	}

	selOff, selPrev := a.selectFree(need)
	if selOff < 0 {
		a.stats.AllocFailed++
		arena.Log(a.log, slog.LevelError, "sorted: no suitable block", "size", n, "fit", a.fit.String())
		return arena.NilRef, nil, fmt.Errorf("sorted: allocate %d: %w", n, arena.ErrExhausted)
	}

	node, _ := format.ReadListNode(a.mem, selOff)
	arena.Log(a.log, arena.LevelTrace, "sorted: selected block", "off", selOff, "block", node.Size, "need", need)

	if node.Size >= need+format.ListNodeSize+1 {
		// Carve the request off the front; the remainder becomes a new
		// free block linked in the original's place.
		newOff := selOff + format.ListNodeSize + need
		format.WriteListNode(a.mem, newOff, format.ListNode{
			NextFree: node.NextFree,
			Size:     node.Size - need - format.ListNodeSize,
		})
		a.relink(selPrev, uint64(newOff))
		node.Size = need
		a.stats.SplitCount++
		arena.Log(a.log, arena.LevelTrace, "sorted: split block", "off", selOff, "kept", need, "remainder_off", newOff)
	} else {
		a.relink(selPrev, node.NextFree)
	}

	node.NextFree = format.NilOff
	format.WriteListNode(a.mem, selOff, node)

	blockSize := node.Size + format.ListNodeSize
	a.stats.BytesInUse += int64(blockSize)
	a.stats.BytesServed += int64(blockSize)
	a.logSnapshot("allocate")

	payOff := selOff + format.ListNodeSize
	return arena.Ref(payOff), a.mem[payOff : payOff+n : payOff+n], nil
}

// Deallocate returns the block addressed by ref to the arena, inserting it
// into the address-ordered free list and coalescing with byte-adjacent free
// neighbours. Fails with arena.ErrInvalidPointer for references that do not
// address a block boundary and arena.ErrDoubleFree when the block is
// already free.
func (a *Allocator) Deallocate(ref arena.Ref) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.FreeCalls++
	if a.mem == nil {
		a.stats.FreeFailed++
		return arena.ErrClosed
	}

	arena.Log(a.log, slog.LevelDebug, "sorted: deallocate", "ref", ref)

	descOff := int(ref) - format.ListNodeSize
	node, ok := a.findBlock(descOff)
	if !ok {
		a.stats.FreeFailed++
		arena.Log(a.log, slog.LevelError, "sorted: invalid deallocation reference", "ref", ref)
		return fmt.Errorf("sorted: deallocate ref %d: %w", ref, arena.ErrInvalidPointer)
	}

	// Locate the insertion point: prev is the last free block below
	// descOff, next the first above.
	prev := format.NilOff
	next := a.head
	for next != format.NilOff && int(next) < descOff {
		pn, _ := format.ReadListNode(a.mem, int(next))
		prev, next = next, pn.NextFree
	}
	if next == uint64(descOff) {
		a.stats.FreeFailed++
		arena.Log(a.log, slog.LevelError, "sorted: block already free", "ref", ref)
		return fmt.Errorf("sorted: deallocate ref %d: %w", ref, arena.ErrDoubleFree)
	}

	blockSize := node.Size + format.ListNodeSize
	a.stats.BytesInUse -= int64(blockSize)

	node.NextFree = next
	format.WriteListNode(a.mem, descOff, node)
	a.relink(prev, uint64(descOff))

	// Coalesce with the next free block when byte-adjacent.
	if next != format.NilOff && descOff+format.ListNodeSize+node.Size == int(next) {
		nn, _ := format.ReadListNode(a.mem, int(next))
		arena.Log(a.log, arena.LevelTrace, "sorted: coalesce forward", "block", node.Size, "next", nn.Size)
		node.Size += format.ListNodeSize + nn.Size
		node.NextFree = nn.NextFree
		format.WriteListNode(a.mem, descOff, node)
		a.stats.MergeCount++
	}

	// Coalesce with the previous free block when byte-adjacent.
	if prev != format.NilOff {
		pn, _ := format.ReadListNode(a.mem, int(prev))
		if int(prev)+format.ListNodeSize+pn.Size == descOff {
			arena.Log(a.log, arena.LevelTrace, "sorted: coalesce backward", "block", node.Size, "prev", pn.Size)
			pn.Size += format.ListNodeSize + node.Size
			pn.NextFree = node.NextFree
			format.WriteListNode(a.mem, int(prev), pn)
			a.stats.MergeCount++
		}
	}

	a.logSnapshot("deallocate")
	return nil
}

// FitMode reports the current block selection policy.
func (a *Allocator) FitMode() arena.FitMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fit
}

// SetFitMode switches the block selection policy.
func (a *Allocator) SetFitMode(m arena.FitMode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	arena.Log(a.log, slog.LevelDebug, "sorted: set fit mode", "from", a.fit.String(), "to", m.String())
	a.fit = m
}

// Blocks returns a snapshot of every block in address order. Sizes are
// payload sizes, descriptors excluded. A closed allocator yields an empty
// snapshot.
func (a *Allocator) Blocks() []arena.BlockInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blocksLocked()
}

// FreeBytes reports the total payload size of free blocks.
func (a *Allocator) FreeBytes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return arena.TotalFree(a.blocksLocked())
}

// Stats returns a copy of the allocator's operation counters.
func (a *Allocator) Stats() arena.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Clone builds an independent allocator with an identical block map. The
// new arena is acquired from the same upstream and copied verbatim; free
// list links are arena-relative offsets, so no relocation pass is needed.
func (a *Allocator) Clone() (*Allocator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	arena.Log(a.log, slog.LevelDebug, "sorted: clone", "arena", len(a.mem))
	if a.mem == nil {
		return &Allocator{head: format.NilOff, up: a.up, log: a.log, fit: a.fit}, nil
	}

	mem, err := a.up.Acquire(len(a.mem), format.Alignment)
	if err != nil {
		arena.Log(a.log, slog.LevelError, "sorted: clone acquisition failed", "err", err)
		return nil, fmt.Errorf("sorted: clone arena: %w", err)
	}
	copy(mem, a.mem)

	return &Allocator{
		mem:   mem,
		head:  a.head,
		up:    a.up,
		log:   a.log,
		fit:   a.fit,
		stats: a.stats,
	}, nil
}

// Close releases the arena back to the upstream. The arena size is captured
// before any state is torn down. Close is idempotent; release failures are
// logged at critical and returned.
func (a *Allocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mem == nil {
		return nil
	}
	arena.Log(a.log, slog.LevelDebug, "sorted: closing", "arena", len(a.mem))

	mem := a.mem
	a.mem = nil
	a.head = format.NilOff
	if err := a.up.Release(mem); err != nil {
		arena.Log(a.log, arena.LevelCritical, "sorted: arena release failed", "err", err)
		return fmt.Errorf("sorted: release arena: %w", err)
	}
	return nil
}

// Equal reports whether both allocators manage the same arena.
func (a *Allocator) Equal(other *Allocator) bool {
	if a == other {
		return true
	}
	if a == nil || other == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.mem) > 0 && len(other.mem) > 0 && &a.mem[0] == &other.mem[0]
}

func (a *Allocator) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mem == nil {
		return "sorted.Allocator(closed)"
	}
	return fmt.Sprintf("sorted.Allocator(%d bytes, %s fit)", len(a.mem), a.fit)
}

// selectFree walks the free list applying the fit rule and returns the
// descriptor offset of the chosen block plus its predecessor's offset
// (NilOff when the block is the head). Returns -1 when nothing fits.
func (a *Allocator) selectFree(need int) (int, uint64) {
	sel := -1
	selPrev := format.NilOff
	selSize := 0

	prev := format.NilOff
	for cur := a.head; cur != format.NilOff; {
		node, ok := format.ReadListNode(a.mem, int(cur))
		if !ok {
			break
		}
		if node.Size >= need {
			if sel < 0 {
				sel, selPrev, selSize = int(cur), prev, node.Size
				if a.fit == arena.FirstFit {
					break
				}
			} else if a.fit.Better(node.Size, selSize) {
				sel, selPrev, selSize = int(cur), prev, node.Size
			}
		}
		prev, cur = cur, node.NextFree
	}
	return sel, selPrev
}

// relink points prev's next-free link (or the list head) at target.
func (a *Allocator) relink(prev, target uint64) {
	if prev == format.NilOff {
		a.head = target
		return
	}
	pn, _ := format.ReadListNode(a.mem, int(prev))
	pn.NextFree = target
	format.WriteListNode(a.mem, int(prev), pn)
}

// findBlock walks the inline block sequence and returns the descriptor at
// descOff if it addresses a real block boundary.
func (a *Allocator) findBlock(descOff int) (format.ListNode, bool) {
	if descOff < 0 || descOff+format.ListNodeSize > len(a.mem) {
		return format.ListNode{}, false
	}
	for off := 0; off < len(a.mem); {
		node, ok := format.ReadListNode(a.mem, off)
		if !ok {
			break
		}
		if off == descOff {
			return node, true
		}
		if off > descOff {
			break
		}
		off += format.ListNodeSize + node.Size
	}
	return format.ListNode{}, false
}

func (a *Allocator) blocksLocked() []arena.BlockInfo {
	if a.mem == nil {
		return nil
	}

	free := make(map[int]bool)
	for cur := a.head; cur != format.NilOff; {
		node, ok := format.ReadListNode(a.mem, int(cur))
		if !ok {
			break
		}
		free[int(cur)] = true
		cur = node.NextFree
	}

	var blocks []arena.BlockInfo
	for off := 0; off < len(a.mem); {
		node, ok := format.ReadListNode(a.mem, off)
		if !ok {
			break
		}
		blocks = append(blocks, arena.BlockInfo{Size: node.Size, Occupied: !free[off]})
		off += format.ListNodeSize + node.Size
	}
	return blocks
}

func (a *Allocator) logSnapshot(op string) {
	if a.log == nil {
		return
	}
	blocks := a.blocksLocked()
	arena.Log(a.log, slog.LevelInfo, "sorted: available memory", "op", op, "free", arena.TotalFree(blocks))
	arena.Log(a.log, slog.LevelDebug, "sorted: block map", arena.BlocksAttr(blocks))
}
