package boundary

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
	"github.com/DmitriyKolesnikM8O/arenakit/internal/format"
)

// minArenaSize is the smallest arena that holds one descriptor plus the
// minimal payload.
const minArenaSize = format.TagDescSize + format.TagMinPayload

// Allocator is a boundary-tag allocator over a single fixed arena.
// All methods are safe for concurrent use.
type Allocator struct {
	mu    sync.Mutex
	mem   []byte // block chain; nil once closed
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

	arena.Log(cfg.Logger, slog.LevelDebug, "boundary: constructing", "size", size, "fit", cfg.Fit.String())

	if size < minArenaSize {
		arena.Log(cfg.Logger, slog.LevelError, "boundary: arena size too small", "size", size, "min", minArenaSize)
		return nil, fmt.Errorf("boundary: %d bytes below minimum %d: %w", size, minArenaSize, arena.ErrInvalidSize)
	}
	size = format.Align8(size)

	mem, err := cfg.Upstream.Acquire(size, format.Alignment)
	if err != nil {
		arena.Log(cfg.Logger, slog.LevelError, "boundary: arena acquisition failed", "size", size, "err", err)
		return nil, fmt.Errorf("boundary: acquire arena: %w", err)
	}

	format.WriteTag(mem, 0, format.Tag{
		Size: size,
		Prev: format.NilOff,
		Next: format.NilOff,
	})

	a := &Allocator{
		mem: mem,
		up:  cfg.Upstream,
		log: cfg.Logger,
		fit: cfg.Fit,
	}
	arena.Log(a.log, slog.LevelDebug, "boundary: constructed", "arena", size)
	return a, nil
}

// Allocate reserves n bytes and returns the payload reference plus a slice
// window over the payload. n = 0 yields a degenerate descriptor-only block.
// Requests round up to the next even size so the descriptor's occupancy bit
// never collides with the size field.
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
		return arena.NilRef, nil, fmt.Errorf("boundary: negative size %d: %w", n, arena.ErrInvalidSize)
	}

	arena.Log(a.log, slog.LevelDebug, "boundary: allocate", "size", n, "fit", a.fit.String())

	required := format.TagDescSize + n + (n & 1)

	selOff := a.selectFree(required)
	if selOff < 0 {
		a.stats.AllocFailed++
		arena.Log(a.log, slog.LevelError, "boundary: no suitable block", "size", n, "fit", a.fit.String())
		return arena.NilRef, nil, fmt.Errorf("boundary: allocate %d: %w", n, arena.ErrExhausted)
	}

	tag, _ := format.ReadTag(a.mem, selOff)
	arena.Log(a.log, arena.LevelTrace, "boundary: selected block", "off", selOff, "block", tag.Size, "required", required)

	if tag.Size >= required+format.TagDescSize+format.TagMinPayload {
		a.split(selOff, &tag, required)
	}

	tag.Occupied = true
	format.WriteTag(a.mem, selOff, tag)

	a.stats.BytesInUse += int64(tag.Size)
	a.stats.BytesServed += int64(tag.Size)
	a.logSnapshot("allocate")

	payOff := selOff + format.TagDescSize
	return arena.Ref(payOff), a.mem[payOff : payOff+n : payOff+n], nil
}

// Deallocate returns the block addressed by ref to the arena, coalescing
// with free neighbours. A reference that does not address an allocated
// block fails with arena.ErrInvalidPointer or arena.ErrDoubleFree; the
// arena is left untouched.
func (a *Allocator) Deallocate(ref arena.Ref) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.FreeCalls++
	if a.mem == nil {
		a.stats.FreeFailed++
		return arena.ErrClosed
	}

	arena.Log(a.log, slog.LevelDebug, "boundary: deallocate", "ref", ref)

	descOff := int(ref) - format.TagDescSize
	tag, ok := a.findBlock(descOff)
	if !ok {
		a.stats.FreeFailed++
		arena.Log(a.log, slog.LevelError, "boundary: invalid deallocation reference", "ref", ref)
		return fmt.Errorf("boundary: deallocate ref %d: %w", ref, arena.ErrInvalidPointer)
	}
	if !tag.Occupied {
		a.stats.FreeFailed++
		arena.Log(a.log, slog.LevelError, "boundary: block already free", "ref", ref, "block", tag.Size)
		return fmt.Errorf("boundary: deallocate ref %d: %w", ref, arena.ErrDoubleFree)
	}

	tag.Occupied = false
	a.stats.BytesInUse -= int64(tag.Size)

	// Absorb a free forward neighbour.
	if tag.Next != format.NilOff {
		next, _ := format.ReadTag(a.mem, int(tag.Next))
		if !next.Occupied {
			arena.Log(a.log, arena.LevelTrace, "boundary: coalesce forward", "block", tag.Size, "next", next.Size)
			tag.Size += next.Size
			tag.Next = next.Next
			if next.Next != format.NilOff {
				nn, _ := format.ReadTag(a.mem, int(next.Next))
				nn.Prev = uint64(descOff)
				format.WriteTag(a.mem, int(next.Next), nn)
			}
			a.stats.MergeCount++
		}
	}
	format.WriteTag(a.mem, descOff, tag)

	// Merge into a free backward neighbour.
	if tag.Prev != format.NilOff {
		prev, _ := format.ReadTag(a.mem, int(tag.Prev))
		if !prev.Occupied {
			arena.Log(a.log, arena.LevelTrace, "boundary: coalesce backward", "block", tag.Size, "prev", prev.Size)
			prev.Size += tag.Size
			prev.Next = tag.Next
			format.WriteTag(a.mem, int(tag.Prev), prev)
			if tag.Next != format.NilOff {
				nt, _ := format.ReadTag(a.mem, int(tag.Next))
				nt.Prev = tag.Prev
				format.WriteTag(a.mem, int(tag.Next), nt)
			}
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
	arena.Log(a.log, slog.LevelDebug, "boundary: set fit mode", "from", a.fit.String(), "to", m.String())
	a.fit = m
}

// Blocks returns a snapshot of every block in address order. Sizes include
// the descriptor. A closed allocator yields an empty snapshot.
func (a *Allocator) Blocks() []arena.BlockInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blocksLocked()
}

// FreeBytes reports the total size of free blocks, descriptors included.
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
// new arena is acquired from the same upstream and the chain is copied
// verbatim; descriptor links are arena-relative offsets, so no relocation
// pass is needed.
func (a *Allocator) Clone() (*Allocator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	arena.Log(a.log, slog.LevelDebug, "boundary: clone", "arena", len(a.mem))
	if a.mem == nil {
		return &Allocator{up: a.up, log: a.log, fit: a.fit}, nil
	}

	mem, err := a.up.Acquire(len(a.mem), format.Alignment)
	if err != nil {
		arena.Log(a.log, slog.LevelError, "boundary: clone acquisition failed", "err", err)
		return nil, fmt.Errorf("boundary: clone arena: %w", err)
	}
	copy(mem, a.mem)

	return &Allocator{
		mem:   mem,
		up:    a.up,
		log:   a.log,
		fit:   a.fit,
		stats: a.stats,
	}, nil
}

// Close releases the arena back to the upstream. Close is idempotent;
// release failures are logged at critical and returned.
func (a *Allocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mem == nil {
		return nil
	}
	arena.Log(a.log, slog.LevelDebug, "boundary: closing", "arena", len(a.mem))

	mem := a.mem
	a.mem = nil
	if err := a.up.Release(mem); err != nil {
		arena.Log(a.log, arena.LevelCritical, "boundary: arena release failed", "err", err)
		return fmt.Errorf("boundary: release arena: %w", err)
	}
	return nil
}

// Equal reports whether both allocators manage the same arena. Distinct
// instances, including clones, are never equal.
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
		return "boundary.Allocator(closed)"
	}
	return fmt.Sprintf("boundary.Allocator(%d bytes, %s fit)", len(a.mem), a.fit)
}

// selectFree walks the chain applying the fit rule and returns the
// descriptor offset of the chosen free block, or -1.
func (a *Allocator) selectFree(required int) int {
	sel := -1
	selSize := 0
	for off := 0; ; {
		tag, ok := format.ReadTag(a.mem, off)
		if !ok {
			break
		}
		if !tag.Occupied && tag.Size >= required {
			if sel < 0 {
				sel, selSize = off, tag.Size
				if a.fit == arena.FirstFit {
					break
				}
			} else if a.fit.Better(tag.Size, selSize) {
				sel, selSize = off, tag.Size
			}
		}
		if tag.Next == format.NilOff {
			break
		}
		off = int(tag.Next)
	}
	return sel
}

// split carves required bytes off the front of the block at selOff and
// links the remainder into the chain as a new free block. tag is updated
// in place but not written back.
func (a *Allocator) split(selOff int, tag *format.Tag, required int) {
	newOff := selOff + required
	rem := tag.Size - required

	format.WriteTag(a.mem, newOff, format.Tag{
		Size: rem,
		Prev: uint64(selOff),
		Next: tag.Next,
	})
	if tag.Next != format.NilOff {
		next, _ := format.ReadTag(a.mem, int(tag.Next))
		next.Prev = uint64(newOff)
		format.WriteTag(a.mem, int(tag.Next), next)
	}

	tag.Next = uint64(newOff)
	tag.Size = required
	a.stats.SplitCount++
	arena.Log(a.log, arena.LevelTrace, "boundary: split block", "off", selOff, "kept", required, "remainder", rem)
}

// findBlock walks the chain and returns the tag at descOff if it addresses
// a real block descriptor.
func (a *Allocator) findBlock(descOff int) (format.Tag, bool) {
	if descOff < 0 || descOff+format.TagDescSize > len(a.mem) {
		return format.Tag{}, false
	}
	for off := 0; ; {
		tag, ok := format.ReadTag(a.mem, off)
		if !ok {
			return format.Tag{}, false
		}
		if off == descOff {
			return tag, true
		}
		if off > descOff || tag.Next == format.NilOff {
			return format.Tag{}, false
		}
		off = int(tag.Next)
	}
}

func (a *Allocator) blocksLocked() []arena.BlockInfo {
	if a.mem == nil {
		return nil
	}
	var blocks []arena.BlockInfo
	for off := 0; ; {
		tag, ok := format.ReadTag(a.mem, off)
		if !ok {
			break
		}
		blocks = append(blocks, arena.BlockInfo{Size: tag.Size, Occupied: tag.Occupied})
		if tag.Next == format.NilOff {
			break
		}
		off = int(tag.Next)
	}
	return blocks
}

func (a *Allocator) logSnapshot(op string) {
	if a.log == nil {
		return
	}
	blocks := a.blocksLocked()
	arena.Log(a.log, slog.LevelInfo, "boundary: available memory", "op", op, "free", arena.TotalFree(blocks))
	arena.Log(a.log, slog.LevelDebug, "boundary: block map", arena.BlocksAttr(blocks))
}
