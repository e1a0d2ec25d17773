package buddy

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
	"github.com/DmitriyKolesnikM8O/arenakit/internal/buf"
	"github.com/DmitriyKolesnikM8O/arenakit/internal/format"
)

// payloadOverhead is the per-block overhead a request must fit alongside:
// the metadata byte plus the back-reference word.
const payloadOverhead = format.BuddyMetaSize + format.BuddyRefSize

// Allocator is a buddy-system allocator over a pool of 1<<K bytes.
// All methods are safe for concurrent use.
type Allocator struct {
	mu    sync.Mutex
	mem   []byte // pool; nil once closed
	order uint   // K: pool size is 1<<order
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

// New constructs an allocator whose pool spans 1<<k bytes. Fails with
// arena.ErrInvalidSize when k lies outside [format.MinOrder, format.MaxOrder].
func New(k int, opts ...arena.Option) (*Allocator, error) {
	cfg := arena.ApplyOptions(opts)

	arena.Log(cfg.Logger, slog.LevelDebug, "buddy: constructing", "order", k, "fit", cfg.Fit.String())

	if k < format.MinOrder || k > format.MaxOrder {
		arena.Log(cfg.Logger, slog.LevelError, "buddy: order out of range", "order", k, "min", format.MinOrder, "max", format.MaxOrder)
		return nil, fmt.Errorf("buddy: order %d outside [%d, %d]: %w", k, format.MinOrder, format.MaxOrder, arena.ErrInvalidSize)
	}

	size := 1 << uint(k)
	mem, err := cfg.Upstream.Acquire(size, format.Alignment)
	if err != nil {
		arena.Log(cfg.Logger, slog.LevelError, "buddy: arena acquisition failed", "size", size, "err", err)
		return nil, fmt.Errorf("buddy: acquire arena: %w", err)
	}

	mem[0] = format.PackBuddyMeta(uint(k), false)

	a := &Allocator{
		mem:   mem,
		order: uint(k),
		up:    cfg.Upstream,
		log:   cfg.Logger,
		fit:   cfg.Fit,
	}
	arena.Log(a.log, slog.LevelDebug, "buddy: constructed", "pool", size)
	return a, nil
}

// Allocate reserves n bytes in a block of the smallest sufficient order and
// returns the payload reference plus a slice window over the user region.
// Allocate(0) succeeds with a minimum-order block.
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
		return arena.NilRef, nil, fmt.Errorf("buddy: negative size %d: %w", n, arena.ErrInvalidSize)
	}

	arena.Log(a.log, slog.LevelDebug, "buddy: allocate", "size", n, "fit", a.fit.String())

	k := format.Log2Ceil(uint64(n + payloadOverhead))
	if k < format.MinOrder {
		k = format.MinOrder
	}
	if k > a.order {
		a.stats.AllocFailed++
		arena.Log(a.log, slog.LevelError, "buddy: request exceeds pool", "size", n, "order", k, "pool_order", a.order)
		return arena.NilRef, nil, fmt.Errorf("buddy: allocate %d: %w", n, arena.ErrExhausted)
	}

	selOff := a.selectFree(k)
	if selOff < 0 {
		a.stats.AllocFailed++
		arena.Log(a.log, slog.LevelError, "buddy: no suitable block", "size", n, "order", k, "fit", a.fit.String())
		return arena.NilRef, nil, fmt.Errorf("buddy: allocate %d: %w", n, arena.ErrExhausted)
	}

	cur := format.BuddyOrder(a.mem[selOff])
	arena.Log(a.log, arena.LevelTrace, "buddy: selected block", "off", selOff, "order", cur, "target", k)

	// Halve until the target order, releasing each upper half as the free
	// buddy of the shrunken block.
	for cur > k {
		cur--
		a.mem[selOff] = format.PackBuddyMeta(cur, false)
		buddyOff := selOff + 1<<cur
		a.mem[buddyOff] = format.PackBuddyMeta(cur, false)
		a.stats.SplitCount++
		arena.Log(a.log, arena.LevelTrace, "buddy: split block", "off", selOff, "order", cur, "buddy", buddyOff)
	}

	a.mem[selOff] = format.PackBuddyMeta(k, true)
	payOff := selOff + format.BuddyMetaSize
	buf.PutU64LE(a.mem[payOff:], uint64(selOff))
	userOff := payOff + format.BuddyRefSize

	blockSize := 1 << k
	a.stats.BytesInUse += int64(blockSize)
	a.stats.BytesServed += int64(blockSize)
	a.logSnapshot("allocate")

	return arena.Ref(userOff), a.mem[userOff : userOff+n : userOff+n], nil
}

// Deallocate returns the block addressed by ref to the pool and merges it
// with its buddy while the buddy is free and of equal order. Fails with
// arena.ErrInvalidPointer for references this allocator did not produce and
// arena.ErrDoubleFree when the block is already free.
func (a *Allocator) Deallocate(ref arena.Ref) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.FreeCalls++
	if a.mem == nil {
		a.stats.FreeFailed++
		return arena.ErrClosed
	}

	arena.Log(a.log, slog.LevelDebug, "buddy: deallocate", "ref", ref)

	userOff := int(ref)
	metaOff := userOff - payloadOverhead
	if metaOff < 0 || userOff > len(a.mem) {
		a.stats.FreeFailed++
		arena.Log(a.log, slog.LevelError, "buddy: reference outside pool", "ref", ref)
		return fmt.Errorf("buddy: deallocate ref %d: %w", ref, arena.ErrInvalidPointer)
	}

	// The back-reference word must point at the metadata byte directly
	// preceding it, and the block must sit on its order's alignment.
	back := buf.U64LE(a.mem[userOff-format.BuddyRefSize:])
	if back != uint64(metaOff) {
		a.stats.FreeFailed++
		arena.Log(a.log, slog.LevelError, "buddy: back-reference mismatch", "ref", ref, "back", back)
		return fmt.Errorf("buddy: deallocate ref %d: %w", ref, arena.ErrInvalidPointer)
	}

	meta := a.mem[metaOff]
	k := format.BuddyOrder(meta)
	if k < format.MinOrder || k > a.order || metaOff&((1<<k)-1) != 0 {
		a.stats.FreeFailed++
		arena.Log(a.log, slog.LevelError, "buddy: corrupt block metadata", "ref", ref, "order", k)
		return fmt.Errorf("buddy: deallocate ref %d: %w", ref, arena.ErrInvalidPointer)
	}
	if !format.BuddyOccupied(meta) {
		a.stats.FreeFailed++
		arena.Log(a.log, slog.LevelError, "buddy: block already free", "ref", ref, "order", k)
		return fmt.Errorf("buddy: deallocate ref %d: %w", ref, arena.ErrDoubleFree)
	}

	a.mem[metaOff] = format.PackBuddyMeta(k, false)
	a.stats.BytesInUse -= int64(1) << k

	// Merge with the buddy while it is free and of equal order; the merged
	// block keeps the lower offset.
	cur := metaOff
	for k < a.order {
		buddyOff := cur ^ 1<<k
		bmeta := a.mem[buddyOff]
		if format.BuddyOccupied(bmeta) || format.BuddyOrder(bmeta) != k {
			break
		}
		if buddyOff < cur {
			cur = buddyOff
		}
		k++
		a.mem[cur] = format.PackBuddyMeta(k, false)
		a.stats.MergeCount++
		arena.Log(a.log, arena.LevelTrace, "buddy: merged with buddy", "off", cur, "order", k)
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
	arena.Log(a.log, slog.LevelDebug, "buddy: set fit mode", "from", a.fit.String(), "to", m.String())
	a.fit = m
}

// Blocks returns a snapshot of every block in pool order. Sizes are block
// spans (1<<order), metadata included. A closed allocator yields an empty
// snapshot.
func (a *Allocator) Blocks() []arena.BlockInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blocksLocked()
}

// BlocksBackward returns the block snapshot in descending address order.
func (a *Allocator) BlocksBackward() []arena.BlockInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	blocks := a.blocksLocked()
	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}
	return blocks
}

// FreeBytes reports the total span of free blocks.
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

// Clone builds an independent allocator with an identical pool image. The
// new arena is acquired from the same upstream and copied verbatim; block
// metadata is position-independent, so the image needs no fixup.
func (a *Allocator) Clone() (*Allocator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	arena.Log(a.log, slog.LevelDebug, "buddy: clone", "pool", len(a.mem))
	if a.mem == nil {
		return &Allocator{order: a.order, up: a.up, log: a.log, fit: a.fit}, nil
	}

	mem, err := a.up.Acquire(len(a.mem), format.Alignment)
	if err != nil {
		arena.Log(a.log, slog.LevelError, "buddy: clone acquisition failed", "err", err)
		return nil, fmt.Errorf("buddy: clone arena: %w", err)
	}
	copy(mem, a.mem)

	return &Allocator{
		mem:   mem,
		order: a.order,
		up:    a.up,
		log:   a.log,
		fit:   a.fit,
		stats: a.stats,
	}, nil
}

// Close releases the pool back to the upstream. Close is idempotent;
// release failures are logged at critical and returned.
func (a *Allocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mem == nil {
		return nil
	}
	arena.Log(a.log, slog.LevelDebug, "buddy: closing", "pool", len(a.mem))

	mem := a.mem
	a.mem = nil
	if err := a.up.Release(mem); err != nil {
		arena.Log(a.log, arena.LevelCritical, "buddy: arena release failed", "err", err)
		return fmt.Errorf("buddy: release arena: %w", err)
	}
	return nil
}

// Equal reports whether both allocators manage the same pool.
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
		return "buddy.Allocator(closed)"
	}
	return fmt.Sprintf("buddy.Allocator(2^%d bytes, %s fit)", a.order, a.fit)
}

// selectFree walks the pool applying the fit rule over block spans and
// returns the metadata offset of the chosen free block of order >= k, or -1.
func (a *Allocator) selectFree(k uint) int {
	sel := -1
	selSize := 0
	for off := 0; off < len(a.mem); {
		meta := a.mem[off]
		order := format.BuddyOrder(meta)
		if order > a.order {
			arena.Log(a.log, slog.LevelWarn, "buddy: invalid order during walk", "off", off, "order", order)
			break
		}
		size := 1 << order
		if !format.BuddyOccupied(meta) && order >= k {
			if sel < 0 {
				sel, selSize = off, size
				if a.fit == arena.FirstFit {
					break
				}
			} else if a.fit.Better(size, selSize) {
				sel, selSize = off, size
			}
		}
		off += size
	}
	return sel
}

func (a *Allocator) blocksLocked() []arena.BlockInfo {
	if a.mem == nil {
		return nil
	}
	var blocks []arena.BlockInfo
	for off := 0; off < len(a.mem); {
		meta := a.mem[off]
		order := format.BuddyOrder(meta)
		if order > a.order {
			break
		}
		size := 1 << order
		blocks = append(blocks, arena.BlockInfo{Size: size, Occupied: format.BuddyOccupied(meta)})
		off += size
	}
	return blocks
}

func (a *Allocator) logSnapshot(op string) {
	if a.log == nil {
		return
	}
	blocks := a.blocksLocked()
	arena.Log(a.log, slog.LevelInfo, "buddy: available memory", "op", op, "free", arena.TotalFree(blocks))
	arena.Log(a.log, slog.LevelDebug, "buddy: block map", arena.BlocksAttr(blocks))
}
