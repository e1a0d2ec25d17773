package buddy

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
	"github.com/DmitriyKolesnikM8O/arenakit/internal/format"
)

// failingUpstream rejects every acquisition.
type failingUpstream struct{}

func (failingUpstream) Acquire(size, align int) ([]byte, error) {
	return nil, fmt.Errorf("%w: injected failure", arena.ErrUpstream)
}

func (failingUpstream) Release(region []byte) error { return nil }

func Test_New_InitialBlock(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	defer a.Close()

	blocks := a.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, arena.BlockInfo{Size: 1024, Occupied: false}, blocks[0])
}

func Test_New_OrderOutOfRange(t *testing.T) {
	_, err := New(format.MinOrder - 1)
	require.ErrorIs(t, err, arena.ErrInvalidSize)

	_, err = New(format.MaxOrder + 1)
	require.ErrorIs(t, err, arena.ErrInvalidSize)
}

func Test_New_UpstreamFailure(t *testing.T) {
	_, err := New(10, arena.WithUpstream(failingUpstream{}))
	require.ErrorIs(t, err, arena.ErrUpstream)
}

// Test_SplitStaircase allocates 100 bytes from a 1KB pool. The request
// needs order 7 (128 >= 100 + overhead), so the pool halves 1024 -> 512 ->
// 256 -> 128 and the snapshot shows the occupied block followed by its
// released halves in ascending size.
func Test_SplitStaircase(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	defer a.Close()

	_, data, err := a.Allocate(100)
	require.NoError(t, err)
	require.Len(t, data, 100)

	want := []arena.BlockInfo{
		{Size: 128, Occupied: true},
		{Size: 128, Occupied: false},
		{Size: 256, Occupied: false},
		{Size: 512, Occupied: false},
	}
	assert.Equal(t, want, a.Blocks())
}

// Test_BuddyMerge allocates two buddy blocks of order 7, then frees both.
// The first free cannot merge (buddy occupied); the second cascades all the
// way back to a single pool-sized block.
func Test_BuddyMerge(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	defer a.Close()

	ref1, _, err := a.Allocate(100)
	require.NoError(t, err)
	ref2, _, err := a.Allocate(100)
	require.NoError(t, err)

	require.NoError(t, a.Deallocate(ref1))

	blocks := a.Blocks()
	require.Len(t, blocks, 4)
	assert.Equal(t, arena.BlockInfo{Size: 128, Occupied: false}, blocks[0])
	assert.Equal(t, arena.BlockInfo{Size: 128, Occupied: true}, blocks[1])

	require.NoError(t, a.Deallocate(ref2))
	assert.Equal(t, []arena.BlockInfo{{Size: 1024, Occupied: false}}, a.Blocks())
}

// Test_OrderMonotonicity verifies the chosen block has exactly the
// requested order and merged blocks reach the maximum possible order.
func Test_OrderMonotonicity(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	defer a.Close()

	for _, tc := range []struct {
		n    int
		want int
	}{
		{1, 16},    // min order
		{7, 16},    // 7+9 = 16
		{8, 32},    // 8+9 = 17 -> 32
		{100, 128}, // 109 -> 128
		{500, 512}, // 509 -> 512
	} {
		ref, _, err := a.Allocate(tc.n)
		require.NoError(t, err, "allocate %d", tc.n)

		occupied := 0
		for _, b := range a.Blocks() {
			if b.Occupied {
				occupied = b.Size
			}
		}
		assert.Equal(t, tc.want, occupied, "allocate %d", tc.n)

		require.NoError(t, a.Deallocate(ref))
		assert.Equal(t, []arena.BlockInfo{{Size: 1024, Occupied: false}}, a.Blocks(),
			"merge after freeing %d must restore the pool", tc.n)
	}
}

func Test_AllocateZero_MinimumBlock(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	defer a.Close()

	ref, data, err := a.Allocate(0)
	require.NoError(t, err)
	assert.Empty(t, data)

	occupied := 0
	for _, b := range a.Blocks() {
		if b.Occupied {
			occupied = b.Size
		}
	}
	assert.Equal(t, 1<<format.MinOrder, occupied)

	require.NoError(t, a.Deallocate(ref))
}

func Test_Exhausted(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	defer a.Close()

	// Larger than the pool.
	_, _, err = a.Allocate(2048)
	require.ErrorIs(t, err, arena.ErrExhausted)

	// Fill the pool, then ask again.
	ref, _, err := a.Allocate(1000)
	require.NoError(t, err)
	_, _, err = a.Allocate(1)
	require.ErrorIs(t, err, arena.ErrExhausted)

	require.NoError(t, a.Deallocate(ref))
}

func Test_FitModes(t *testing.T) {
	// Carve the 1KB pool so free blocks of orders 4, 5 and 6 exist:
	// allocate one min-order block, which leaves the staircase
	// 16 occ | 16 free | 32 free | 64 free | 128 free | 256 free | 512 free.
	build := func(t *testing.T) *Allocator {
		t.Helper()
		a, err := New(10)
		require.NoError(t, err)
		_, _, err = a.Allocate(1)
		require.NoError(t, err)
		return a
	}

	t.Run("first takes the lowest-addressed fit", func(t *testing.T) {
		a := build(t)
		defer a.Close()

		a.SetFitMode(arena.FirstFit)
		_, _, err := a.Allocate(20) // needs order 5
		require.NoError(t, err)

		// The order-5 block at offset 32 is taken directly.
		want := []arena.BlockInfo{
			{Size: 16, Occupied: true},
			{Size: 16, Occupied: false},
			{Size: 32, Occupied: true},
			{Size: 64, Occupied: false},
			{Size: 128, Occupied: false},
			{Size: 256, Occupied: false},
			{Size: 512, Occupied: false},
		}
		assert.Equal(t, want, a.Blocks())
	})

	t.Run("best takes the smallest sufficient block", func(t *testing.T) {
		a := build(t)
		defer a.Close()

		a.SetFitMode(arena.BestFit)
		_, _, err := a.Allocate(20)
		require.NoError(t, err)

		want := []arena.BlockInfo{
			{Size: 16, Occupied: true},
			{Size: 16, Occupied: false},
			{Size: 32, Occupied: true},
			{Size: 64, Occupied: false},
			{Size: 128, Occupied: false},
			{Size: 256, Occupied: false},
			{Size: 512, Occupied: false},
		}
		assert.Equal(t, want, a.Blocks())
	})

	t.Run("worst splits the largest block", func(t *testing.T) {
		a := build(t)
		defer a.Close()

		a.SetFitMode(arena.WorstFit)
		_, _, err := a.Allocate(20)
		require.NoError(t, err)

		// The 512 block at offset 512 is halved down to order 5.
		want := []arena.BlockInfo{
			{Size: 16, Occupied: true},
			{Size: 16, Occupied: false},
			{Size: 32, Occupied: false},
			{Size: 64, Occupied: false},
			{Size: 128, Occupied: false},
			{Size: 256, Occupied: false},
			{Size: 32, Occupied: true},
			{Size: 32, Occupied: false},
			{Size: 64, Occupied: false},
			{Size: 128, Occupied: false},
			{Size: 256, Occupied: false},
		}
		assert.Equal(t, want, a.Blocks())
	})
}

func Test_Deallocate_InvalidReference(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	defer a.Close()

	ref, data, err := a.Allocate(100)
	require.NoError(t, err)

	require.ErrorIs(t, a.Deallocate(2), arena.ErrInvalidPointer)
	require.ErrorIs(t, a.Deallocate(5000), arena.ErrInvalidPointer)

	// A reference into the middle of the payload: the back-reference word
	// there does not point at a descriptor.
	for i := range data {
		data[i] = 0xFF
	}
	require.ErrorIs(t, a.Deallocate(ref+16), arena.ErrInvalidPointer)

	require.NoError(t, a.Deallocate(ref))
}

func Test_Deallocate_DoubleFree(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	defer a.Close()

	ref1, _, err := a.Allocate(100)
	require.NoError(t, err)
	ref2, _, err := a.Allocate(100)
	require.NoError(t, err)

	require.NoError(t, a.Deallocate(ref1))
	// ref1's block is free but not merged (its buddy ref2 is occupied), so
	// the back-reference word is still intact and the double free is
	// detected as such.
	require.ErrorIs(t, a.Deallocate(ref1), arena.ErrDoubleFree)

	require.NoError(t, a.Deallocate(ref2))
}

func Test_BuddyAlignment_Invariant(t *testing.T) {
	a, err := New(12)
	require.NoError(t, err)
	defer a.Close()

	rng := rand.New(rand.NewSource(7))
	live := make([]arena.Ref, 0, 64)

	for i := 0; i < 1000; i++ {
		if len(live) == 0 || rng.Intn(100) < 55 {
			ref, _, err := a.Allocate(rng.Intn(600))
			if err != nil {
				require.ErrorIs(t, err, arena.ErrExhausted)
			} else {
				live = append(live, ref)
			}
		} else {
			idx := rng.Intn(len(live))
			require.NoError(t, a.Deallocate(live[idx]))
			live = append(live[:idx], live[idx+1:]...)
		}

		// Every block is aligned to its own size and the walk tiles the
		// pool exactly.
		off := 0
		for _, b := range a.Blocks() {
			require.Zero(t, off%b.Size, "block at %d not aligned to %d", off, b.Size)
			off += b.Size
		}
		require.Equal(t, 1<<12, off)
	}

	for _, ref := range live {
		require.NoError(t, a.Deallocate(ref))
	}
	assert.Equal(t, []arena.BlockInfo{{Size: 1 << 12, Occupied: false}}, a.Blocks())
}

func Test_BlocksBackward(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	defer a.Close()

	_, _, err = a.Allocate(100)
	require.NoError(t, err)

	forward := a.Blocks()
	backward := a.BlocksBackward()
	require.Len(t, backward, len(forward))
	for i := range forward {
		assert.Equal(t, forward[i], backward[len(backward)-1-i])
	}
}

func Test_Close_Lifecycle(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)

	ref, _, err := a.Allocate(100)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.Empty(t, a.Blocks())
	_, _, err = a.Allocate(1)
	require.ErrorIs(t, err, arena.ErrClosed)
	require.ErrorIs(t, a.Deallocate(ref), arena.ErrClosed)
}

func Test_Clone_Independent(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	defer a.Close()

	ref, _, err := a.Allocate(100)
	require.NoError(t, err)

	clone, err := a.Clone()
	require.NoError(t, err)
	defer clone.Close()

	assert.Equal(t, a.Blocks(), clone.Blocks())
	assert.False(t, a.Equal(clone))

	require.NoError(t, clone.Deallocate(ref))
	assert.NotEqual(t, a.Blocks(), clone.Blocks())
}

func Test_SetFitMode_RoundTrip(t *testing.T) {
	a, err := New(10, arena.WithFitMode(arena.BestFit))
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, arena.BestFit, a.FitMode())
	a.SetFitMode(arena.FirstFit)
	assert.Equal(t, arena.FirstFit, a.FitMode())
}

func Test_ConcurrentWorkload(t *testing.T) {
	a, err := New(16)
	require.NoError(t, err)
	defer a.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				ref, data, err := a.Allocate(16 + rng.Intn(256))
				if err != nil {
					continue
				}
				for j := range data {
					data[j] = byte(seed)
				}
				_ = a.Deallocate(ref)
			}
		}(int64(g))
	}
	wg.Wait()

	assert.Equal(t, []arena.BlockInfo{{Size: 1 << 16, Occupied: false}}, a.Blocks())
}
