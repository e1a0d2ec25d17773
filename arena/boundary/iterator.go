package boundary

import (
	"github.com/DmitriyKolesnikM8O/arenakit/arena"
	"github.com/DmitriyKolesnikM8O/arenakit/internal/format"
)

// BlocksBackward returns the block snapshot in descending address order,
// walking the chain through the descriptors' back links. Tests use it to
// verify link symmetry; it observes the same consistent state as Blocks.
func (a *Allocator) BlocksBackward() []arena.BlockInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mem == nil {
		return nil
	}

	// Find the tail, then walk Prev links.
	tail := 0
	for off := 0; ; {
		tag, ok := format.ReadTag(a.mem, off)
		if !ok {
			return nil
		}
		if tag.Next == format.NilOff {
			tail = off
			break
		}
		off = int(tag.Next)
	}

	var blocks []arena.BlockInfo
	for off := tail; ; {
		tag, ok := format.ReadTag(a.mem, off)
		if !ok {
			break
		}
		blocks = append(blocks, arena.BlockInfo{Size: tag.Size, Occupied: tag.Occupied})
		if tag.Prev == format.NilOff {
			break
		}
		off = int(tag.Prev)
	}
	return blocks
}
