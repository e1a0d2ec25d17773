package main

import (
	"fmt"
	"math/bits"
	"math/rand"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
	"github.com/DmitriyKolesnikM8O/arenakit/arena/boundary"
	"github.com/DmitriyKolesnikM8O/arenakit/arena/buddy"
	"github.com/DmitriyKolesnikM8O/arenakit/arena/sorted"
	"github.com/DmitriyKolesnikM8O/arenakit/cmd/arenascope/logger"
)

// allocator is the composed capability surface the explorer drives.
type allocator interface {
	arena.MemoryResource
	arena.FitModeSetter
	arena.BlockIntrospection
}

// model is the Bubbletea model: one live allocator plus the workload state
// stepped through it and a cursor over the block map.
type model struct {
	scheme string
	size   int
	fit    arena.FitMode
	seed   int64
	maxReq int

	alloc  allocator
	rng    *rand.Rand
	live   []arena.Ref
	step   int
	cursor int // selected block index in the snapshot
	status string

	keys keyMap
	help help.Model

	width  int
	height int
}

func openAllocator(scheme string, size int, fit arena.FitMode) (allocator, error) {
	opts := []arena.Option{arena.WithFitMode(fit), arena.WithLogger(logger.L)}
	switch scheme {
	case "boundary":
		return boundary.New(size, opts...)
	case "buddy":
		return buddy.New(bits.Len(uint(size-1)), opts...)
	case "sorted":
		return sorted.New(size, opts...)
	default:
		return nil, fmt.Errorf("unknown scheme %q", scheme)
	}
}

func newModel(scheme string, size int, fit arena.FitMode, seed int64, maxReq int) (model, error) {
	alloc, err := openAllocator(scheme, size, fit)
	if err != nil {
		return model{}, err
	}
	return model{
		scheme: scheme,
		size:   size,
		fit:    fit,
		seed:   seed,
		maxReq: maxReq,
		alloc:  alloc,
		rng:    rand.New(rand.NewSource(seed)),
		keys:   defaultKeyMap(),
		help:   help.New(),
		status: "ready - press space to step the workload",
	}, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Step):
			m = m.stepWorkload()

		case key.Matches(msg, m.keys.Alloc):
			m = m.doAllocate(m.rng.Intn(m.maxReq + 1))

		case key.Matches(msg, m.keys.Free):
			m = m.doFreeRandom()

		case key.Matches(msg, m.keys.Fit):
			m.fit = (m.fit + 1) % 3
			m.alloc.SetFitMode(m.fit)
			m.status = fmt.Sprintf("fit mode -> %s", m.fit)

		case key.Matches(msg, m.keys.Left):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, m.keys.Right):
			m.cursor++

		case key.Matches(msg, m.keys.Copy):
			m = m.copySelected()

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.Reset):
			m = m.reset()
		}

		m.cursor = clampCursor(m.cursor, len(m.alloc.Blocks()))
		return m, nil
	}
	return m, nil
}

func clampCursor(cursor, blocks int) int {
	if blocks == 0 {
		return 0
	}
	if cursor >= blocks {
		return blocks - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

// stepWorkload performs one seeded workload operation: roughly 60%
// allocations, otherwise a free of a random live block; with nothing live it
// always allocates.
func (m model) stepWorkload() model {
	if len(m.live) == 0 || m.rng.Intn(100) < 60 {
		return m.doAllocate(m.rng.Intn(m.maxReq + 1))
	}
	return m.doFreeRandom()
}

func (m model) doAllocate(n int) model {
	m.step++
	ref, _, err := m.alloc.Allocate(n)
	if err != nil {
		m.status = fmt.Sprintf("step %d: allocate %d failed: %v", m.step, n, err)
		return m
	}
	m.live = append(m.live, ref)
	m.status = fmt.Sprintf("step %d: allocated %d bytes at ref %d", m.step, n, ref)
	return m
}

func (m model) doFreeRandom() model {
	if len(m.live) == 0 {
		m.status = "nothing to free"
		return m
	}
	m.step++
	idx := m.rng.Intn(len(m.live))
	ref := m.live[idx]
	if err := m.alloc.Deallocate(ref); err != nil {
		m.status = fmt.Sprintf("step %d: free ref %d failed: %v", m.step, ref, err)
		return m
	}
	m.live = append(m.live[:idx], m.live[idx+1:]...)
	m.status = fmt.Sprintf("step %d: freed ref %d", m.step, ref)
	return m
}

// copySelected puts a description of the cursored block on the system
// clipboard: scheme, state, size and map-relative offset.
func (m model) copySelected() model {
	blocks := m.alloc.Blocks()
	if len(blocks) == 0 {
		m.status = "nothing to copy"
		return m
	}
	idx := clampCursor(m.cursor, len(blocks))

	off := 0
	for i := 0; i < idx; i++ {
		off += blocks[i].Size
	}
	b := blocks[idx]
	state := "avail"
	if b.Occupied {
		state = "occup"
	}
	text := fmt.Sprintf("%s block %d: %s %d bytes at offset %d", m.scheme, idx, state, b.Size, off)

	if err := clipboard.WriteAll(text); err != nil {
		m.status = fmt.Sprintf("clipboard unavailable: %v", err)
		logger.L.Warn("clipboard write failed", "error", err)
		return m
	}
	m.status = "copied: " + text
	return m
}

func (m model) reset() model {
	m.close()
	alloc, err := openAllocator(m.scheme, m.size, m.fit)
	if err != nil {
		m.status = fmt.Sprintf("reset failed: %v", err)
		return m
	}
	m.alloc = alloc
	m.rng = rand.New(rand.NewSource(m.seed))
	m.live = nil
	m.step = 0
	m.cursor = 0
	m.status = "reset"
	return m
}

func (m model) close() {
	if m.alloc != nil {
		if err := m.alloc.Close(); err != nil {
			logger.L.Error("close failed", "error", err)
		}
	}
}
