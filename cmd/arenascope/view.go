package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
)

func (m model) View() string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(fmt.Sprintf("arenascope - %s allocator, %s fit", m.scheme, m.fit)))
	sb.WriteString("\n\n")

	blocks := m.alloc.Blocks()
	cursor := clampCursor(m.cursor, len(blocks))

	sb.WriteString(mapStyle.Render(renderBlockBar(blocks, cursor, m.barWidth())))
	sb.WriteString("\n\n")

	free := arena.TotalFree(blocks)
	total := arena.TotalSize(blocks)
	sb.WriteString(statusStyle.Render(fmt.Sprintf(
		"blocks: %d   live: %d   free: %s of %s",
		len(blocks), len(m.live),
		humanize.IBytes(uint64(free)), humanize.IBytes(uint64(total)),
	)))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(renderSelected(blocks, cursor)))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(m.status))
	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return sb.String()
}

func (m model) barWidth() int {
	if m.width > 8 {
		return m.width - 8
	}
	return 72
}

// renderBlockBar draws one proportional cell run per block: red for
// occupied, green for free, the cursored block reversed.
func renderBlockBar(blocks []arena.BlockInfo, cursor, width int) string {
	total := arena.TotalSize(blocks)
	if total == 0 || width <= 0 {
		return availStyle.Render("(empty arena)")
	}

	var sb strings.Builder
	for i, b := range blocks {
		cells := b.Size * width / total
		if cells == 0 {
			cells = 1
		}
		run := strings.Repeat("█", cells)
		style := availStyle
		if b.Occupied {
			style = occupStyle
		}
		if i == cursor {
			style = style.Reverse(true)
		}
		sb.WriteString(style.Render(run))
	}
	return sb.String()
}

// renderSelected describes the cursored block, mirroring what the copy
// binding puts on the clipboard.
func renderSelected(blocks []arena.BlockInfo, cursor int) string {
	if len(blocks) == 0 {
		return "selected: -"
	}
	off := 0
	for i := 0; i < cursor; i++ {
		off += blocks[i].Size
	}
	b := blocks[cursor]
	state := "avail"
	if b.Occupied {
		state = "occup"
	}
	return fmt.Sprintf("selected: block %d, %s %s at offset %d", cursor, state, humanize.IBytes(uint64(b.Size)), off)
}
