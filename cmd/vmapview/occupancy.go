package main

import (
	"strings"

	"github.com/joshuapare/vmapkit/vmap"
)

type cellKind int

const (
	cellFree cellKind = iota
	cellRegion
	cellBlock
)

// cellGlyphs are indexed by cellKind.
var cellGlyphs = [...]string{"·", "█", "▒"}

// sampleCells splits the window into n equal cells and classifies each one
// by probing its first and middle address. Block ownership wins over a plain
// region, which wins over free space. Lazily freed space still waiting for a
// purge shows as free.
func sampleCells(a *vmap.Allocator, n int) []cellKind {
	if n <= 0 {
		return nil
	}
	win := a.Window()
	span := max(win.Size()/uint64(n), 1)

	cells := make([]cellKind, n)
	for i := range cells {
		lo := win.Start + uint64(i)*span
		if lo >= win.End {
			break
		}
		for _, addr := range []vmap.Address{lo, lo + span/2} {
			owner, err := a.LookupOwner(addr)
			if err != nil {
				continue
			}
			if _, ok := owner.(vmap.BlockOwner); ok {
				cells[i] = cellBlock
				break
			}
			cells[i] = cellRegion
		}
	}
	return cells
}

// renderCells lays cells out in rows of width glyphs.
func renderCells(cells []cellKind, width int) string {
	if width <= 0 {
		width = 64
	}
	styles := [...]func(...string) string{
		freeCellStyle.Render,
		regionCellStyle.Render,
		blockCellStyle.Render,
	}

	var b strings.Builder
	for i, c := range cells {
		if i > 0 && i%width == 0 {
			b.WriteByte('\n')
		}
		b.WriteString(styles[c](cellGlyphs[c]))
	}
	return b.String()
}
