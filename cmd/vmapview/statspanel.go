package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joshuapare/vmapkit/vmap"
)

// statsPanel is the modal showing an allocator snapshot.
type statsPanel struct {
	rows [][2]string
}

func newStatsPanel(s vmap.Stats, d *driver) *statsPanel {
	return &statsPanel{rows: [][2]string{
		{"Free", fmt.Sprintf("%d regions, %d bytes", s.FreeRegions, s.FreeBytes)},
		{"Largest free", fmt.Sprint(s.LargestFree)},
		{"Busy", fmt.Sprintf("%d regions, %d bytes", s.BusyRegions, s.BusyBytes)},
		{"Lazy", fmt.Sprintf("%d bytes", s.LazyBytes)},
		{"", ""},
		{"Fits", fmt.Sprintf("full %d  left %d  right %d  split %d", s.FitFull, s.FitLeftEdge, s.FitRightEdge, s.FitNoEdge)},
		{"Split nodes", fmt.Sprintf("spare %d  cache %d  locked %d", s.SplitSpare, s.SplitCache, s.SplitUnderLock)},
		{"Merges", fmt.Sprint(s.Merges)},
		{"", ""},
		{"Blocks", fmt.Sprintf("%d live, %d listed, %d free units", s.LiveBlocks, s.ListedBlocks, s.BlockFreeUnits)},
		{"Block life", fmt.Sprintf("%d created  %d purged  %d retired", s.BlocksCreated, s.BlocksPurged, s.BlocksRetired)},
		{"", ""},
		{"Purges", fmt.Sprintf("%d (%d regions)", s.Purges, s.PurgedRegions)},
		{"Flushes", fmt.Sprint(s.Flushes)},
		{"Workload", fmt.Sprintf("%d steps, %d out of space", d.steps, d.failures)},
	}}
}

func (p *statsPanel) Init() tea.Cmd                       { return nil }
func (p *statsPanel) Update(tea.Msg) (tea.Model, tea.Cmd) { return p, nil }

func (p *statsPanel) View() string {
	var b strings.Builder
	for i, r := range p.rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		if r[0] == "" {
			continue
		}
		b.WriteString(labelStyle.Render(r[0]))
		b.WriteString(r[1])
	}
	body := lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render("Allocator Statistics"),
		b.String(),
		"",
		windowStyle.Render("c copy JSON · esc close"),
	)
	return modalStyle.Render(body)
}
