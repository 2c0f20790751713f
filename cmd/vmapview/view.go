package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"
)

// View renders the entire UI
func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}

	if m.showStats {
		// Rebuilt every render; Update returns new models so stored ones go stale.
		stats := overlay.New(
			newStatsPanel(m.alloc.Stats(), m.drv),
			mainView{m: &m},
			overlay.Center,
			overlay.Center,
			0,
			0,
		)
		return stats.View()
	}

	return m.renderMain()
}

func (m Model) renderMain() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		paneStyle.Render(m.mapView.View()),
		m.renderStatus(),
	)
}

func (m Model) renderHeader() string {
	win := m.alloc.Window()
	title := headerStyle.Render("vmap Occupancy")
	legend := fmt.Sprintf("  %s free  %s region  %s block",
		freeCellStyle.Render(cellGlyphs[cellFree]),
		regionCellStyle.Render(cellGlyphs[cellRegion]),
		blockCellStyle.Render(cellGlyphs[cellBlock]))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, title, legend),
		windowStyle.Render(fmt.Sprintf("Window %s, %d pages of %d bytes, %d workers",
			win, m.opts.Pages, m.alloc.PageSize(), m.alloc.NumWorkers())),
	)
}

func (m Model) renderStatus() string {
	s := m.alloc.Stats()
	state := "paused"
	if m.running {
		state = runningStyle.Render("running")
	}

	line := fmt.Sprintf("%s  step %s  live %s  busy %s  lazy %s  fail %s",
		state,
		statusCountStyle.Render(fmt.Sprint(m.drv.steps)),
		statusCountStyle.Render(fmt.Sprint(len(m.drv.live))),
		statusCountStyle.Render(fmt.Sprint(s.BusyRegions)),
		statusCountStyle.Render(fmt.Sprint(s.LazyBytes)),
		statusCountStyle.Render(fmt.Sprint(m.drv.failures)),
	)
	if m.statusMessage != "" {
		line += "  " + m.statusMessage
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		statusStyle.Render(line),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)
}

func (m Model) renderHelpOverlay() string {
	body := lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render("Keyboard Shortcuts"),
		m.help.FullHelpView(m.keys.FullHelp()),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modalStyle.Render(body))
}

// mainView adapts the normal screen to tea.Model so it can sit behind an
// overlay.
type mainView struct {
	m *Model
}

func (v mainView) Init() tea.Cmd                       { return nil }
func (v mainView) Update(tea.Msg) (tea.Model, tea.Cmd) { return v, nil }
func (v mainView) View() string                        { return v.m.renderMain() }
