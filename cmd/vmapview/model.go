package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/vmapkit/internal/logger"
	"github.com/joshuapare/vmapkit/vmap"
	"github.com/joshuapare/vmapkit/vmap/mapper"
)

// Layout constants
const (
	HeaderHeight   = 2 // title + window line
	StatusHeight   = 2 // status + short help
	PaneChrome     = 2 // pane border top and bottom
	MapRowsPerPage = 4 // scrollable map rows per visible row
)

const (
	stepsPerTick = 25
	tickInterval = 50 * time.Millisecond
)

// simBase is where the simulated window starts.
const simBase = 0x4000_0000

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the main application model
type Model struct {
	opts  Options
	alloc *vmap.Allocator
	rec   *mapper.Recorder
	drv   *driver

	keys    KeyMap
	help    help.Model
	mapView viewport.Model

	width  int
	height int

	running   bool
	showHelp  bool
	showStats bool

	// Status message for temporary feedback
	statusMessage string
	err           error
}

// NewModel builds an allocator for opts and a model driving it.
func NewModel(opts Options) (Model, error) {
	rec := mapper.NewRecorder(opts.PageSize, false)
	a, err := vmap.New(vmap.Config{
		Start:    simBase,
		End:      simBase + opts.Pages*opts.PageSize,
		PageSize: opts.PageSize,
		Workers:  opts.Workers,
		Mapper:   rec,
		Flusher:  rec,
		Logger:   logger.L,
	})
	if err != nil {
		return Model{}, err
	}

	m := Model{
		opts:    opts,
		alloc:   a,
		rec:     rec,
		drv:     newDriver(a, opts.Seed),
		keys:    DefaultKeyMap(),
		help:    help.New(),
		mapView: viewport.New(0, 0),
	}
	m.resize(80, 24)
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		if !m.running || m.err != nil {
			return m, nil
		}
		m.steps(stepsPerTick)
		if m.err != nil {
			m.running = false
			return m, nil
		}
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Esc) {
			m.showHelp = false
		}
		return m, nil
	}
	if m.showStats {
		switch {
		case key.Matches(msg, m.keys.Copy):
			m.copyStats()
		case key.Matches(msg, m.keys.Stats, m.keys.Esc):
			m.showStats = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Stats):
		m.showStats = true
	case key.Matches(msg, m.keys.Copy):
		m.copyStats()

	case key.Matches(msg, m.keys.Step):
		m.steps(1)
	case key.Matches(msg, m.keys.Run):
		m.running = !m.running
		if m.running {
			m.statusMessage = "running"
			return m, tick()
		}
		m.statusMessage = "paused"

	case key.Matches(msg, m.keys.Purge):
		before := m.alloc.LazyBytes()
		m.setErr(m.alloc.PurgeAll(vmap.Region{}))
		m.statusMessage = fmt.Sprintf("purged %d lazy bytes", before)
		m.refresh()
	case key.Matches(msg, m.keys.Reclaim):
		n := m.alloc.ReclaimFragmented()
		m.statusMessage = fmt.Sprintf("retired %d fragmented blocks", n)
		m.refresh()
	case key.Matches(msg, m.keys.FreeAll):
		n := len(m.drv.live)
		m.setErr(m.drv.freeAll())
		m.statusMessage = fmt.Sprintf("freed %d allocations", n)
		m.refresh()

	case key.Matches(msg, m.keys.Up, m.keys.Down):
		var cmd tea.Cmd
		m.mapView, cmd = m.mapView.Update(msg)
		return m, cmd
	}
	return m, nil
}

// steps runs n workload steps, then checks the allocator and redraws.
func (m *Model) steps(n int) {
	for range n {
		if err := m.drv.step(); err != nil {
			m.setErr(err)
			break
		}
	}
	if m.err == nil {
		m.setErr(m.alloc.CheckInvariants())
	}
	m.refresh()
}

func (m *Model) setErr(err error) {
	if err != nil && m.err == nil {
		logger.Error("allocator error", "error", err)
		m.err = err
	}
}

func (m *Model) copyStats() {
	data, err := json.MarshalIndent(m.alloc.Stats(), "", "  ")
	if err == nil {
		err = clipboard.WriteAll(string(data))
	}
	if err != nil {
		logger.Warn("copy failed", "error", err)
		m.statusMessage = "copy failed: " + err.Error()
		return
	}
	m.statusMessage = "statistics copied to clipboard"
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
	m.mapView.Width = max(width-4, 8)
	m.mapView.Height = max(height-HeaderHeight-StatusHeight-PaneChrome, 1)
	m.refresh()
}

// mapCells returns how many cells the occupancy map has: enough to fill
// MapRowsPerPage screens, but never more than one per page.
func (m *Model) mapCells() int {
	n := m.mapView.Width * m.mapView.Height * MapRowsPerPage
	return int(min(uint64(n), m.opts.Pages))
}

func (m *Model) refresh() {
	cells := sampleCells(m.alloc, m.mapCells())
	m.mapView.SetContent(renderCells(cells, m.mapView.Width))
}
