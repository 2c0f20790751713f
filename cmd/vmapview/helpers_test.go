package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// TestHelper provides utilities for testing TUI components
type TestHelper struct {
	t     *testing.T
	model Model
	last  tea.Cmd
}

// NewTestHelper creates a test helper over a small window
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	m, err := NewModel(Options{Pages: 1024, PageSize: 4096, Workers: 2, Seed: 3})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return &TestHelper{t: t, model: m}
}

// Send delivers msg and keeps the resulting command without running it
func (h *TestHelper) Send(msg tea.Msg) *TestHelper {
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	h.last = cmd
	return h
}

// SendKey simulates a special key press
func (h *TestHelper) SendKey(keyType tea.KeyType) *TestHelper {
	return h.Send(tea.KeyMsg{Type: keyType})
}

// SendKeyRune simulates a character key press
func (h *TestHelper) SendKeyRune(r rune) *TestHelper {
	return h.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

// SendWindowSize simulates a window resize
func (h *TestHelper) SendWindowSize(width, height int) *TestHelper {
	return h.Send(tea.WindowSizeMsg{Width: width, Height: height})
}

// GetModel returns the current model
func (h *TestHelper) GetModel() Model {
	return h.model
}

// GetView returns the rendered view
func (h *TestHelper) GetView() string {
	return h.model.View()
}

// requireHealthy fails the test if the model recorded an allocator error
func (h *TestHelper) requireHealthy() {
	h.t.Helper()
	if h.model.err != nil {
		h.t.Fatalf("model error: %v", h.model.err)
	}
}
