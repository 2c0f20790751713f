package main

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Step    key.Binding
	Run     key.Binding
	Purge   key.Binding
	Reclaim key.Binding
	FreeAll key.Binding

	Stats key.Binding
	Copy  key.Binding
	Up    key.Binding
	Down  key.Binding

	Esc  key.Binding
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Step: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s/space", "step"),
		),
		Run: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "run/pause"),
		),
		Purge: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "purge all"),
		),
		Reclaim: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "retire fragmented blocks"),
		),
		FreeAll: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "free everything"),
		),
		Stats: key.NewBinding(
			key.WithKeys("i", "tab"),
			key.WithHelp("i", "statistics"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy stats JSON"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Step, k.Run, k.Purge, k.Stats, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Step, k.Run, k.FreeAll},
		{k.Purge, k.Reclaim},
		{k.Stats, k.Copy, k.Up, k.Down},
		{k.Esc, k.Help, k.Quit},
	}
}
