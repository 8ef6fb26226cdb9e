package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the bindings the finder screen reacts to. Printable keys
// are left to the query box.
type keyMap struct {
	Search key.Binding
	Pager  key.Binding
	Up     key.Binding
	Down   key.Binding
	Help   key.Binding
	Quit   key.Binding

	RecallPrev key.Binding
	RecallNext key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Search: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "search"),
		),
		Pager: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "page results"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
		RecallPrev: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "older search"),
		),
		RecallNext: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "newer search"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Pager, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Pager},
		{k.Up, k.Down},
		{k.RecallPrev, k.RecallNext},
		{k.Help, k.Quit},
	}
}
