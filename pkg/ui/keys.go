package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the carousel bindings. It implements help.KeyMap.
type KeyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Advance  key.Binding
	Rewind   key.Binding
	Jump     key.Binding
	Autoplay key.Binding
	Info     key.Binding
	Reset    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next card"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous card"),
		),
		Advance: key.NewBinding(
			key.WithKeys("enter", " ", "j", "down"),
			key.WithHelp("enter/space", "next step"),
		),
		Rewind: key.NewBinding(
			key.WithKeys("backspace", "k", "up"),
			key.WithHelp("bksp/k", "previous step"),
		),
		Jump: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "jump to card"),
		),
		Autoplay: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "autoplay"),
		),
		Info: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "deck info"),
		),
		Reset: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reset progress"),
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

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Advance, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Jump},
		{k.Advance, k.Rewind, k.Autoplay},
		{k.Info, k.Reset, k.Help, k.Quit},
	}
}
