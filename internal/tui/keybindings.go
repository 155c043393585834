// Package tui: keyboard binding configuration.
package tui

import "github.com/charmbracelet/bubbles/key"

// Keymap defines all keyboard shortcuts for the orbit view. It implements
// help.KeyMap so the footer and the help modal are generated from it.
type Keymap struct {
	Quit    key.Binding
	Pause   key.Binding
	Restart key.Binding
	Faster  key.Binding
	Slower  key.Binding
	Help    key.Binding
}

// defaultKeymap returns the default key bindings.
func defaultKeymap() Keymap {
	return Keymap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Pause: key.NewBinding(
			key.WithKeys(" ", "space", "p"),
			key.WithHelp("space/p", "pause"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart"),
		),
		Faster: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "faster (×2, max 16 ticks/frame)"),
		),
		Slower: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "slower"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k Keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Restart, k.Faster, k.Slower, k.Help, k.Quit}
}

func (k Keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Restart},
		{k.Faster, k.Slower},
		{k.Help, k.Quit},
	}
}
