package main

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the explorer's key bindings. It satisfies help.KeyMap so
// the bubbles help widget renders the binding list.
type keyMap struct {
	Step  key.Binding
	Alloc key.Binding
	Free  key.Binding
	Fit   key.Binding
	Reset key.Binding
	Left  key.Binding
	Right key.Binding
	Copy  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Step: key.NewBinding(
			key.WithKeys(" ", "n"),
			key.WithHelp("space/n", "step workload"),
		),
		Alloc: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "allocate"),
		),
		Free: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "free random"),
		),
		Fit: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "cycle fit mode"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset arena"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous block"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next block"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy block info"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp is the single-line hint shown under the status bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Step, k.Fit, k.Copy, k.Help, k.Quit}
}

// FullHelp is the expanded binding table behind the ? toggle.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Step, k.Alloc, k.Free, k.Reset},
		{k.Left, k.Right, k.Copy, k.Fit},
		{k.Help, k.Quit},
	}
}
