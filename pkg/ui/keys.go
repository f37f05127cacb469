package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap binds the browser actions. It satisfies help.KeyMap.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Toggle   key.Binding
	Open     key.Binding
	Query    key.Binding
	Replace  key.Binding
	Flatten  key.Binding
	Tag      key.Binding
	Rebuild  key.Binding
	Copy     key.Binding
	Help     key.Binding
	Quit     key.Binding

	// Prompt keys
	Accept     key.Binding
	ReplaceAll key.Binding
	NextInput  key.Binding
	Cancel     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Top:      key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Expand:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand")),
		Collapse: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Toggle:   key.NewBinding(key.WithKeys("tab", " "), key.WithHelp("tab", "fold")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Query:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Replace:  key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "replace")),
		Flatten:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "flatten")),
		Tag: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "tags"),
		),
		Rebuild: key.NewBinding(key.WithKeys("ctrl+r", "f5"), key.WithHelp("ctrl+r", "rebuild")),
		Copy:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy path")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Accept:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		ReplaceAll: key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "replace all")),
		NextInput:  key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch field")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Query, k.Replace, k.Tag, k.Flatten, k.Open, k.Rebuild, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Expand, k.Collapse, k.Toggle, k.Open, k.Copy},
		{k.Query, k.Tag, k.Flatten, k.Replace, k.ReplaceAll},
		{k.Rebuild, k.Help, k.Quit},
	}
}

// promptKeys is the help shown while an input prompt has focus.
type promptKeys struct {
	KeyMap
	replace bool
}

func (p promptKeys) ShortHelp() []key.Binding {
	if p.replace {
		return []key.Binding{p.Accept, p.ReplaceAll, p.NextInput, p.Cancel}
	}
	return []key.Binding{p.Accept, p.Cancel}
}

func (p promptKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{p.ShortHelp()}
}
