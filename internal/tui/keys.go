package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	MoveUp     key.Binding
	MoveDown   key.Binding
	Open       key.Binding
	Back       key.Binding
	Add        key.Binding
	Delete     key.Binding
	Toggle     key.Binding
	Sort       key.Binding
	Direction  key.Binding
	Filter     key.Binding
	Archived   key.Binding
	Milestones key.Binding
	Types      key.Binding
	Reload     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		MoveUp:     key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		MoveDown:   key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:       key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "cancel/back")),
		Add:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Delete:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		Toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done/archive")),
		Sort:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Direction:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "reverse")),
		Filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Archived:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archived")),
		Milestones: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "milestones")),
		Types:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "task types")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.MoveUp, k.MoveDown, k.Open, k.Add, k.Sort, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.MoveUp, k.MoveDown},
		{k.Open, k.Back, k.Milestones, k.Types},
		{k.Add, k.Delete, k.Toggle, k.Reload},
		{k.Sort, k.Direction, k.Filter, k.Archived},
		{k.Help, k.Quit},
	}
}
