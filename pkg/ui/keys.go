package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Copy    key.Binding
	Reload  key.Binding
	Search  key.Binding
	Back    key.Binding
	Select  key.Binding
	Up      key.Binding
	Down    key.Binding
	Top     key.Binding
	Bottom  key.Binding
	ScrollU key.Binding
	ScrollD key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Copy:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy policy")),
	Reload:  key.NewBinding(key.WithKeys("f5"), key.WithHelp("f5", "reload node")),
	Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to tree")),
	Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand/select")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j", "down")),
	Top:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "top")),
	Bottom:  key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "bottom")),
	ScrollU: key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "scroll up")),
	ScrollD: key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("ctrl+d", "scroll down")),
}

func (k keyMap) helpItems() []key.Binding {
	return []key.Binding{k.Quit, k.Copy, k.Reload, k.Search, k.Select}
}
