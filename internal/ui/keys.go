package ui

import "github.com/charmbracelet/bubbles/key"

var keys = struct {
	Quit    key.Binding
	Focus   key.Binding
	Submit  key.Binding
	Blur    key.Binding
	Prev    key.Binding
	Next    key.Binding
	Chaos   key.Binding
	Refetch key.Binding
	Debug   key.Binding
}{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Focus:   key.NewBinding(key.WithKeys("/", "tab"), key.WithHelp("/", "search")),
	Submit:  key.NewBinding(key.WithKeys("enter")),
	Blur:    key.NewBinding(key.WithKeys("esc")),
	Prev:    key.NewBinding(key.WithKeys("up")),
	Next:    key.NewBinding(key.WithKeys("down")),
	Chaos:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chaos")),
	Refetch: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Debug:   key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "debug")),
}
