package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Quit     key.Binding
	Tab      key.Binding
	Up       key.Binding
	Down     key.Binding
	Refresh  key.Binding
	Activate key.Binding

	PrevPage key.Binding
	NextPage key.Binding

	TargetPrev   key.Binding
	TargetNext   key.Binding
	IntervalUp   key.Binding
	IntervalDown key.Binding
	ToggleActive key.Binding
	ToggleOrig   key.Binding
	Save         key.Binding
	Delete       key.Binding
	Cancel       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "move down"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Activate: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next page"),
		),
		TargetPrev: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/left", "prev target"),
		),
		TargetNext: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/right", "next target"),
		),
		IntervalUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "longer interval"),
		),
		IntervalDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "shorter interval"),
		),
		ToggleActive: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle active"),
		),
		ToggleOrig: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "toggle original timestamp"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c", "esc"),
			key.WithHelp("c", "cancel edit"),
		),
	}
}
