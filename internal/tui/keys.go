package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Tutorial key.Binding
	Disaster key.Binding
	Choose   key.Binding
	Advice   key.Binding
	End      key.Binding
	Restart  key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Tutorial: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tutorial"),
		),
		Disaster: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5"),
			key.WithHelp("1-5", "start scenario"),
		),
		Choose: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "choose option"),
		),
		Advice: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "ask advisor"),
		),
		End: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "end scenario"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}
