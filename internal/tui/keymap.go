package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Record   key.Binding
	Rehearse key.Binding
	Stop     key.Binding
	Export   key.Binding
	FontUp   key.Binding
	FontDown key.Binding
	Faster   key.Binding
	Slower   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Record:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "record")),
		Rehearse: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "test scroll")),
		Stop:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop"), key.WithDisabled()),
		Export:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "export"), key.WithDisabled()),
		FontUp:   key.NewBinding(key.WithKeys("ctrl+up"), key.WithHelp("ctrl+↑/↓", "font")),
		FontDown: key.NewBinding(key.WithKeys("ctrl+down"), key.WithHelp("ctrl+↑/↓", "font")),
		Faster:   key.NewBinding(key.WithKeys("shift+up"), key.WithHelp("shift+↑/↓", "speed")),
		Slower:   key.NewBinding(key.WithKeys("shift+down"), key.WithHelp("shift+↑/↓", "speed")),
		Help:     key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// sync adapts bindings to the session state. While a session runs, plain
// arrows also change speed since the editor is hidden.
func (k *keyMap) sync(editing, hasClip bool) {
	if editing {
		k.Record.SetHelp("ctrl+r", "record")
		k.Rehearse.SetHelp("ctrl+t", "test scroll")
		k.Faster.SetKeys("shift+up")
		k.Slower.SetKeys("shift+down")
		k.Faster.SetHelp("shift+↑/↓", "speed")
		k.Slower.SetHelp("shift+↑/↓", "speed")
	} else {
		k.Record.SetHelp("ctrl+r", "stop")
		k.Rehearse.SetHelp("ctrl+t", "stop")
		k.Faster.SetKeys("shift+up", "up")
		k.Slower.SetKeys("shift+down", "down")
		k.Faster.SetHelp("↑/↓", "speed")
		k.Slower.SetHelp("↑/↓", "speed")
	}
	k.Stop.SetEnabled(!editing)
	k.FontUp.SetEnabled(editing)
	k.FontDown.SetEnabled(editing)
	k.Export.SetEnabled(editing && hasClip)
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Record, k.Rehearse, k.Stop, k.Export, k.Faster, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Record, k.Rehearse, k.Stop, k.Export},
		{k.FontUp, k.Faster},
		{k.Help, k.Quit},
	}
}
