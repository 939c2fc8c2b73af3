package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the viewer's bindings. Arrow keys are routed through the
// controller so profiles without arrow navigation ignore them; n/p and h/l
// press the navigation buttons.
type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	ArrowR   key.Binding
	ArrowL   key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
	Copy     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap(arrows bool) keyMap {
	km := keyMap{
		Next:     key.NewBinding(key.WithKeys("n", "l"), key.WithHelp("n/l", "next slide")),
		Prev:     key.NewBinding(key.WithKeys("p", "h"), key.WithHelp("p/h", "previous slide")),
		ArrowR:   key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next")),
		ArrowL:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous")),
		ScrollUp: key.NewBinding(key.WithKeys("up", "k", "pgup"), key.WithHelp("↑/k", "scroll up")),
		ScrollDn: key.NewBinding(key.WithKeys("down", "j", "pgdown"), key.WithHelp("↓/j", "scroll down")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy media url")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	// Arrows stay bound so the controller decides; they are only advertised
	// where they work.
	if !arrows {
		km.ArrowR.SetHelp("", "")
		km.ArrowL.SetHelp("", "")
	}
	return km
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Copy, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	nav := []key.Binding{k.Prev, k.Next}
	if k.ArrowR.Help().Key != "" {
		nav = append(nav, k.ArrowL, k.ArrowR)
	}
	return [][]key.Binding{
		nav,
		{k.ScrollUp, k.ScrollDn},
		{k.Copy, k.Help, k.Quit},
	}
}
