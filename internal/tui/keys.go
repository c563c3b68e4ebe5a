package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings shared by wizards.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
	Tab    key.Binding
}

// DefaultKeyMap returns the default key bindings.
// Letters are not bound for navigation so they reach text fields.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Tab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete path")),
	}
}

// HelpText returns a formatted help string for list navigation.
func (k KeyMap) HelpText() string {
	return "↑/↓ navigate • enter select • esc back • ctrl+c quit"
}

// InputHelpText returns help text for input fields.
func (k KeyMap) InputHelpText() string {
	return "↑/↓ move • tab complete path • enter next • esc back"
}
